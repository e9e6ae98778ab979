package facemark

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var refShape Shape

func init() {
	refShape = Shape{
		{X: 10, Y: 10},
		{X: 50, Y: 12},
		{X: 30, Y: 60},
		{X: 12, Y: 44},
	}
}

func TestTransform_IdentityOnSelfAlignment(t *testing.T) {
	assert := assert.New(t)

	tr := SimilarityTransform(refShape, refShape)

	assert.InDelta(1.0, tr.A, 1e-9)
	assert.InDelta(0.0, tr.B, 1e-9)
	assert.InDelta(0.0, tr.TX, 1e-9)
	assert.InDelta(0.0, tr.TY, 1e-9)
}

func TestTransform_ScaleEquivariance(t *testing.T) {
	assert := assert.New(t)

	const k = 3.5
	scaled := make(Shape, len(refShape))
	for i, p := range refShape {
		scaled[i] = Point{X: k * p.X, Y: k * p.Y}
	}

	base := SimilarityTransform(refShape, refShape)
	tr := SimilarityTransform(refShape, scaled)

	assert.InDelta(k*base.Scale(), tr.Scale(), 1e-9)
}

func TestTransform_RecoversRotationAndTranslation(t *testing.T) {
	assert := assert.New(t)

	angle := math.Pi / 6
	want := Similarity{
		A:  2 * math.Cos(angle),
		B:  2 * math.Sin(angle),
		TX: 7,
		TY: -3,
	}
	target := want.ApplyShape(refShape)

	tr := SimilarityTransform(refShape, target)

	assert.InDelta(want.A, tr.A, 1e-9)
	assert.InDelta(want.B, tr.B, 1e-9)
	assert.InDelta(want.TX, tr.TX, 1e-6)
	assert.InDelta(want.TY, tr.TY, 1e-6)
}

func TestTransform_SingleLandmarkDegeneratesToTranslation(t *testing.T) {
	assert := assert.New(t)

	from := Shape{{X: 2, Y: 3}}
	to := Shape{{X: 10, Y: -4}}

	tr := SimilarityTransform(from, to)

	assert.Equal(1.0, tr.A)
	assert.Equal(0.0, tr.B)
	assert.InDelta(8.0, tr.TX, 1e-9)
	assert.InDelta(-7.0, tr.TY, 1e-9)

	got := tr.Apply(from[0])
	assert.InDelta(to[0].X, got.X, 1e-9)
	assert.InDelta(to[0].Y, got.Y, 1e-9)
}

func TestTransform_InvertRoundTrip(t *testing.T) {
	assert := assert.New(t)

	tr := Similarity{A: 1.3, B: -0.4, TX: 12, TY: -5}
	inv := tr.Invert()

	for _, p := range refShape {
		back := inv.Apply(tr.Apply(p))
		assert.InDelta(p.X, back.X, 1e-9)
		assert.InDelta(p.Y, back.Y, 1e-9)
	}
}

func TestTransform_VectorsIgnoreTranslation(t *testing.T) {
	assert := assert.New(t)

	tr := Similarity{A: 2, B: 0, TX: 100, TY: 100}
	v := tr.ApplyVector(Point{X: 1, Y: 1})

	assert.InDelta(2.0, v.X, 1e-9)
	assert.InDelta(2.0, v.Y, 1e-9)
}
