package facemark

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// leafOnlyTree builds a degenerate tree whose root is already a leaf,
// so every sample receives the same displacement.
func leafOnlyTree(mean []float64) *Tree {
	t := &Tree{depth: 0, nodes: make([]treeNode, 1)}
	t.nodes[0].mean = mean
	return t
}

func TestTracker_PredictAppliesLeafDisplacement(t *testing.T) {
	assert := assert.New(t)

	tracker := &Tracker{
		meanShape: Shape{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.75}},
		stages: []*Regressor{
			{
				coords: []Point{{0.5, 0.5}},
				trees:  []*Tree{leafOnlyTree([]float64{0.1, -0.05, 0, 0.2})},
			},
		},
	}

	img := gradientImage(32, 32)
	rect := NewRect(Point{X: 10, Y: 10}, Point{X: 20, Y: 20})

	// The first stage pose is the identity, so the displacement applies
	// unrotated and the rect transform scales by 10 and shifts by 10.
	got := tracker.Predict(img, rect)

	assert.Len(got, 2)
	assert.InDelta(13.5, got[0].X, 1e-9)
	assert.InDelta(12.0, got[0].Y, 1e-9)
	assert.InDelta(17.5, got[1].X, 1e-9)
	assert.InDelta(19.5, got[1].Y, 1e-9)
}

func TestTracker_ZeroDisplacementLeavesMeanShapeInPlace(t *testing.T) {
	assert := assert.New(t)

	tracker := &Tracker{
		meanShape: Shape{{X: 0.2, Y: 0.3}, {X: 0.8, Y: 0.6}},
		stages: []*Regressor{
			{
				coords: []Point{{0.5, 0.5}},
				trees:  []*Tree{leafOnlyTree([]float64{0, 0, 0, 0})},
			},
			{
				coords: []Point{{0.4, 0.4}},
				trees:  []*Tree{leafOnlyTree([]float64{0, 0, 0, 0})},
			},
		},
	}

	img := gradientImage(64, 64)
	rect := NewRect(Point{X: 0, Y: 0}, Point{X: 64, Y: 64})

	got := tracker.Predict(img, rect)

	assert.InDelta(0.2*64, got[0].X, 1e-9)
	assert.InDelta(0.3*64, got[0].Y, 1e-9)
	assert.InDelta(0.8*64, got[1].X, 1e-9)
	assert.InDelta(0.6*64, got[1].Y, 1e-9)
}

func TestTracker_AccessorsExposeImmutableViews(t *testing.T) {
	assert := assert.New(t)

	tracker := &Tracker{
		meanShape: Shape{{X: 0.5, Y: 0.5}},
		stages:    []*Regressor{{coords: []Point{{0, 0}}, trees: []*Tree{leafOnlyTree([]float64{0, 0})}}},
	}

	assert.Equal(1, tracker.NumStages())
	assert.Equal(1, tracker.NumLandmarks())
	assert.Equal(1, tracker.Stage(0).NumTrees())

	// Mutating the returned mean shape must not reach into the tracker.
	mean := tracker.MeanShape()
	mean[0].X = 99
	assert.Equal(0.5, tracker.meanShape[0].X)
}
