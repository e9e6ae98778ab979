package facemark

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

var gtShapes []Shape

func init() {
	gtShapes = []Shape{
		{{X: 10, Y: 10}, {X: 50, Y: 12}, {X: 30, Y: 60}},
		{{X: 20, Y: 20}, {X: 80, Y: 25}, {X: 30, Y: 90}},
		{{X: 5, Y: 8}, {X: 45, Y: 10}, {X: 22, Y: 55}},
	}
}

func TestTraining_SampleCountMatchesInitializations(t *testing.T) {
	assert := assert.New(t)

	const numInits = 7
	rnd := rand.New(rand.NewSource(1))

	for _, strategy := range []SamplingStrategy{SampleShapes, SampleCombinations} {
		samples := CreateTrainingSamples(gtShapes, numInits, strategy, rnd)
		assert.Len(samples, len(gtShapes)*numInits)

		for _, s := range samples {
			assert.GreaterOrEqual(s.Idx, 0)
			assert.Less(s.Idx, len(gtShapes))
			assert.Len(s.Estimate, len(gtShapes[0]))
		}
	}
}

func TestTraining_EstimatesAreMutableCopies(t *testing.T) {
	assert := assert.New(t)

	rnd := rand.New(rand.NewSource(2))
	samples := CreateTrainingSamples(gtShapes, 5, SampleShapes, rnd)

	// Mutating an estimate must never write through to the ground truth.
	for i := range samples {
		samples[i].Estimate[0] = Point{X: -1000, Y: -1000}
	}
	for _, s := range gtShapes {
		assert.NotEqual(Point{X: -1000, Y: -1000}, s[0])
	}
}

func TestTraining_SampleShapesStartsFromOtherFace(t *testing.T) {
	assert := assert.New(t)

	rnd := rand.New(rand.NewSource(3))
	samples := CreateTrainingSamples(gtShapes, 10, SampleShapes, rnd)

	for _, s := range samples {
		assert.NotEqual(gtShapes[s.Idx], s.Estimate,
			"the initial estimate should differ from the sample's own ground truth")
	}
}

func TestTraining_NormalizationRemovesRectBias(t *testing.T) {
	assert := assert.New(t)

	rects := RectsFromShapeBounds(gtShapes)
	normalized := NormalizeShapes(gtShapes, rects)

	// Tight bounds rects map every shape into the unit square.
	for _, s := range normalized {
		min, max := s.Bounds()
		assert.GreaterOrEqual(min.X, -1e-6)
		assert.GreaterOrEqual(min.Y, -1e-6)
		assert.LessOrEqual(max.X, 1+1e-6)
		assert.LessOrEqual(max.Y, 1+1e-6)
	}

	// The originals stay untouched.
	assert.Equal(Point{X: 10, Y: 10}, gtShapes[0][0])
}

func TestTraining_PartitionIsDisjointAndComplete(t *testing.T) {
	assert := assert.New(t)

	rnd := rand.New(rand.NewSource(4))
	samples := CreateTrainingSamples(gtShapes, 10, SampleShapes, rnd)

	train, validate := PartitionSamples(samples, 0.2, rnd)

	assert.Len(validate, len(samples)/5)
	assert.Equal(len(samples), len(train)+len(validate))

	seen := make(map[*Point]bool)
	for _, s := range train {
		seen[&s.Estimate[0]] = true
	}
	for _, s := range validate {
		assert.False(seen[&s.Estimate[0]], "a sample appears in both subsets")
	}
}

func TestTraining_PartitionClampsInfeasibleFraction(t *testing.T) {
	assert := assert.New(t)

	rnd := rand.New(rand.NewSource(5))
	samples := CreateTrainingSamples(gtShapes, 2, SampleShapes, rnd)

	// Requesting more validation samples than exist degrades to keeping
	// one training sample instead of failing.
	train, validate := PartitionSamples(samples, 5.0, rnd)
	assert.Len(train, 1)
	assert.Len(validate, len(samples)-1)

	train, validate = PartitionSamples(samples, -1.0, rnd)
	assert.Len(train, len(samples))
	assert.Empty(validate)
}
