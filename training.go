package facemark

import (
	"math/rand"
)

// Sample is one unit of training work: the index of its source image
// in the database and the current shape estimate. The estimate starts
// out as a synthesized initialization and is advanced in place at every
// cascade stage.
type Sample struct {
	Idx      int
	Estimate Shape
}

// CreateTrainingSamples synthesizes the bootstrap working set from the
// ground truth shapes: numInits samples per source image, each carrying
// a fresh mutable estimate copy. The strategy decides how the estimates
// are drawn; both strategies share the supplied random stream so a run
// reproduces bit-identically under a fixed seed.
func CreateTrainingSamples(shapes []Shape, numInits int, strategy SamplingStrategy, rnd *rand.Rand) []Sample {
	switch strategy {
	case SampleCombinations:
		return sampleCombinations(shapes, numInits, rnd)
	default:
		return sampleShapes(shapes, numInits, rnd)
	}
}

// sampleShapes pairs every image with estimates copied from randomly
// chosen other ground truth shapes of the dataset.
func sampleShapes(shapes []Shape, numInits int, rnd *rand.Rand) []Sample {
	samples := make([]Sample, 0, len(shapes)*numInits)

	for idx := range shapes {
		for k := 0; k < numInits; k++ {
			other := rnd.Intn(len(shapes))
			// Start from a different face whenever the dataset has one.
			if other == idx && len(shapes) > 1 {
				other = (other + 1 + rnd.Intn(len(shapes)-1)) % len(shapes)
			}
			samples = append(samples, Sample{
				Idx:      idx,
				Estimate: shapes[other].Clone(),
			})
		}
	}
	return samples
}

// sampleCombinations pairs every image with estimates formed as random
// convex combinations of all ground truth shapes.
func sampleCombinations(shapes []Shape, numInits int, rnd *rand.Rand) []Sample {
	samples := make([]Sample, 0, len(shapes)*numInits)

	for idx := range shapes {
		for k := 0; k < numInits; k++ {
			samples = append(samples, Sample{
				Idx:      idx,
				Estimate: combineShapes(shapes, rnd),
			})
		}
	}
	return samples
}

// NormalizeShapes maps every shape into the normalized shape space by
// aligning its rect onto the unit rectangle, removing the rect-induced
// scale and position bias before any feature sampling. The returned
// shapes are copies; the input is left untouched.
func NormalizeShapes(shapes []Shape, rects []Rect) []Shape {
	unit := UnitRect().Corners()

	normalized := make([]Shape, len(shapes))
	for i, s := range shapes {
		t := SimilarityTransform(rects[i].Corners(), unit)
		normalized[i] = t.ApplyShape(s)
	}
	return normalized
}

// RectsFromShapeBounds derives tight bounding rects directly from the
// landmark extent of each shape. Used when detector-provided rects are
// unavailable or too inaccurate.
func RectsFromShapeBounds(shapes []Shape) []Rect {
	rects := make([]Rect, len(shapes))
	for i, s := range shapes {
		rects[i] = ShapeBounds(s)
	}
	return rects
}

// PartitionSamples randomly splits the samples into disjoint train and
// validation subsets. The validation fraction is clamped to a feasible
// value: asking for more validation samples than exist degrades to
// keeping at least one training sample rather than failing.
func PartitionSamples(samples []Sample, validatePercent float64, rnd *rand.Rand) (train, validate []Sample) {
	if validatePercent < 0 {
		validatePercent = 0
	}

	numValidate := int(float64(len(samples)) * validatePercent)
	if numValidate >= len(samples) {
		numValidate = len(samples) - 1
	}
	if numValidate < 0 {
		numValidate = 0
	}

	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[numValidate:], shuffled[:numValidate]
}
