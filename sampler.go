package facemark

import (
	"math"
	"math/rand"
	"runtime"
	"sync"
)

// FeaturePool holds the randomized pixel coordinate pool of one cascade
// stage. The coordinates live in the normalized shape space, relative
// to the mean shape; they are projected into every sample's source
// image through the per-sample pose transform before any intensity is
// read.
type FeaturePool struct {
	Coords []Point
	lambda float64
}

// NewFeaturePool draws n coordinates uniformly within the mean shape
// bounds. The exponential decay rate drives the pair prior used by the
// split test search.
func NewFeaturePool(meanShape Shape, n int, lambda float64, rnd *rand.Rand) *FeaturePool {
	min, max := meanShape.Bounds()

	coords := make([]Point, n)
	for i := range coords {
		coords[i] = Point{
			X: min.X + rnd.Float64()*(max.X-min.X),
			Y: min.Y + rnd.Float64()*(max.Y-min.Y),
		}
	}
	return &FeaturePool{Coords: coords, lambda: lambda}
}

// SamplePair draws a pair of distinct pool coordinate indices with the
// exponential distance prior: a pair at distance d is accepted with
// probability exp(-lambda*d), biasing the regression trees toward
// locally coherent intensity comparisons. Rejection sampling is bounded
// so a pathological pool cannot loop forever.
func (fp *FeaturePool) SamplePair(rnd *rand.Rand) (int, int) {
	const maxRejections = 100

	a := rnd.Intn(len(fp.Coords))
	b := rnd.Intn(len(fp.Coords))

	for i := 0; i < maxRejections; i++ {
		if a != b {
			d := fp.Coords[a].Distance(fp.Coords[b])
			if rnd.Float64() < math.Exp(-fp.lambda*d) {
				break
			}
		}
		a = rnd.Intn(len(fp.Coords))
		b = rnd.Intn(len(fp.Coords))
	}

	if a == b {
		b = (a + 1) % len(fp.Coords)
	}
	return a, b
}

// ReadIntensities extracts the dense intensity table of the stage: one
// row per sample, one column per pool coordinate. Every coordinate is
// mapped through the sample's pose transform (mean shape onto current
// estimate) followed by its image placement transform (unit rect onto
// the sample's rect), then the source image is queried at the resulting
// sub-pixel location. Rows are independent, so the extraction fans out
// over a bounded worker pool; the table is read-only afterwards and
// shared by all trees of the stage.
func (fp *FeaturePool) ReadIntensities(images []*Image, toImage []Similarity, meanShape Shape, samples []Sample) [][]float64 {
	table := make([][]float64, len(samples))

	workers := runtime.NumCPU()
	if workers > len(samples) {
		workers = len(samples)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	chunk := (len(samples) + workers - 1) / workers

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(lo int) {
			defer wg.Done()

			hi := lo + chunk
			if hi > len(samples) {
				hi = len(samples)
			}
			for i := lo; i < hi; i++ {
				table[i] = fp.readRow(images[samples[i].Idx], toImage[samples[i].Idx], meanShape, samples[i].Estimate)
			}
		}(w * chunk)
	}
	wg.Wait()

	return table
}

// readRow extracts the intensities of a single sample.
func (fp *FeaturePool) readRow(img *Image, toImage Similarity, meanShape, estimate Shape) []float64 {
	pose := SimilarityTransform(meanShape, estimate)
	return readIntensityRow(fp.Coords, img, toImage, pose)
}

// readIntensityRow projects every pool coordinate through the pose and
// image placement transforms and samples the image intensity at each
// resulting location. Shared between training and tracking.
func readIntensityRow(coords []Point, img *Image, toImage, pose Similarity) []float64 {
	row := make([]float64, len(coords))
	for i, c := range coords {
		p := toImage.Apply(pose.Apply(c))
		row[i] = img.At(p.X, p.Y)
	}
	return row
}
