package facemark

import (
	"math/rand"
)

// Train fits a landmark alignment cascade on the given database.
// The run is a one-shot deterministic batch computation: the same
// database, parameters and seed always produce a bit-identical tracker.
// Preconditions (empty database, mismatched landmark counts, degenerate
// parameters) fail before any training work starts; degenerate numeric
// states during the run resolve locally and never abort the cascade.
func Train(db *Database, params AlgorithmParameters, seed int64) (*Tracker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := db.Validate(); err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewSource(seed))

	rects := db.Rects
	if len(rects) == 0 {
		rects = RectsFromShapeBounds(db.Shapes)
	}

	// All shapes move into the normalized shape space before any
	// feature sampling, removing the rect induced scale and position
	// bias from the learning problem.
	normalized := NormalizeShapes(db.Shapes, rects)
	meanShape := MeanShape(normalized)

	samples := CreateTrainingSamples(normalized, params.NumInitializationsPerImage, params.Strategy, rnd)
	train, validate := PartitionSamples(samples, params.ValidationPercent, rnd)

	// The working set keeps the training samples first so the tree
	// inducer scope is a plain prefix; validation samples still follow
	// every estimate update, they just never drive a split search.
	all := make([]Sample, 0, len(train)+len(validate))
	all = append(all, train...)
	all = append(all, validate...)

	unit := UnitRect().Corners()
	toImage := make([]Similarity, len(rects))
	for i, r := range rects {
		toImage[i] = SimilarityTransform(unit, r.Corners())
	}

	tracker := &Tracker{meanShape: meanShape.Clone()}

	dim := 2 * len(meanShape)
	residuals := make([][]float64, len(all))
	applied := make([][]float64, len(all))
	poses := make([]Similarity, len(all))

	for stage := 0; stage < params.NumCascades; stage++ {
		pool := NewFeaturePool(meanShape, params.NumRandomPixelCoordinates, params.ExponentialLambda, rnd)
		intensities := pool.ReadIntensities(db.Images, toImage, meanShape, all)

		// Stage start: fresh residuals in the mean shape aligned
		// frame of every sample.
		for i := range all {
			poses[i] = SimilarityTransform(meanShape, all[i].Estimate)
			residuals[i] = residualVec(poses[i].Invert(), normalized[all[i].Idx], all[i].Estimate)
			applied[i] = make([]float64, dim)
		}

		order := make([]int, len(train))
		for i := range order {
			order[i] = i
		}

		tt := &treeTraining{
			residuals:   residuals,
			intensities: intensities,
			pool:        pool,
			params:      params,
			rnd:         rnd,
			order:       order,
		}

		trees := make([]*Tree, 0, params.NumTrees)
		for k := 0; k < params.NumTrees; k++ {
			tree, err := fitTree(tt)
			if err != nil {
				return nil, err
			}
			tree.scaleLeaves(params.LearningRate)

			// Sequential boosting: the next tree fits what this
			// one left over.
			for i := range all {
				p := tree.Predict(intensities[i])
				subVec(residuals[i], p)
				addVec(applied[i], p)
			}
			trees = append(trees, tree)
		}

		// Stage end: map the accumulated corrections back through the
		// forward pose transform and advance every estimate.
		for i := range all {
			advanceEstimate(all[i].Estimate, poses[i], applied[i])
		}

		tracker.stages = append(tracker.stages, &Regressor{coords: pool.Coords, trees: trees})

		if len(validate) > 0 {
			tracker.ValidationErrors = append(tracker.ValidationErrors,
				meanLandmarkError(validate, normalized))
		}
	}

	return tracker, nil
}

// residualVec expresses the remaining estimate error in the mean shape
// aligned frame: the inverse pose transform maps the image independent
// shape difference back into the frame the trees learn in.
func residualVec(inv Similarity, truth, estimate Shape) []float64 {
	v := make([]float64, 2*len(truth))
	for j := range truth {
		d := inv.ApplyVector(truth[j].Sub(estimate[j]))
		v[2*j] = d.X
		v[2*j+1] = d.Y
	}
	return v
}

// advanceEstimate applies the accumulated stage correction to a sample
// estimate through the linear part of its pose transform.
func advanceEstimate(estimate Shape, pose Similarity, correction []float64) {
	for j := range estimate {
		d := pose.ApplyVector(Point{X: correction[2*j], Y: correction[2*j+1]})
		estimate[j] = estimate[j].Add(d)
	}
}

// meanLandmarkError reports the mean per-landmark distance between the
// current estimates and the ground truth shapes of the given samples.
func meanLandmarkError(samples []Sample, truth []Shape) float64 {
	var total float64
	var count int

	for _, s := range samples {
		gt := truth[s.Idx]
		for j := range gt {
			total += gt[j].Distance(s.Estimate[j])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func subVec(dst, src []float64) {
	for i := range dst {
		dst[i] -= src[i]
	}
}
