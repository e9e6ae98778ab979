package facemark

// Regressor is one cascade stage: the pixel coordinate pool sampled for
// the stage and the regression trees fit against it. The trees within a
// stage were fit sequentially on each other's remaining residual, so
// their leaf contributions simply accumulate at prediction time.
type Regressor struct {
	coords []Point
	trees  []*Tree
}

// NumTrees returns the number of trees assembled into the stage.
func (r *Regressor) NumTrees() int {
	return len(r.trees)
}

// predict reads the stage's intensity row for the given image and pose
// and returns the summed, shrinkage-scaled leaf displacements in the
// mean shape aligned frame.
func (r *Regressor) predict(img *Image, toImage, pose Similarity, dim int) []float64 {
	row := readIntensityRow(r.coords, img, toImage, pose)

	correction := make([]float64, dim)
	for _, t := range r.trees {
		addVec(correction, t.Predict(row))
	}
	return correction
}
