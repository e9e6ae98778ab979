package facemark

// Tracker is a trained cascade of regression tree stages. Starting from
// the mean shape placed inside an initial face rectangle, every stage
// nudges the estimate closer to the face geometry using nothing but
// pixel intensity comparisons. A tracker is built once by Train and is
// immutable afterwards.
type Tracker struct {
	meanShape Shape
	stages    []*Regressor

	// ValidationErrors records the mean landmark error on the held out
	// sample set after each stage, when a validation split was used.
	// It is a training record and is not serialized with the model.
	ValidationErrors []float64
}

// MeanShape returns the canonical mean shape of the tracker in
// normalized shape space.
func (t *Tracker) MeanShape() Shape {
	return t.meanShape.Clone()
}

// NumStages returns the number of cascade stages.
func (t *Tracker) NumStages() int {
	return len(t.stages)
}

// Stage returns the regressor of the given cascade stage.
func (t *Tracker) Stage(i int) *Regressor {
	return t.stages[i]
}

// NumLandmarks returns the landmark count the tracker was trained on.
func (t *Tracker) NumLandmarks() int {
	return len(t.meanShape)
}

// Predict aligns the landmarks to the face inside the given rectangle.
// It replays the per-stage transform, traverse and accumulate logic of
// training without any fitting: the mean shape is placed inside the
// rectangle and every stage's correction is mapped back through the
// current pose transform. The returned shape lives in image space.
func (t *Tracker) Predict(img *Image, rect Rect) Shape {
	toImage := SimilarityTransform(UnitRect().Corners(), rect.Corners())

	estimate := t.meanShape.Clone()
	dim := 2 * len(estimate)

	for _, stage := range t.stages {
		pose := SimilarityTransform(t.meanShape, estimate)
		correction := stage.predict(img, toImage, pose, dim)

		for j := range estimate {
			d := pose.ApplyVector(Point{X: correction[2*j], Y: correction[2*j+1]})
			estimate[j] = estimate[j].Add(d)
		}
	}

	return toImage.ApplyShape(estimate)
}
