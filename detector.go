package facemark

import (
	"os"

	"github.com/pkg/errors"

	"github.com/esimov/facemark/utils"
	pigo "github.com/esimov/pigo/core"
)

// FaceDetector wraps the pigo pixel intensity comparison face detector.
// It generates the initial face rectangles the tracker is trained and
// evaluated with, replacing hand-annotated bounding boxes.
type FaceDetector struct {
	classifier *pigo.Pigo

	// MinSize and MaxSize bound the detection window in pixels.
	MinSize int
	MaxSize int
	// ShiftFactor moves the detection window by a percentage of its size.
	ShiftFactor float64
	// ScaleFactor grows the detection window between scales.
	ScaleFactor float64
	// IoUThreshold clusters overlapping detections.
	IoUThreshold float64
}

// NewFaceDetector unpacks a binary pigo cascade classifier.
func NewFaceDetector(cascade []byte) (*FaceDetector, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, errors.Wrap(err, "unpacking the cascade file")
	}

	return &FaceDetector{
		classifier:   classifier,
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
	}, nil
}

// NewFaceDetectorFromFile reads and unpacks a cascade classifier file.
func NewFaceDetectorFromFile(path string) (*FaceDetector, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading the cascade file")
	}
	return NewFaceDetector(cascade)
}

// Detect runs the classifier over the image and returns the clustered
// face rectangles, strongest detection first.
func (fd *FaceDetector) Detect(img *Image) []Rect {
	maxSize := utils.Min(fd.MaxSize, utils.Max(img.Width, img.Height))

	params := pigo.CascadeParams{
		MinSize:     fd.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: fd.ShiftFactor,
		ScaleFactor: fd.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: img.Pixels,
			Rows:   img.Height,
			Cols:   img.Width,
			Dim:    img.Width,
		},
	}

	detections := fd.classifier.RunCascade(params, 0.0)
	detections = fd.classifier.ClusterDetections(detections, fd.IoUThreshold)

	rects := make([]Rect, 0, len(detections))
	for _, det := range detections {
		half := float64(det.Scale) / 2
		rects = append(rects, NewRect(
			Point{X: float64(det.Col) - half, Y: float64(det.Row) - half},
			Point{X: float64(det.Col) + half, Y: float64(det.Row) + half},
		))
	}
	return rects
}

// TrainingRects generates one rectangle per database image: the
// detection overlapping the ground truth shape best, when it covers at
// least minOverlap of the landmarks, otherwise the tight shape bounds.
// The returned slice is index-aligned with the database.
func (fd *FaceDetector) TrainingRects(db *Database, minOverlap float64) []Rect {
	rects := make([]Rect, len(db.Images))

	for i, img := range db.Images {
		shape := db.Shapes[i]

		best := ShapeBounds(shape)
		bestOverlap := minOverlap

		for _, r := range fd.Detect(img) {
			if overlap := r.overlapRatio(shape); overlap >= bestOverlap {
				best = r
				bestOverlap = overlap
			}
		}
		rects[i] = best
	}
	return rects
}
