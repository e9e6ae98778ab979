package facemark

// Rect is a quadrilateral described by its four corner points in the
// order top-left, top-right, bottom-left, bottom-right. Keeping all
// four corners instead of a width/height pair allows a rectangle to be
// placed under an arbitrary similarity or affine transform.
type Rect [4]Point

// NewRect builds an axis-aligned rectangle from its min and max corners.
func NewRect(min, max Point) Rect {
	return Rect{
		{X: min.X, Y: min.Y},
		{X: max.X, Y: min.Y},
		{X: min.X, Y: max.Y},
		{X: max.X, Y: max.Y},
	}
}

// UnitRect returns the axis-aligned unit square. It acts as the canonical
// frame of the normalized shape space: every training rect is mapped onto
// it before any feature sampling takes place.
func UnitRect() Rect {
	return NewRect(Point{0, 0}, Point{1, 1})
}

// ShapeBounds derives the tight axis-aligned bounding rectangle of a shape.
// It is used as a fallback when no detector-provided rectangle exists.
func ShapeBounds(s Shape) Rect {
	min, max := s.Bounds()
	return NewRect(min, max)
}

// Corners exposes the rectangle corners as a four-landmark shape so the
// similarity transform estimation can be reused for rect alignment.
func (r Rect) Corners() Shape {
	return Shape{r[0], r[1], r[2], r[3]}
}

// overlapRatio reports the fraction of shape landmarks falling inside the
// axis-aligned extent of the rectangle. Detector rects are matched to
// ground truth shapes by maximizing this ratio.
func (r Rect) overlapRatio(s Shape) float64 {
	if len(s) == 0 {
		return 0
	}
	min, max := r[0], r[3]

	inside := 0
	for _, p := range s {
		if p.X >= min.X && p.Y >= min.Y && p.X <= max.X && p.Y <= max.Y {
			inside++
		}
	}
	return float64(inside) / float64(len(s))
}
