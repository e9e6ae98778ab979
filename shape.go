package facemark

import (
	"math"
	"math/rand"
)

// Point is a single 2D landmark coordinate.
type Point struct {
	X float64
	Y float64
}

// Add returns the sum of two points treated as vectors.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the difference of two points treated as vectors.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the euclidean distance between two points.
func (p Point) Distance(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Shape is an ordered, fixed-size sequence of 2D landmarks describing
// the facial geometry of one face instance. The landmark count and
// ordering is identical across all shapes of a dataset.
type Shape []Point

// Clone returns a mutable copy of the shape.
func (s Shape) Clone() Shape {
	dst := make(Shape, len(s))
	copy(dst, s)
	return dst
}

// Centroid returns the arithmetic mean of all landmarks.
func (s Shape) Centroid() Point {
	var cx, cy float64
	for _, p := range s {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(s))
	return Point{X: cx / n, Y: cy / n}
}

// Bounds returns the landmark extent as min and max corner points.
func (s Shape) Bounds() (Point, Point) {
	min := Point{X: math.Inf(1), Y: math.Inf(1)}
	max := Point{X: math.Inf(-1), Y: math.Inf(-1)}

	for _, p := range s {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max
}

// MeanShape computes the landmark-wise average over a set of shapes
// sharing the same landmark count.
func MeanShape(shapes []Shape) Shape {
	if len(shapes) == 0 {
		return nil
	}
	mean := make(Shape, len(shapes[0]))
	for _, s := range shapes {
		for i, p := range s {
			mean[i].X += p.X
			mean[i].Y += p.Y
		}
	}
	n := float64(len(shapes))
	for i := range mean {
		mean[i].X /= n
		mean[i].Y /= n
	}
	return mean
}

// combineShapes forms a random convex combination of the given shapes.
// The weights are drawn from the supplied random stream and normalized
// to sum up to one.
func combineShapes(shapes []Shape, rnd *rand.Rand) Shape {
	weights := make([]float64, len(shapes))
	var total float64
	for i := range weights {
		weights[i] = rnd.Float64()
		total += weights[i]
	}

	dst := make(Shape, len(shapes[0]))
	for i, s := range shapes {
		w := weights[i] / total
		for j, p := range s {
			dst[j].X += w * p.X
			dst[j].Y += w * p.Y
		}
	}
	return dst
}
