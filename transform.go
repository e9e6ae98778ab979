package facemark

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Similarity is a uniform scale + rotation + translation transform.
// The linear part is stored in the two-parameter form
//
//	| A -B |
//	| B  A |
//
// which keeps the transform closed under composition and inversion and
// avoids carrying a full affine matrix around the hot loops.
type Similarity struct {
	A, B   float64
	TX, TY float64
}

// IdentitySimilarity returns the neutral transform.
func IdentitySimilarity() Similarity {
	return Similarity{A: 1}
}

// Apply maps a point through the transform.
func (t Similarity) Apply(p Point) Point {
	return Point{
		X: t.A*p.X - t.B*p.Y + t.TX,
		Y: t.B*p.X + t.A*p.Y + t.TY,
	}
}

// ApplyVector maps a displacement through the linear part of the
// transform, ignoring translation. Residual corrections are vectors,
// not positions, so they only pick up rotation and scale.
func (t Similarity) ApplyVector(p Point) Point {
	return Point{
		X: t.A*p.X - t.B*p.Y,
		Y: t.B*p.X + t.A*p.Y,
	}
}

// ApplyShape maps every landmark of a shape through the transform.
func (t Similarity) ApplyShape(s Shape) Shape {
	dst := make(Shape, len(s))
	for i, p := range s {
		dst[i] = t.Apply(p)
	}
	return dst
}

// Scale returns the uniform scale factor of the transform.
func (t Similarity) Scale() float64 {
	return math.Hypot(t.A, t.B)
}

// Invert returns the inverse transform.
func (t Similarity) Invert() Similarity {
	s2 := t.A*t.A + t.B*t.B
	inv := Similarity{A: t.A / s2, B: -t.B / s2}
	inv.TX = -(inv.A*t.TX - inv.B*t.TY)
	inv.TY = -(inv.B*t.TX + inv.A*t.TY)
	return inv
}

// SimilarityTransform computes the least squares similarity transform
// aligning the from shape onto the to shape (Procrustes analysis).
// Both shapes must carry the same landmark count. The rotation is
// recovered from the SVD of the 2x2 cross covariance matrix of the
// centered landmark sets; a single landmark degenerates to a pure
// translation with identity rotation and scale.
func SimilarityTransform(from, to Shape) Similarity {
	fc := from.Centroid()
	tc := to.Centroid()

	// Cross covariance of the centered landmark sets and the
	// source variance used for the scale estimate.
	var c00, c01, c10, c11, norm float64
	for i := range from {
		fx, fy := from[i].X-fc.X, from[i].Y-fc.Y
		tx, ty := to[i].X-tc.X, to[i].Y-tc.Y

		c00 += tx * fx
		c01 += tx * fy
		c10 += ty * fx
		c11 += ty * fy
		norm += fx*fx + fy*fy
	}

	if norm == 0 {
		// Single landmark or fully collapsed shape: translation only.
		return Similarity{A: 1, TX: tc.X - fc.X, TY: tc.Y - fc.Y}
	}

	var svd mat.SVD
	cov := mat.NewDense(2, 2, []float64{c00, c01, c10, c11})
	if !svd.Factorize(cov, mat.SVDFull) {
		return Similarity{A: 1, TX: tc.X - fc.X, TY: tc.Y - fc.Y}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	// Reflections are not valid pose changes: flip the sign of the
	// smallest singular direction when det(U*Vt) < 0.
	d := 1.0
	var uv mat.Dense
	uv.Mul(&u, v.T())
	if mat.Det(&uv) < 0 {
		d = -1
	}

	// R = U * diag(1, d) * Vt
	r00 := u.At(0, 0)*v.At(0, 0) + d*u.At(0, 1)*v.At(0, 1)
	r10 := u.At(1, 0)*v.At(0, 0) + d*u.At(1, 1)*v.At(0, 1)

	scale := (sigma[0] + d*sigma[1]) / norm

	t := Similarity{A: scale * r00, B: scale * r10}
	rot := t.ApplyVector(fc)
	t.TX = tc.X - rot.X
	t.TY = tc.Y - rot.Y
	return t
}
