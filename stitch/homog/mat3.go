/*
DESCRIPTION
  mat3.go provides the 3x3 homogeneous-coordinate matrix type shared by
  transform estimation, camera rotation propagation, bundle adjustment,
  and warping: a homography acting on 2D points in homogeneous form.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package homog provides the 3x3 homography matrix type used across
// transform estimation, camera rotation propagation, bundle adjustment
// and warping.
package homog

import "math"

// Mat3 is a row-major 3x3 matrix acting on homogeneous 2D coordinates.
type Mat3 [9]float64

// Identity returns the 3x3 identity matrix.
func Identity() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Mul returns a * b (matrix product).
func (a Mat3) Mul(b Mat3) Mat3 {
	var out Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[r*3+k] * b[k*3+c]
			}
			out[r*3+c] = sum
		}
	}
	return out
}

// Apply transforms homogeneous point (x, y, 1) and returns the raw
// (not perspective-divided) result.
func (a Mat3) Apply(x, y float64) (rx, ry, rw float64) {
	rx = a[0]*x + a[1]*y + a[2]
	ry = a[3]*x + a[4]*y + a[5]
	rw = a[6]*x + a[7]*y + a[8]
	return
}

// Apply2D transforms (x, y) and perspective-divides by w.
func (a Mat3) Apply2D(x, y float64) (float64, float64) {
	rx, ry, rw := a.Apply(x, y)
	if rw == 0 {
		return math.NaN(), math.NaN()
	}
	inv := 1 / rw
	return rx * inv, ry * inv
}

// Det returns the determinant.
func (a Mat3) Det() float64 {
	return a[0]*(a[4]*a[8]-a[5]*a[7]) -
		a[1]*(a[3]*a[8]-a[5]*a[6]) +
		a[2]*(a[3]*a[7]-a[4]*a[6])
}

// Inverse returns the matrix inverse and ok=false if the matrix is
// (near-)singular.
func (a Mat3) Inverse() (Mat3, bool) {
	det := a.Det()
	if math.Abs(det) < 1e-12 {
		return Mat3{}, false
	}
	invDet := 1 / det
	var out Mat3
	out[0] = (a[4]*a[8] - a[5]*a[7]) * invDet
	out[1] = (a[2]*a[7] - a[1]*a[8]) * invDet
	out[2] = (a[1]*a[5] - a[2]*a[4]) * invDet
	out[3] = (a[5]*a[6] - a[3]*a[8]) * invDet
	out[4] = (a[0]*a[8] - a[2]*a[6]) * invDet
	out[5] = (a[2]*a[3] - a[0]*a[5]) * invDet
	out[6] = (a[3]*a[7] - a[4]*a[6]) * invDet
	out[7] = (a[1]*a[6] - a[0]*a[7]) * invDet
	out[8] = (a[0]*a[4] - a[1]*a[3]) * invDet
	return out, true
}

// Transpose returns the matrix transpose.
func (a Mat3) Transpose() Mat3 {
	return Mat3{a[0], a[3], a[6], a[1], a[4], a[7], a[2], a[5], a[8]}
}

// Scale multiplies every element by s.
func (a Mat3) Scale(s float64) Mat3 {
	var out Mat3
	for i := range a {
		out[i] = a[i] * s
	}
	return out
}

// Normalize rescales the matrix so the sum of squared elements is 9
// (i.e. elements have RMS magnitude 1), matching Homography::normalize
// in the original implementation — keeps inverse-pair comparisons
// (P3) scale-independent.
func (a Mat3) Normalize() Mat3 {
	var sq float64
	for _, v := range a {
		sq += v * v
	}
	if sq == 0 {
		return a
	}
	factor := math.Sqrt(9 / sq)
	return a.Scale(factor)
}

// Healthy reports whether the matrix has no NaN/Inf entries and passes
// a basic conditioning sanity check (a homography from a healthy RANSAC
// fit should not send points to infinity for any point near the unit
// square).
func (a Mat3) Healthy() bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	// Two-vanishing-points sanity test: the bottom row (the plane at
	// infinity map) should not itself be degenerate, else the
	// homography's vanishing line passes through too much of the unit
	// square and the fit is numerically unstable.
	if math.Abs(a[6]) < 1e-9 && math.Abs(a[7]) < 1e-9 && math.Abs(a[8]) < 1e-9 {
		return false
	}
	return true
}

// FrobeniusDistance returns the Frobenius norm of a-b, after
// independently normalizing both matrices, used by P3's match-symmetry
// test.
func FrobeniusDistance(a, b Mat3) float64 {
	na, nb := a.Normalize(), b.Normalize()
	var sum float64
	for i := range na {
		d := na[i] - nb[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
