/*
DESCRIPTION
  focal.go estimates a global initial focal length from pairwise
  homographies via Szeliski's closed-form two-candidate relations,
  combined by median.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package camera

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/panostitch/stitch/homog"
)

const focalEpsilon = 1e-8

// focalFromHomography derives a focal-length candidate from a single
// pairwise homography via the closed-form relations of R. Szeliski,
// "Image Alignment and Stitching: A Tutorial", matching
// transformer.cc's get_focal_from_matrix. ok is false when neither
// candidate denominator is usable.
func focalFromHomography(h homog.Mat3) (f float64, ok bool) {
	d1 := h[6] * h[7]
	d2 := (h[7] - h[6]) * (h[7] + h[6])
	v1 := -(h[0]*h[1] + h[3]*h[4]) / d1
	v2 := (h[0]*h[0] + h[3]*h[3] - h[1]*h[1] - h[4]*h[4]) / d2
	if v1 < v2 {
		v1, v2 = v2, v1
	}
	var f1 float64
	f1ok := true
	switch {
	case v1 > 0 && v2 > 0:
		if math.Abs(d1) > math.Abs(d2) {
			f1 = math.Sqrt(v1)
		} else {
			f1 = math.Sqrt(v2)
		}
	case v1 > 0:
		f1 = math.Sqrt(v1)
	default:
		f1ok = false
	}

	d1 = h[0]*h[3] + h[1]*h[4]
	d2 = h[0]*h[0] + h[1]*h[1] - h[3]*h[3] - h[4]*h[4]
	v1 = -h[2] * h[5] / d1
	v2 = (h[5]*h[5] - h[2]*h[2]) / d2
	if v1 < v2 {
		v1, v2 = v2, v1
	}
	var f0 float64
	f0ok := true
	switch {
	case v1 > 0 && v2 > 0:
		if math.Abs(d1) > math.Abs(d2) {
			f0 = math.Sqrt(v1)
		} else {
			f0 = math.Sqrt(v2)
		}
	case v1 > 0:
		f0 = math.Sqrt(v1)
	default:
		f0ok = false
	}

	if f1ok && f0ok {
		return math.Sqrt(f1 * f0), true
	}
	return 0, false
}

// EstimateFocal derives a single global focal length from a set of
// pairwise homographies by taking candidates per homography and
// combining them by median (gonum/stat), falling back to
// 0.5*(w/h)*w when every candidate fails, per spec.md §4.4.
func EstimateFocal(homographies []homog.Mat3, w, h int) float64 {
	var candidates []float64
	for _, hm := range homographies {
		if f, ok := focalFromHomography(hm); ok && !math.IsNaN(f) && !math.IsInf(f, 0) && f > focalEpsilon {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return 0.5 * (float64(w) / float64(h)) * float64(w)
	}
	sorted := append([]float64(nil), candidates...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
