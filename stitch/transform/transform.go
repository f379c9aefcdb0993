/*
DESCRIPTION
  transform.go estimates a robust pairwise geometric transform (affine
  or projective) between two images' matched keypoints via RANSAC,
  producing a homography, its inlier subsequence, and a confidence
  score.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package transform estimates a robust pairwise transform (affine or
// projective) between two keypoint sets via RANSAC.
package transform

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/panostitch/stitch/errs"
	"github.com/ausocean/panostitch/stitch/feature"
	"github.com/ausocean/panostitch/stitch/homog"
	"github.com/ausocean/panostitch/stitch/match"
)

// Model selects the transform's degrees of freedom.
type Model int

const (
	// Projective is the full 8-DoF homography.
	Projective Model = iota
	// Affine is the 6-DoF translation+rotation+scale+shear model, used
	// in cylindrical pre-warp mode or when translational geometry is
	// forced.
	Affine
)

// minSample returns the minimal point count needed to fit m exactly.
func (m Model) minSample() int {
	if m == Affine {
		return 3
	}
	return 4
}

// Params configures RANSAC.
type Params struct {
	Model          Model
	Iterations     int     // default 1500
	InlierThres    float64 // pixels, before the (w+h)/1600 scaling
	InlierMinRatio float64 // default 0.1 per original's convex-hull sanity test
	Rand           *rand.Rand
}

const (
	DefaultIterations     = 1500
	DefaultInlierThres    = 4.0
	DefaultInlierMinRatio = 0.1

	minUsableMatches = 6
	minInlierCount   = 10
)

func (p Params) withDefaults() Params {
	if p.Iterations == 0 {
		p.Iterations = DefaultIterations
	}
	if p.InlierThres == 0 {
		p.InlierThres = DefaultInlierThres
	}
	if p.InlierMinRatio == 0 {
		p.InlierMinRatio = DefaultInlierMinRatio
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewSource(1))
	}
	return p
}

// Info is the outcome of transform estimation between two images: the
// homography mapping image-2 pixels into image-1 pixels, the inlier
// coordinate pairs, and a confidence score. Every returned Info is a
// connected pair; a confidence of 0 marks a clamped near-duplicate pair.
type Info struct {
	Homography homog.Mat3
	Inliers1   [][2]float64
	Inliers2   [][2]float64
	Confidence float64
}

// Estimate runs RANSAC over matches between kps1 (image 1, w1 x h1) and
// kps2 (image 2), returning the homography from image-2 pixels into
// image-1 pixels. It returns errs.InsufficientMatches or
// errs.DegenerateRANSAC (both non-fatal at the pair level) when no
// usable model is found.
func Estimate(data match.Data, kps1, kps2 []feature.Keypoint, w1, h1 int, p Params) (*Info, error) {
	p = p.withDefaults()
	if len(data) < minUsableMatches {
		return nil, errs.New(errs.InsufficientMatches)
	}

	inlierThres := p.InlierThres * (float64(w1+h1) / 1600)
	inlierDistSq := inlierThres * inlierThres

	p1 := make([]point2, len(data))
	p2 := make([]point2, len(data))
	for i, m := range data {
		p1[i] = point2{kps1[m.I1].X, kps1[m.I1].Y}
		p2[i] = point2{kps2[m.I2].X, kps2[m.I2].Y}
	}

	required := p.Model.minSample()
	if len(data) < required {
		return nil, errs.New(errs.InsufficientMatches)
	}

	var bestInliers []int

	for iter := 0; iter < p.Iterations; iter++ {
		sample := sampleIndices(p.Rand, len(data), required)
		cand, ok := fit(p.Model, p1, p2, sample)
		if !ok || !cand.Healthy() {
			continue
		}
		inliers := inliersOf(cand, p1, p2, inlierDistSq)
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
		}
	}

	if len(bestInliers) < minInlierCount {
		return nil, errs.New(errs.DegenerateRANSAC)
	}
	all1 := make([]point2, len(kps1))
	for i, k := range kps1 {
		all1[i] = point2{k.X, k.Y}
	}
	all2 := make([]point2, len(kps2))
	for i, k := range kps2 {
		all2[i] = point2{k.X, k.Y}
	}
	if !goodInlierSet(bestInliers, p1, p2, all1, all2, p.InlierMinRatio) {
		return nil, errs.New(errs.DegenerateRANSAC)
	}

	// Re-fit on the full inlier set by least squares.
	refit, ok := fit(p.Model, p1, p2, bestInliers)
	if !ok {
		return nil, errs.New(errs.DegenerateRANSAC)
	}
	final := inliersOf(refit, p1, p2, inlierDistSq)
	if len(final) < minInlierCount {
		return nil, errs.New(errs.DegenerateRANSAC)
	}

	info := &Info{Homography: refit}
	for _, idx := range final {
		info.Inliers1 = append(info.Inliers1, [2]float64{p1[idx].x, p1[idx].y})
		info.Inliers2 = append(info.Inliers2, [2]float64{p2[idx].x, p2[idx].y})
	}
	// Confidence, from D. Lowe 2008 "Automatic Panoramic Image
	// Stitching".
	info.Confidence = float64(len(final)) / (8 + 0.3*float64(len(data)))
	// Near-identical images (very high inlier ratio) are not useful for
	// estimating geometry, so their confidence is clamped to 0; the pair
	// is still returned and remains a lowest-priority graph edge.
	// spec.md §9 flags this clamp as possibly a bug; we preserve it as
	// specified.
	if info.Confidence > 3.1 {
		info.Confidence = 0
	}
	return info, nil
}

func sampleIndices(r *rand.Rand, n, k int) []int {
	selected := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for len(out) < k {
		idx := r.Intn(n)
		if _, seen := selected[idx]; seen {
			continue
		}
		selected[idx] = struct{}{}
		out = append(out, idx)
	}
	return out
}

// fit solves the exact (or least-squares, if more than the minimal
// sample is given) linear system for the chosen model, mapping p2 ->
// p1, using gonum/mat as the SolveLinearLeastSquares capability
// spec.md §9 asks to be abstracted.
func fit(m Model, p1, p2 []point2, idx []int) (homog.Mat3, bool) {
	if m == Affine {
		return fitAffine(p1, p2, idx)
	}
	return fitHomography(p1, p2, idx)
}

func fitAffine(p1, p2 []point2, idx []int) (homog.Mat3, bool) {
	n := len(idx)
	A := mat.NewDense(2*n, 6, nil)
	b := mat.NewDense(2*n, 1, nil)
	for i, id := range idx {
		a, c := p2[id].x, p2[id].y
		A.SetRow(2*i, []float64{a, c, 1, 0, 0, 0})
		b.Set(2*i, 0, p1[id].x)
		A.SetRow(2*i+1, []float64{0, 0, 0, a, c, 1})
		b.Set(2*i+1, 0, p1[id].y)
	}
	var x mat.Dense
	if err := x.Solve(A, b); err != nil {
		return homog.Mat3{}, false
	}
	var out homog.Mat3
	for i := 0; i < 6; i++ {
		out[i] = x.At(i, 0)
	}
	out[8] = 1
	return out, true
}

func fitHomography(p1, p2 []point2, idx []int) (homog.Mat3, bool) {
	n := len(idx)
	A := mat.NewDense(2*n, 8, nil)
	b := mat.NewDense(2*n, 1, nil)
	for i, id := range idx {
		a, c := p2[id].x, p2[id].y
		tx, ty := p1[id].x, p1[id].y
		A.SetRow(2*i, []float64{a, c, 1, 0, 0, 0, -a * tx, -c * tx})
		b.Set(2*i, 0, tx)
		A.SetRow(2*i+1, []float64{0, 0, 0, a, c, 1, -a * ty, -c * ty})
		b.Set(2*i+1, 0, ty)
	}
	var x mat.Dense
	if err := x.Solve(A, b); err != nil {
		return homog.Mat3{}, false
	}
	var out homog.Mat3
	for i := 0; i < 8; i++ {
		out[i] = x.At(i, 0)
	}
	out[8] = 1
	return out, true
}

func inliersOf(m homog.Mat3, p1, p2 []point2, distThresSq float64) []int {
	var out []int
	for i := range p1 {
		x, y := m.Apply2D(p2[i].x, p2[i].y)
		dx, dy := x-p1[i].x, y-p1[i].y
		if math.IsNaN(dx) || math.IsNaN(dy) {
			continue
		}
		if dx*dx+dy*dy < distThresSq {
			out = append(out, i)
		}
	}
	return out
}

// minInlierKeypointRatio gates the inlier-hull-vs-entire-keypoint-set
// check in goodInlierSet, matching transform_estimate.cc's cnt_kp2
// ratio threshold (much looser than InlierMinRatio, since an image's
// full keypoint set is typically far larger than its putative matches
// with any one other image).
const minInlierKeypointRatio = 0.01

// goodInlierSet applies the geometric sanity test of spec.md §4.3: the
// convex hull of inliers in each image must contain at least minRatio
// of the putative matches falling inside it (cnt_kp1), and at least
// minInlierKeypointRatio of that image's entire keypoint set falling
// inside it (cnt_kp2).
func goodInlierSet(inliers []int, p1, p2, kps1All, kps2All []point2, minRatio float64) bool {
	if len(inliers) < minInlierCount {
		return false
	}
	check := func(pts, all []point2, ratioThres float64) bool {
		sample := make([]point2, len(inliers))
		for i, idx := range inliers {
			sample[i] = pts[idx]
		}
		hull := convexHull(sample)
		inCount := 0
		for _, p := range all {
			if pointInPolygon(hull, p) {
				inCount++
			}
		}
		if inCount == 0 {
			return false
		}
		ratio := float64(len(sample)) / float64(inCount)
		return ratio >= ratioThres
	}
	return check(p1, p1, minRatio) && check(p2, p2, minRatio) &&
		check(p1, kps1All, minInlierKeypointRatio) && check(p2, kps2All, minInlierKeypointRatio)
}
