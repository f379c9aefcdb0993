/*
DESCRIPTION
  detect.go finds Difference-of-Gaussians scale-space extrema, refines
  them to subpixel accuracy, rejects low-contrast and edge responses,
  and hands survivors to orientation assignment and descriptor
  extraction.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package feature

import (
	"math"

	"github.com/ausocean/panostitch/stitch/errs"
	"github.com/ausocean/panostitch/stitch/image"
	"github.com/ausocean/panostitch/stitch/scalespace"
)

// Params configures keypoint rejection thresholds; zero-valued fields
// fall back to the defaults below via Params.withDefaults.
type Params struct {
	NumOctave    int
	NumScale     int
	BaseSigma    float64
	ContrastThres float64
	EdgeRatio    float64
}

// Defaults for keypoint rejection, matching the original's constants.
const (
	DefaultContrastThres = 0.02
	DefaultEdgeRatio     = 10.0
)

func (p Params) withDefaults() Params {
	if p.NumOctave == 0 {
		p.NumOctave = scalespace.DefaultOctaves
	}
	if p.NumScale == 0 {
		p.NumScale = scalespace.DefaultScales
	}
	if p.BaseSigma == 0 {
		p.BaseSigma = scalespace.DefaultBaseSigma
	}
	if p.ContrastThres == 0 {
		p.ContrastThres = DefaultContrastThres
	}
	if p.EdgeRatio == 0 {
		p.EdgeRatio = DefaultEdgeRatio
	}
	return p
}

// candidate is a DoG extremum prior to orientation assignment.
type candidate struct {
	octave        int
	scale         float64 // refined, continuous
	x, y          float64 // refined, octave-pixel frame
	sigma         float64
	intScale      int // nearest integer scale, used to pick mag/orient grids
}

// Detect runs the full DoG pipeline over img and returns the described
// keypoints in the source image's pixel frame. It returns
// errs.NoFeatures if no keypoints survive.
func Detect(img *image.Image, p Params) ([]Keypoint, error) {
	p = p.withDefaults()
	ss := scalespace.Build(img, p.NumOctave, p.NumScale, p.BaseSigma)
	dogs := scalespace.BuildAllDoG(ss)

	var kps []Keypoint
	for o := range ss.Octaves {
		cands := findExtrema(dogs[o], p)
		octScale := math.Pow(2, float64(o))
		for _, c := range cands {
			oriented := assignOrientation(ss.Octaves[o], c)
			for _, angle := range oriented {
				desc := describe(ss.Octaves[o], c, angle)
				if desc == nil {
					continue
				}
				kps = append(kps, Keypoint{
					X:           c.x * octScale,
					Y:           c.y * octScale,
					Octave:      o,
					Scale:       c.scale,
					Sigma:       ss.Octaves[o].Sigma[c.intScale] * octScale,
					Orientation: angle,
					Descriptor:  desc,
				})
			}
		}
	}
	if len(kps) == 0 {
		return nil, errs.New(errs.NoFeatures)
	}
	return kps, nil
}

// findExtrema locates, refines, and filters DoG extrema for one octave.
func findExtrema(d *scalespace.DoG, p Params) []candidate {
	n := len(d.Diff)
	if n < 3 {
		return nil
	}
	w, h := d.Diff[0].Width(), d.Diff[0].Height()
	var out []candidate
	for s := 1; s < n-1; s++ {
		for y := 1; y < h-1; y++ {
			for x := 1; x < w-1; x++ {
				if !isExtremum(d, s, x, y) {
					continue
				}
				rs, rx, ry, contrast, ok := refine(d, s, x, y)
				if !ok {
					continue
				}
				if math.Abs(contrast) < p.ContrastThres {
					continue
				}
				if isEdge(d.Diff[s], int(math.Round(rx)), int(math.Round(ry)), p.EdgeRatio) {
					continue
				}
				out = append(out, candidate{
					scale:    rs,
					x:        rx,
					y:        ry,
					intScale: s + 1, // +1: DoG index s sits between octave scales s and s+1
				})
			}
		}
	}
	return out
}

// isExtremum reports whether DoG value at (s, x, y) is a strict
// maximum or minimum over its 26-neighbourhood.
func isExtremum(d *scalespace.DoG, s, x, y int) bool {
	v := d.Diff[s].Get(y, x, 0)
	isMax, isMin := true, true
	for ds := -1; ds <= 1; ds++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if ds == 0 && dx == 0 && dy == 0 {
					continue
				}
				nv := d.Diff[s+ds].Get(y+dy, x+dx, 0)
				if nv >= v {
					isMax = false
				}
				if nv <= v {
					isMin = false
				}
				if !isMax && !isMin {
					return false
				}
			}
		}
	}
	return isMax || isMin
}

// refine performs quadratic subpixel fitting in (x, y, s), re-centring
// up to 5 times when any offset axis exceeds 0.5, matching the
// original's re-center-then-reject policy.
func refine(d *scalespace.DoG, s, x, y int) (rs, rx, ry, contrast float64, ok bool) {
	n := len(d.Diff)
	for attempt := 0; attempt < 5; attempt++ {
		if s < 1 || s >= n-1 || x < 1 || x >= d.Diff[0].Width()-1 || y < 1 || y >= d.Diff[0].Height()-1 {
			return 0, 0, 0, 0, false
		}
		grad, hess := derivatives(d, s, x, y)
		offset, solvable := solve3(hess, grad)
		if !solvable {
			return 0, 0, 0, 0, false
		}
		if math.Abs(offset[0]) < 0.5 && math.Abs(offset[1]) < 0.5 && math.Abs(offset[2]) < 0.5 {
			v := d.Diff[s].Get(y, x, 0)
			dot := grad[0]*offset[0] + grad[1]*offset[1] + grad[2]*offset[2]
			contrast = v + 0.5*dot
			return float64(s) + offset[2], float64(x) + offset[0], float64(y) + offset[1], contrast, true
		}
		x += int(math.Round(offset[0]))
		y += int(math.Round(offset[1]))
		s += int(math.Round(offset[2]))
	}
	return 0, 0, 0, 0, false
}

// derivatives computes the gradient (dx, dy, ds) and Hessian of the
// DoG function at (s, x, y) by central finite differences.
func derivatives(d *scalespace.DoG, s, x, y int) (grad [3]float64, hess [3][3]float64) {
	at := func(ss, xx, yy int) float64 { return d.Diff[ss].Get(yy, xx, 0) }

	dx := (at(s, x+1, y) - at(s, x-1, y)) / 2
	dy := (at(s, x, y+1) - at(s, x, y-1)) / 2
	ds := (at(s+1, x, y) - at(s-1, x, y)) / 2
	grad = [3]float64{dx, dy, ds}

	v := at(s, x, y)
	dxx := at(s, x+1, y) + at(s, x-1, y) - 2*v
	dyy := at(s, x, y+1) + at(s, x, y-1) - 2*v
	dss := at(s+1, x, y) + at(s-1, x, y) - 2*v
	dxy := (at(s, x+1, y+1) - at(s, x+1, y-1) - at(s, x-1, y+1) + at(s, x-1, y-1)) / 4
	dxs := (at(s+1, x+1, y) - at(s+1, x-1, y) - at(s-1, x+1, y) + at(s-1, x-1, y)) / 4
	dys := (at(s+1, x, y+1) - at(s+1, x, y-1) - at(s-1, x, y+1) + at(s-1, x, y-1)) / 4

	hess = [3][3]float64{
		{dxx, dxy, dxs},
		{dxy, dyy, dys},
		{dxs, dys, dss},
	}
	return grad, hess
}

// solve3 solves hess * offset = -grad via Cramer's rule for the 3x3
// system, returning ok=false if the system is (near-)singular.
func solve3(hess [3][3]float64, grad [3]float64) (offset [3]float64, ok bool) {
	det := det3(hess)
	if math.Abs(det) < 1e-12 {
		return offset, false
	}
	neg := [3]float64{-grad[0], -grad[1], -grad[2]}
	for col := 0; col < 3; col++ {
		m := hess
		m[0][col], m[1][col], m[2][col] = neg[0], neg[1], neg[2]
		offset[col] = det3(m) / det
	}
	return offset, true
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// isEdge rejects candidates whose 2D Hessian trace^2/det exceeds the
// threshold implied by edgeRatio, per the standard SIFT edge test.
func isEdge(dog *image.Image, x, y int, edgeRatio float64) bool {
	if x < 1 || x >= dog.Width()-1 || y < 1 || y >= dog.Height()-1 {
		return true
	}
	v := dog.Get(y, x, 0)
	dxx := dog.Get(y, x+1, 0) + dog.Get(y, x-1, 0) - 2*v
	dyy := dog.Get(y+1, x, 0) + dog.Get(y-1, x, 0) - 2*v
	dxy := (dog.Get(y+1, x+1, 0) - dog.Get(y+1, x-1, 0) - dog.Get(y-1, x+1, 0) + dog.Get(y-1, x-1, 0)) / 4
	trace := dxx + dyy
	det := dxx*dyy - dxy*dxy
	if det <= 0 {
		return true
	}
	r := edgeRatio
	return trace*trace/det > (r+1)*(r+1)/r
}
