/*
DESCRIPTION
  prewarp.go implements cylindrical pre-warping: forward-warping an
  input image into cylindrical coordinates, and a heuristic line search
  over a focal-scale factor to flatten the panorama. Stitcher.Build
  does not call these functions.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package warp

import (
	"math"

	"github.com/ausocean/panostitch/stitch/image"
)

// SlopePlain is the early-out threshold for the focal-scale line
// search: once the measured vertical slope between panorama endpoints
// is below this, the image is considered flat enough.
const SlopePlain = 1e-3

const maxRefinements = 3

// CylindricalWarp forward-projects img into cylindrical coordinates at
// the given focal length, returning the warped image and a function
// mapping a source pixel to its warped pixel (so caller code can
// translate keypoints the same way), grounded on cylinder.cc's
// CylProject::project.
func CylindricalWarp(img *image.Image, focal float64) (*image.Image, (func(x, y float64) (float64, float64))) {
	w, h := img.Width(), img.Height()
	cx, cy := float64(w)/2, float64(h)/2

	toRay := func(px, py float64) (x, y, z float64) {
		return px - cx, py - cy, focal
	}

	cyl := Cylindrical{}
	minU, minV := math.Inf(1), math.Inf(1)
	maxU, maxV := math.Inf(-1), math.Inf(-1)
	corners := [][2]float64{{0, 0}, {float64(w), 0}, {0, float64(h)}, {float64(w), float64(h)}}
	for _, c := range corners {
		rx, ry, rz := toRay(c[0], c[1])
		u, v := cyl.Proj(rx, ry, rz)
		minU, maxU = math.Min(minU, u), math.Max(maxU, u)
		minV, maxV = math.Min(minV, v), math.Max(maxV, v)
	}

	outW := int(math.Ceil((maxU - minU) * focal))
	outH := int(math.Ceil((maxV - minV) * focal))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	out := image.New(outH, outW, img.Channels())
	out.FillNoData()

	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			u := minU + float64(ox)/focal
			v := minV + float64(oy)/focal
			rx, ry, rz := cyl.ProjR(u, v)
			// Undo the z=focal normalization used by toRay: ProjR
			// returns a unit-scaled ray, so rescale by focal/rz.
			if rz == 0 {
				continue
			}
			scale := focal / rz
			px := rx*scale + cx
			py := ry*scale + cy
			if px < 0 || px >= float64(w-1) || py < 0 || py >= float64(h-1) {
				continue
			}
			sample, ok := img.Sample(px, py)
			if !ok {
				continue
			}
			for c := 0; c < img.Channels(); c++ {
				out.Set(oy, ox, c, sample[c])
			}
		}
	}

	toWarped := func(x, y float64) (float64, float64) {
		rx, ry, rz := toRay(x, y)
		u, v := cyl.Proj(rx, ry, rz)
		return (u - minU) * focal, (v - minV) * focal
	}
	return out, toWarped
}

// centerSlope measures the vertical slope between the panorama-space
// centers of the first and last images once warped at the given
// focal, per stitcher.cc's straighten_simple: dydx = (y2-y1)/(x2-x1).
type centerSlope func(focal float64) float64

// SearchFocalScale performs the step-halving line search of spec.md
// §4.6: starting from an initial focal guess, it searches for a
// focal-scale factor that minimizes the vertical slope between the
// first and last panorama centers, halving the step up to
// maxRefinements times, early-exiting once |slope| < SlopePlain.
func SearchFocalScale(initial float64, slope centerSlope) float64 {
	focal := initial
	step := initial * 0.1
	bestSlope := math.Abs(slope(focal))
	if bestSlope < SlopePlain {
		return focal
	}

	for r := 0; r < maxRefinements; r++ {
		improved := false
		for _, cand := range []float64{focal + step, focal - step} {
			if cand <= 0 {
				continue
			}
			s := math.Abs(slope(cand))
			if s < bestSlope {
				bestSlope = s
				focal = cand
				improved = true
			}
		}
		if bestSlope < SlopePlain {
			break
		}
		if !improved {
			step /= 2
		}
	}
	return focal
}
