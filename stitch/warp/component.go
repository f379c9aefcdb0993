/*
DESCRIPTION
  component.go places each image on the panorama canvas: homo maps
  image pixels to camera rays, homo_inv maps rays back to pixels, and
  the projected corner bounding range determines the canvas size.

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

	"github.com/ausocean/panostitch/stitch/camera"
	"github.com/ausocean/panostitch/stitch/homog"
)

// Range is an axis-aligned bounding box in panorama (u, v) space.
type Range struct {
	MinU, MinV, MaxU, MaxV float64
}

func emptyRange() Range {
	return Range{MinU: math.Inf(1), MinV: math.Inf(1), MaxU: math.Inf(-1), MaxV: math.Inf(-1)}
}

func (r *Range) expand(u, v float64) {
	if math.IsNaN(u) || math.IsNaN(v) {
		return
	}
	r.MinU, r.MinV = math.Min(r.MinU, u), math.Min(r.MinV, v)
	r.MaxU, r.MaxV = math.Max(r.MaxU, u), math.Max(r.MaxV, v)
}

// ImageComponent describes one image's placement within the panorama:
// homo maps the image's pixel-homogeneous coordinates to a camera ray
// (R * K^-1, pixel-to-ray), homo_inv is its inverse (K * R^T,
// ray-to-pixel), per spec.md §4.6.
type ImageComponent struct {
	Homo    homog.Mat3
	HomoInv homog.Mat3
	Width   int
	Height  int
}

// NewImageComponent builds the ImageComponent for cam over an image of
// the given pixel dimensions.
func NewImageComponent(cam camera.Camera, w, h int) (ImageComponent, bool) {
	k := cam.K()
	kInv, ok := k.Inverse()
	if !ok {
		return ImageComponent{}, false
	}
	homo := cam.R.Mul(kInv)
	homoInv := k.Mul(cam.R.Transpose())
	return ImageComponent{Homo: homo, HomoInv: homoInv, Width: w, Height: h}, true
}

// ProjectedRange computes the bounding range of ic's four image
// corners under proj, for canvas-size computation (spec.md §4.6's
// "axis-aligned bounding box of each ImageComponent's projected
// corners").
func (ic ImageComponent) ProjectedRange(proj Projection) Range {
	r := emptyRange()
	corners := [][2]float64{{0, 0}, {float64(ic.Width), 0}, {0, float64(ic.Height)}, {float64(ic.Width), float64(ic.Height)}}
	for _, c := range corners {
		rx, ry, rz := ic.Homo.Apply(c[0], c[1])
		u, v := proj.Proj(rx, ry, rz)
		r.expand(u, v)
	}
	return r
}

// ToPixel maps a panorama coordinate (u, v) back to this image's pixel
// coordinate, or ok=false if the projected ray falls outside the unit
// image (matching stitcher.cc's blend loop's [0, 1) bounds check, here
// expressed directly in pixel space).
func (ic ImageComponent) ToPixel(proj Projection, u, v float64) (px, py float64, ok bool) {
	rx, ry, rz := proj.ProjR(u, v)
	rxh, ryh, rwh := ic.HomoInv.Apply(rx, ry, rz)
	if rwh == 0 {
		return 0, 0, false
	}
	px, py = rxh/rwh, ryh/rwh
	if px < 0 || px >= float64(ic.Width) || py < 0 || py >= float64(ic.Height) {
		return 0, 0, false
	}
	return px, py, true
}

// IdentityRange returns the identity image's own projected unit-square
// range, used to compute the canvas's pixels-per-unit scale factor
// (spec.md §4.6's "x,y-per-pixel are computed from the identity
// image's projected unit square").
func IdentityRange(ic ImageComponent, proj Projection) (pxPerU, pxPerV float64) {
	r := ic.ProjectedRange(proj)
	du, dv := r.MaxU-r.MinU, r.MaxV-r.MinV
	if du == 0 || dv == 0 {
		return 1, 1
	}
	return float64(ic.Width) / du, float64(ic.Height) / dv
}
