/*
DESCRIPTION
  image.go provides the sample buffer used throughout the stitching
  pipeline: a row-major grid of float samples with a fixed channel
  count, a bilinear sampler, and the "no data" sentinel used to mark
  pixels outside any warped source.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package image provides the float sample buffer the stitching core
// operates on. Decoding from and encoding to on-disk formats is an
// external concern; this package only holds and samples pixels.
package image

import "math"

// NoData is the sentinel value written into a channel of a pixel that
// has no valid sample (e.g. outside every warped source image on the
// output canvas). A pixel is "no data" iff its first channel is
// negative.
const NoData = -1.0

// Image is a height x width x channels grid of float samples, stored
// row-major. Samples are expected in [0, 1] except for NoData sentinel
// pixels. The channel count is fixed at construction and never changes.
type Image struct {
	h, w, c int
	pix     []float64
}

// New allocates a zeroed Image of the given dimensions and channel
// count (1 for greyscale, 3 for RGB).
func New(h, w, c int) *Image {
	if h <= 0 || w <= 0 || c <= 0 {
		panic("image: non-positive dimension")
	}
	return &Image{h: h, w: w, c: c, pix: make([]float64, h*w*c)}
}

// Fill sets every pixel of the image to the given per-channel value
// (len(v) must equal the image's channel count).
func (im *Image) Fill(v []float64) {
	if len(v) != im.c {
		panic("image: Fill value length mismatch")
	}
	for i := 0; i < im.h*im.w; i++ {
		copy(im.pix[i*im.c:(i+1)*im.c], v)
	}
}

// FillNoData marks every pixel of the image as "no data".
func (im *Image) FillNoData() {
	v := make([]float64, im.c)
	for i := range v {
		v[i] = NoData
	}
	im.Fill(v)
}

// Height returns the image's row count.
func (im *Image) Height() int { return im.h }

// Width returns the image's column count.
func (im *Image) Width() int { return im.w }

// Channels returns the image's channel count.
func (im *Image) Channels() int { return im.c }

// At returns the channel slice for pixel (row, col). The slice aliases
// the image's backing storage; mutate through it to write.
func (im *Image) At(row, col int) []float64 {
	i := (row*im.w + col) * im.c
	return im.pix[i : i+im.c]
}

// Get returns channel ch of pixel (row, col).
func (im *Image) Get(row, col, ch int) float64 {
	return im.pix[(row*im.w+col)*im.c+ch]
}

// Set writes channel ch of pixel (row, col).
func (im *Image) Set(row, col, ch int, v float64) {
	im.pix[(row*im.w+col)*im.c+ch] = v
}

// IsNoData reports whether pixel (row, col) carries the sentinel.
func (im *Image) IsNoData(row, col int) bool {
	return im.Get(row, col, 0) < 0
}

// InBounds reports whether (row, col) lies within the image.
func (im *Image) InBounds(row, col int) bool {
	return row >= 0 && row < im.h && col >= 0 && col < im.w
}

// Clone returns an independent deep copy of the image.
func (im *Image) Clone() *Image {
	out := &Image{h: im.h, w: im.w, c: im.c, pix: make([]float64, len(im.pix))}
	copy(out.pix, im.pix)
	return out
}

// Sample performs bilinear interpolation at floating-point coordinate
// (x, y) in pixel space (x is the column axis, y is the row axis). It
// returns ok=false, and a zeroed sample, if (x, y) lies outside the
// image or any of the four taps used for interpolation is a NoData
// sentinel pixel — interpolating across a sentinel would bleed
// background into a feathered border (see stitch/blend).
func (im *Image) Sample(x, y float64) (sample []float64, ok bool) {
	if x < 0 || y < 0 || x > float64(im.w-1) || y > float64(im.h-1) {
		return nil, false
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > im.w-1 {
		x1 = im.w - 1
	}
	if y1 > im.h-1 {
		y1 = im.h - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	if im.IsNoData(y0, x0) || im.IsNoData(y0, x1) || im.IsNoData(y1, x0) || im.IsNoData(y1, x1) {
		return nil, false
	}

	out := make([]float64, im.c)
	for ch := 0; ch < im.c; ch++ {
		v00 := im.Get(y0, x0, ch)
		v01 := im.Get(y0, x1, ch)
		v10 := im.Get(y1, x0, ch)
		v11 := im.Get(y1, x1, ch)
		top := v00*(1-fx) + v01*fx
		bot := v10*(1-fx) + v11*fx
		out[ch] = top*(1-fy) + bot*fy
	}
	return out, true
}

// Gray returns a 1-channel copy of the image, converting RGB to
// luminance via the standard Rec. 601 weights if necessary.
func (im *Image) Gray() *Image {
	if im.c == 1 {
		return im.Clone()
	}
	out := New(im.h, im.w, 1)
	for y := 0; y < im.h; y++ {
		for x := 0; x < im.w; x++ {
			p := im.At(y, x)
			out.Set(y, x, 0, 0.299*p[0]+0.587*p[1]+0.114*p[2])
		}
	}
	return out
}

// Resize produces a new image at (newH, newW) using bilinear
// interpolation, used to build each pyramid octave's base image by
// downsampling the full-resolution greyscale image by a power of two.
func (im *Image) Resize(newH, newW int) *Image {
	out := New(newH, newW, im.c)
	sx := float64(im.w-1) / float64(maxInt(newW-1, 1))
	sy := float64(im.h-1) / float64(maxInt(newH-1, 1))
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			srcX := float64(x) * sx
			srcY := float64(y) * sy
			if srcX > float64(im.w-1) {
				srcX = float64(im.w - 1)
			}
			if srcY > float64(im.h-1) {
				srcY = float64(im.h - 1)
			}
			s, ok := im.sampleRaw(srcX, srcY)
			if ok {
				copy(out.At(y, x), s)
			}
		}
	}
	return out
}

// sampleRaw is like Sample but does not reject sentinel taps; used
// internally by Resize where every source pixel is guaranteed valid.
func (im *Image) sampleRaw(x, y float64) ([]float64, bool) {
	if x < 0 || y < 0 || x > float64(im.w-1) || y > float64(im.h-1) {
		return nil, false
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > im.w-1 {
		x1 = im.w - 1
	}
	if y1 > im.h-1 {
		y1 = im.h - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)
	out := make([]float64, im.c)
	for ch := 0; ch < im.c; ch++ {
		v00 := im.Get(y0, x0, ch)
		v01 := im.Get(y0, x1, ch)
		v10 := im.Get(y1, x0, ch)
		v11 := im.Get(y1, x1, ch)
		top := v00*(1-fx) + v01*fx
		bot := v10*(1-fx) + v11*fx
		out[ch] = top*(1-fy) + bot*fy
	}
	return out, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
