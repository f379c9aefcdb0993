/*
DESCRIPTION
  scalespace.go builds the Gaussian scale-space pyramid the DoG keypoint
  detector operates on: a sequence of octaves at geometrically
  decreasing resolution, each holding a cascade of increasingly blurred
  images together with their gradient magnitude and orientation fields.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package scalespace builds the Gaussian pyramid and Difference-of-
// Gaussians stack that stitch/feature detects keypoints in.
package scalespace

import (
	"math"

	"github.com/ausocean/panostitch/stitch/image"
)

// Defaults for pyramid shape, matching the original SIFT-like
// implementation's constants.
const (
	DefaultOctaves   = 4
	DefaultScales    = 7
	DefaultBaseSigma = 1.6
)

// Octave holds nscale blurred copies of one base-resolution image, plus
// the per-scale gradient magnitude and orientation grids. Level 0 is
// the octave's base (unblurred) image.
type Octave struct {
	W, H   int
	Data   []*image.Image // len == nscale
	Mag    []*image.Image // len == nscale; nil at index 0
	Orient []*image.Image // len == nscale; nil at index 0
	Sigma  []float64      // cumulative sigma for each scale
}

// ScaleSpace is an ordered sequence of Octaves at geometrically
// decreasing resolution.
type ScaleSpace struct {
	NumOctave, NumScale int
	OrigW, OrigH        int
	Octaves             []*Octave
}

// scaleFactor is k = 2^(1/(S-3)), the per-scale blur growth factor,
// chosen so that S-3 scales' worth of blurring exactly doubles sigma
// (4 scales with the default S=7).
func scaleFactor(numScale int) float64 {
	return math.Pow(2, 1.0/float64(numScale-3))
}

// Build constructs a ScaleSpace from a base image (converted to
// greyscale if necessary), with numOctave octaves of numScale scales
// each and base blur baseSigma.
func Build(base *image.Image, numOctave, numScale int, baseSigma float64) *ScaleSpace {
	grey := base.Gray()
	ss := &ScaleSpace{
		NumOctave: numOctave,
		NumScale:  numScale,
		OrigW:     base.Width(),
		OrigH:     base.Height(),
		Octaves:   make([]*Octave, numOctave),
	}
	k := scaleFactor(numScale)
	for o := 0; o < numOctave; o++ {
		var octBase *image.Image
		if o == 0 {
			octBase = grey
		} else {
			factor := math.Pow(2, float64(-o))
			newW := int(math.Ceil(float64(base.Width()) * factor))
			newH := int(math.Ceil(float64(base.Height()) * factor))
			if newW < 4 {
				newW = 4
			}
			if newH < 4 {
				newH = 4
			}
			octBase = grey.Resize(newH, newW)
		}
		ss.Octaves[o] = buildOctave(octBase, numScale, baseSigma, k)
	}
	return ss
}

func buildOctave(base *image.Image, numScale int, baseSigma, k float64) *Octave {
	oct := &Octave{
		W:      base.Width(),
		H:      base.Height(),
		Data:   make([]*image.Image, numScale),
		Mag:    make([]*image.Image, numScale),
		Orient: make([]*image.Image, numScale),
		Sigma:  make([]float64, numScale),
	}
	oct.Data[0] = base
	for s := 1; s < numScale; s++ {
		sigma := baseSigma * math.Pow(k, float64(s))
		oct.Sigma[s] = sigma
		oct.Data[s] = gaussianBlur(base, sigma)
		oct.Mag[s], oct.Orient[s] = gradientField(oct.Data[s])
	}
	return oct
}

// gaussianBlur applies a separable Gaussian blur with the given sigma,
// matching the original's radius-3-sigma kernel truncation.
func gaussianBlur(src *image.Image, sigma float64) *image.Image {
	kernel, radius := gaussianKernel(sigma)
	w, h := src.Width(), src.Height()
	tmp := image.New(h, w, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				xx := clamp(x+k, 0, w-1)
				sum += src.Get(y, xx, 0) * kernel[k+radius]
			}
			tmp.Set(y, x, 0, sum)
		}
	}
	out := image.New(h, w, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				yy := clamp(y+k, 0, h-1)
				sum += tmp.Get(yy, x, 0) * kernel[k+radius]
			}
			out.Set(y, x, 0, sum)
		}
	}
	return out
}

func gaussianKernel(sigma float64) (k []float64, radius int) {
	radius = int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	k = make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k, radius
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// gradientField computes gradient magnitude sqrt(dx^2+dy^2) and
// orientation atan2(dy,dx)+pi, with a 1-pixel border zeroed, matching
// Octave::cal_mag_ort in the original.
func gradientField(src *image.Image) (mag, orient *image.Image) {
	w, h := src.Width(), src.Height()
	mag = image.New(h, w, 1)
	orient = image.New(h, w, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x == 0 || x == w-1 || y == 0 || y == h-1 {
				mag.Set(y, x, 0, 0)
				orient.Set(y, x, 0, math.Pi)
				continue
			}
			dy := src.Get(y+1, x, 0) - src.Get(y-1, x, 0)
			dx := src.Get(y, x+1, 0) - src.Get(y, x-1, 0)
			mag.Set(y, x, 0, math.Hypot(dx, dy))
			if dx == 0 && dy == 0 {
				orient.Set(y, x, 0, math.Pi)
			} else {
				orient.Set(y, x, 0, math.Atan2(dy, dx)+math.Pi)
			}
		}
	}
	return mag, orient
}

// DoG is the stack of NumScale-1 consecutive differences of adjacent
// blurred scales in one Octave.
type DoG struct {
	Diff []*image.Image // len == NumScale-1
}

// BuildDoG computes the Difference-of-Gaussians stack for an octave.
func BuildDoG(o *Octave) *DoG {
	n := len(o.Data)
	d := &DoG{Diff: make([]*image.Image, n-1)}
	for i := 0; i < n-1; i++ {
		d.Diff[i] = diffImage(o.Data[i], o.Data[i+1])
	}
	return d
}

func diffImage(a, b *image.Image) *image.Image {
	w, h := a.Width(), a.Height()
	out := image.New(h, w, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(y, x, 0, math.Abs(a.Get(y, x, 0)-b.Get(y, x, 0)))
		}
	}
	return out
}

// BuildAllDoG builds the DoG stack for every octave in the scale space.
func BuildAllDoG(ss *ScaleSpace) []*DoG {
	dogs := make([]*DoG, len(ss.Octaves))
	for i, o := range ss.Octaves {
		dogs[i] = BuildDoG(o)
	}
	return dogs
}
