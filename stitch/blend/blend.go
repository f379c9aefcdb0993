/*
DESCRIPTION
  blend.go composites warped images onto the panorama canvas with
  linear (horizontal distance-to-edge) feathering, accumulating
  weighted color and weight per destination pixel across all
  contributing images.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package blend composites warped source images onto the output
// canvas using linear feathering, run data-parallel over images with
// per-worker accumulator tiles merged at the end.
package blend

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ausocean/panostitch/stitch/image"
)

// Source is one image already placed in canvas pixel coordinates: for
// destination pixel (row, col), ToSource returns the corresponding
// source-image pixel in normalized [0,1) coordinates, and ok=false if
// that destination pixel is not covered by this image.
type Source struct {
	Image    *image.Image
	ToSource func(row, col int) (u, v float64, ok bool)
}

// accumulator holds one worker's partial Sigma(w*color) and Sigma(w)
// over the whole canvas, merged into the final image once every
// source has been processed.
type accumulator struct {
	w, h, c int
	color   []float64 // h*w*c
	weight  []float64 // h*w
}

func newAccumulator(h, w, c int) *accumulator {
	return &accumulator{w: w, h: h, c: c, color: make([]float64, h*w*c), weight: make([]float64, h*w)}
}

func (a *accumulator) add(row, col int, sample []float64, wgt float64) {
	base := (row*a.w + col) * a.c
	for ch, v := range sample {
		a.color[base+ch] += v * wgt
	}
	a.weight[row*a.w+col] += wgt
}

func (a *accumulator) merge(b *accumulator) {
	for i := range a.color {
		a.color[i] += b.color[i]
	}
	for i := range a.weight {
		a.weight[i] += b.weight[i]
	}
}

// Blend composites sources onto a canvasH x canvasW output image,
// running one goroutine per source (via errgroup) with a private
// accumulator tile, then merging tiles and dividing Sigma(w*color) by
// Sigma(w) per spec.md §4.7. Pixels with zero total weight keep the
// "no data" sentinel.
func Blend(ctx context.Context, canvasH, canvasW, channels int, sources []Source) (*image.Image, error) {
	accs := make([]*accumulator, len(sources))

	g, _ := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			acc := newAccumulator(canvasH, canvasW, channels)
			accumulateSource(acc, src)
			accs[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newAccumulator(canvasH, canvasW, channels)
	for _, acc := range accs {
		total.merge(acc)
	}

	out := image.New(canvasH, canvasW, channels)
	out.FillNoData()
	for row := 0; row < canvasH; row++ {
		for col := 0; col < canvasW; col++ {
			wsum := total.weight[row*canvasW+col]
			if wsum <= 0 {
				continue
			}
			base := (row*canvasW + col) * channels
			for ch := 0; ch < channels; ch++ {
				out.Set(row, col, ch, total.color[base+ch]/wsum)
			}
		}
	}
	return out, nil
}

// accumulateSource sweeps every destination pixel src covers, sampling
// the source image and accumulating its feathered contribution.
func accumulateSource(acc *accumulator, src Source) {
	for row := 0; row < acc.h; row++ {
		for col := 0; col < acc.w; col++ {
			u, v, ok := src.ToSource(row, col)
			if !ok {
				continue
			}
			px := u * float64(src.Image.Width())
			py := v * float64(src.Image.Height())
			sample, ok := src.Image.Sample(px, py)
			if !ok {
				// Bilinear tap hit a "no data" sentinel or the sample
				// fell outside the source: exclude it so feathered
				// borders do not bleed background (spec.md §4.7).
				continue
			}
			w := horizontalWeight(u)
			if w <= 0 {
				continue
			}
			acc.add(row, col, sample, w)
		}
	}
}

// horizontalWeight is the distance-to-edge feather weight in
// normalized source coordinates, per spec.md §4.7 and blender.cc's
// `t->w = 0.5 - fabs(p.x / img.width() - 0.5)`.
func horizontalWeight(u float64) float64 {
	w := 0.5 - absFloat(u-0.5)
	if w < 0 {
		return 0
	}
	return w
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
