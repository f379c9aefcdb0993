/*
DESCRIPTION
  compose_stage.go places every image's ImageComponent on the panorama
  canvas, sizes the canvas from the identity image's projected unit
  square, and blends every image onto it, per spec.md §4.6-4.7.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package stitch

import (
	"context"
	"math"

	"github.com/ausocean/panostitch/stitch/blend"
	"github.com/ausocean/panostitch/stitch/errs"
	"github.com/ausocean/panostitch/stitch/image"
	"github.com/ausocean/panostitch/stitch/warp"
)

// compose builds every image's placement on the panorama canvas,
// sizes the canvas from the identity image's projected unit square
// (spec.md §4.6), and blends every image onto it (spec.md §4.7).
func (s *Stitcher) compose(ctx context.Context, identityIdx int) (*image.Image, error) {
	proj := s.cfg.ProjectionImpl()
	n := len(s.images)

	ics := make([]warp.ImageComponent, n)
	for i, im := range s.images {
		ic, ok := warp.NewImageComponent(s.cams[i], im.Width(), im.Height())
		if !ok {
			return nil, errs.New(errs.SingularMatrix, i)
		}
		ics[i] = ic
	}

	minU, minV := math.Inf(1), math.Inf(1)
	maxU, maxV := math.Inf(-1), math.Inf(-1)
	for _, ic := range ics {
		r := ic.ProjectedRange(proj)
		minU, minV = math.Min(minU, r.MinU), math.Min(minV, r.MinV)
		maxU, maxV = math.Max(maxU, r.MaxU), math.Max(maxV, r.MaxV)
	}

	pxPerU, pxPerV := warp.IdentityRange(ics[identityIdx], proj)
	if pxPerU <= 0 {
		pxPerU = 1
	}
	if pxPerV <= 0 {
		pxPerV = 1
	}

	canvasW := int(math.Ceil((maxU - minU) * pxPerU))
	canvasH := int(math.Ceil((maxV - minV) * pxPerV))
	if canvasW < 1 {
		canvasW = 1
	}
	if canvasH < 1 {
		canvasH = 1
	}

	channels := s.images[0].Channels()
	sources := make([]blend.Source, n)
	for i := range s.images {
		im := s.images[i]
		ic := ics[i]
		w, h := float64(im.Width()), float64(im.Height())
		sources[i] = blend.Source{
			Image: im,
			ToSource: func(row, col int) (float64, float64, bool) {
				pu := minU + float64(col)/pxPerU
				pv := minV + float64(row)/pxPerV
				px, py, ok := ic.ToPixel(proj, pu, pv)
				if !ok {
					return 0, 0, false
				}
				return px / w, py / h, true
			},
		}
	}

	out, err := blend.Blend(ctx, canvasH, canvasW, channels, sources)
	if err != nil {
		return nil, err
	}
	s.cfg.Logger.Info("composed panorama", "width", canvasW, "height", canvasH)
	return out, nil
}
