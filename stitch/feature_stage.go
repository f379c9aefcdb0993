/*
DESCRIPTION
  feature_stage.go runs keypoint detection across all input images
  data-parallel, per spec.md §5's feature-extraction stage.

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

	"golang.org/x/sync/errgroup"

	"github.com/ausocean/panostitch/stitch/feature"
)

// calcFeatures detects keypoints for every image concurrently,
// mirroring stitcher.cc's calc_feature's "#pragma omp parallel for"
// loop via an errgroup fan-out. A NoFeatures error from any image is
// fatal and aborts the whole build (errs.NoFeatures.IsFatal()).
func (s *Stitcher) calcFeatures(ctx context.Context) error {
	s.feats = make([]featureSet, len(s.images))

	g, _ := errgroup.WithContext(ctx)
	for i, img := range s.images {
		i, img := i, img
		g.Go(func() error {
			kps, err := feature.Detect(img, feature.Params{
				NumOctave:     s.cfg.NumOctaves,
				NumScale:      s.cfg.NumScales,
				ContrastThres: s.cfg.ContrastThres,
				EdgeRatio:     s.cfg.EdgeRatio,
			})
			if err != nil {
				return err
			}
			s.feats[i] = featureSet{keypoints: kps, width: img.Width(), height: img.Height()}
			s.cfg.Logger.Debug("detected keypoints", "image", i, "count", len(kps))
			return nil
		})
	}
	return g.Wait()
}
