/*
DESCRIPTION
  match_stage.go builds a k-d-tree index per image and then matches
  every image pair against it, data-parallel across pairs, per spec.md
  §5's matching stage.

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

	"github.com/ausocean/panostitch/stitch/match"
)

// pairMatches is the putative correspondence set between image I and
// image J (I < J), with Data mapping keypoint indices in image I to
// keypoint indices in image J.
type pairMatches struct {
	I, J int
	Data match.Data
}

// calcMatches builds a k-d-tree index over every image's descriptors,
// then matches every unordered image pair against those indices. Both
// the per-image index construction and the all-pairs matching run
// data-parallel via errgroup, mirroring stitcher.cc's calc_matrix_pano
// all-pairs loop.
func (s *Stitcher) calcMatches(ctx context.Context) ([]pairMatches, error) {
	n := len(s.images)
	indices := make([]*match.Index, n)

	g, _ := errgroup.WithContext(ctx)
	for i := range s.feats {
		i := i
		g.Go(func() error {
			indices[i] = match.NewIndex(s.feats[i].keypoints)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pairs []pairMatches
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pairMatches{I: i, J: j})
		}
	}

	g, _ = errgroup.WithContext(ctx)
	for k := range pairs {
		k := k
		g.Go(func() error {
			i, j := pairs[k].I, pairs[k].J
			pairs[k].Data = indices[j].Pair(s.feats[i].keypoints, s.cfg.MatchRatio)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pairs, nil
}
