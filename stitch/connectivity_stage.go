/*
DESCRIPTION
  connectivity_stage.go estimates a pairwise transform for every
  matched image pair, builds the max-confidence spanning tree over the
  resulting match graph, and initializes every camera's focal length
  and rotation from it.

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
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ausocean/panostitch/stitch/camera"
	"github.com/ausocean/panostitch/stitch/errs"
	"github.com/ausocean/panostitch/stitch/homog"
	"github.com/ausocean/panostitch/stitch/transform"
)

// pairEdge is a successfully estimated pairwise transform, retaining
// the full transform.Info (including inlier correspondences) for
// later bundle-observation collection.
type pairEdge struct {
	camera.Edge
	Info *transform.Info
}

// calcTransforms runs RANSAC transform estimation over every matched
// pair, data-parallel via errgroup. A pair whose estimation fails with
// a non-fatal errs.Kind (InsufficientMatches, DegenerateRANSAC) is
// simply dropped from the match graph and reported asynchronously via
// s.err; any other error aborts the build.
func (s *Stitcher) calcTransforms(matches []pairMatches) ([]pairEdge, error) {
	params := transform.Params{
		Model:          s.cfg.TransformModel(),
		Iterations:     s.cfg.RANSACIterations,
		InlierThres:    s.cfg.InlierThres,
		InlierMinRatio: s.cfg.InlierMinRatio,
	}

	var mu sync.Mutex
	var edges []pairEdge

	g, _ := errgroup.WithContext(context.Background())
	for _, m := range matches {
		m := m
		g.Go(func() error {
			info, err := transform.Estimate(m.Data, s.feats[m.I].keypoints, s.feats[m.J].keypoints,
				s.feats[m.I].width, s.feats[m.I].height, params)
			if err != nil {
				if pe, ok := err.(*errs.Error); ok && !pe.Kind.IsFatal() {
					s.err <- err
					return nil
				}
				return err
			}
			mu.Lock()
			edges = append(edges, pairEdge{
				Edge: camera.Edge{I: m.I, J: m.J, Homography: info.Homography, Confidence: info.Confidence},
				Info: info,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return edges, nil
}

// calcConnectivity builds the max-confidence spanning tree over edges,
// initializes every camera's focal length (Szeliski median estimate)
// and principal point, and propagates rotations outward from the
// identity image. The identity image is the set's median index,
// mirroring stitcher.cc's calc_matrix_pano ("mid = n >> 1").
func (s *Stitcher) calcConnectivity(edges []pairEdge) (int, error) {
	n := len(s.images)
	ce := make([]camera.Edge, len(edges))
	homographies := make([]homog.Mat3, len(edges))
	for i, e := range edges {
		ce[i] = e.Edge
		homographies[i] = e.Homography
	}

	adj, err := camera.SpanningTree(n, ce)
	if err != nil {
		return 0, err
	}

	var sumW, sumH float64
	for _, im := range s.images {
		sumW += float64(im.Width())
		sumH += float64(im.Height())
	}
	avgW, avgH := sumW/float64(n), sumH/float64(n)
	focal := camera.EstimateFocal(homographies, int(avgW), int(avgH))

	s.cams = make([]camera.Camera, n)
	for i, im := range s.images {
		s.cams[i] = camera.Camera{
			Focal: focal,
			Ppx:   float64(im.Width()) / 2,
			Ppy:   float64(im.Height()) / 2,
			R:     homog.Identity(),
		}
	}

	identity := n / 2
	if err := camera.PropagateRotations(n, identity, adj, s.cams); err != nil {
		return 0, err
	}
	return identity, nil
}

