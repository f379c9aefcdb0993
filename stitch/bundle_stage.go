/*
DESCRIPTION
  bundle_stage.go converts pairwise inlier correspondences into bundle
  adjustment observations and runs Levenberg-Marquardt refinement over
  every camera, per spec.md §4.5.

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
	"github.com/ausocean/panostitch/stitch/bundle"
	"github.com/ausocean/panostitch/stitch/camera"
	"github.com/ausocean/panostitch/stitch/config"
)

// collectObservations flattens every pair's inlier correspondences
// into the bundle adjustment's observation set.
func collectObservations(edges []pairEdge) []bundle.Observation {
	var obs []bundle.Observation
	for _, e := range edges {
		for k := range e.Info.Inliers1 {
			obs = append(obs, bundle.Observation{
				I:  e.I,
				J:  e.J,
				P1: e.Info.Inliers1[k],
				P2: e.Info.Inliers2[k],
			})
		}
	}
	return obs
}

// refineBundle runs LM bundle adjustment starting from cams, using the
// damping factor and iteration cap configured in cfg.
func refineBundle(cams []camera.Camera, obs []bundle.Observation, cfg *config.Config) bundle.Result {
	return bundle.RefineWithConfig(cams, obs, cfg.LMLambda, cfg.LMMaxIter)
}
