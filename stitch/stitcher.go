/*
DESCRIPTION
  stitcher.go provides the top-level Stitcher type: given a set of
  images and a Config, Build runs the full staged pipeline (feature
  extraction, pairwise matching, connectivity and camera
  initialization, bundle adjustment, warping and blending) and
  produces the final panorama.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package stitch orchestrates the panorama stitching pipeline: feature
// detection, matching, camera estimation, bundle adjustment, warping
// and blending, over a set of input images.
package stitch

import (
	"context"
	"fmt"

	"github.com/ausocean/panostitch/stitch/camera"
	"github.com/ausocean/panostitch/stitch/config"
	"github.com/ausocean/panostitch/stitch/feature"
	"github.com/ausocean/panostitch/stitch/image"
)

// Stitcher holds the images and configuration for one panorama build.
type Stitcher struct {
	cfg    *config.Config
	images []*image.Image

	feats []featureSet
	cams  []camera.Camera

	// err channels asynchronous diagnostics (non-fatal, per-pair
	// warnings) to the handleErrors routine, so stage goroutines never
	// block on logging.
	err chan error
}

// featureSet is the keypoint set detected for one image, alongside
// that image's pixel dimensions.
type featureSet struct {
	keypoints []feature.Keypoint
	width     int
	height    int
}

// New constructs a Stitcher for the given images, validating cfg and
// defaulting any unset fields.
func New(cfg *config.Config, images []*image.Image) (*Stitcher, error) {
	if len(images) < 2 {
		return nil, fmt.Errorf("stitch: need at least 2 images, got %d", len(images))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stitch: invalid config: %w", err)
	}
	s := &Stitcher{cfg: cfg, images: images, err: make(chan error)}
	go s.handleErrors()
	return s, nil
}

// handleErrors logs asynchronous non-fatal diagnostics emitted by
// stage goroutines, mirroring revid's pipeline.go handleErrors.
func (s *Stitcher) handleErrors() {
	for e := range s.err {
		if e != nil {
			s.cfg.Logger.Warning("async pipeline diagnostic", "error", e.Error())
		}
	}
}

// Build runs the full pipeline and returns the composited panorama.
func (s *Stitcher) Build(ctx context.Context) (*image.Image, error) {
	defer close(s.err)

	if err := s.calcFeatures(ctx); err != nil {
		return nil, err
	}

	matches, err := s.calcMatches(ctx)
	if err != nil {
		return nil, err
	}

	edges, err := s.calcTransforms(matches)
	if err != nil {
		return nil, err
	}

	identity, err := s.calcConnectivity(edges)
	if err != nil {
		return nil, err
	}

	obs := collectObservations(edges)
	if s.cfg.EstimateCamera {
		result := refineBundle(s.cams, obs, s.cfg)
		s.cams = result.Cameras
		s.cfg.Logger.Info("bundle adjustment complete", "rms", result.RMS)
	}

	out, err := s.compose(ctx, identity)
	if err != nil {
		return nil, err
	}
	return out, nil
}
