/*
DESCRIPTION
  config.go defines the tunable parameters for a Stitcher run: feature
  detection thresholds, matching and RANSAC parameters, camera
  estimation mode, bundle adjustment iteration limits, and blending
  mode.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for a panorama
// stitching run.
package config

import (
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/panostitch/stitch/bundle"
	"github.com/ausocean/panostitch/stitch/feature"
	"github.com/ausocean/panostitch/stitch/match"
	"github.com/ausocean/panostitch/stitch/scalespace"
	"github.com/ausocean/panostitch/stitch/transform"
	"github.com/ausocean/panostitch/stitch/warp"
)

// Projection selects the panorama's geometric surface.
type Projection int

const (
	// ProjectionFlat is the identity projection (planar mosaics).
	ProjectionFlat Projection = iota
	// ProjectionCylindrical projects onto a cylinder.
	ProjectionCylindrical
	// ProjectionSpherical projects onto a sphere.
	ProjectionSpherical
)

// noopLogger discards every log call; the default when Config.Logger
// is left unset.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{})   {}
func (noopLogger) Info(string, ...interface{})    {}
func (noopLogger) Warning(string, ...interface{}) {}
func (noopLogger) Error(string, ...interface{})   {}
func (noopLogger) Fatal(string, ...interface{})   {}

// Config provides parameters relevant to a Stitcher run. A new config
// must be passed to the constructor; defaults for zero-valued fields
// are filled in by New.
type Config struct {
	// Projection selects flat, cylindrical or spherical output
	// geometry.
	Projection Projection

	// EstimateCamera enables bundle adjustment. When false, Validate
	// forces Projection to ProjectionCylindrical, pairwise transforms are
	// fitted as affine, and bundle adjustment is skipped. The initial
	// camera estimate is used as it is. Input images are not pre-warped.
	// stitch/warp's CylindricalWarp and SearchFocalScale are not called.
	EstimateCamera bool

	// NumOctaves and NumScales configure the Gaussian scale-space
	// pyramid (stitch/scalespace).
	NumOctaves int
	NumScales  int

	// ContrastThres and EdgeRatio configure DoG keypoint rejection
	// (stitch/feature).
	ContrastThres float64
	EdgeRatio     float64

	// MatchRatio is Lowe's ratio test threshold (stitch/match).
	MatchRatio float64

	// RANSACIterations, InlierThres and InlierMinRatio configure
	// pairwise transform estimation (stitch/transform).
	RANSACIterations int
	InlierThres      float64
	InlierMinRatio   float64

	// ConnectedThres is defaulted by New and Validate but is not read by
	// any pipeline stage; no head/tail circle detection is performed.
	ConnectedThres float64

	// LMLambda and LMMaxIter configure bundle adjustment
	// (stitch/bundle). Zero values take bundle's package defaults.
	LMLambda  float64
	LMMaxIter int

	// MultibandBlend is currently unimplemented; linear feathering
	// (stitch/blend) is always used. Reserved so callers and config
	// files that already set this flag for parity with the original
	// tool do not need special-casing.
	MultibandBlend bool

	// Logger receives diagnostic output from every pipeline stage. If
	// nil, New installs a no-op logger.
	Logger logging.Logger
}

// New returns a Config with every unset field defaulted.
func New() *Config {
	return &Config{
		Projection:       ProjectionSpherical,
		EstimateCamera:   true,
		NumOctaves:       scalespace.DefaultOctaves,
		NumScales:        scalespace.DefaultScales,
		ContrastThres:    feature.DefaultContrastThres,
		EdgeRatio:        feature.DefaultEdgeRatio,
		MatchRatio:       match.DefaultRatio,
		RANSACIterations: transform.DefaultIterations,
		InlierThres:      transform.DefaultInlierThres,
		InlierMinRatio:   transform.DefaultInlierMinRatio,
		ConnectedThres:   0.3,
		LMLambda:         bundle.InitialLambda,
		LMMaxIter:        bundle.MaxIterations,
		Logger:           noopLogger{},
	}
}

// Validate fills in any zero-valued numeric fields with their package
// defaults and ensures the Logger is non-nil.
func (c *Config) Validate() error {
	if c.NumOctaves == 0 {
		c.NumOctaves = scalespace.DefaultOctaves
	}
	if c.NumScales == 0 {
		c.NumScales = scalespace.DefaultScales
	}
	if c.ContrastThres == 0 {
		c.ContrastThres = feature.DefaultContrastThres
	}
	if c.EdgeRatio == 0 {
		c.EdgeRatio = feature.DefaultEdgeRatio
	}
	if c.MatchRatio == 0 {
		c.MatchRatio = match.DefaultRatio
	}
	if c.RANSACIterations == 0 {
		c.RANSACIterations = transform.DefaultIterations
	}
	if c.InlierThres == 0 {
		c.InlierThres = transform.DefaultInlierThres
	}
	if c.InlierMinRatio == 0 {
		c.InlierMinRatio = transform.DefaultInlierMinRatio
	}
	if c.ConnectedThres == 0 {
		c.ConnectedThres = 0.3
	}
	if c.LMLambda == 0 {
		c.LMLambda = bundle.InitialLambda
	}
	if c.LMMaxIter == 0 {
		c.LMMaxIter = bundle.MaxIterations
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
	if !c.EstimateCamera {
		c.Projection = ProjectionCylindrical
	}
	return nil
}

// TransformModel returns the RANSAC model appropriate for the
// configured estimation mode: affine when camera estimation is
// disabled, projective otherwise.
func (c *Config) TransformModel() transform.Model {
	if !c.EstimateCamera {
		return transform.Affine
	}
	return transform.Projective
}

// ProjectionImpl returns the warp.Projection implementation matching
// c.Projection.
func (c *Config) ProjectionImpl() warp.Projection {
	switch c.Projection {
	case ProjectionCylindrical:
		return warp.Cylindrical{}
	case ProjectionSpherical:
		return warp.Spherical{}
	default:
		return warp.Flat{}
	}
}
