/*
DESCRIPTION
  errs.go defines the typed error kinds surfaced by the panorama stitching
  pipeline, distinguishing fatal pipeline-aborting conditions from
  per-pair conditions that are recoverable by dropping a graph edge.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package errs defines the error kinds produced by the stitch pipeline.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind distinguishes the sentinel error conditions the pipeline can
// surface. Fatal kinds abort the whole Build; non-fatal kinds are
// handled locally by the stage that detects them (a dropped match-graph
// edge, typically).
type Kind int

const (
	// NoFeatures indicates an input image yielded zero keypoints.
	NoFeatures Kind = iota

	// PairwiseMatchFailed indicates two images expected to match (in
	// linear-pairwise mode, adjacent images) failed to produce a usable
	// transform. In all-pairs mode this kind is not fatal; the pair is
	// simply dropped from the match graph.
	PairwiseMatchFailed

	// DisconnectedGraph indicates the max-confidence spanning tree built
	// from pairwise matches does not span every input image.
	DisconnectedGraph

	// SingularMatrix indicates a required matrix inverse failed during
	// homography propagation or perspective correction.
	SingularMatrix

	// InsufficientMatches indicates fewer than the minimum usable
	// putative match count for a pair. Non-fatal at the pair level.
	InsufficientMatches

	// DegenerateRANSAC indicates RANSAC found no model with enough
	// inliers. Non-fatal at the pair level.
	DegenerateRANSAC
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case NoFeatures:
		return "no features"
	case PairwiseMatchFailed:
		return "pairwise match failed"
	case DisconnectedGraph:
		return "images not connected"
	case SingularMatrix:
		return "singular matrix"
	case InsufficientMatches:
		return "insufficient matches"
	case DegenerateRANSAC:
		return "degenerate RANSAC"
	default:
		return "unknown error kind"
	}
}

// Error is a typed pipeline error carrying the Kind and the image
// index(es) it concerns, so callers get a diagnostic that identifies
// the offending image(s) rather than a bare message.
type Error struct {
	Kind   Kind
	Images []int
	cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (images %v): %s", e.Kind, e.Images, e.cause)
	}
	return fmt.Sprintf("%s (images %v)", e.Kind, e.Images)
}

// Unwrap supports errors.Is/As against the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// IsFatal reports whether a Kind is pipeline-aborting.
func (k Kind) IsFatal() bool {
	switch k {
	case NoFeatures, DisconnectedGraph, SingularMatrix:
		return true
	case PairwiseMatchFailed:
		// Fatal only in linear-pairwise mode; callers in all-pairs mode
		// must check this themselves before treating it as fatal.
		return true
	default:
		return false
	}
}

// New constructs an *Error for the given kind and offending images.
func New(kind Kind, images ...int) *Error {
	return &Error{Kind: kind, Images: images}
}

// Wrap constructs an *Error that also carries an underlying cause.
func Wrap(cause error, kind Kind, images ...int) *Error {
	return &Error{Kind: kind, Images: images, cause: errors.WithStack(cause)}
}
