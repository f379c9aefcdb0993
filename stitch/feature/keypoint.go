/*
DESCRIPTION
  keypoint.go defines the Keypoint/Descriptor type produced by the DoG
  detector: a pixel coordinate, scale, dominant orientation, and a
  fixed-length SIFT-like descriptor vector.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package feature implements the scale-invariant keypoint detector and
// descriptor extractor: Difference-of-Gaussians extrema, subpixel
// refinement, edge rejection, orientation assignment, and a SIFT-like
// descriptor.
package feature

// DescriptorLen is the fixed length of the descriptor vector, chosen
// (4x4 spatial cells x 8 orientation bins) to match the classic SIFT
// descriptor, and already a multiple of 4 for vectorized distance.
const DescriptorLen = 128

// Keypoint is a single detected and described interest point.
type Keypoint struct {
	// X, Y is the keypoint's coordinate in the source image's pixel
	// frame (not the octave's downsampled frame).
	X, Y float64

	// Octave is the pyramid octave index the keypoint was found in.
	Octave int

	// Scale is the intra-octave scale index (continuous, post subpixel
	// refinement).
	Scale float64

	// Sigma is the absolute blur scale (octave-adjusted) of the integer
	// scale whose gradients built the orientation and descriptor.
	Sigma float64

	// Orientation is the dominant gradient orientation in [0, 2*pi).
	Orientation float64

	// Descriptor is the L2-normalized, 0.2-clipped, renormalized
	// descriptor vector, length DescriptorLen.
	Descriptor []float64
}

// Clone returns a deep copy of the keypoint (the descriptor slice is
// copied so warping coordinates in place never aliases another
// keypoint's memory).
func (k Keypoint) Clone() Keypoint {
	out := k
	out.Descriptor = append([]float64(nil), k.Descriptor...)
	return out
}
