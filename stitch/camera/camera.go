/*
DESCRIPTION
  camera.go defines the pinhole Camera model used by bundle adjustment
  and warping: intrinsics (focal length, principal point) and a 3x3
  rotation, parameterized by three Euler angles for optimization.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package camera estimates the per-image pinhole camera model (focal
// length and rotation) from pairwise homographies: focal initialization
// via closed-form Szeliski relations, and rotation propagation over a
// maximum-confidence spanning tree of the match graph.
package camera

import (
	"math"

	"github.com/ausocean/panostitch/stitch/homog"
)

// NumParams is the number of free parameters per camera in bundle
// adjustment: focal, ppx, ppy and three Euler angles. Aspect is pinned
// to 1 and excluded, per ba_common.hh's NR_PARAM_PER_CAMERA=6.
const NumParams = 6

// Camera is a pinhole camera: intrinsics K and rotation R, where
//
//	K = [f 0 ppx; 0 f*aspect ppy; 0 0 1]
//
// aspect is always 1 (spec.md's Camera invariant).
type Camera struct {
	Focal float64
	Ppx   float64
	Ppy   float64
	R     homog.Mat3 // rotation matrix
}

// Identity returns a camera with unit focal, zero principal point and
// no rotation.
func Identity() Camera {
	return Camera{Focal: 1, R: homog.Identity()}
}

// K returns the intrinsics matrix.
func (c Camera) K() homog.Mat3 {
	return homog.Mat3{c.Focal, 0, c.Ppx, 0, c.Focal, c.Ppy, 0, 0, 1}
}

// ToParams packs the camera into a 6-element parameter vector for
// bundle adjustment, mirroring ba_common.hh's camera_to_params.
func (c Camera) ToParams() [NumParams]float64 {
	a, b, g := RotationToAngle(c.R)
	return [NumParams]float64{c.Focal, c.Ppx, c.Ppy, a, b, g}
}

// FromParams unpacks a 6-element parameter vector back into a Camera,
// mirroring ba_common.hh's params_to_camera (aspect pinned to 1).
func FromParams(p [NumParams]float64) Camera {
	return Camera{
		Focal: p[0],
		Ppx:   p[1],
		Ppy:   p[2],
		R:     AngleToRotation(p[3], p[4], p[5]),
	}
}

// RotationToAngle decomposes R into three Euler angles (extrinsic
// X-Y-Z, i.e. R = Rz(gamma) * Ry(beta) * Rx(alpha)), the inverse of
// AngleToRotation.
func RotationToAngle(r homog.Mat3) (alpha, beta, gamma float64) {
	// r = Rz * Ry * Rx, row-major:
	// r[6] = -sin(beta)
	beta = math.Asin(clamp(-r[6], -1, 1))
	cb := math.Cos(beta)
	if math.Abs(cb) > 1e-9 {
		alpha = math.Atan2(r[7]/cb, r[8]/cb)
		gamma = math.Atan2(r[3]/cb, r[0]/cb)
	} else {
		// Gimbal lock: fold alpha and gamma into a single angle.
		alpha = 0
		gamma = math.Atan2(-r[1], r[4])
	}
	return
}

// AngleToRotation composes R = Rz(gamma) * Ry(beta) * Rx(alpha).
func AngleToRotation(alpha, beta, gamma float64) homog.Mat3 {
	ca, sa := math.Cos(alpha), math.Sin(alpha)
	cb, sb := math.Cos(beta), math.Sin(beta)
	cg, sg := math.Cos(gamma), math.Sin(gamma)

	rx := homog.Mat3{1, 0, 0, 0, ca, -sa, 0, sa, ca}
	ry := homog.Mat3{cb, 0, sb, 0, 1, 0, -sb, 0, cb}
	rz := homog.Mat3{cg, -sg, 0, sg, cg, 0, 0, 0, 1}
	return rz.Mul(ry).Mul(rx)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
