/*
DESCRIPTION
  project.go implements the flat, cylindrical and spherical projection
  models used to map camera-ray space onto the panorama canvas, each
  with a forward (proj) and inverse (proj_r) map.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package warp projects camera rays onto the panorama canvas (flat,
// cylindrical or spherical) and computes each image's placement on
// that canvas.
package warp

import "math"

// Projection is a forward/inverse mapping between a 3D ray (x, y, z)
// and 2D panorama coordinates, grounded on cylinder.cc's Sphere/
// Cylinder proj/proj_r pair.
type Projection interface {
	// Proj maps a camera ray to panorama (theta, h) coordinates.
	Proj(x, y, z float64) (u, v float64)
	// ProjR is the inverse of Proj: panorama coordinates back to a
	// camera ray direction. The ray is not normalized to the image
	// plane: only Flat returns z = 1.
	ProjR(u, v float64) (x, y, z float64)
}

// Flat is the identity projection: rays are used directly as pixel
// coordinates after the perspective divide by z.
type Flat struct{}

func (Flat) Proj(x, y, z float64) (u, v float64) {
	if z == 0 {
		return math.NaN(), math.NaN()
	}
	return x / z, y / z
}

func (Flat) ProjR(u, v float64) (x, y, z float64) {
	return u, v, 1
}

// Cylindrical projects onto a cylinder: u is the azimuth angle, v is
// height scaled by the ray's horizontal distance, per spec.md §4.6
// (x := atan(x/z), y := y/sqrt(x^2+z^2)).
type Cylindrical struct{}

func (Cylindrical) Proj(x, y, z float64) (u, v float64) {
	u = math.Atan2(x, z)
	r := math.Hypot(x, z)
	if r == 0 {
		return u, math.NaN()
	}
	v = y / r
	return u, v
}

func (Cylindrical) ProjR(u, v float64) (x, y, z float64) {
	x = math.Sin(u)
	z = math.Cos(u)
	y = v * math.Hypot(x, z)
	return x, y, z
}

// Spherical projects onto a sphere: u is the azimuth angle, v is the
// elevation angle, per spec.md §4.6 (x := atan(x/z), y :=
// asin(y/|p|)).
type Spherical struct{}

func (Spherical) Proj(x, y, z float64) (u, v float64) {
	u = math.Atan2(x, z)
	norm := math.Sqrt(x*x + y*y + z*z)
	if norm == 0 {
		return u, math.NaN()
	}
	v = math.Asin(clampUnit(y / norm))
	return u, v
}

func (Spherical) ProjR(u, v float64) (x, y, z float64) {
	cosV := math.Cos(v)
	x = math.Sin(u) * cosV
	y = math.Sin(v)
	z = math.Cos(u) * cosV
	return x, y, z
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
