/*
DESCRIPTION
  geometry.go provides the small computational-geometry primitives the
  RANSAC inlier-set sanity check needs: a 2D convex hull (monotone
  chain) and point-in-polygon test.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package transform

import "sort"

// point2 is a minimal 2D point used by the convex hull / point-in-
// polygon helpers (kept package-private and separate from feature's
// Keypoint to avoid a circular import).
type point2 struct{ x, y float64 }

// convexHull computes the convex hull of pts via the monotone chain
// algorithm, returning hull vertices in counter-clockwise order.
func convexHull(pts []point2) []point2 {
	if len(pts) < 3 {
		return pts
	}
	sorted := append([]point2(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].x != sorted[j].x {
			return sorted[i].x < sorted[j].x
		}
		return sorted[i].y < sorted[j].y
	})

	cross := func(o, a, b point2) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}

	n := len(sorted)
	hull := make([]point2, 0, 2*n)

	// Lower hull.
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// Upper hull.
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// pointInPolygon reports whether p lies inside the (possibly
// degenerate) polygon defined by hull vertices, via the standard
// ray-casting test.
func pointInPolygon(hull []point2, p point2) bool {
	if len(hull) < 3 {
		return false
	}
	inside := false
	n := len(hull)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := hull[i], hull[j]
		if (pi.y > p.y) != (pj.y > p.y) &&
			p.x < (pj.x-pi.x)*(p.y-pi.y)/(pj.y-pi.y)+pi.x {
			inside = !inside
		}
	}
	return inside
}
