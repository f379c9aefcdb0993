/*
DESCRIPTION
  graph.go builds a maximum-confidence spanning tree over the pairwise
  match graph (Kruskal) and propagates camera rotations outward from an
  identity image by breadth-first traversal.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package camera

import (
	"fmt"
	"sort"

	"github.com/ausocean/panostitch/stitch/errs"
	"github.com/ausocean/panostitch/stitch/homog"
)

// Edge is one pairwise transform in the match graph: the homography
// maps image-j pixels into image-i pixels, with the given RANSAC
// confidence. A confidence of 0 still counts as an edge; it only ranks
// lowest in SpanningTree.
type Edge struct {
	I, J       int
	Homography homog.Mat3
	Confidence float64
}

// disjointSet is a union-find structure over image indices, used by
// Kruskal's algorithm.
type disjointSet struct {
	parent []int
}

func newDisjointSet(n int) *disjointSet {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &disjointSet{parent: p}
}

func (d *disjointSet) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *disjointSet) union(a, b int) bool {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return false
	}
	d.parent[ra] = rb
	return true
}

// SpanningTree selects a maximum-confidence spanning tree over n
// images from the candidate edges via Kruskal's algorithm (edges
// sorted by descending confidence), matching spec.md §4.4's rotation
// initialization strategy. It returns the tree's adjacency list
// (image index -> incident tree edges) and an error if the edges do
// not connect all n images.
//
// Callers should only pass edges for image pairs where transform
// estimation succeeded (see stitch/transform.Estimate): a Confidence
// of exactly 0 here means a geometrically valid pairwise transform
// whose overlap was too extreme to be useful for bundle adjustment
// (spec.md §9's near-duplicate-image clamp), not an absence of a
// match — it still competes for tree edges, just with the lowest
// priority.
func SpanningTree(n int, edges []Edge) (map[int][]Edge, error) {
	sorted := append([]Edge(nil), edges...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	ds := newDisjointSet(n)
	adj := make(map[int][]Edge, n)
	used := 0
	for _, e := range sorted {
		if ds.union(e.I, e.J) {
			inv, err := invert(e.Homography)
			if err != nil {
				return nil, errs.Wrap(err, errs.SingularMatrix, e.I, e.J)
			}
			adj[e.I] = append(adj[e.I], e)
			adj[e.J] = append(adj[e.J], Edge{I: e.J, J: e.I, Homography: inv, Confidence: e.Confidence})
			used++
		}
	}
	if used != n-1 {
		return nil, errs.New(errs.DisconnectedGraph)
	}
	return adj, nil
}

func invert(h homog.Mat3) (homog.Mat3, error) {
	inv, ok := h.Inverse()
	if !ok {
		return homog.Mat3{}, fmt.Errorf("camera: homography is singular, cannot invert")
	}
	return inv, nil
}

// PropagateRotations performs a breadth-first traversal of the
// spanning tree from identityIdx, assigning each camera's rotation
// from its parent's: R_next = R_now * (K_now^-1 * H_{now->next} *
// K_next), per spec.md §4.4. cams must already carry each image's
// focal/principal-point (R is overwritten; aspect stays 1). Returns
// errs.SingularMatrix if a camera's intrinsics matrix is not
// invertible, per spec.md §7.
func PropagateRotations(n, identityIdx int, adj map[int][]Edge, cams []Camera) error {
	visited := make([]bool, n)
	cams[identityIdx].R = homog.Identity()
	visited[identityIdx] = true

	queue := []int{identityIdx}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range adj[cur] {
			if visited[e.J] {
				continue
			}
			kInv, ok := cams[cur].K().Inverse()
			if !ok {
				return errs.New(errs.SingularMatrix, cur)
			}
			rel := kInv.Mul(e.Homography).Mul(cams[e.J].K())
			cams[e.J].R = cams[cur].R.Mul(rel)
			visited[e.J] = true
			queue = append(queue, e.J)
		}
	}
	return nil
}
