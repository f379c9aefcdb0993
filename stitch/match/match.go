/*
DESCRIPTION
  match.go implements descriptor matching with Lowe's ratio test, backed
  by a k-d tree pre-index per image so all-pairs matching over N images
  costs O(M log M) per pair rather than O(M^2).

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package match implements descriptor matching between images, with
// Lowe's ratio test and a k-d-tree pre-index for efficient all-pairs
// matching over many images.
package match

import (
	"math/bits"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/ausocean/panostitch/stitch/feature"
)

// DefaultRatio is Lowe's ratio test threshold.
const DefaultRatio = 0.8

// Pair is one matched correspondence: the index of a keypoint in image
// 1 and its accepted nearest neighbour's index in image 2.
type Pair struct {
	I1, I2 int
}

// Data is the ordered sequence of matched pairs for one image pair.
type Data []Pair

// Reverse returns the match data with each pair's indices swapped,
// used to re-use a forward match when processing the reverse
// direction of a pair.
func (d Data) Reverse() Data {
	out := make(Data, len(d))
	for i, p := range d {
		out[i] = Pair{I1: p.I2, I2: p.I1}
	}
	return out
}

// point adapts a feature.Keypoint's descriptor to kdtree.Comparable.
type point struct {
	desc []float64
	idx  int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	o := c.(point)
	return p.desc[d] - o.desc[d]
}

func (p point) Dims() int { return len(p.desc) }

func (p point) Distance(c kdtree.Comparable) float64 {
	o := c.(point)
	return squaredEuclidean(p.desc, o.desc, nil)
}

// points implements kdtree.Interface over a slice of point.
type points []point

func (ps points) Index(i int) kdtree.Comparable { return ps[i] }
func (ps points) Len() int                      { return len(ps) }
func (ps points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(bkdSorter{ps, d}, ps.Len()/2)
}
func (ps points) Slice(start, end int) kdtree.Interface { return ps[start:end] }

// bkdSorter lets kdtree.Partition/MedianOfMedians sort points by one
// descriptor dimension without copying.
type bkdSorter struct {
	ps points
	d  kdtree.Dim
}

func (s bkdSorter) Len() int { return len(s.ps) }
func (s bkdSorter) Less(i, j int) bool {
	return s.ps[i].desc[s.d] < s.ps[j].desc[s.d]
}
func (s bkdSorter) Swap(i, j int) { s.ps[i], s.ps[j] = s.ps[j], s.ps[i] }
func (s bkdSorter) Slice(start, end int) kdtree.SortSlicer {
	return bkdSorter{s.ps[start:end], s.d}
}

// Index is a k-d tree pre-index over one image's descriptor set,
// supporting efficient nearest-neighbour queries for the matcher.
type Index struct {
	tree *kdtree.Tree
	pts  points
}

// NewIndex builds a pre-index over kps' descriptors.
func NewIndex(kps []feature.Keypoint) *Index {
	pts := make(points, len(kps))
	for i, k := range kps {
		pts[i] = point{desc: k.Descriptor, idx: i}
	}
	return &Index{tree: kdtree.New(pts, false), pts: pts}
}

// twoNearest returns the two nearest neighbours (by squared Euclidean
// distance) in idx to the given descriptor.
func (idx *Index) twoNearest(desc []float64) (first, second kdtree.ComparableDist, ok bool) {
	k := kdtree.NewNKeeper(2)
	idx.tree.NearestSet(k, point{desc: desc})
	if len(k.Heap) < 2 {
		return kdtree.ComparableDist{}, kdtree.ComparableDist{}, false
	}
	cds := append([]kdtree.ComparableDist(nil), k.Heap...)
	sort.Slice(cds, func(i, j int) bool { return cds[i].Dist < cds[j].Dist })
	return cds[0], cds[1], true
}

// Pair finds, for each descriptor in kps1, its best match in the index
// built over kps2's descriptors, accepting it iff the ratio test
// passes: nearest-distance < ratio * second-nearest-distance.
func (idx *Index) Pair(kps1 []feature.Keypoint, ratio float64) Data {
	var out Data
	for i, k := range kps1 {
		first, second, ok := idx.twoNearest(k.Descriptor)
		if !ok {
			continue
		}
		if first.Dist < ratio*ratio*second.Dist {
			j := first.Comparable.(point).idx
			out = append(out, Pair{I1: i, I2: j})
		}
	}
	return out
}

// squaredEuclidean computes the squared Euclidean distance between x
// and y. When thres is non-nil it returns the running partial sum as
// soon as that sum exceeds *thres, per spec.md's SIMD-distance contract: the
// result must be correct to rounding and support early exit.
func squaredEuclidean(x, y []float64, thres *float64) float64 {
	var sum float64
	for i := range x {
		d := x[i] - y[i]
		sum += d * d
		if thres != nil && sum > *thres {
			return sum
		}
	}
	return sum
}

// Hamming computes the bit-population-count distance between two
// packed-bit descriptors, for binary descriptor variants (spec.md
// §4.2's optional Hamming path). x and y hold the packed descriptor
// bits, 64 per element; the matcher itself does not call Hamming.
func Hamming(x, y []uint64) int {
	var sum int
	for i := range x {
		sum += bits.OnesCount64(x[i] ^ y[i])
	}
	return sum
}
