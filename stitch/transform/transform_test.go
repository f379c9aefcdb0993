package transform

import (
	"math/rand"
	"testing"

	"github.com/ausocean/panostitch/stitch/feature"
	"github.com/ausocean/panostitch/stitch/match"
)

// makeShiftedPair builds two keypoint sets related by a known
// translation plus a handful of outliers, for RANSAC recovery tests.
func makeShiftedPair(n int, dx, dy float64, outliers int) ([]feature.Keypoint, []feature.Keypoint, match.Data) {
	r := rand.New(rand.NewSource(7))
	kps1 := make([]feature.Keypoint, n)
	kps2 := make([]feature.Keypoint, n)
	var data match.Data
	for i := 0; i < n; i++ {
		x := r.Float64() * 500
		y := r.Float64() * 400
		kps1[i] = feature.Keypoint{X: x, Y: y}
		kps2[i] = feature.Keypoint{X: x - dx, Y: y - dy}
		data = append(data, match.Pair{I1: i, I2: i})
	}
	for i := 0; i < outliers; i++ {
		kps2[i] = feature.Keypoint{X: r.Float64() * 500, Y: r.Float64() * 400}
	}
	return kps1, kps2, data
}

func TestEstimateRecoversTranslation(t *testing.T) {
	kps1, kps2, data := makeShiftedPair(40, 50, -20, 6)

	info, err := Estimate(data, kps1, kps2, 500, 400, Params{
		Model: Affine,
		Rand:  rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if info.Confidence <= 0 {
		t.Fatalf("Confidence = %v, want > 0", info.Confidence)
	}

	// Check a point maps back close to its expected location.
	x, y := info.Homography.Apply2D(100-50, 200-(-20))
	if dx, dy := x-100, y-200; dx*dx+dy*dy > 4 {
		t.Errorf("Homography maps (50,220) roughly to (100,200), got (%v, %v)", x, y)
	}
	if len(info.Inliers1) < 30 {
		t.Errorf("len(Inliers1) = %d, want at least 30 of 40 true correspondences", len(info.Inliers1))
	}
}

func TestEstimateInsufficientMatches(t *testing.T) {
	kps1 := []feature.Keypoint{{X: 0, Y: 0}, {X: 1, Y: 1}}
	kps2 := []feature.Keypoint{{X: 0, Y: 0}, {X: 1, Y: 1}}
	data := match.Data{{I1: 0, I2: 0}, {I1: 1, I2: 1}}

	_, err := Estimate(data, kps1, kps2, 100, 100, Params{})
	if err == nil {
		t.Fatal("Estimate() error = nil, want InsufficientMatches")
	}
}

func TestEstimateDegenerateRandomMatches(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	n := 20
	kps1 := make([]feature.Keypoint, n)
	kps2 := make([]feature.Keypoint, n)
	var data match.Data
	for i := 0; i < n; i++ {
		kps1[i] = feature.Keypoint{X: r.Float64() * 500, Y: r.Float64() * 400}
		kps2[i] = feature.Keypoint{X: r.Float64() * 500, Y: r.Float64() * 400}
		data = append(data, match.Pair{I1: i, I2: i})
	}

	_, err := Estimate(data, kps1, kps2, 500, 400, Params{Rand: rand.New(rand.NewSource(2))})
	if err == nil {
		t.Fatal("Estimate() error = nil, want DegenerateRANSAC for unrelated random points")
	}
}

func TestGoodInlierSetRejectsDenseKeypointCoverage(t *testing.T) {
	// 10 inliers forming a small, non-degenerate hull that covers all 10
	// putative matches (cnt_kp1 ratio >= 1, passing InlierMinRatio), but
	// the image's full keypoint set has thousands of other detections
	// crowded into that same small region, pushing the cnt_kp2 ratio
	// (matches / total-keypoints-inside-hull) under the 0.01 gate.
	r := rand.New(rand.NewSource(9))
	inliers := make([]int, 10)
	p1 := make([]point2, 10)
	p2 := make([]point2, 10)
	for i := range inliers {
		inliers[i] = i
		// A small 5x2 grid near the origin: non-collinear, so it forms
		// a proper convex hull.
		p1[i] = point2{float64(i % 5), float64(i / 5)}
		p2[i] = point2{float64(i % 5), float64(i / 5)}
	}

	kpsAll := make([]point2, 2000)
	for i := range kpsAll {
		kpsAll[i] = point2{r.Float64() * 4, r.Float64()}
	}

	if goodInlierSet(inliers, p1, p2, kpsAll, kpsAll, DefaultInlierMinRatio) {
		t.Error("goodInlierSet() = true, want false when the inlier hull is crowded with the image's other keypoints")
	}
}

func TestConvexHullAndPointInPolygon(t *testing.T) {
	square := []point2{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {5, 5}}
	hull := convexHull(square)
	if len(hull) != 4 {
		t.Fatalf("convexHull() len = %d, want 4 (interior point dropped)", len(hull))
	}
	if !pointInPolygon(hull, point2{5, 5}) {
		t.Error("pointInPolygon() = false for centre point, want true")
	}
	if pointInPolygon(hull, point2{20, 20}) {
		t.Error("pointInPolygon() = true for far outside point, want false")
	}
}
