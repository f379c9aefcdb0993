package camera

import (
	"math"
	"testing"

	"github.com/ausocean/panostitch/stitch/homog"
)

func TestAngleRotationRoundTrip(t *testing.T) {
	tests := []struct {
		name               string
		alpha, beta, gamma float64
	}{
		{"zero", 0, 0, 0},
		{"small", 0.1, -0.2, 0.05},
		{"moderate", 0.5, 0.3, -0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := AngleToRotation(tt.alpha, tt.beta, tt.gamma)
			a, b, g := RotationToAngle(r)
			r2 := AngleToRotation(a, b, g)
			for i := range r {
				if math.Abs(r[i]-r2[i]) > 1e-9 {
					t.Fatalf("RotationToAngle/AngleToRotation round trip mismatch at %d: %v vs %v", i, r, r2)
				}
			}
		})
	}
}

func TestCameraToParamsRoundTrip(t *testing.T) {
	c := Camera{Focal: 800, Ppx: 320, Ppy: 240, R: AngleToRotation(0.1, 0.2, 0.3)}
	p := c.ToParams()
	got := FromParams(p)
	if math.Abs(got.Focal-c.Focal) > 1e-9 || math.Abs(got.Ppx-c.Ppx) > 1e-9 || math.Abs(got.Ppy-c.Ppy) > 1e-9 {
		t.Fatalf("FromParams(ToParams(c)) intrinsics = %+v, want %+v", got, c)
	}
	for i := range c.R {
		if math.Abs(got.R[i]-c.R[i]) > 1e-9 {
			t.Fatalf("FromParams(ToParams(c)).R = %v, want %v", got.R, c.R)
		}
	}
}

func TestEstimateFocalMedian(t *testing.T) {
	// A pure-rotation homography around a known focal length should
	// recover close to that focal length.
	f := 700.0
	k := homog.Mat3{f, 0, 0, 0, f, 0, 0, 0, 1}
	kInv, _ := k.Inverse()
	r := AngleToRotation(0.05, 0.03, 0)
	h := k.Mul(r).Mul(kInv)

	got := EstimateFocal([]homog.Mat3{h, h, h}, 1000, 800)
	if math.Abs(got-f)/f > 0.2 {
		t.Errorf("EstimateFocal() = %v, want within 20%% of %v", got, f)
	}
}

func TestEstimateFocalFallback(t *testing.T) {
	got := EstimateFocal(nil, 1000, 800)
	want := 0.5 * (1000.0 / 800.0) * 1000.0
	if got != want {
		t.Errorf("EstimateFocal(nil) = %v, want %v", got, want)
	}
}

func TestSpanningTreeDisconnected(t *testing.T) {
	edges := []Edge{
		{I: 0, J: 1, Homography: homog.Identity(), Confidence: 2},
	}
	_, err := SpanningTree(3, edges)
	if err == nil {
		t.Fatal("SpanningTree() error = nil, want DisconnectedGraph for 3 images with only 1 edge")
	}
}

func TestSpanningTreeAndPropagation(t *testing.T) {
	edges := []Edge{
		{I: 0, J: 1, Homography: homog.Identity(), Confidence: 5},
		{I: 1, J: 2, Homography: homog.Identity(), Confidence: 3},
	}
	adj, err := SpanningTree(3, edges)
	if err != nil {
		t.Fatalf("SpanningTree() error = %v", err)
	}
	cams := []Camera{Identity(), Identity(), Identity()}
	if err := PropagateRotations(3, 0, adj, cams); err != nil {
		t.Fatalf("PropagateRotations() error = %v", err)
	}
	for i, c := range cams {
		if c.R != homog.Identity() {
			t.Errorf("cams[%d].R = %v, want identity (all edges are identity homographies)", i, c.R)
		}
	}
}

func TestPropagateRotationsSingularIntrinsics(t *testing.T) {
	adj := map[int][]Edge{
		0: {{I: 0, J: 1, Homography: homog.Identity(), Confidence: 5}},
	}
	// A zero focal length makes K singular (det = f*f*aspect = 0).
	cams := []Camera{{Focal: 0, R: homog.Identity()}, Identity()}
	err := PropagateRotations(2, 0, adj, cams)
	if err == nil {
		t.Fatal("PropagateRotations() error = nil, want SingularMatrix for zero-focal camera")
	}
}
