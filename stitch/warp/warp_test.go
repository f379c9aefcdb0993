package warp

import (
	"math"
	"testing"

	"github.com/ausocean/panostitch/stitch/camera"
)

func TestProjectionRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		proj Projection
	}{
		{"flat", Flat{}},
		{"cylindrical", Cylindrical{}},
		{"spherical", Spherical{}},
	}
	rays := [][3]float64{{0.3, 0.2, 1}, {-0.1, 0.4, 1}, {0, 0, 1}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, r := range rays {
				u, v := tt.proj.Proj(r[0], r[1], r[2])
				if math.IsNaN(u) || math.IsNaN(v) {
					t.Fatalf("Proj(%v) = NaN", r)
				}
				x, y, z := tt.proj.ProjR(u, v)
				u2, v2 := tt.proj.Proj(x, y, z)
				if math.Abs(u-u2) > 1e-6 || math.Abs(v-v2) > 1e-6 {
					t.Errorf("round trip mismatch for ray %v: (%v,%v) -> (%v,%v)", r, u, v, u2, v2)
				}
			}
		})
	}
}

func TestImageComponentProjectedRange(t *testing.T) {
	cam := camera.Camera{Focal: 500, Ppx: 160, Ppy: 120, R: camera.Identity().R}
	ic, ok := NewImageComponent(cam, 320, 240)
	if !ok {
		t.Fatal("NewImageComponent() ok = false")
	}
	r := ic.ProjectedRange(Flat{})
	if r.MaxU <= r.MinU || r.MaxV <= r.MinV {
		t.Errorf("ProjectedRange() = %+v, want a non-degenerate box", r)
	}
}

func TestSearchFocalScaleConverges(t *testing.T) {
	// A slope function with a unique minimum at focal=100.
	slope := func(f float64) float64 { return (f - 100) / 100 }
	got := SearchFocalScale(90, slope)
	if math.Abs(got-100) > 15 {
		t.Errorf("SearchFocalScale() = %v, want close to 100", got)
	}
}
