package bundle

import (
	"testing"

	"github.com/ausocean/panostitch/stitch/camera"
)

// TestRefineMonotonicRMS checks that starting from a perturbed camera
// set and refining against observations generated by the true cameras
// strictly decreases (or holds) the RMS reprojection error, per
// spec.md §4.5's accept-iff-decreases contract.
func TestRefineMonotonicRMS(t *testing.T) {
	trueCams := []camera.Camera{
		{Focal: 500, Ppx: 0, Ppy: 0, R: camera.Identity().R},
		{Focal: 500, Ppx: 0, Ppy: 0, R: camera.AngleToRotation(0, 0.2, 0)},
	}

	var obs []Observation
	pts := [][2]float64{{0.1, 0.1}, {-0.1, 0.2}, {0.05, -0.15}, {0.2, 0.0}, {-0.2, -0.1}}
	for _, p := range pts {
		h := trueCams[0].K().Mul(trueCams[0].R.Transpose()).Mul(trueCams[1].R)
		kInv, ok := trueCams[1].K().Inverse()
		if !ok {
			t.Fatal("camera 1 intrinsics not invertible")
		}
		h = h.Mul(kInv)
		x, y := h.Apply2D(p[0], p[1])
		obs = append(obs, Observation{I: 0, J: 1, P1: [2]float64{x, y}, P2: p})
	}

	initial := []camera.Camera{
		{Focal: 480, Ppx: 5, Ppy: -5, R: camera.Identity().R},
		{Focal: 520, Ppx: -3, Ppy: 3, R: camera.AngleToRotation(0.02, 0.15, -0.01)},
	}
	initErr := rms(calcError(paramsOf(initial), len(initial), obs))

	result := Refine(initial, obs)
	if result.RMS > initErr+1e-9 {
		t.Errorf("Refine() RMS = %v, want <= initial RMS %v", result.RMS, initErr)
	}
	if len(result.Cameras) != len(initial) {
		t.Fatalf("len(result.Cameras) = %d, want %d", len(result.Cameras), len(initial))
	}
}

func paramsOf(cams []camera.Camera) []float64 {
	out := make([]float64, len(cams)*camera.NumParams)
	for i, c := range cams {
		p := c.ToParams()
		copy(out[i*camera.NumParams:], p[:])
	}
	return out
}
