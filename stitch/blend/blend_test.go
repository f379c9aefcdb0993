package blend

import (
	"context"
	"math"
	"testing"

	"github.com/ausocean/panostitch/stitch/image"
)

func TestHorizontalWeight(t *testing.T) {
	tests := []struct {
		name string
		u    float64
		want float64
	}{
		{"centre", 0.5, 0.5},
		{"left edge", 0, 0},
		{"right edge", 1, 0},
		{"quarter", 0.25, 0.25},
		{"out of range clamps to zero", 1.2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := horizontalWeight(tt.u)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("horizontalWeight(%v) = %v, want %v", tt.u, got, tt.want)
			}
		})
	}
}

func TestBlendSingleSourceCoversCanvas(t *testing.T) {
	src := image.New(10, 10, 1)
	src.Fill([]float64{1})

	toSource := func(row, col int) (float64, float64, bool) {
		return float64(col) / 10, float64(row) / 10, true
	}

	out, err := Blend(context.Background(), 10, 10, 1, []Source{{Image: src, ToSource: toSource}})
	if err != nil {
		t.Fatalf("Blend() error = %v", err)
	}
	for row := 1; row < 9; row++ {
		for col := 1; col < 9; col++ {
			if out.IsNoData(row, col) {
				t.Fatalf("pixel (%d,%d) is NoData, want covered", row, col)
			}
		}
	}
}

func TestBlendUncoveredPixelStaysNoData(t *testing.T) {
	src := image.New(4, 4, 1)
	src.Fill([]float64{1})

	// Only the top-left quadrant is covered.
	toSource := func(row, col int) (float64, float64, bool) {
		if row >= 5 || col >= 5 {
			return 0, 0, false
		}
		return float64(col) / 4, float64(row) / 4, true
	}

	out, err := Blend(context.Background(), 10, 10, 1, []Source{{Image: src, ToSource: toSource}})
	if err != nil {
		t.Fatalf("Blend() error = %v", err)
	}
	if !out.IsNoData(9, 9) {
		t.Error("pixel (9,9) should remain NoData, no source covers it")
	}
}

func TestBlendTwoOverlappingSourcesFeathers(t *testing.T) {
	a := image.New(10, 10, 1)
	a.Fill([]float64{0})
	b := image.New(10, 10, 1)
	b.Fill([]float64{1})

	identity := func(row, col int) (float64, float64, bool) {
		return float64(col) / 10, float64(row) / 10, true
	}

	out, err := Blend(context.Background(), 10, 10, 1, []Source{
		{Image: a, ToSource: identity},
		{Image: b, ToSource: identity},
	})
	if err != nil {
		t.Fatalf("Blend() error = %v", err)
	}
	// At the canvas centre both sources have equal feather weight, so
	// the blended value should sit between the two source values.
	v := out.Get(5, 5, 0)
	if v <= 0 || v >= 1 {
		t.Errorf("Get(5,5,0) = %v, want strictly between 0 and 1", v)
	}
}
