/*
DESCRIPTION
  descriptor.go builds the SIFT-like descriptor for an oriented
  keypoint: a 4x4 grid of 8-bin orientation histograms over a rotated
  window, trilinearly interpolated, L2-normalized, clipped, and
  renormalized.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package feature

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ausocean/panostitch/stitch/scalespace"
)

const (
	descGridSize  = 4 // 4x4 spatial cells
	descBins      = 8 // 8 orientation bins per cell
	descClip      = 0.2
	descWindowK   = 16 // window width = descWindowK * sigma
	normEpsilon   = 1e-7
)

// describe builds the length-DescriptorLen vector for a candidate with
// the given dominant orientation, or nil if the window falls outside
// the octave's valid gradient region.
func describe(o *scalespace.Octave, c candidate, orientation float64) []float64 {
	s := c.intScale
	if s < 0 || s >= len(o.Mag) || o.Mag[s] == nil {
		return nil
	}
	sigma := o.Sigma[s]
	winRadius := descWindowK * sigma / 2

	cosA := math.Cos(orientation)
	sinA := math.Sin(orientation)

	hist := make([]float64, descGridSize*descGridSize*descBins)

	half := float64(descGridSize) / 2
	// Sample on a grid covering the rotated window; step chosen so the
	// whole window is covered with roughly 1 sample per source pixel.
	step := 1.0
	n := int(2 * winRadius / step)
	if n < 1 {
		return nil
	}

	any := false
	for iy := -n / 2; iy <= n/2; iy++ {
		for ix := -n / 2; ix <= n/2; ix++ {
			// Position relative to keypoint centre, in the rotated
			// descriptor frame, in pixels (converted to cell units below).
			rx := float64(ix) * step
			ry := float64(iy) * step

			// Rotate into image space.
			imgX := c.x + rx*cosA - ry*sinA
			imgY := c.y + rx*sinA + ry*cosA

			xi, yi := int(math.Round(imgX)), int(math.Round(imgY))
			if xi < 1 || xi >= o.W-1 || yi < 1 || yi >= o.H-1 {
				continue
			}

			// Cell coordinates (continuous), in [0, descGridSize).
			cellX := rx/ (winRadius*2/float64(descGridSize)) + half
			cellY := ry/ (winRadius*2/float64(descGridSize)) + half
			if cellX < -1 || cellX >= float64(descGridSize) || cellY < -1 || cellY >= float64(descGridSize) {
				continue
			}

			mag := o.Mag[s].Get(yi, xi, 0)
			ang := o.Orient[s].Get(yi, xi, 0) - orientation
			for ang < 0 {
				ang += 2 * math.Pi
			}
			for ang >= 2*math.Pi {
				ang -= 2 * math.Pi
			}
			binF := ang / (2 * math.Pi) * descBins

			// Gaussian weighting by distance from window centre (sigma
			// = half the descriptor window, per the standard SIFT
			// weighting window).
			weight := math.Exp(-(rx*rx + ry*ry) / (2 * winRadius * winRadius))

			trilinearAccumulate(hist, cellX, cellY, binF, mag*weight)
			any = true
		}
	}
	if !any {
		return nil
	}

	normalizeDescriptor(hist)
	return hist
}

// trilinearAccumulate distributes a weighted sample into the 8
// neighbouring (cellX, cellY, bin) histogram cells by trilinear
// interpolation, matching the standard SIFT binning scheme.
func trilinearAccumulate(hist []float64, cellX, cellY, binF, value float64) {
	x0 := int(math.Floor(cellX))
	y0 := int(math.Floor(cellY))
	b0 := int(math.Floor(binF))

	fx := cellX - float64(x0)
	fy := cellY - float64(y0)
	fb := binF - float64(b0)

	for dx := 0; dx <= 1; dx++ {
		xx := x0 + dx
		if xx < 0 || xx >= descGridSize {
			continue
		}
		wx := fx
		if dx == 0 {
			wx = 1 - fx
		}
		for dy := 0; dy <= 1; dy++ {
			yy := y0 + dy
			if yy < 0 || yy >= descGridSize {
				continue
			}
			wy := fy
			if dy == 0 {
				wy = 1 - fy
			}
			for db := 0; db <= 1; db++ {
				bb := (b0 + db) % descBins
				wb := fb
				if db == 0 {
					wb = 1 - fb
				}
				idx := (yy*descGridSize+xx)*descBins + bb
				hist[idx] += value * wx * wy * wb
			}
		}
	}
}

// normalizeDescriptor applies the L2-normalize / clip(0.2) / renormalize
// sequence from spec.md's Keypoint invariant, using gonum/floats for
// the vector norm and scale passes.
func normalizeDescriptor(v []float64) {
	n := floats.Norm(v, 2)
	if n < normEpsilon {
		return
	}
	floats.Scale(1/n, v)
	for i, x := range v {
		if x > descClip {
			v[i] = descClip
		}
	}
	n = floats.Norm(v, 2)
	if n < normEpsilon {
		return
	}
	floats.Scale(1/n, v)
}
