/*
DESCRIPTION
  orientation.go assigns one or more dominant gradient orientations to
  each surviving DoG extremum via a 36-bin weighted histogram, splitting
  off a separate oriented keypoint for every bin within 80% of the
  histogram peak.

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

	"github.com/ausocean/panostitch/stitch/scalespace"
)

const (
	orientationBins    = 36
	orientationPeakPct = 0.8
	orientationRadiusK = 1.5 // Gaussian weight sigma = orientationRadiusK * sigma; window radius is 3x that
)

// assignOrientation builds the weighted orientation histogram around a
// candidate and returns one angle (radians, [0, 2*pi)) per bin within
// 80% of the peak, each with a parabolic-interpolated centre.
func assignOrientation(o *scalespace.Octave, c candidate) []float64 {
	s := c.intScale
	if s < 0 || s >= len(o.Mag) || o.Mag[s] == nil {
		return nil
	}
	sigma := o.Sigma[s]
	radius := int(math.Round(orientationRadiusK * sigma * 3))
	if radius < 1 {
		radius = 1
	}
	cx, cy := int(math.Round(c.x)), int(math.Round(c.y))

	var hist [orientationBins]float64
	twoSigmaSq := 2 * (orientationRadiusK * sigma) * (orientationRadiusK * sigma)

	for dy := -radius; dy <= radius; dy++ {
		yy := cy + dy
		if yy < 0 || yy >= o.H {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			xx := cx + dx
			if xx < 0 || xx >= o.W {
				continue
			}
			mag := o.Mag[s].Get(yy, xx, 0)
			ang := o.Orient[s].Get(yy, xx, 0)
			weight := math.Exp(-float64(dx*dx+dy*dy) / twoSigmaSq)
			bin := int(ang / (2 * math.Pi) * orientationBins)
			if bin < 0 {
				bin = 0
			}
			if bin >= orientationBins {
				bin = orientationBins - 1
			}
			hist[bin] += mag * weight
		}
	}

	peak := 0.0
	for _, v := range hist {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return nil
	}

	var angles []float64
	for i, v := range hist {
		if v < orientationPeakPct*peak {
			continue
		}
		l := hist[(i-1+orientationBins)%orientationBins]
		r := hist[(i+1)%orientationBins]
		// Parabolic interpolation of the bin centre.
		denom := l - 2*v + r
		offset := 0.0
		if denom != 0 {
			offset = 0.5 * (l - r) / denom
		}
		angle := (float64(i) + offset) * (2 * math.Pi / orientationBins)
		for angle < 0 {
			angle += 2 * math.Pi
		}
		for angle >= 2*math.Pi {
			angle -= 2 * math.Pi
		}
		angles = append(angles, angle)
	}
	return angles
}
