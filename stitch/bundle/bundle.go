/*
DESCRIPTION
  bundle.go implements Levenberg-Marquardt joint refinement of all
  camera parameters against the inlier correspondences collected from
  pairwise transform estimation.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bundle jointly refines camera parameters (focal, principal
// point, rotation) by Levenberg-Marquardt minimization of reprojection
// error across all pairwise inlier correspondences.
package bundle

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/panostitch/stitch/camera"
)

// InitialLambda is the starting damping factor, per ba_common.hh's
// LM_lambda.
const InitialLambda = 0.05

// MaxIterations bounds the refinement loop, per ba_common.hh's
// LM_MAX_ITER.
const MaxIterations = 100

// maxStallIterations is the number of consecutive non-decreasing
// trial steps after which convergence is declared.
const maxStallIterations = 5

const jacobianStep = 1e-5

// Observation is one inlier correspondence between camera i's point
// p1 and camera j's point p2 (both in that camera's pixel coordinates,
// matching Camera.K's convention), contributing two residual terms.
type Observation struct {
	I, J   int
	P1, P2 [2]float64
}

// Result carries the refined cameras and the final RMS residual.
type Result struct {
	Cameras []camera.Camera
	RMS     float64
}

// Refine runs Levenberg-Marquardt bundle adjustment starting from
// init, against obs, using the package's default damping factor and
// iteration cap. See RefineWithConfig to override either.
func Refine(init []camera.Camera, obs []Observation) Result {
	return RefineWithConfig(init, obs, InitialLambda, MaxIterations)
}

// RefineWithConfig is Refine with the starting damping factor and
// iteration cap taken from the caller (stitch/config's LMLambda and
// LMMaxIter), falling back to the package defaults when zero. It never
// returns an error: per spec.md §4.5, the caller receives the last-best
// parameter vector, and a monotonically non-decreasing series is
// accepted as convergence.
func RefineWithConfig(init []camera.Camera, obs []Observation, lambda float64, maxIter int) Result {
	if lambda == 0 {
		lambda = InitialLambda
	}
	if maxIter == 0 {
		maxIter = MaxIterations
	}

	n := len(init)
	params := make([]float64, n*camera.NumParams)
	for i, c := range init {
		p := c.ToParams()
		copy(params[i*camera.NumParams:], p[:])
	}

	prevRMS := rms(calcError(params, n, obs))
	stalled := 0

	for iter := 0; iter < maxIter && stalled < maxStallIterations; iter++ {
		errVec := calcError(params, n, obs)
		j := calcJacobian(params, n, obs)

		delta, ok := solveStep(j, errVec, lambda)
		if !ok {
			stalled++
			continue
		}

		trial := make([]float64, len(params))
		for i := range params {
			trial[i] = params[i] - delta[i]
		}
		nowRMS := rms(calcError(trial, n, obs))

		if nowRMS < prevRMS {
			params = trial
			prevRMS = nowRMS
			stalled = 0
		} else {
			stalled++
		}
	}

	cams := make([]camera.Camera, n)
	for i := range cams {
		var p [camera.NumParams]float64
		copy(p[:], params[i*camera.NumParams:(i+1)*camera.NumParams])
		cams[i] = camera.FromParams(p)
	}
	return Result{Cameras: cams, RMS: prevRMS}
}

// calcError computes the stacked reprojection-error vector for the
// current parameter vector, mirroring bundle_adjuster.cc's calcError:
// H_{j->i} = K_i * R_i^T * R_j * K_j^-1, residual = p1 - H*p2.
func calcError(params []float64, n int, obs []Observation) []float64 {
	cams := make([]camera.Camera, n)
	for i := range cams {
		var p [camera.NumParams]float64
		copy(p[:], params[i*camera.NumParams:(i+1)*camera.NumParams])
		cams[i] = camera.FromParams(p)
	}

	errVec := make([]float64, 2*len(obs))
	for k, o := range obs {
		ci, cj := cams[o.I], cams[o.J]
		h := ci.K().Mul(ci.R.Transpose()).Mul(cj.R)
		cjKInv, ok := cj.K().Inverse()
		if !ok {
			errVec[2*k] = 0
			errVec[2*k+1] = 0
			continue
		}
		h = h.Mul(cjKInv)
		x, y := h.Apply2D(o.P2[0], o.P2[1])
		errVec[2*k] = o.P1[0] - x
		errVec[2*k+1] = o.P1[1] - y
	}
	return errVec
}

// calcJacobian computes the Jacobian of calcError with respect to
// params via central finite differences, per bundle_adjuster.cc's
// calcJacobian.
func calcJacobian(params []float64, n int, obs []Observation) *mat.Dense {
	rows := 2 * len(obs)
	cols := len(params)
	j := mat.NewDense(rows, cols, nil)

	work := append([]float64(nil), params...)
	for p := 0; p < cols; p++ {
		orig := work[p]

		work[p] = orig + jacobianStep
		ePlus := calcError(work, n, obs)

		work[p] = orig - jacobianStep
		eMinus := calcError(work, n, obs)

		work[p] = orig

		for r := 0; r < rows; r++ {
			j.Set(r, p, (ePlus[r]-eMinus[r])/(2*jacobianStep))
		}
	}
	return j
}

// solveStep solves the damped normal equations (JtJ + lambda*I) delta
// = Jt*err with gonum's Dense.Solve. Because err is observed minus
// predicted, the caller subtracts delta from the parameters.
func solveStep(j *mat.Dense, errVec []float64, lambda float64) ([]float64, bool) {
	_, cols := j.Dims()
	jt := j.T()

	var jtj mat.Dense
	jtj.Mul(jt, j)
	for i := 0; i < cols; i++ {
		jtj.Set(i, i, jtj.At(i, i)+lambda)
	}

	errMat := mat.NewDense(len(errVec), 1, errVec)
	var b mat.Dense
	b.Mul(jt, errMat)

	// Dense.Solve factorizes this square system directly; there is no
	// SVD pseudo-inverse fallback. If gonum reports the system as
	// singular or ill-conditioned, no step is taken.
	var delta mat.Dense
	if err := delta.Solve(&jtj, &b); err != nil {
		return nil, false
	}

	out := make([]float64, cols)
	for i := 0; i < cols; i++ {
		out[i] = delta.At(i, 0)
	}
	return out, true
}

func rms(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(v)))
}
