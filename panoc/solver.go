// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package panoc

import (
	"math"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/cpmech/almpanoc/oracle"
	"github.com/cpmech/almpanoc/sets"
)

// Solver drives Cache.UTrial/Dir/... through forward-backward steps with
// an L-BFGS-accelerated direction and an Armijo-type backtracking line
// search, in the spirit of gosl's num.NlSolver Newton loop: assemble a
// direction, line-search along it, check convergence, repeat.
type Solver struct {
	Cache *Cache

	MaxIterations           int     // inner iteration cap
	MaxLineSearchIterations int     // backtracking cap per inner iteration
	Beta                    float64 // backtracking shrink factor, in (0,1)
	Sigma                   float64 // Armijo sufficient-decrease coefficient, in (0,1)

	Verbose bool
}

// NewSolver returns a Solver with gosl-style defaults: 20 backtracking
// steps, shrink factor 1/2, sufficient-decrease coefficient 1e-4 (the
// same order of magnitude num.NlSolver and opt.ConjGrad's line searches
// use).
func NewSolver(cache *Cache, maxIterations int) *Solver {
	if maxIterations < 1 {
		chk.Panic("panoc: maxIterations must be >= 1; got %d", maxIterations)
	}
	return &Solver{
		Cache:                   cache,
		MaxIterations:           maxIterations,
		MaxLineSearchIterations: 20,
		Beta:                    0.5,
		Sigma:                   1e-4,
	}
}

// Reset clears the inner solver's L-BFGS/line-search state but preserves
// EpsilonInner, per spec.md §4.2.
func (s *Solver) Reset() { s.Cache.Reset() }

// Solve refines u in place until ‖FPR(u)‖ <= Cache.EpsilonInner or
// MaxIterations is reached. ψ and ∇ψ are evaluated through cost/grad with
// ξ captured by reference; U bounds every trial point. Solve never
// allocates.
func (s *Solver) Solve(u, xi []float64, cost oracle.CostFunc, grad oracle.GradFunc, U sets.Set) (Status, error) {
	start := time.Now()
	c := s.Cache
	if len(u) != c.N {
		chk.Panic("panoc: len(u)=%d does not match configured n=%d", len(u), c.N)
	}
	if c.Gamma <= 0 {
		chk.Panic("panoc: Gamma must be > 0; got %v", c.Gamma)
	}

	psi, err := cost(u, xi)
	if err != nil {
		return Status{}, oracle.Wrap(oracle.ErrCostGradientEval, err)
	}
	if err = grad(u, xi, c.Grad); err != nil {
		return Status{}, oracle.Wrap(oracle.ErrCostGradientEval, err)
	}

	if s.Verbose {
		io.Pf("%6s%23s%23s\n", "it", "fprNorm", "psi")
	}

	it := 0
	for ; it < s.MaxIterations; it++ {

		// forward-backward step: ubar = proj_U(u - gamma*grad), FPR = (u-ubar)/gamma
		for i := 0; i < c.N; i++ {
			c.UBar[i] = u[i] - c.Gamma*c.Grad[i]
		}
		U.Project(c.UBar)
		fprNormSq := 0.0
		for i := 0; i < c.N; i++ {
			c.FPR[i] = (u[i] - c.UBar[i]) / c.Gamma
			fprNormSq += c.FPR[i] * c.FPR[i]
		}
		fprNorm := math.Sqrt(fprNormSq)

		if s.Verbose {
			io.Pf("%6d%23.15e%23.15e\n", it, fprNorm, psi)
		}

		if fprNorm <= c.EpsilonInner {
			return Status{Converged: true, Iterations: it, Elapsed: time.Since(start), FPRNorm: fprNorm, Cost: psi}, nil
		}

		// quasi-Newton direction from the negative FPR
		for i := 0; i < c.N; i++ {
			c.Dir[i] = -c.FPR[i]
		}
		c.LBFGS.Apply(c.Dir)

		// backtracking line search for a sufficient decrease in psi
		tau := 1.0
		var psiTrial float64
		accepted := false
		for ls := 0; ls < s.MaxLineSearchIterations; ls++ {
			for i := 0; i < c.N; i++ {
				c.UTrial[i] = u[i] + tau*c.Dir[i]
			}
			U.Project(c.UTrial)
			psiTrial, err = cost(c.UTrial, xi)
			if err != nil {
				return Status{}, oracle.Wrap(oracle.ErrCostGradientEval, err)
			}
			if psiTrial <= psi-s.Sigma*tau*fprNormSq {
				accepted = true
				break
			}
			tau *= s.Beta
		}
		if !accepted {
			// safeguard: the plain forward-backward step is always a
			// valid fallback when the quasi-Newton direction fails to
			// produce sufficient decrease.
			copy(c.UTrial, c.UBar)
			psiTrial, err = cost(c.UTrial, xi)
			if err != nil {
				return Status{}, oracle.Wrap(oracle.ErrCostGradientEval, err)
			}
		}

		if err = grad(c.UTrial, xi, c.GradTrial); err != nil {
			return Status{}, oracle.Wrap(oracle.ErrCostGradientEval, err)
		}

		// curvature pair for the next L-BFGS application
		for i := 0; i < c.N; i++ {
			c.SBuf[i] = c.UTrial[i] - u[i]
			c.YBuf[i] = c.GradTrial[i] - c.Grad[i]
		}
		c.LBFGS.Push(c.SBuf, c.YBuf)

		copy(u, c.UTrial)
		copy(c.Grad, c.GradTrial)
		psi = psiTrial
	}

	fprNorm := math.Sqrt(lastFPRNormSq(c))
	return Status{Converged: false, Iterations: it, Elapsed: time.Since(start), FPRNorm: fprNorm, Cost: psi}, nil
}

func lastFPRNormSq(c *Cache) float64 {
	sum := 0.0
	for i := 0; i < c.N; i++ {
		sum += c.FPR[i] * c.FPR[i]
	}
	return sum
}
