// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lipschitz estimates a local Lipschitz constant of a
// vector-valued function via a single adaptively-sized directional
// probe. It is used to size the inner solver's initial step, the same
// role gosl's num.NlSolver uses a numerical Jacobian for, only cheaper:
// one probe instead of a full Jacobian assembly.
package lipschitz

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"

	"github.com/cpmech/almpanoc/oracle"
)

// DefaultEps and DefaultDelta are the componentwise perturbation
// constants from spec.md §4.1: h_i = max(Eps*u_i, Delta).
const (
	DefaultEps   = 1e-6
	DefaultDelta = 1e-6
)

// Estimator probes a point u and a function F: R^n -> R^m once to produce
// L ≈ ‖F(u+h) - F(u)‖ / ‖h‖. All buffers are allocated once at
// construction; Estimate never allocates.
type Estimator struct {
	Eps, Delta float64 // perturbation constants, both > 0

	n, m int

	// Fu holds F(u), the function value at the (pre-perturbation) point;
	// exposed so a caller can reuse it without a second evaluation.
	Fu la.Vector

	h   la.Vector // perturbation vector, length n
	fuh la.Vector // F(u+h), length m
	diff la.Vector // F(u+h) - F(u), length m
}

// New returns an Estimator for a domain of dimension n and a codomain of
// dimension m. eps and delta must both be strictly positive; violation is
// fatal misconfiguration (InvalidConfig).
func New(n, m int, eps, delta float64) *Estimator {
	if eps <= 0 {
		chk.Panic("lipschitz: eps must be > 0; got %v", eps)
	}
	if delta <= 0 {
		chk.Panic("lipschitz: delta must be > 0; got %v", delta)
	}
	if n < 1 {
		chk.Panic("lipschitz: n must be >= 1; got %d", n)
	}
	if m < 1 {
		chk.Panic("lipschitz: m must be >= 1; got %d", m)
	}
	return &Estimator{
		Eps:   eps,
		Delta: delta,
		n:     n,
		m:     m,
		Fu:    la.NewVector(m),
		h:     la.NewVector(n),
		fuh:   la.NewVector(m),
		diff:  la.NewVector(m),
	}
}

// NewDefault returns an Estimator with the default perturbation constants
// (1e-6, 1e-6) from spec.md §4.1.
func NewDefault(n, m int) *Estimator {
	return New(n, m, DefaultEps, DefaultDelta)
}

// Estimate evaluates F at u and at u+h and returns L = ‖F(u+h)-F(u)‖ /
// ‖h‖. u is perturbed in place (u becomes u+h on return); the caller is
// responsible for restoring the original point if it is needed
// afterwards. e.Fu retains F evaluated at the original, unperturbed u.
func (e *Estimator) Estimate(u []float64, F oracle.VectorFunc) (L float64, err error) {
	if len(u) != e.n {
		chk.Panic("lipschitz: len(u)=%d does not match configured n=%d", len(u), e.n)
	}

	if err = F(u, e.Fu); err != nil {
		return 0, oracle.Wrap(oracle.ErrConstraint, err)
	}

	for i := 0; i < e.n; i++ {
		e.h[i] = math.Max(e.Eps*u[i], e.Delta)
		u[i] += e.h[i]
	}

	if err = F(u, e.fuh); err != nil {
		return 0, oracle.Wrap(oracle.ErrConstraint, err)
	}

	for i := 0; i < e.m; i++ {
		e.diff[i] = e.fuh[i] - e.Fu[i]
	}

	normH := la.VecDot(e.h, e.h)
	normDiff := la.VecDot(e.diff, e.diff)
	normH = math.Sqrt(normH)
	normDiff = math.Sqrt(normDiff)

	L = normDiff / normH
	if math.IsNaN(L) || math.IsInf(L, 0) {
		return L, chk.Err("lipschitz: estimate is non-finite (normDiff=%v, normH=%v)", normDiff, normH)
	}
	return L, nil
}
