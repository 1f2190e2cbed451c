// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package panoc implements the inner proximal-gradient (PANOC-class)
// solver contract: given a smooth composite ψ, its gradient, and a
// simple set U, refine a point until the fixed-point residual of the
// forward-backward map falls below a caller-set AKKT tolerance.
package panoc

import (
	"time"

	"github.com/cpmech/gosl/la"
)

// Cache holds the inner solver's persistent, reusable state: the current
// AKKT tolerance, the L-BFGS memory, and scratch buffers sized once at
// construction. alm.Cache holds it through a pointer (allocated once in
// alm.NewCache); it is a separate allocation, not a by-value field.
type Cache struct {
	N int // decision dimension

	EpsilonInner float64 // AKKT tolerance; set directly by the outer driver before Solve

	LBFGS *LBFGSMemory

	// scratch, all length N, allocated once
	Grad      la.Vector
	UBar      la.Vector // proj_U(u - gamma*grad)
	FPR       la.Vector // (u - UBar) / gamma
	Dir       la.Vector
	UTrial    la.Vector
	GradTrial la.Vector
	SBuf      la.Vector // curvature pair s = uTrial - u, scratch before LBFGS.Push
	YBuf      la.Vector // curvature pair y = gradTrial - grad, scratch before LBFGS.Push

	Gamma float64 // forward-backward step size; 1.0 from NewCache, otherwise set by the caller
}

// NewCache allocates a Cache for a problem of dimension n with an L-BFGS
// memory of the given depth, and an initial AKKT tolerance.
func NewCache(n, lbfgsMemory int, epsilonInitial float64) *Cache {
	return &Cache{
		N:            n,
		EpsilonInner: epsilonInitial,
		LBFGS:        NewLBFGSMemory(n, lbfgsMemory),
		Grad:         la.NewVector(n),
		UBar:         la.NewVector(n),
		FPR:          la.NewVector(n),
		Dir:          la.NewVector(n),
		UTrial:       la.NewVector(n),
		GradTrial:    la.NewVector(n),
		SBuf:         la.NewVector(n),
		YBuf:         la.NewVector(n),
		Gamma:        1.0,
	}
}

// Reset clears the L-BFGS/line-search state but preserves EpsilonInner,
// matching spec.md §4.2's reset contract.
func (c *Cache) Reset() {
	c.LBFGS.Reset()
}

// Status reports the outcome of one inner Solve call.
type Status struct {
	Converged  bool
	Iterations int
	Elapsed    time.Duration
	FPRNorm    float64
	Cost       float64
}
