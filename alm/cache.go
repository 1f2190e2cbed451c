// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alm implements the Augmented Lagrangian / Penalty Method outer
// loop: the reusable cache (spec.md §3) and the driver that orchestrates
// the schedule of penalty parameter, inner tolerance, multiplier vector
// and infeasibility measurements (spec.md §4.4).
package alm

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"

	"github.com/cpmech/almpanoc/lipschitz"
	"github.com/cpmech/almpanoc/panoc"
)

// Cache holds the ALM/PM outer state: the packed [c, y] vector, the
// multiplier-update scratch, the constraint-value buffers, the
// infeasibility history and the embedded inner-solver cache. Buffer
// lengths match the problem's dimensions and are never reallocated
// during a solve.
type Cache struct {
	N1, N2 int

	// Xi = [c, y_1, ..., y_n1], length 1+N1 when N1>0 or N2>0, else
	// length 0 (spec.md §4.4.1 step 2: the composite reduces to the bare
	// cost when neither constraint family is active).
	Xi la.Vector

	YPlus   la.Vector // length N1: proposed next multiplier
	WAlmAux la.Vector // length N1: F1(u)
	WPm     la.Vector // length N2: F2(u), present iff N2>0

	DeltaYNorm, DeltaYNormPlus float64 // ALM infeasibility, previous and current
	F2Norm, F2NormPlus         float64 // PM infeasibility, previous and current

	Iteration int

	Inner *panoc.Cache

	// GradLipschitz estimates a local Lipschitz constant of grad-psi so
	// the driver can size the inner solver's forward-backward step
	// (spec.md §4.1); domain and range are both the decision dimension N.
	GradLipschitz *lipschitz.Estimator

	uProbe la.Vector // scratch for the Lipschitz-estimator probe of grad-psi, length N
}

// NewCache allocates a Cache for a problem of decision dimension n, ALM
// dimension n1 and PM dimension n2, with an inner L-BFGS memory of depth
// lbfgsMemory and an initial inner AKKT tolerance.
func NewCache(n, n1, n2, lbfgsMemory int, epsilonInnerInitial float64) *Cache {
	if n < 1 {
		chk.Panic("alm: n must be >= 1; got %d", n)
	}
	if n1 < 0 || n2 < 0 {
		chk.Panic("alm: n1 and n2 must be >= 0; got n1=%d n2=%d", n1, n2)
	}
	c := &Cache{
		N1:            n1,
		N2:            n2,
		YPlus:         la.NewVector(n1),
		WAlmAux:       la.NewVector(n1),
		Inner:         panoc.NewCache(n, lbfgsMemory, epsilonInnerInitial),
		GradLipschitz: lipschitz.NewDefault(n, n),
		uProbe:        la.NewVector(n),
	}
	if n1 > 0 || n2 > 0 {
		c.Xi = la.NewVector(1 + n1)
	}
	if n2 > 0 {
		c.WPm = la.NewVector(n2)
	}
	return c
}

// LBFGSMemoryDepth returns the configured L-BFGS memory depth of the
// embedded inner cache.
func (c *Cache) LBFGSMemoryDepth() int {
	return c.Inner.LBFGS.Cap()
}

// C returns the current penalty parameter, or 0 if neither constraint
// family is active (Xi is empty).
func (c *Cache) C() float64 {
	if len(c.Xi) == 0 {
		return 0
	}
	return c.Xi[0]
}

// SetC sets the penalty parameter. c must be > 0 whenever Xi is present
// (invariant 1, spec.md §3).
func (c *Cache) SetC(value float64) {
	if len(c.Xi) == 0 {
		return
	}
	if value <= 0 {
		chk.Panic("alm: penalty parameter must be > 0; got %v", value)
	}
	c.Xi[0] = value
}

// Y returns the multiplier slice y = Xi[1:], or nil if N1==0.
func (c *Cache) Y() la.Vector {
	if c.N1 == 0 || len(c.Xi) == 0 {
		return nil
	}
	return c.Xi[1:]
}

// Reset clears the embedded inner-solver scratch state, preserving
// EpsilonInner (spec.md §4.4.1 step 8).
func (c *Cache) Reset() {
	c.Inner.Reset()
}
