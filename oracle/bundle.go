// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oracle defines the caller-supplied callables an ALM/PM solve is
// built on: the parametric composite cost and gradient, and the two
// constraint maps F1 (ALM-relaxed) and F2 (penalty-relaxed).
package oracle

import "github.com/cpmech/gosl/chk"

// CostFunc evaluates the parametric composite ψ(u; ξ). The caller's
// closure already encodes f, the augmented-Lagrangian term and the
// quadratic penalty term; the engine never reconstructs ψ itself.
type CostFunc func(u, xi []float64) (float64, error)

// GradFunc evaluates ∇ψ(u; ξ) into g. g has length len(u) and must not be
// reallocated by the callee.
type GradFunc func(u, xi, g []float64) error

// VectorFunc evaluates a constraint map (F1 or F2) at u into r. r has the
// map's codomain dimension and must not be reallocated by the callee.
type VectorFunc func(u, r []float64) error

// Bundle is the immutable-for-a-solve collection of oracle callables plus
// the dimensions they operate on.
type Bundle struct {
	N, N1, N2 int // decision, ALM-constraint, PM-constraint dimensions

	Cost CostFunc // required
	Grad GradFunc // required

	F1 VectorFunc // required iff N1 > 0; nil iff N1 == 0
	F2 VectorFunc // required iff N2 > 0; nil iff N2 == 0
}

// Validate panics (InvalidConfig, fatal at construction) if the bundle's
// dimensions and presence of callables are inconsistent.
func (b *Bundle) Validate() {
	if b.N < 1 {
		chk.Panic("oracle: n must be >= 1; got %d", b.N)
	}
	if b.N1 < 0 || b.N2 < 0 {
		chk.Panic("oracle: n1 and n2 must be >= 0; got n1=%d n2=%d", b.N1, b.N2)
	}
	if b.Cost == nil {
		chk.Panic("oracle: Cost callable is required")
	}
	if b.Grad == nil {
		chk.Panic("oracle: Grad callable is required")
	}
	if b.N1 > 0 && b.F1 == nil {
		chk.Panic("oracle: F1 callable is required when n1=%d > 0", b.N1)
	}
	if b.N1 == 0 && b.F1 != nil {
		chk.Panic("oracle: F1 callable must be nil when n1==0")
	}
	if b.N2 > 0 && b.F2 == nil {
		chk.Panic("oracle: F2 callable is required when n2=%d > 0", b.N2)
	}
	if b.N2 == 0 && b.F2 != nil {
		chk.Panic("oracle: F2 callable must be nil when n2==0")
	}
}

// XiLen returns the length ξ must have when passed to Cost/Grad: 1+N1 when
// either constraint family is active, zero when neither is (the composite
// reduces to the bare cost f, per spec step 4.4.1 #2).
func (b *Bundle) XiLen() int {
	if b.N1 == 0 && b.N2 == 0 {
		return 0
	}
	return 1 + b.N1
}
