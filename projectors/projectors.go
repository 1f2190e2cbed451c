// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package projectors implements a handful of off-the-shelf projections
// onto simple convex sets, in the style of gofem's concrete material
// models (msolid.HyperElast1, msolid.OnedLinElast) that sit alongside a
// generic interface (msolid.Model). None of this is part of the ALM/PM
// core: it exists so a caller can exercise alm.Driver and panoc.Solver
// without first writing a projector.
package projectors

import (
	"math"

	"github.com/cpmech/gosl/chk"
)

// Box projects onto the axis-aligned box [Lo[i], Hi[i]] componentwise.
type Box struct {
	Lo, Hi []float64
}

// NewBox validates Lo[i] <= Hi[i] for all i and returns a Box.
func NewBox(lo, hi []float64) *Box {
	if len(lo) != len(hi) {
		chk.Panic("projectors: Box Lo and Hi must have the same length; got %d and %d", len(lo), len(hi))
	}
	for i := range lo {
		if lo[i] > hi[i] {
			chk.Panic("projectors: Box Lo[%d]=%v must be <= Hi[%d]=%v", i, lo[i], i, hi[i])
		}
	}
	return &Box{Lo: lo, Hi: hi}
}

func (b *Box) Project(v []float64) {
	for i := range v {
		if v[i] < b.Lo[i] {
			v[i] = b.Lo[i]
		} else if v[i] > b.Hi[i] {
			v[i] = b.Hi[i]
		}
	}
}

// NonPositiveOrthant projects onto {v : v_i <= 0 for all i}, the standard
// choice of C for inequality constraints F1(u) <= 0.
type NonPositiveOrthant struct{}

func (NonPositiveOrthant) Project(v []float64) {
	for i := range v {
		if v[i] > 0 {
			v[i] = 0
		}
	}
}

// Zero projects onto {0}, the standard choice of C for equality
// constraints F1(u) == 0 handled through the ALM machinery.
type Zero struct{}

func (Zero) Project(v []float64) {
	for i := range v {
		v[i] = 0
	}
}

// Ball projects onto the closed Euclidean ball of the given radius
// centred at the origin — the typical choice for a compact multiplier
// set Y.
type Ball struct {
	Radius float64
}

// NewBall validates radius > 0 and returns a Ball.
func NewBall(radius float64) *Ball {
	if radius <= 0 {
		chk.Panic("projectors: Ball radius must be positive; got %v", radius)
	}
	return &Ball{Radius: radius}
}

func (b *Ball) Project(v []float64) {
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	if norm <= b.Radius*b.Radius {
		return
	}
	scale := b.Radius / math.Sqrt(norm)
	for i := range v {
		v[i] *= scale
	}
}
