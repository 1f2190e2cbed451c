// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package panoc

import "gonum.org/v1/gonum/floats"

// LBFGSMemory holds a fixed-size circular buffer of curvature pairs
// (s_k, y_k) and applies the two-loop recursion to turn a fixed-point
// residual into a quasi-Newton direction. Allocated once; Push and Apply
// never grow it.
type LBFGSMemory struct {
	n, cap  int
	s, y    [][]float64
	rho     []float64
	alpha   []float64 // scratch for the two-loop recursion
	head    int        // index where the next pair is written
	count   int        // number of valid pairs, 0 <= count <= cap
	minCurv float64    // curvature-pair acceptance threshold
}

// NewLBFGSMemory allocates memory for vectors of length n and up to cap
// curvature pairs.
func NewLBFGSMemory(n, cap int) *LBFGSMemory {
	m := &LBFGSMemory{
		n:       n,
		cap:     cap,
		s:       make([][]float64, cap),
		y:       make([][]float64, cap),
		rho:     make([]float64, cap),
		alpha:   make([]float64, cap),
		minCurv: 1e-12,
	}
	for i := 0; i < cap; i++ {
		m.s[i] = make([]float64, n)
		m.y[i] = make([]float64, n)
	}
	return m
}

// Reset discards all stored curvature pairs without freeing memory.
func (m *LBFGSMemory) Reset() {
	m.head = 0
	m.count = 0
}

// Len returns the number of curvature pairs currently stored.
func (m *LBFGSMemory) Len() int { return m.count }

// Cap returns the configured maximum number of curvature pairs.
func (m *LBFGSMemory) Cap() int { return m.cap }

// Push records a new curvature pair (s, y). Pairs failing the curvature
// condition s.y > minCurv are rejected (common L-BFGS safeguard against
// non-convex regions producing an indefinite Hessian approximation).
func (m *LBFGSMemory) Push(s, y []float64) {
	sy := floats.Dot(s, y)
	if sy <= m.minCurv {
		return
	}
	copy(m.s[m.head], s)
	copy(m.y[m.head], y)
	m.rho[m.head] = 1.0 / sy
	m.head = (m.head + 1) % m.cap
	if m.count < m.cap {
		m.count++
	}
}

// index maps a logical "j pairs back from the most recent" offset to a
// physical slot, j in [0, count).
func (m *LBFGSMemory) index(j int) int {
	return ((m.head-1-j)%m.cap + m.cap) % m.cap
}

// Apply overwrites q with H_k * q using the two-loop recursion, where
// H_k is the L-BFGS inverse-Hessian approximation built from the stored
// curvature pairs. With no pairs stored, Apply is the identity (plain
// forward-backward direction).
func (m *LBFGSMemory) Apply(q []float64) {
	if m.count == 0 {
		return
	}
	for j := 0; j < m.count; j++ {
		k := m.index(j)
		m.alpha[k] = m.rho[k] * floats.Dot(m.s[k], q)
		floats.AddScaled(q, -m.alpha[k], m.y[k])
	}

	// initial Hessian scaling: gamma = (s_last . y_last) / (y_last . y_last)
	last := m.index(0)
	yy := floats.Dot(m.y[last], m.y[last])
	gamma := 1.0
	if yy > 0 {
		gamma = 1.0 / (m.rho[last] * yy)
	}
	floats.Scale(gamma, q)

	for j := m.count - 1; j >= 0; j-- {
		k := m.index(j)
		beta := m.rho[k] * floats.Dot(m.y[k], q)
		floats.AddScaled(q, m.alpha[k]-beta, m.s[k])
	}
}
