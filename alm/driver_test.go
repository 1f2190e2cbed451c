// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package alm

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/almpanoc/oracle"
	"github.com/cpmech/almpanoc/projectors"
	"github.com/cpmech/almpanoc/sets"
)

// zeroCost/zeroGrad give psi=0, grad=0 everywhere: the inner solve
// converges immediately with u unmoved, so tests that only exercise the
// outer multiplier/penalty bookkeeping don't also have to reason about
// where the inner solve lands.
func zeroCost(u, xi []float64) (float64, error) { return 0, nil }

func zeroGrad(u, xi, g []float64) error {
	for i := range g {
		g[i] = 0
	}
	return nil
}

// prescribedF1 returns a VectorFunc that ignores u and replays vals in
// order, one value per call, so an outer-loop test can dictate the exact
// constraint-value sequence seen by the multiplier update.
func prescribedF1(vals []float64) oracle.VectorFunc {
	call := 0
	return func(u, r []float64) error {
		r[0] = vals[call]
		call++
		return nil
	}
}

func quadraticBundle(n int) *oracle.Bundle {
	return &oracle.Bundle{
		N: n,
		Cost: func(u, xi []float64) (float64, error) {
			sum := 0.0
			for _, x := range u {
				sum += x * x
			}
			return 0.5 * sum, nil
		},
		Grad: func(u, xi, g []float64) error {
			copy(g, u)
			return nil
		},
	}
}

func TestDriverWithInitialPenaltySetsC(t *testing.T) {
	chk.PrintTitle("DriverWithInitialPenaltySetsC")
	stubF1 := prescribedF1([]float64{0, 0, 0})
	bundle := &oracle.Bundle{N: 10, N1: 5, Cost: zeroCost, Grad: zeroGrad, F1: stubF1}
	d := NewDriver(bundle, sets.WholeSpace, projectors.NonPositiveOrthant{}, sets.WholeSpace)
	d.WithInitialPenalty(7.0)
	chk.Scalar(t, "c", 1e-10, d.Cache.C(), 7.0)
}

func TestDriverWithInitialLagrangeMultipliersSetsY(t *testing.T) {
	chk.PrintTitle("DriverWithInitialLagrangeMultipliersSetsY")
	stubF1 := prescribedF1([]float64{0, 0, 0})
	bundle := &oracle.Bundle{N: 10, N1: 5, Cost: zeroCost, Grad: zeroGrad, F1: stubF1}
	d := NewDriver(bundle, sets.WholeSpace, projectors.NonPositiveOrthant{}, sets.WholeSpace)
	d.WithInitialLagrangeMultipliers([]float64{2, 3, 4, 5, 6})
	y := d.Cache.Y()
	want := []float64{2, 3, 4, 5, 6}
	for i, w := range want {
		chk.Scalar(t, "y", 1e-10, y[i], w)
	}
}

// TestDriverPenaltyStallsOnFirstStep covers scenario S6: the very first
// outer step always holds the penalty parameter constant, regardless of
// how much the multiplier moves.
func TestDriverPenaltyStallsOnFirstStep(t *testing.T) {
	chk.PrintTitle("DriverPenaltyStallsOnFirstStep")
	bundle := &oracle.Bundle{N: 1, N1: 1, Cost: zeroCost, Grad: zeroGrad, F1: prescribedF1([]float64{5})}
	d := NewDriver(bundle, sets.WholeSpace, projectors.NonPositiveOrthant{}, sets.WholeSpace)

	u := []float64{0}
	if _, err := d.Step(u); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	chk.Scalar(t, "c after first step", 1e-10, d.Cache.C(), 1.0)
}

// TestDriverPenaltyEscalatesAcrossStalledSteps covers scenario S7: two
// successive non-stalled steps each multiply the penalty by rho, so
// after the first (mandatory-hold) step plus two escalating steps, c has
// been scaled by rho^2 from its initial value. The F1 sequence below was
// chosen by hand so that every step after the first is a genuine
// (non-stalled) multiplier move; see DESIGN.md for the worked arithmetic.
func TestDriverPenaltyEscalatesAcrossStalledSteps(t *testing.T) {
	chk.PrintTitle("DriverPenaltyEscalatesAcrossStalledSteps")
	bundle := &oracle.Bundle{N: 1, N1: 1, Cost: zeroCost, Grad: zeroGrad, F1: prescribedF1([]float64{5, -1, -1})}
	d := NewDriver(bundle, sets.WholeSpace, projectors.NonPositiveOrthant{}, sets.WholeSpace)

	u := []float64{0}
	for i := 0; i < 3; i++ {
		if _, err := d.Step(u); err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
	}
	rho := d.Config.PenaltyUpdateFactor
	chk.Scalar(t, "c after three steps", 1e-9, d.Cache.C(), rho*rho)
}

// TestDriverMultiplierIdempotentWhenAlreadyFeasible covers law L2: if
// F1(u) is already in C and y starts at 0, the multiplier update leaves
// y at 0.
func TestDriverMultiplierIdempotentWhenAlreadyFeasible(t *testing.T) {
	chk.PrintTitle("DriverMultiplierIdempotentWhenAlreadyFeasible")
	bundle := &oracle.Bundle{N: 1, N1: 1, Cost: zeroCost, Grad: zeroGrad, F1: prescribedF1([]float64{-3})}
	d := NewDriver(bundle, sets.WholeSpace, projectors.NonPositiveOrthant{}, sets.WholeSpace)

	u := []float64{0}
	if _, err := d.Step(u); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	chk.Scalar(t, "y[0]", 1e-10, d.Cache.Y()[0], 0)
}

// TestDriverNoOpALMReducesToOneInnerSolve covers law L1: with n1=n2=0 the
// composite reduces to the bare cost, and a single Step both converges
// and reports zero infeasibility.
func TestDriverNoOpALMReducesToOneInnerSolve(t *testing.T) {
	chk.PrintTitle("DriverNoOpALMReducesToOneInnerSolve")
	bundle := quadraticBundle(2)
	d := NewDriver(bundle, sets.WholeSpace, nil, nil)

	u := []float64{1, -2}
	result, err := d.Step(u)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if result != Stop || d.State != CONVERGED {
		t.Fatalf("expected immediate convergence, got result=%v state=%v", result, d.State)
	}
	chk.Scalar(t, "deltaYNorm", 1e-15, d.Cache.DeltaYNorm, 0)
	chk.Scalar(t, "f2Norm", 1e-15, d.Cache.F2Norm, 0)
	chk.Scalar(t, "u[0]", 1e-6, u[0], 0)
	chk.Scalar(t, "u[1]", 1e-6, u[1], 0)
}

// TestProjectionIsIdempotent covers law L3: projecting an already-out-of-
// set point twice is the same as projecting it once.
func TestProjectionIsIdempotent(t *testing.T) {
	chk.PrintTitle("ProjectionIsIdempotent")
	ball := projectors.NewBall(2.0)
	once := []float64{3, 4} // norm 5, outside the radius-2 ball
	ball.Project(once)

	twice := []float64{3, 4}
	ball.Project(twice)
	ball.Project(twice)

	chk.Scalar(t, "x[0]", 1e-15, once[0], twice[0])
	chk.Scalar(t, "x[1]", 1e-15, once[1], twice[1])
}
