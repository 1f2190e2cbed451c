// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lipschitz

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

// mockF returns (3*u0, 2*u1, 4.5), matching spec.md scenario S3/S4.
func mockF(u, r []float64) error {
	r[0] = 3 * u[0]
	r[1] = 2 * u[1]
	r[2] = 4.5
	return nil
}

func TestEstimatorDefaultPerturbation(t *testing.T) {
	chk.PrintTitle("EstimatorDefaultPerturbation. S3: default eps=delta=1e-6")
	e := NewDefault(3, 3)
	u := []float64{1, 2, 3}
	L, err := e.Estimate(u, mockF)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	chk.Scalar(t, "L", 1e-8, L, 1.3363062094165823)
}

func TestEstimatorCustomPerturbation(t *testing.T) {
	chk.PrintTitle("EstimatorCustomPerturbation. S4: eps=delta=1e-4")
	e := New(3, 3, 1e-4, 1e-4)
	u := []float64{1, 2, 3}
	L, err := e.Estimate(u, mockF)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	chk.Scalar(t, "L", 1e-10, L, 1.336306209562331)
}

func TestEstimatorMisconfigPanics(t *testing.T) {
	chk.PrintTitle("EstimatorMisconfigPanics. S5: eps=0 rejected")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic for eps=0")
		}
	}()
	New(3, 3, 0, DefaultDelta)
}

func TestEstimatorMisconfigPanicsDelta(t *testing.T) {
	chk.PrintTitle("EstimatorMisconfigPanicsDelta. S5: delta=0 rejected")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic for delta=0")
		}
	}()
	New(3, 3, DefaultEps, 0)
}

// linearF(u) = A*u with A = 5*I is used for the Lipschitz-sanity law L4:
// since every direction is an eigenvector with the same eigenvalue, the
// estimator recovers ‖A‖₂ = 5 to within O(eps+delta) regardless of which
// direction h happens to probe.
func linearF(u, r []float64) error {
	for i := range u {
		r[i] = 5 * u[i]
	}
	return nil
}

func TestEstimatorLinearSanity(t *testing.T) {
	chk.PrintTitle("EstimatorLinearSanity. L4: linear F recovers ||A||_2")
	e := NewDefault(2, 2)
	u := []float64{2, -1}
	L, err := e.Estimate(u, linearF)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	chk.Scalar(t, "L", 1e-9, L, 5.0)
}

func TestEstimatorRetainsFu(t *testing.T) {
	chk.PrintTitle("EstimatorRetainsFu. Fu exposes F(u) before perturbation")
	e := NewDefault(3, 3)
	u := []float64{1, 2, 3}
	_, err := e.Estimate(u, mockF)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	chk.Scalar(t, "Fu[0]", 1e-15, e.Fu[0], 3)
	chk.Scalar(t, "Fu[1]", 1e-15, e.Fu[1], 4)
	chk.Scalar(t, "Fu[2]", 1e-15, e.Fu[2], 4.5)
}

func TestEstimatorPerturbsUInPlace(t *testing.T) {
	chk.PrintTitle("EstimatorPerturbsUInPlace. u becomes u+h on return")
	e := NewDefault(3, 3)
	u := []float64{1, 2, 3}
	_, err := e.Estimate(u, mockF)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	chk.Scalar(t, "u[0]", 1e-12, u[0], 1+1e-6)
	chk.Scalar(t, "u[1]", 1e-12, u[1], 2+2e-6)
	chk.Scalar(t, "u[2]", 1e-12, u[2], 3+3e-6)
}

// scalarMockF0 isolates mockF's first component (3*u0) as a scalar-valued
// VectorFunc, the way CheckAgainstCentralDiff requires.
func scalarMockF0(u, r []float64) error {
	r[0] = 3 * u[0]
	return nil
}

// TestCheckAgainstCentralDiffMatchesAnalytic covers the msolid.Driver
// CheckD-style cross-check: the central difference along e_0 of 3*u0
// recovers the known analytic derivative 3, and u is left unmodified.
func TestCheckAgainstCentralDiffMatchesAnalytic(t *testing.T) {
	chk.PrintTitle("CheckAgainstCentralDiffMatchesAnalytic")
	u := []float64{1, 2, 3}
	deriv, err := CheckAgainstCentralDiff(u, 0, scalarMockF0, 1e-3)
	if err != nil {
		t.Fatalf("CheckAgainstCentralDiff failed: %v", err)
	}
	chk.Scalar(t, "deriv", 1e-8, deriv, 3.0)
	chk.Scalar(t, "u[0] unmodified", 1e-15, u[0], 1.0)
}
