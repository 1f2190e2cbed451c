// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lipschitz

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/num"

	"github.com/cpmech/almpanoc/oracle"
)

// CheckAgainstCentralDiff cross-checks an Estimate against a central
// difference directional derivative along e_k, the way msolid.Driver's
// CheckD verifies a consistent tangent matrix against num.DerivCen5
// before trusting it. F must be scalar-valued (m==1); u is left
// unmodified.
func CheckAgainstCentralDiff(u []float64, k int, F oracle.VectorFunc, h float64) (deriv float64, err error) {
	buf := make([]float64, 1)
	uk0 := u[k]
	deriv = num.DerivCen5(uk0, h, func(x float64) float64 {
		u[k] = x
		ferr := F(u, buf)
		if ferr != nil {
			err = oracle.Wrap(oracle.ErrConstraint, ferr)
		}
		return buf[0]
	})
	u[k] = uk0
	if err != nil {
		return 0, err
	}
	if math.IsNaN(deriv) || math.IsInf(deriv, 0) {
		return deriv, chk.Err("lipschitz: central-difference derivative is non-finite")
	}
	return deriv, nil
}
