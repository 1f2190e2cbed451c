// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sets defines the uniform projection contract the ALM/PM engine
// borrows U, C and Y through. Concrete projections (balls, boxes,
// half-spaces, orthants) are external collaborators — see the sibling
// projectors package for a handful of ready-made ones.
package sets

// Set is a closed set with a cheap Euclidean projection. Project must be
// idempotent and must not allocate: it mutates v in place so that v ∈ Set
// on return.
type Set interface {
	Project(v []float64)
}

type wholeSpace struct{}

func (wholeSpace) Project(v []float64) {}

// WholeSpace is U = R^n: the projection is the identity. Use it when the
// hard set constraint is vacuous.
var WholeSpace Set = wholeSpace{}
