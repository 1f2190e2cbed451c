// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oracle

import "github.com/cpmech/gosl/chk"

// ErrKind classifies an oracle failure. The taxonomy is intentionally
// flat: a caller's closure failed in a way the engine cannot recover
// from, and the only useful distinction is which callable failed.
type ErrKind int

const (
	ErrCostGradientEval ErrKind = iota // cost or gradient evaluation failed
	ErrCost                            // cost-only evaluation failed (e.g. a standalone Cost probe)
	ErrConstraint                      // F1 or F2 evaluation failed
	ErrOther                           // anything else the closure reports
)

func (k ErrKind) String() string {
	switch k {
	case ErrCostGradientEval:
		return "cost-gradient-eval"
	case ErrCost:
		return "cost"
	case ErrConstraint:
		return "constraint"
	default:
		return "other"
	}
}

// Error wraps an oracle failure with its kind. It is fatal to a solve:
// the engine never retries, it only propagates.
type Error struct {
	Kind ErrKind
	Err  error
}

func (e *Error) Error() string {
	return chk.Err("oracle %s failed: %v", e.Kind, e.Err).Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with kind, or returns nil if err is nil.
func Wrap(kind ErrKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}
