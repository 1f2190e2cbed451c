// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package alm

import (
	"math"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/cpmech/almpanoc/oracle"
	"github.com/cpmech/almpanoc/panoc"
	"github.com/cpmech/almpanoc/sets"
)

// State is the outer driver's lifecycle state (spec.md §4.4.3).
type State int

const (
	FRESH State = iota
	OUTER_RUNNING
	CONVERGED
	EXHAUSTED
	TIMEOUT
	FAILED
)

func (s State) String() string {
	switch s {
	case FRESH:
		return "fresh"
	case OUTER_RUNNING:
		return "outer-running"
	case CONVERGED:
		return "converged"
	case EXHAUSTED:
		return "exhausted"
	case TIMEOUT:
		return "timeout"
	case FAILED:
		return "failed"
	default:
		return "unknown"
	}
}

// StepResult is what Step returns: whether the outer loop should
// continue iterating or stop.
type StepResult int

const (
	Continue StepResult = iota
	Stop
)

// Config is the ALM/PM driver's fluent configuration surface (spec.md
// §4.4.4), with the documented defaults.
type Config struct {
	MaxOuterIterations      int
	MaxInnerIterations      int
	MaxDuration             time.Duration // 0 means no wall-clock budget
	EpsilonTolerance        float64       // target inner AKKT tolerance
	DeltaTolerance          float64       // outer feasibility tolerance
	PenaltyUpdateFactor     float64       // rho
	EpsilonUpdateFactor     float64       // beta
	SufficientDecreaseCoeff float64       // theta
	EpsilonInnerInitial     float64
	LBFGSMemory             int
	InitialPenalty          float64
	InitialMultipliers      []float64 // nil means zero-initialised
}

// DefaultConfig returns the configuration defaults from spec.md §4.4.4.
func DefaultConfig() Config {
	return Config{
		MaxOuterIterations:      50,
		MaxInnerIterations:      5000,
		EpsilonTolerance:        1e-6,
		DeltaTolerance:          1e-4,
		PenaltyUpdateFactor:     5.0,
		EpsilonUpdateFactor:     0.1,
		SufficientDecreaseCoeff: 0.1,
		EpsilonInnerInitial:     0.1,
		LBFGSMemory:             10,
		InitialPenalty:          1.0,
	}
}

func (cfg Config) validate(n1 int) {
	if cfg.MaxOuterIterations < 1 {
		chk.Panic("alm: MaxOuterIterations must be >= 1; got %d", cfg.MaxOuterIterations)
	}
	if cfg.MaxInnerIterations < 1 {
		chk.Panic("alm: MaxInnerIterations must be >= 1; got %d", cfg.MaxInnerIterations)
	}
	if cfg.EpsilonTolerance <= 0 {
		chk.Panic("alm: EpsilonTolerance must be > 0; got %v", cfg.EpsilonTolerance)
	}
	if cfg.DeltaTolerance <= 0 {
		chk.Panic("alm: DeltaTolerance must be > 0; got %v", cfg.DeltaTolerance)
	}
	if cfg.PenaltyUpdateFactor <= 1 {
		chk.Panic("alm: PenaltyUpdateFactor must be > 1; got %v", cfg.PenaltyUpdateFactor)
	}
	if cfg.EpsilonUpdateFactor <= 0 || cfg.EpsilonUpdateFactor >= 1 {
		chk.Panic("alm: EpsilonUpdateFactor must be in (0,1); got %v", cfg.EpsilonUpdateFactor)
	}
	if cfg.SufficientDecreaseCoeff <= 0 || cfg.SufficientDecreaseCoeff >= 1 {
		chk.Panic("alm: SufficientDecreaseCoeff must be in (0,1); got %v", cfg.SufficientDecreaseCoeff)
	}
	if cfg.EpsilonInnerInitial < cfg.EpsilonTolerance {
		chk.Panic("alm: EpsilonInnerInitial must be >= EpsilonTolerance; got %v < %v", cfg.EpsilonInnerInitial, cfg.EpsilonTolerance)
	}
	if cfg.InitialPenalty <= 0 {
		chk.Panic("alm: InitialPenalty must be > 0; got %v", cfg.InitialPenalty)
	}
	if cfg.LBFGSMemory < 1 {
		chk.Panic("alm: LBFGSMemory must be >= 1; got %d", cfg.LBFGSMemory)
	}
	if cfg.InitialMultipliers != nil && len(cfg.InitialMultipliers) != n1 {
		chk.Panic("alm: InitialMultipliers length %d does not match n1=%d", len(cfg.InitialMultipliers), n1)
	}
}

// Status reports a snapshot of the driver's outcome for the caller,
// matching spec.md §6's "Solver entry" contract.
type Status struct {
	State      State
	Iteration  int
	DeltaYNorm float64
	F2Norm     float64
	Elapsed    time.Duration
	Inner      panoc.Status
	Err        error
}

// Driver orchestrates the ALM/PM outer loop around a PANOC-class inner
// solver, following the Newton-loop shape of gosl's num.NlSolver and
// gofem's run_iterations: assemble the next subproblem, solve it,
// measure progress, check termination, repeat.
type Driver struct {
	Problem *oracle.Bundle
	U       sets.Set // required
	C       sets.Set // required iff Problem.N1 > 0
	Y       sets.Set // required iff Problem.N1 > 0

	Cache *Cache
	Inner *panoc.Solver

	Config Config
	State  State

	Verbose bool

	startTime       time.Time
	elapsed         time.Duration
	lastInnerStatus panoc.Status
	lastErr         error
}

// NewDriver validates the problem and set wiring and returns a Driver
// configured with DefaultConfig(). Invalid wiring (missing C/Y when
// n1>0, present C/Y when n1==0, missing U) is fatal (InvalidConfig).
func NewDriver(problem *oracle.Bundle, U, C, Y sets.Set) *Driver {
	problem.Validate()
	if U == nil {
		chk.Panic("alm: U is required")
	}
	if problem.N1 > 0 {
		if C == nil {
			chk.Panic("alm: C is required when n1=%d > 0", problem.N1)
		}
		if Y == nil {
			chk.Panic("alm: Y is required when n1=%d > 0", problem.N1)
		}
	} else if C != nil || Y != nil {
		chk.Panic("alm: C and Y must be nil when n1==0")
	}

	cfg := DefaultConfig()
	cache := NewCache(problem.N, problem.N1, problem.N2, cfg.LBFGSMemory, cfg.EpsilonInnerInitial)
	cache.SetC(cfg.InitialPenalty)

	d := &Driver{
		Problem: problem,
		U:       U,
		C:       C,
		Y:       Y,
		Cache:   cache,
		Inner:   panoc.NewSolver(cache.Inner, cfg.MaxInnerIterations),
		Config:  cfg,
		State:   FRESH,
	}
	return d
}

// applyConfig re-validates and installs cfg, syncing the parts of the
// cache and inner solver that mirror a Config field.
func (d *Driver) applyConfig(cfg Config) {
	cfg.validate(d.Problem.N1)
	d.Config = cfg
	d.Inner.MaxIterations = cfg.MaxInnerIterations
	if d.Cache.LBFGSMemoryDepth() != cfg.LBFGSMemory {
		d.Cache.Inner.LBFGS = panoc.NewLBFGSMemory(d.Problem.N, cfg.LBFGSMemory)
	}
}

// WithMaxOuterIterations sets the outer iteration cap (default 50).
func (d *Driver) WithMaxOuterIterations(n int) *Driver {
	cfg := d.Config
	cfg.MaxOuterIterations = n
	d.applyConfig(cfg)
	return d
}

// WithMaxInnerIterations sets the inner iteration cap forwarded to the
// PANOC solver (default 5000).
func (d *Driver) WithMaxInnerIterations(n int) *Driver {
	cfg := d.Config
	cfg.MaxInnerIterations = n
	d.applyConfig(cfg)
	return d
}

// WithMaxDuration sets the wall-clock budget across outer iterations
// (default: none).
func (d *Driver) WithMaxDuration(dur time.Duration) *Driver {
	cfg := d.Config
	cfg.MaxDuration = dur
	d.applyConfig(cfg)
	return d
}

// WithEpsilonTolerance sets the target inner AKKT tolerance (default
// 1e-6).
func (d *Driver) WithEpsilonTolerance(eps float64) *Driver {
	cfg := d.Config
	cfg.EpsilonTolerance = eps
	d.applyConfig(cfg)
	return d
}

// WithDeltaTolerance sets the outer feasibility tolerance (default
// 1e-4).
func (d *Driver) WithDeltaTolerance(delta float64) *Driver {
	cfg := d.Config
	cfg.DeltaTolerance = delta
	d.applyConfig(cfg)
	return d
}

// WithPenaltyUpdateFactor sets rho, the multiplicative penalty increase
// applied when the stall test fails (default 5.0).
func (d *Driver) WithPenaltyUpdateFactor(rho float64) *Driver {
	cfg := d.Config
	cfg.PenaltyUpdateFactor = rho
	d.applyConfig(cfg)
	return d
}

// WithEpsilonUpdateFactor sets beta, the inner-tolerance tightening
// factor (default 0.1).
func (d *Driver) WithEpsilonUpdateFactor(beta float64) *Driver {
	cfg := d.Config
	cfg.EpsilonUpdateFactor = beta
	d.applyConfig(cfg)
	return d
}

// WithSufficientDecreaseCoeff sets theta, the stall threshold (default
// 0.1).
func (d *Driver) WithSufficientDecreaseCoeff(theta float64) *Driver {
	cfg := d.Config
	cfg.SufficientDecreaseCoeff = theta
	d.applyConfig(cfg)
	return d
}

// WithEpsilonInnerInitial sets the starting inner AKKT tolerance
// (default 0.1) and, while the driver is still FRESH, the current one.
func (d *Driver) WithEpsilonInnerInitial(eps0 float64) *Driver {
	cfg := d.Config
	cfg.EpsilonInnerInitial = eps0
	d.applyConfig(cfg)
	if d.State == FRESH {
		d.Cache.Inner.EpsilonInner = eps0
	}
	return d
}

// WithInitialPenalty seeds c = Xi[0] (default 1).
func (d *Driver) WithInitialPenalty(c0 float64) *Driver {
	if c0 <= 0 {
		chk.Panic("alm: initial penalty must be > 0; got %v", c0)
	}
	d.Config.InitialPenalty = c0
	d.Cache.SetC(c0)
	return d
}

// WithInitialLagrangeMultipliers seeds Xi[1:] = y0 (default all zero).
// len(y0) must equal the problem's n1; mismatch is fatal misuse.
func (d *Driver) WithInitialLagrangeMultipliers(y0 []float64) *Driver {
	if d.Problem.N1 == 0 {
		chk.Panic("alm: cannot set initial multipliers when n1==0")
	}
	if len(y0) != d.Problem.N1 {
		chk.Panic("alm: initial multipliers length %d does not match n1=%d", len(y0), d.Problem.N1)
	}
	d.Config.InitialMultipliers = append([]float64(nil), y0...)
	copy(d.Cache.Y(), y0)
	return d
}

func (d *Driver) fail(err error) {
	d.State = FAILED
	d.lastErr = err
}

// gradVectorFunc adapts Problem.Grad, evaluated against the current
// penalty/multiplier state, to the oracle.VectorFunc shape the Lipschitz
// estimator expects.
func (d *Driver) gradVectorFunc(u, r []float64) error {
	return d.Problem.Grad(u, d.Cache.Xi, r)
}

// gammaFromLipschitz turns a Lipschitz estimate of grad-psi into a safe
// forward-backward step size, floored away from division blow-up on a
// near-flat gradient.
func gammaFromLipschitz(L float64) float64 {
	const lMin = 1e-8
	if L < lMin {
		L = lMin
	}
	return 1.0 / L
}

// Step performs one outer iteration, per spec.md §4.4.1.
func (d *Driver) Step(u []float64) (StepResult, error) {
	if len(u) != d.Problem.N {
		chk.Panic("alm: len(u)=%d does not match problem n=%d", len(u), d.Problem.N)
	}
	if d.State == FRESH {
		d.State = OUTER_RUNNING
		d.startTime = time.Now()
	}
	cache := d.Cache

	// 1. project multipliers
	if d.Y != nil {
		d.Y.Project(cache.Y())
	}

	// size the inner step from a local Lipschitz estimate of grad-psi
	copy(cache.uProbe, u)
	L, err := cache.GradLipschitz.Estimate(cache.uProbe, d.gradVectorFunc)
	if err != nil {
		// the estimator tags a failing F as a constraint failure; here F
		// is the gradient oracle
		if oerr, ok := err.(*oracle.Error); ok {
			err = oracle.Wrap(oracle.ErrCostGradientEval, oerr.Err)
		}
		d.fail(err)
		return Stop, err
	}
	cache.Inner.Gamma = gammaFromLipschitz(L)

	// 2. inner solve
	innerStatus, err := d.Inner.Solve(u, cache.Xi, d.Problem.Cost, d.Problem.Grad, d.U)
	if err != nil {
		d.fail(err)
		return Stop, err
	}
	d.lastInnerStatus = innerStatus

	// 3. multiplier update
	if d.Problem.N1 > 0 {
		if ferr := d.Problem.F1(u, cache.WAlmAux); ferr != nil {
			werr := oracle.Wrap(oracle.ErrConstraint, ferr)
			d.fail(werr)
			return Stop, werr
		}
		c := cache.C()
		y := cache.Y()
		for i := 0; i < d.Problem.N1; i++ {
			cache.YPlus[i] = cache.WAlmAux[i] + y[i]/c
		}
		d.C.Project(cache.YPlus)
		for i := 0; i < d.Problem.N1; i++ {
			cache.YPlus[i] = y[i] + c*(cache.WAlmAux[i]-cache.YPlus[i])
		}
	}

	// 4. infeasibility measurement
	if d.Problem.N2 > 0 {
		if ferr := d.Problem.F2(u, cache.WPm); ferr != nil {
			werr := oracle.Wrap(oracle.ErrConstraint, ferr)
			d.fail(werr)
			return Stop, werr
		}
		sum := 0.0
		for _, v := range cache.WPm {
			sum += v * v
		}
		cache.F2NormPlus = math.Sqrt(sum)
	} else {
		cache.F2NormPlus = 0
	}
	if d.Problem.N1 > 0 {
		y := cache.Y()
		sum := 0.0
		for i := 0; i < d.Problem.N1; i++ {
			diff := cache.YPlus[i] - y[i]
			sum += diff * diff
		}
		cache.DeltaYNormPlus = math.Sqrt(sum)
	} else {
		cache.DeltaYNormPlus = 0
	}

	// 5. termination test. C2 uses DeltaTolerance rather than the
	// literal 1.0 the observed source compared against — see DESIGN.md
	// for the resolution of spec.md §9 open question #1.
	c := cache.C()
	c1 := cache.DeltaYNormPlus <= c*d.Config.DeltaTolerance
	c2 := cache.F2NormPlus <= d.Config.DeltaTolerance
	converged := c1 && c2

	// 6. penalty stall test
	stalled := cache.Iteration == 0 ||
		cache.DeltaYNormPlus < d.Config.SufficientDecreaseCoeff*cache.DeltaYNorm ||
		cache.F2NormPlus < d.Config.SufficientDecreaseCoeff*cache.F2Norm
	if !stalled && len(cache.Xi) > 0 {
		cache.SetC(c * d.Config.PenaltyUpdateFactor)
	}

	// 7. inner-tolerance tightening
	cache.Inner.EpsilonInner = math.Max(d.Config.EpsilonTolerance, d.Config.EpsilonUpdateFactor*cache.Inner.EpsilonInner)

	// 8. final cache update
	if d.Problem.N1 > 0 {
		copy(cache.Y(), cache.YPlus)
	}
	cache.DeltaYNorm = cache.DeltaYNormPlus
	cache.F2Norm = cache.F2NormPlus
	cache.Iteration++
	cache.Reset()

	d.elapsed = time.Since(d.startTime)

	if d.Verbose {
		io.Pf("%6d%16.8e%16.8e%16.8e\n", cache.Iteration, cache.C(), cache.DeltaYNorm, cache.F2Norm)
	}

	if converged {
		d.State = CONVERGED
		return Stop, nil
	}
	return Continue, nil
}

// Solve repeats Step until convergence, the outer iteration cap, the
// wall-clock budget, or an oracle failure (spec.md §4.4.2).
func (d *Driver) Solve(u []float64) error {
	for {
		if d.Cache.Iteration >= d.Config.MaxOuterIterations {
			d.State = EXHAUSTED
			return nil
		}
		if d.Config.MaxDuration > 0 && !d.startTime.IsZero() && time.Since(d.startTime) > d.Config.MaxDuration {
			d.State = TIMEOUT
			return nil
		}
		result, err := d.Step(u)
		if err != nil {
			return err
		}
		if result == Stop {
			return nil
		}
	}
}

// Status returns a snapshot of the driver's current outcome.
func (d *Driver) Status() Status {
	return Status{
		State:      d.State,
		Iteration:  d.Cache.Iteration,
		DeltaYNorm: d.Cache.DeltaYNorm,
		F2Norm:     d.Cache.F2Norm,
		Elapsed:    d.elapsed,
		Inner:      d.lastInnerStatus,
		Err:        d.lastErr,
	}
}
