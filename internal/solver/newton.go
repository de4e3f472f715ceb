// Package solver assembles a plant network into a nonlinear equation
// system and drives it to a steady state with a Newton-Raphson iteration.
package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/thermnet/internal/fluid"
	"github.com/san-kum/thermnet/internal/plant"
)

// condition estimate above which the system matrix is treated as singular
const condLimit = 1e13

// Observer is notified after every assembly pass with the current residual
// norm.
type Observer interface {
	OnIteration(iter int, residual float64)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(iter int, residual float64)

func (f ObserverFunc) OnIteration(iter int, residual float64) { f(iter, residual) }

// Solver holds the iteration settings. The zero value is not usable, use
// New.
type Solver struct {
	Tol       float64
	MaxIter   int
	Observers []Observer
}

func New() *Solver {
	return &Solver{Tol: 1e-3, MaxIter: 50}
}

// Options select per-solve behaviour.
type Options struct {
	// Warm is a prior solved state applied as starting values after
	// initialisation, keyed by connection key.
	Warm       map[string]plant.SavedConn
	WarmFluids []string

	// InitOnly stops after initialisation without iterating.
	InitOnly bool
}

// Result reports the outcome of a solve.
type Result struct {
	Iterations int
	Residual   float64
	History    []float64
	Converged  bool
}

// Solve runs the full calculation: topology check, fluid propagation,
// starting values, then the Newton iteration until the residual norm drops
// under Tol. The context is polled between iterations.
func (s *Solver) Solve(ctx context.Context, sys *plant.System, opts Options) (*Result, error) {
	if !sys.Checked() {
		if err := sys.Check(); err != nil {
			return nil, err
		}
	}
	if err := sys.PreInit(); err != nil {
		return nil, err
	}
	if err := sys.InitFluids(); err != nil {
		return nil, err
	}
	if err := sys.InitProperties(); err != nil {
		return nil, err
	}
	if opts.Warm != nil {
		if err := sys.ApplyWarmStart(opts.Warm, opts.WarmFluids); err != nil {
			return nil, err
		}
	}

	lay := newLayout(sys)
	lay.initFreeVars()

	res := &Result{}
	if opts.InitOnly {
		return res, nil
	}

	minIter := 4
	if sys.WarmStarted {
		minIter = 1
	}

	for iter := 0; iter < s.MaxIter; iter++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		rows, resid, err := lay.assemble()
		if err != nil {
			return res, err
		}
		norm := floats.Norm(resid, 2)
		res.Iterations = iter
		res.Residual = norm
		res.History = append(res.History, norm)
		for _, o := range s.Observers {
			o.OnIteration(iter, norm)
		}

		if iter >= minIter && norm < s.Tol {
			res.Converged = true
			postprocess(sys)
			return res, nil
		}

		jac := mat.NewDense(lay.n, lay.n, nil)
		for i, row := range rows {
			jac.SetRow(i, row)
		}

		var lu mat.LU
		lu.Factorize(jac)
		if c := lu.Cond(); math.IsInf(c, 1) || c > condLimit {
			return res, &LinearDependencyError{Iteration: iter, Cond: c}
		}
		var d mat.VecDense
		if err := lu.SolveVecTo(&d, false, mat.NewVecDense(lay.n, resid)); err != nil {
			return res, &LinearDependencyError{Iteration: iter, Cond: math.Inf(1)}
		}

		lay.applyIncrement(&d)
		stabilize(sys, iter)

		if iter >= 20 && stalled(res.History, s.Tol) {
			return res, &ConvergenceError{Iterations: iter + 1, Residual: norm, Stalled: true}
		}
	}
	return res, &ConvergenceError{Iterations: s.MaxIter, Residual: res.Residual}
}

// Verify runs the full initialisation and a single assembly pass without
// iterating. It surfaces topology, propagation and determination problems
// the way a solve would, but leaves the network one assembly old.
func (s *Solver) Verify(sys *plant.System) error {
	if !sys.Checked() {
		if err := sys.Check(); err != nil {
			return err
		}
	}
	if err := sys.PreInit(); err != nil {
		return err
	}
	if err := sys.InitFluids(); err != nil {
		return err
	}
	if err := sys.InitProperties(); err != nil {
		return err
	}
	lay := newLayout(sys)
	lay.initFreeVars()
	_, _, err := lay.assemble()
	return err
}

// applyIncrement performs the Newton step x -= d. Pressure steps are
// relaxed so a single iteration never cuts a pressure below half its
// current value; fractions snap to pure once they come close enough.
func (l *layout) applyIncrement(d *mat.VecDense) {
	for ci, c := range l.sys.Conns() {
		base := ci * l.nv
		c.M.Val -= d.AtVec(base)

		dz := -d.AtVec(base + 1)
		relax := 1.0
		if r := -dz / (0.5 * c.P.Val); r > 1 {
			relax = r
		}
		c.P.Val += dz / relax

		c.H.Val -= d.AtVec(base + 2)

		for i, f := range l.sys.Fluids {
			if c.Fluid.Set[f] {
				continue
			}
			x := c.Fluid.Val[f] - d.AtVec(base+3+i)
			if x < 1e-4 {
				x = 0
			} else if x > 1-1e-4 {
				x = 1
			}
			c.Fluid.Val[f] = x
		}
	}

	for _, p := range l.compVars {
		p.Val -= d.AtVec(l.varCol[p])
		if p.Val < p.Min {
			p.Val = p.Min
		}
		if p.Val > p.Max {
			p.Val = p.Max
		}
	}
}

// stalled reports a residual norm that has stopped moving while still
// above the tolerance.
func stalled(history []float64, tol float64) bool {
	n := len(history)
	if n < 6 {
		return false
	}
	cur, prev := history[n-1], history[n-6]
	return cur > tol && prev > 0 && cur/prev > 0.95
}

// postprocess derives the reported connection results (temperature,
// volumetric flow, vapour fraction) from the solved state and lets every
// component recompute its parameters.
func postprocess(sys *plant.System) {
	for _, c := range sys.Conns() {
		if !c.T.Set {
			if t, err := sys.Backend.TmixPH(c.Flow()); err == nil {
				c.T.Val = t
			}
		}
		if !c.V.Set {
			if v, err := sys.Backend.VmixPH(c.Flow()); err == nil {
				c.V.Val = c.M.Val * v
			}
		}
		if f := fluid.SingleFluid(c.Fluid.Val); f != "" && !c.X.Set {
			if pr, ok := sys.Backend.Props(f); ok && pr.Hfg > 0 {
				if hliq, err := sys.Backend.HPureQ(f, c.P.Val, 0); err == nil {
					c.X.Val = (c.H.Val - hliq) / pr.Hfg
				}
			}
		}
	}

	design := sys.Mode == plant.Design
	for _, cp := range sys.Comps() {
		if pp, ok := cp.(plant.PostProcessor); ok {
			pp.CalcParameters(sys, design)
		}
	}
}
