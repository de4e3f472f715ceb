package solver

import (
	"math"

	"github.com/san-kum/thermnet/internal/fluid"
	"github.com/san-kum/thermnet/internal/plant"
)

// layout maps the system vector: one block of [m, p, h, fluids...] per
// connection in declaration order, followed by the free component
// variables in sorted component order.
type layout struct {
	sys      *plant.System
	nv       int
	n        int
	compVars []*plant.Parameter
	varCol   map[*plant.Parameter]int
}

func newLayout(sys *plant.System) *layout {
	l := &layout{
		sys:    sys,
		nv:     sys.NumVars(),
		varCol: make(map[*plant.Parameter]int),
	}
	col := len(sys.Conns()) * l.nv
	for _, cp := range sys.Comps() {
		vh, ok := cp.(plant.VarHolder)
		if !ok {
			continue
		}
		for _, p := range vh.Vars() {
			l.compVars = append(l.compVars, p)
			l.varCol[p] = col
			col++
		}
	}
	l.n = col
	return l
}

// assemble builds the residual vector and dense Jacobian for the current
// state. The row count must match the variable count; a mismatch is an
// over- or underdetermined parametrisation.
func (l *layout) assemble() (rows [][]float64, res []float64, err error) {
	sys := l.sys

	// a wrong spec count is a configuration mistake and diagnosed before
	// any residual is evaluated, so it is never hidden behind a property
	// lookup failure on a bad iterate
	if total, ok := l.countRows(); ok && total != l.n {
		return nil, nil, &plant.ParameterCountError{Required: l.n, Supplied: total}
	}

	for _, cp := range sys.Comps() {
		eqs, err := cp.Equations(sys)
		if err != nil {
			return nil, nil, err
		}
		var vars []*plant.Parameter
		if vh, ok := cp.(plant.VarHolder); ok {
			vars = vh.Vars()
		}
		for _, eq := range eqs {
			rows = append(rows, l.scatter(cp, vars, eq))
			res = append(res, eq.Residual)
		}
	}

	for _, c := range sys.Conns() {
		cr, crr, err := l.connectionRows(c)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, cr...)
		res = append(res, crr...)
	}

	for _, b := range sys.Busses() {
		if !b.Total.Set {
			continue
		}
		row, r, err := l.busRow(b)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
		res = append(res, r)
	}

	if len(rows) != l.n {
		return nil, nil, &plant.ParameterCountError{Required: l.n, Supplied: len(rows)}
	}
	return rows, res, nil
}

// countRows predicts the equation count from the current parametrisation
// without evaluating a single residual. Components report their share via
// the EquationCounter capability; if one cannot, the prediction is skipped
// and only the check after assembly applies.
func (l *layout) countRows() (int, bool) {
	total := 0
	for _, cp := range l.sys.Comps() {
		ec, ok := cp.(plant.EquationCounter)
		if !ok {
			return 0, false
		}
		total += ec.NumEquations(l.sys)
	}
	for _, c := range l.sys.Conns() {
		total += countConnRows(l.sys, c)
	}
	for _, b := range l.sys.Busses() {
		if b.Total.Set {
			total++
		}
	}
	return total, true
}

func countConnRows(sys *plant.System, c *plant.Connection) int {
	n := 0
	for _, q := range []*plant.Quantity{&c.M, &c.P, &c.H} {
		if q.Set || (q.RefSet && q.Ref != nil) {
			n++
		}
	}
	for _, q := range []*plant.Quantity{&c.T, &c.X, &c.V} {
		if q.Set {
			n++
		}
	}
	for _, f := range sys.Fluids {
		if c.Fluid.Set[f] {
			n++
		}
	}
	if c.Fluid.Balance {
		n++
	}
	return n
}

// scatter places a component equation's per-connection jacobian blocks and
// variable partials into a full system row.
func (l *layout) scatter(cp plant.Component, vars []*plant.Parameter, eq plant.Equation) []float64 {
	row := make([]float64, l.n)
	numIn := len(cp.InletIDs())
	for i := range eq.Jacobian {
		var c *plant.Connection
		if i < numIn {
			c = cp.In(i)
		} else {
			c = cp.Out(i - numIn)
		}
		base := l.sys.ConnIndex(c) * l.nv
		for j, v := range eq.Jacobian[i] {
			if v != 0 {
				row[base+j] = v
			}
		}
	}
	for k, v := range eq.VarJacobian {
		if k < len(vars) && v != 0 {
			row[l.varCol[vars[k]]] = v
		}
	}
	return row
}

// connectionRows builds the specification equations of one connection:
// fixed values, linear references, temperature, vapour fraction and
// volumetric flow specifications, fixed fractions and the composition
// balance.
func (l *layout) connectionRows(c *plant.Connection) ([][]float64, []float64, error) {
	sys := l.sys
	base := sys.ConnIndex(c) * l.nv
	var rows [][]float64
	var res []float64
	add := func(row []float64, r float64) {
		rows = append(rows, row)
		res = append(res, r)
	}
	newRow := func() []float64 { return make([]float64, l.n) }

	for col, q := range []*plant.Quantity{&c.M, &c.P, &c.H} {
		switch {
		case q.Set:
			row := newRow()
			row[base+col] = 1
			add(row, 0)
		case q.RefSet && q.Ref != nil:
			row := newRow()
			row[base+col] = 1
			other := sys.ConnIndex(q.Ref.Conn)*l.nv + col
			row[other] = -q.Ref.Factor
			add(row, q.Val-(q.Ref.Conn.Quantity(quantityName(col)).Val*q.Ref.Factor+q.Ref.Offset))
		}
	}

	if c.T.Set {
		t, err := sys.Backend.TmixPH(c.Flow())
		if err != nil {
			return nil, nil, err
		}
		row := newRow()
		dtdp, err := sys.Backend.DTdpMixPH(c.Flow())
		if err != nil {
			return nil, nil, err
		}
		dtdh, err := sys.Backend.DTdhMixPH(c.Flow())
		if err != nil {
			return nil, nil, err
		}
		row[base+1] = -dtdp
		row[base+2] = -dtdh
		if len(sys.Fluids) > 1 {
			for i, f := range sys.Fluids {
				if c.Fluid.Set[f] {
					continue
				}
				if d, err := sys.Backend.DTdxMixPH(c.Flow(), f); err == nil {
					row[base+3+i] = -d
				}
			}
		}
		add(row, c.T.Val-t)
	}

	if c.X.Set {
		f := fluid.SingleFluid(c.Fluid.Val)
		if f == "" {
			return nil, nil, &fluid.PropertyError{Fluid: "mixture", Probe: "h(p,x)", P: c.P.Val}
		}
		hq, err := sys.Backend.HPureQ(f, c.P.Val, c.X.Val)
		if err != nil {
			return nil, nil, err
		}
		dhdp, err := sys.Backend.DHdpPureQ(f, c.P.Val, c.X.Val)
		if err != nil {
			return nil, nil, err
		}
		row := newRow()
		row[base+1] = -dhdp
		row[base+2] = 1
		add(row, c.H.Val-hq)
	}

	if c.V.Set {
		v, err := sys.Backend.VmixPH(c.Flow())
		if err != nil {
			return nil, nil, err
		}
		dvdp, err := sys.Backend.DVdpMixPH(c.Flow())
		if err != nil {
			return nil, nil, err
		}
		dvdh, err := sys.Backend.DVdhMixPH(c.Flow())
		if err != nil {
			return nil, nil, err
		}
		row := newRow()
		row[base+0] = -v
		row[base+1] = -c.M.Val * dvdp
		row[base+2] = -c.M.Val * dvdh
		add(row, c.V.Val-c.M.Val*v)
	}

	for i, f := range sys.Fluids {
		if c.Fluid.Set[f] {
			row := newRow()
			row[base+3+i] = 1
			add(row, 0)
		}
	}
	if c.Fluid.Balance {
		row := newRow()
		sum := 0.0
		for i, f := range sys.Fluids {
			sum += c.Fluid.Val[f]
			row[base+3+i] = -1
		}
		add(row, 1-sum)
	}

	return rows, res, nil
}

// busRow builds the total-value equation of a bus. All derivatives are
// numeric against the mass flow and enthalpy of the member components'
// connections.
func (l *layout) busRow(b *plant.Bus) ([]float64, float64, error) {
	res := func() (float64, error) {
		return b.Total.Val - b.Value(), nil
	}
	row := make([]float64, l.n)
	for _, e := range b.Entries {
		cp := e.Comp
		for i := range cp.InletIDs() {
			if err := l.busDeriv(row, res, cp.In(i)); err != nil {
				return nil, 0, err
			}
		}
		for i := range cp.OutletIDs() {
			if err := l.busDeriv(row, res, cp.Out(i)); err != nil {
				return nil, 0, err
			}
		}
	}
	r, _ := res()
	return row, r, nil
}

func (l *layout) busDeriv(row []float64, res func() (float64, error), c *plant.Connection) error {
	base := l.sys.ConnIndex(c) * l.nv
	for _, col := range []int{0, 2} {
		d, err := NumericDeriv(l.sys, res, c, col)
		if err != nil {
			return err
		}
		row[base+col] += d
	}
	return nil
}

func quantityName(col int) string {
	switch col {
	case 0:
		return "m"
	case 1:
		return "p"
	default:
		return "h"
	}
}

// initFreeVars gives free component variables a finite starting point.
func (l *layout) initFreeVars() {
	for _, p := range l.compVars {
		if math.IsNaN(p.Val) {
			p.Val = 1
		}
	}
}
