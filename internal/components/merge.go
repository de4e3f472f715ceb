package components

import "github.com/san-kum/thermnet/internal/plant"

// Merge mixes several inlets into one outlet, conserving mass, energy and
// composition. All pressures are equal.
type Merge struct {
	Base
}

func NewMerge(label string, numIn int) *Merge {
	return &Merge{Base: newBase(label, numIn, 1)}
}

func (m *Merge) FluidRule() plant.FluidRule {
	return plant.RuleMerge
}

func (m *Merge) NumEquations(sys *plant.System) int {
	return 2 + len(sys.Fluids) + len(m.in)
}

func (m *Merge) Equations(sys *plant.System) ([]plant.Equation, error) {
	cout := m.Out(0)
	n := len(m.in) + 1
	outRow := len(m.in)
	eqs := []plant.Equation{massFlowResidual(sys, m.in, m.out, 0)}

	// composition balance per fluid
	for fi, f := range sys.Fluids {
		eq := newEq(sys, n, 0)
		for i, cin := range m.in {
			eq.Residual += cin.M.Val * cin.Fluid.Val[f]
			eq.Jacobian[i][0] = cin.Fluid.Val[f]
			eq.Jacobian[i][3+fi] = cin.M.Val
		}
		eq.Residual -= cout.M.Val * cout.Fluid.Val[f]
		eq.Jacobian[outRow][0] = -cout.Fluid.Val[f]
		eq.Jacobian[outRow][3+fi] = -cout.M.Val
		eqs = append(eqs, eq)
	}

	// energy balance
	en := newEq(sys, n, 0)
	for i, cin := range m.in {
		en.Residual += cin.M.Val * cin.H.Val
		en.Jacobian[i][0] = cin.H.Val
		en.Jacobian[i][2] = cin.M.Val
	}
	en.Residual -= cout.M.Val * cout.H.Val
	en.Jacobian[outRow][0] = -cout.H.Val
	en.Jacobian[outRow][2] = -cout.M.Val
	eqs = append(eqs, en)

	for i, cin := range m.in {
		eqs = append(eqs, equalityResidual(sys, i, outRow, n, 1, cin, cout, 0))
	}
	return eqs, nil
}

// ConvergenceCheck keeps inlet mass flows positive while the solution is
// still far off; a merge cannot run backwards.
func (m *Merge) ConvergenceCheck(sys *plant.System) {
	for _, cin := range m.in {
		if !cin.M.Set && cin.M.Val < 0 {
			cin.M.Val = 0.01
		}
	}
}
