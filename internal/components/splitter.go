package components

import "github.com/san-kum/thermnet/internal/plant"

// Splitter distributes one inlet over several outlets at unchanged
// pressure, enthalpy and composition.
type Splitter struct {
	Base
}

func NewSplitter(label string, numOut int) *Splitter {
	return &Splitter{Base: newBase(label, 1, numOut)}
}

func (s *Splitter) FluidRule() plant.FluidRule {
	return plant.RuleSplit
}

func (s *Splitter) NumEquations(sys *plant.System) int {
	return 1 + len(s.out)*(len(sys.Fluids)+2)
}

func (s *Splitter) Equations(sys *plant.System) ([]plant.Equation, error) {
	cin := s.In(0)
	n := 1 + len(s.out)
	eqs := []plant.Equation{massFlowResidual(sys, s.in, s.out, 0)}

	for i, cout := range s.out {
		for fi := range sys.Fluids {
			eq := newEq(sys, n, 0)
			eq.Residual = cin.Fluid.Val[sys.Fluids[fi]] - cout.Fluid.Val[sys.Fluids[fi]]
			eq.Jacobian[0][3+fi] = 1
			eq.Jacobian[1+i][3+fi] = -1
			eqs = append(eqs, eq)
		}
		eqs = append(eqs,
			equalityResidual(sys, 0, 1+i, n, 1, cin, cout, 0),
			equalityResidual(sys, 0, 1+i, n, 2, cin, cout, 0))
	}
	return eqs, nil
}
