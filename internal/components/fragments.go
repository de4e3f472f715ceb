package components

import (
	"math"

	"github.com/san-kum/thermnet/internal/fluid"
	"github.com/san-kum/thermnet/internal/plant"
	"github.com/san-kum/thermnet/internal/solver"
)

// The fragments below build the equation blocks shared across component
// variants. Jacobian rows are ordered inlets first, then outlets, matching
// the contract in plant.Equation.

func newEq(sys *plant.System, numConn, numVars int) plant.Equation {
	jac := make([][]float64, numConn)
	for i := range jac {
		jac[i] = make([]float64, sys.NumVars())
	}
	var vj []float64
	if numVars > 0 {
		vj = make([]float64, numVars)
	}
	return plant.Equation{Jacobian: jac, VarJacobian: vj}
}

// massFlowResidual is the overall mass balance: sum of inlet mass flows
// minus sum of outlet mass flows.
func massFlowResidual(sys *plant.System, in, out []*plant.Connection, numVars int) plant.Equation {
	eq := newEq(sys, len(in)+len(out), numVars)
	for i, c := range in {
		eq.Residual += c.M.Val
		eq.Jacobian[i][0] = 1
	}
	for i, c := range out {
		eq.Residual -= c.M.Val
		eq.Jacobian[len(in)+i][0] = -1
	}
	return eq
}

// fluidResiduals equates the composition of one inlet/outlet pair, one
// residual per network fluid.
func fluidResiduals(sys *plant.System, rowIn, rowOut, numConn int, cin, cout *plant.Connection, numVars int) []plant.Equation {
	eqs := make([]plant.Equation, 0, len(sys.Fluids))
	for i, f := range sys.Fluids {
		eq := newEq(sys, numConn, numVars)
		eq.Residual = cin.Fluid.Val[f] - cout.Fluid.Val[f]
		eq.Jacobian[rowIn][3+i] = 1
		eq.Jacobian[rowOut][3+i] = -1
		eqs = append(eqs, eq)
	}
	return eqs
}

// equalityResidual equates one scalar variable (col 0=m, 1=p, 2=h) across
// two attached connections.
func equalityResidual(sys *plant.System, rowA, rowB, numConn, col int, a, b *plant.Connection, numVars int) plant.Equation {
	eq := newEq(sys, numConn, numVars)
	var va, vb float64
	switch col {
	case 0:
		va, vb = a.M.Val, b.M.Val
	case 1:
		va, vb = a.P.Val, b.P.Val
	case 2:
		va, vb = a.H.Val, b.H.Val
	}
	eq.Residual = va - vb
	eq.Jacobian[rowA][col] = 1
	eq.Jacobian[rowB][col] = -1
	return eq
}

// pressureRatioResidual is p_in*pr - p_out for a single flow lane.
func pressureRatioResidual(sys *plant.System, rowIn, rowOut, numConn int, cin, cout *plant.Connection, pr *plant.Parameter, numVars, varPos int) plant.Equation {
	eq := newEq(sys, numConn, numVars)
	eq.Residual = cin.P.Val*pr.Val - cout.P.Val
	eq.Jacobian[rowIn][1] = pr.Val
	eq.Jacobian[rowOut][1] = -1
	if pr.IsVar && varPos >= 0 {
		eq.VarJacobian[varPos] = cin.P.Val
	}
	return eq
}

// zetaEquation is zeta - (p_in-p_out)*pi^2 / (8*m^2*v_mix) for a single
// flow lane, with the mean specific volume of inlet and outlet. All
// derivatives are numeric.
func zetaEquation(sys *plant.System, cin, cout *plant.Connection, zeta *plant.Parameter, numVars int) (plant.Equation, error) {
	res := func() (float64, error) {
		vin, err := sys.Backend.VmixPH(cin.Flow())
		if err != nil {
			return 0, err
		}
		vout, err := sys.Backend.VmixPH(cout.Flow())
		if err != nil {
			return 0, err
		}
		vm := (vin + vout) / 2
		return zeta.Val - (cin.P.Val-cout.P.Val)*math.Pi*math.Pi/(8*cin.M.Val*cin.M.Val*vm), nil
	}

	eq := newEq(sys, 2, numVars)
	r, err := res()
	if err != nil {
		return eq, err
	}
	eq.Residual = r
	for row, c := range []*plant.Connection{cin, cout} {
		for _, col := range []int{0, 1, 2} {
			if row == 1 && col == 0 {
				continue
			}
			d, err := solver.NumericDeriv(sys, res, c, col)
			if err != nil {
				return eq, err
			}
			eq.Jacobian[row][col] = d
		}
	}
	return eq, nil
}

// saturationResidual pins a connection's enthalpy to the saturation curve
// at vapour fraction q: h - h(p, q). Only valid for pure streams.
func saturationResidual(sys *plant.System, c *plant.Connection, row, numConn int, q float64, numVars int) (plant.Equation, error) {
	eq := newEq(sys, numConn, numVars)
	f := fluid.SingleFluid(c.Fluid.Val)
	if f == "" {
		return eq, &fluid.PropertyError{Fluid: "mixture", Probe: "h(p,x)", P: c.P.Val}
	}
	hq, err := sys.Backend.HPureQ(f, c.P.Val, q)
	if err != nil {
		return eq, err
	}
	eq.Residual = c.H.Val - hq
	dhdp, err := sys.Backend.DHdpPureQ(f, c.P.Val, q)
	if err != nil {
		return eq, err
	}
	eq.Jacobian[row][1] = -dhdp
	eq.Jacobian[row][2] = 1
	return eq, nil
}

// heatResidual is m*(h_out - h_in) - Q for a single flow lane.
func heatResidual(sys *plant.System, rowIn, rowOut, numConn int, cin, cout *plant.Connection, q *plant.Parameter, numVars, varPos int) plant.Equation {
	eq := newEq(sys, numConn, numVars)
	eq.Residual = cin.M.Val*(cout.H.Val-cin.H.Val) - q.Val
	eq.Jacobian[rowIn][0] = cout.H.Val - cin.H.Val
	eq.Jacobian[rowIn][2] = -cin.M.Val
	eq.Jacobian[rowOut][2] = cin.M.Val
	if q.IsVar && varPos >= 0 {
		eq.VarJacobian[varPos] = -1
	}
	return eq
}
