package components

import "github.com/san-kum/thermnet/internal/plant"

// Node joins an arbitrary number of inlets and outlets at a single
// pressure. Which connections feed the node is decided by the sign of
// their mass flow on every assembly pass, so the equation set follows the
// flow direction as the iteration moves: every stream leaving the node
// carries the mixture enthalpy and composition of the streams entering it.
type Node struct {
	Base
}

func NewNode(label string, numIn, numOut int) *Node {
	return &Node{Base: newBase(label, numIn, numOut)}
}

func (n *Node) FluidRule() plant.FluidRule {
	return plant.RuleMerge
}

// split classifies the attached connections by current flow direction.
// Weights are positive mass flows into the node.
func (n *Node) split() (inc, outg []*plant.Connection, incW []float64, rows map[*plant.Connection]int) {
	rows = make(map[*plant.Connection]int)
	for i, c := range n.in {
		rows[c] = i
		if c.M.Val >= 0 {
			inc = append(inc, c)
			incW = append(incW, 1)
		} else {
			outg = append(outg, c)
		}
	}
	for i, c := range n.out {
		rows[c] = len(n.in) + i
		if c.M.Val < 0 {
			inc = append(inc, c)
			incW = append(incW, -1)
		} else {
			outg = append(outg, c)
		}
	}
	return inc, outg, incW, rows
}

// NumEquations depends on the current flow directions: every outgoing
// stream carries one mixture enthalpy and one equation per fluid.
func (n *Node) NumEquations(sys *plant.System) int {
	_, outg, _, _ := n.split()
	nc := len(n.in) + len(n.out)
	return 1 + (nc - 1) + len(outg)*(1+len(sys.Fluids))
}

func (n *Node) Equations(sys *plant.System) ([]plant.Equation, error) {
	conns := append(append([]*plant.Connection{}, n.in...), n.out...)
	nc := len(conns)
	eqs := []plant.Equation{massFlowResidual(sys, n.in, n.out, 0)}

	// one common pressure
	for i := 1; i < nc; i++ {
		eqs = append(eqs, equalityResidual(sys, 0, i, nc, 1, conns[0], conns[i], 0))
	}

	inc, outg, incW, rows := n.split()
	var mTotal, hSum float64
	for i, c := range inc {
		mTotal += incW[i] * c.M.Val
		hSum += incW[i] * c.M.Val * c.H.Val
	}

	for _, o := range outg {
		// enthalpy of everything leaving matches the incoming mixture:
		// h_o * sum(m_i) - sum(m_i*h_i) = 0
		eq := newEq(sys, nc, 0)
		eq.Residual = o.H.Val*mTotal - hSum
		eq.Jacobian[rows[o]][2] = mTotal
		for i, c := range inc {
			eq.Jacobian[rows[c]][0] = incW[i] * (o.H.Val - c.H.Val)
			eq.Jacobian[rows[c]][2] = -incW[i] * c.M.Val
		}
		eqs = append(eqs, eq)

		for fi, f := range sys.Fluids {
			feq := newEq(sys, nc, 0)
			var xSum float64
			for i, c := range inc {
				xSum += incW[i] * c.M.Val * c.Fluid.Val[f]
				feq.Jacobian[rows[c]][0] = incW[i] * (o.Fluid.Val[f] - c.Fluid.Val[f])
				feq.Jacobian[rows[c]][3+fi] = -incW[i] * c.M.Val
			}
			feq.Residual = o.Fluid.Val[f]*mTotal - xSum
			feq.Jacobian[rows[o]][3+fi] = mTotal
			eqs = append(eqs, feq)
		}
	}
	return eqs, nil
}
