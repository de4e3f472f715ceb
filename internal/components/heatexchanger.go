package components

import (
	"math"

	"github.com/san-kum/thermnet/internal/fluid"
	"github.com/san-kum/thermnet/internal/plant"
	"github.com/san-kum/thermnet/internal/solver"
)

// HeatExchanger couples a hot lane (in1/out1) to a cold lane (in2/out2)
// without mixing them. Parameters: heat duty Q, heat transfer coefficient
// kA, upper and lower terminal temperature differences ttd_u and ttd_l,
// and per-lane pressure ratios pr1/pr2 and friction factors zeta1/zeta2.
type HeatExchanger struct {
	Base

	// hotEndTemp overrides the hot-side temperature used for ttd_u;
	// condensers measure against the condensing temperature.
	hotEndTemp func(sys *plant.System) (float64, error)
}

func NewHeatExchanger(label string) *HeatExchanger {
	h := &HeatExchanger{Base: newBase(label, 2, 2)}
	h.design = []string{"ttd_u", "ttd_l", "pr1", "pr2"}
	h.offdsgn = []string{"zeta1", "zeta2", "kA"}
	return h
}

// FluidRule keeps the two lanes separate.
func (h *HeatExchanger) FluidRule() plant.FluidRule {
	return plant.RuleLanes
}

func (h *HeatExchanger) Vars() []*plant.Parameter {
	return h.varsOf("Q", "kA")
}

func (h *HeatExchanger) varPos(name string) int {
	for i, p := range h.Vars() {
		if p == h.params[name] {
			return i
		}
	}
	return -1
}

func (h *HeatExchanger) Equations(sys *plant.System) ([]plant.Equation, error) {
	hin, cin := h.In(0), h.In(1)
	hout, cout := h.Out(0), h.Out(1)
	nv := len(h.Vars())

	// per-lane mass balances
	m1 := newEq(sys, 4, nv)
	m1.Residual = hin.M.Val - hout.M.Val
	m1.Jacobian[0][0] = 1
	m1.Jacobian[2][0] = -1
	m2 := newEq(sys, 4, nv)
	m2.Residual = cin.M.Val - cout.M.Val
	m2.Jacobian[1][0] = 1
	m2.Jacobian[3][0] = -1
	eqs := []plant.Equation{m1, m2}

	eqs = append(eqs, fluidResiduals(sys, 0, 2, 4, hin, hout, nv)...)
	eqs = append(eqs, fluidResiduals(sys, 1, 3, 4, cin, cout, nv)...)

	// energy balance across both lanes
	en := newEq(sys, 4, nv)
	en.Residual = hin.M.Val*(hout.H.Val-hin.H.Val) + cin.M.Val*(cout.H.Val-cin.H.Val)
	en.Jacobian[0][0] = hout.H.Val - hin.H.Val
	en.Jacobian[0][2] = -hin.M.Val
	en.Jacobian[2][2] = hin.M.Val
	en.Jacobian[1][0] = cout.H.Val - cin.H.Val
	en.Jacobian[1][2] = -cin.M.Val
	en.Jacobian[3][2] = cin.M.Val
	eqs = append(eqs, en)

	if q := h.params["Q"]; active(q) {
		eq := newEq(sys, 4, nv)
		eq.Residual = hin.M.Val*(hout.H.Val-hin.H.Val) - q.Val
		eq.Jacobian[0][0] = hout.H.Val - hin.H.Val
		eq.Jacobian[0][2] = -hin.M.Val
		eq.Jacobian[2][2] = hin.M.Val
		if pos := h.varPos("Q"); q.IsVar && pos >= 0 {
			eq.VarJacobian[pos] = -1
		}
		eqs = append(eqs, eq)
	}
	if ka := h.params["kA"]; active(ka) {
		eq, err := h.kAResidual(sys, ka)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if ttd := h.params["ttd_u"]; active(ttd) {
		eq, err := h.ttdUpperResidual(sys, ttd.Val)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if ttd := h.params["ttd_l"]; active(ttd) {
		eq, err := h.ttdResidual(sys, ttd.Val, hout, cin, 2, 1)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if pr := h.params["pr1"]; active(pr) {
		eqs = append(eqs, pressureRatioResidual(sys, 0, 2, 4, hin, hout, pr, nv, -1))
	}
	if pr := h.params["pr2"]; active(pr) {
		eqs = append(eqs, pressureRatioResidual(sys, 1, 3, 4, cin, cout, pr, nv, -1))
	}
	if zeta := h.params["zeta1"]; active(zeta) {
		eq, err := h.laneZeta(sys, hin, hout, 0, 2, zeta)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if zeta := h.params["zeta2"]; active(zeta) {
		eq, err := h.laneZeta(sys, cin, cout, 1, 3, zeta)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	return eqs, nil
}

func (h *HeatExchanger) NumEquations(sys *plant.System) int {
	n := 3 + 2*len(sys.Fluids)
	for _, name := range []string{"Q", "kA", "ttd_u", "ttd_l", "pr1", "pr2", "zeta1", "zeta2"} {
		if active(h.params[name]) {
			n++
		}
	}
	return n
}

// ttdUpperResidual is ttd_u - (T_hot,in - T_cold,out), with the hot-side
// temperature taken from hotEndTemp when set.
func (h *HeatExchanger) ttdUpperResidual(sys *plant.System, ttd float64) (plant.Equation, error) {
	hin, cout := h.In(0), h.Out(1)
	if h.hotEndTemp == nil {
		return h.ttdResidual(sys, ttd, hin, cout, 0, 3)
	}
	res := func() (float64, error) {
		th, err := h.hotEndTemp(sys)
		if err != nil {
			return 0, err
		}
		tc, err := sys.Backend.TmixPH(cout.Flow())
		if err != nil {
			return 0, err
		}
		return ttd - (th - tc), nil
	}

	eq := newEq(sys, 4, len(h.Vars()))
	r, err := res()
	if err != nil {
		return eq, err
	}
	eq.Residual = r
	for _, rc := range []struct {
		row int
		c   *plant.Connection
	}{{0, hin}, {3, cout}} {
		for _, col := range []int{1, 2} {
			d, err := solver.NumericDeriv(sys, res, rc.c, col)
			if err != nil {
				return eq, err
			}
			eq.Jacobian[rc.row][col] = d
		}
	}
	return eq, nil
}

// ttdResidual is ttd - (T_hot - T_cold) at one end of the exchanger.
func (h *HeatExchanger) ttdResidual(sys *plant.System, ttd float64, hot, cold *plant.Connection, rowHot, rowCold int) (plant.Equation, error) {
	res := func() (float64, error) {
		th, err := sys.Backend.TmixPH(hot.Flow())
		if err != nil {
			return 0, err
		}
		tc, err := sys.Backend.TmixPH(cold.Flow())
		if err != nil {
			return 0, err
		}
		return ttd - (th - tc), nil
	}

	eq := newEq(sys, 4, len(h.Vars()))
	r, err := res()
	if err != nil {
		return eq, err
	}
	eq.Residual = r
	for _, rc := range []struct {
		row int
		c   *plant.Connection
	}{{rowHot, hot}, {rowCold, cold}} {
		for _, col := range []int{1, 2} {
			d, err := solver.NumericDeriv(sys, res, rc.c, col)
			if err != nil {
				return eq, err
			}
			eq.Jacobian[rc.row][col] = d
		}
	}
	return eq, nil
}

// kAResidual is m1*(h_out1-h_in1) + kA*lmtd with the log mean of the two
// terminal temperature differences.
func (h *HeatExchanger) kAResidual(sys *plant.System, ka *plant.Parameter) (plant.Equation, error) {
	hin, cin := h.In(0), h.In(1)
	hout, cout := h.Out(0), h.Out(1)

	lmtd := func() (float64, error) {
		thIn, err := sys.Backend.TmixPH(hin.Flow())
		if err != nil {
			return 0, err
		}
		thOut, err := sys.Backend.TmixPH(hout.Flow())
		if err != nil {
			return 0, err
		}
		tcIn, err := sys.Backend.TmixPH(cin.Flow())
		if err != nil {
			return 0, err
		}
		tcOut, err := sys.Backend.TmixPH(cout.Flow())
		if err != nil {
			return 0, err
		}
		du := thIn - tcOut
		dl := thOut - tcIn
		if du < 0 {
			du = dl / 50
		}
		if dl < 0 {
			dl = du / 50
		}
		if du == dl {
			return du, nil
		}
		return (du - dl) / math.Log(du/dl), nil
	}
	res := func() (float64, error) {
		lm, err := lmtd()
		if err != nil {
			return 0, err
		}
		return hin.M.Val*(hout.H.Val-hin.H.Val) + ka.Val*lm, nil
	}

	eq := newEq(sys, 4, len(h.Vars()))
	r, err := res()
	if err != nil {
		return eq, err
	}
	eq.Residual = r
	conns := []*plant.Connection{hin, cin, hout, cout}
	for row, c := range conns {
		for _, col := range []int{0, 1, 2} {
			if col == 0 && row != 0 {
				continue
			}
			d, err := solver.NumericDeriv(sys, res, c, col)
			if err != nil {
				return eq, err
			}
			eq.Jacobian[row][col] = d
		}
	}
	if pos := h.varPos("kA"); ka.IsVar && pos >= 0 {
		lm, err := lmtd()
		if err != nil {
			return eq, err
		}
		eq.VarJacobian[pos] = lm
	}
	return eq, nil
}

func (h *HeatExchanger) laneZeta(sys *plant.System, cin, cout *plant.Connection, rowIn, rowOut int, zeta *plant.Parameter) (plant.Equation, error) {
	lane, err := zetaEquation(sys, cin, cout, zeta, len(h.Vars()))
	if err != nil {
		return lane, err
	}
	// remap the two-row lane jacobian into the four-row layout
	eq := newEq(sys, 4, len(h.Vars()))
	eq.Residual = lane.Residual
	eq.Jacobian[rowIn] = lane.Jacobian[0]
	eq.Jacobian[rowOut] = lane.Jacobian[1]
	return eq, nil
}

func (h *HeatExchanger) StartingValue(c *plant.Connection, key string, outgoing bool) float64 {
	switch key {
	case "p":
		return 1e5
	case "h":
		if outgoing {
			return 2e5
		}
		return 5e5
	}
	return 0
}

// ConvergenceCheck keeps the hot lane hotter than the cold lane while the
// solution is still far off.
func (h *HeatExchanger) ConvergenceCheck(sys *plant.System) {
	hin, cin := h.In(0), h.In(1)
	hout, cout := h.Out(0), h.Out(1)
	if !hout.H.Set && hout.H.Val > hin.H.Val {
		hout.H.Val = hin.H.Val * 0.9
	}
	if !cout.H.Set && cout.H.Val < cin.H.Val {
		cout.H.Val = cin.H.Val * 1.1
	}
}

// BusValue reports the duty transferred out of the hot lane.
func (h *HeatExchanger) BusValue() float64 {
	hin, hout := h.In(0), h.Out(0)
	return hin.M.Val * (hout.H.Val - hin.H.Val)
}

func (h *HeatExchanger) CalcParameters(sys *plant.System, design bool) {
	hin, cin := h.In(0), h.In(1)
	hout, cout := h.Out(0), h.Out(1)

	q := h.Param("Q")
	qVal := hin.M.Val * (hout.H.Val - hin.H.Val)
	if design {
		q.DesignVal = qVal
	}
	if !q.Set {
		q.Val = qVal
	}

	for _, lane := range []struct {
		name     string
		in, out  *plant.Connection
		zetaName string
	}{
		{"pr1", hin, hout, "zeta1"},
		{"pr2", cin, cout, "zeta2"},
	} {
		pr := h.Param(lane.name)
		prVal := lane.out.P.Val / lane.in.P.Val
		if design {
			pr.DesignVal = prVal
		}
		if !pr.Set {
			pr.Val = prVal
		}
		zeta := h.Param(lane.zetaName)
		vin, err1 := sys.Backend.VmixPH(lane.in.Flow())
		vout, err2 := sys.Backend.VmixPH(lane.out.Flow())
		if err1 == nil && err2 == nil && lane.in.M.Val != 0 {
			z := (lane.in.P.Val - lane.out.P.Val) * math.Pi * math.Pi /
				(8 * lane.in.M.Val * lane.in.M.Val * (vin + vout) / 2)
			if design {
				zeta.DesignVal = z
			}
			if !zeta.Set {
				zeta.Val = z
			}
		}
	}

	thIn, e1 := sys.Backend.TmixPH(hin.Flow())
	thOut, e2 := sys.Backend.TmixPH(hout.Flow())
	tcIn, e3 := sys.Backend.TmixPH(cin.Flow())
	tcOut, e4 := sys.Backend.TmixPH(cout.Flow())
	if e1 == nil && e2 == nil && e3 == nil && e4 == nil {
		du, dl := thIn-tcOut, thOut-tcIn
		for _, p := range []struct {
			name string
			val  float64
		}{{"ttd_u", du}, {"ttd_l", dl}} {
			par := h.Param(p.name)
			if design {
				par.DesignVal = p.val
			}
			if !par.Set {
				par.Val = p.val
			}
		}
		if du > 0 && dl > 0 {
			lm := du
			if du != dl {
				lm = (du - dl) / math.Log(du/dl)
			}
			if lm != 0 {
				ka := h.Param("kA")
				kaVal := -qVal / lm
				if design {
					ka.DesignVal = kaVal
				}
				if !ka.Set {
					ka.Val = kaVal
				}
			}
		}
	}
}

// Condenser is a heat exchanger whose hot stream leaves as saturated
// liquid.
type Condenser struct {
	HeatExchanger
}

func NewCondenser(label string) *Condenser {
	c := &Condenser{HeatExchanger{Base: newBase(label, 2, 2)}}
	c.design = []string{"ttd_u", "pr1", "pr2"}
	c.offdsgn = []string{"zeta1", "zeta2", "kA"}
	// ttd_u measures against the condensing temperature, not the hot
	// inlet temperature
	c.hotEndTemp = func(sys *plant.System) (float64, error) {
		hin := c.In(0)
		f := fluid.SingleFluid(hin.Fluid.Val)
		if f == "" {
			return 0, &fluid.PropertyError{Fluid: "mixture", Probe: "Tsat(p)", P: hin.P.Val}
		}
		return sys.Backend.Tsat(f, hin.P.Val)
	}
	return c
}

func (c *Condenser) Equations(sys *plant.System) ([]plant.Equation, error) {
	eqs, err := c.HeatExchanger.Equations(sys)
	if err != nil {
		return nil, err
	}
	// hot stream leaves on the boiling line
	eq, err := saturationResidual(sys, c.Out(0), 2, 4, 0, len(c.Vars()))
	if err != nil {
		return nil, err
	}
	return append(eqs, eq), nil
}

func (c *Condenser) NumEquations(sys *plant.System) int {
	return c.HeatExchanger.NumEquations(sys) + 1
}
