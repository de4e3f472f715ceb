package components

import "github.com/san-kum/thermnet/internal/plant"

// Drum separates a two-phase stream into saturated liquid (out1, to the
// evaporator circulation) and saturated vapour (out2). Feedwater enters at
// in1, the evaporator return at in2. All four connections share one
// pressure.
type Drum struct {
	Base
}

func NewDrum(label string) *Drum {
	return &Drum{Base: newBase(label, 2, 2)}
}

func (d *Drum) FluidRule() plant.FluidRule {
	return plant.RuleSplit
}

func (d *Drum) NumEquations(sys *plant.System) int {
	return 6 + len(sys.Fluids)
}

func (d *Drum) Equations(sys *plant.System) ([]plant.Equation, error) {
	eqs := []plant.Equation{massFlowResidual(sys, d.in, d.out, 0)}
	eqs = append(eqs, fluidResiduals(sys, 0, 2, 4, d.In(0), d.Out(0), 0)...)

	for _, c := range []*plant.Connection{d.In(1), d.Out(0), d.Out(1)} {
		eqs = append(eqs, equalityResidual(sys, 0, rowOf(d, c), 4, 1, d.In(0), c, 0))
	}

	liq, err := saturationResidual(sys, d.Out(0), 2, 4, 0, 0)
	if err != nil {
		return nil, err
	}
	vap, err := saturationResidual(sys, d.Out(1), 3, 4, 1, 0)
	if err != nil {
		return nil, err
	}
	return append(eqs, liq, vap), nil
}

func rowOf(d *Drum, c *plant.Connection) int {
	for i, x := range d.in {
		if x == c {
			return i
		}
	}
	for i, x := range d.out {
		if x == c {
			return len(d.in) + i
		}
	}
	return -1
}

func (d *Drum) StartingValue(c *plant.Connection, key string, outgoing bool) float64 {
	switch key {
	case "p":
		return 10e5
	case "h":
		if outgoing {
			return 1e6
		}
		return 5e5
	}
	return 0
}

// ConvergenceCheck keeps the drum pressure inside the saturation curve's
// validity while the solution is still far off.
func (d *Drum) ConvergenceCheck(sys *plant.System) {
	c := d.Out(0)
	if c.P.Set {
		return
	}
	lo, hi := sys.PRange[0]*1.1, sys.PRange[1]*0.9
	if c.P.Val < lo {
		c.P.Val = lo
	}
	if c.P.Val > hi {
		c.P.Val = hi
	}
}
