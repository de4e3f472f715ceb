package solver

import (
	"github.com/san-kum/thermnet/internal/fluid"
	"github.com/san-kum/thermnet/internal/plant"
)

// stabilize pulls the iterate back into the region where property lookups
// stay defined. Fraction and pure fluid clipping run on every iteration;
// the cruder mixture clipping and the component plausibility corrections
// only act on the first iterations of a cold start, before they would
// interfere with convergence.
func stabilize(sys *plant.System, iter int) {
	early := iter < 3 && !sys.WarmStarted

	for _, c := range sys.Conns() {
		for f, x := range c.Fluid.Val {
			if c.Fluid.Set[f] {
				continue
			}
			if x < 0 {
				c.Fluid.Val[f] = 0
			}
			if x > 1 {
				c.Fluid.Val[f] = 1
			}
		}

		if f := fluid.SingleFluid(c.Fluid.Val); f != "" {
			clipPure(sys, c, f)
		} else if early {
			clipMixture(sys, c)
		}
	}

	if early {
		for _, cp := range sys.Comps() {
			if cc, ok := cp.(plant.ConvergenceChecker); ok {
				cc.ConvergenceCheck(sys)
			}
		}
	}
}

// clipPure keeps pressure and enthalpy of a pure stream inside the fluid's
// property domain, with a margin off the table ends.
func clipPure(sys *plant.System, c *plant.Connection, f string) {
	pmin, pmax, tmin, tmax, err := sys.Backend.Range(f)
	if err != nil {
		return
	}
	if !c.P.Set {
		if c.P.Val < pmin*1.1 {
			c.P.Val = pmin * 1.1
		}
		if c.P.Val > pmax*0.9 {
			c.P.Val = pmax * 0.9
		}
	}
	if !c.H.Set {
		if hmin, err := sys.Backend.HPureTP(f, c.P.Val, tmin); err == nil && c.H.Val < hmin {
			if hmin < 0 {
				c.H.Val = hmin / 3
			} else {
				c.H.Val = hmin * 3
			}
		}
		if hmax, err := sys.Backend.HPureTP(f, c.P.Val, tmax); err == nil && c.H.Val > hmax {
			c.H.Val = hmax * 0.9
		}
	}
}

// clipMixture keeps mixture states inside the network-wide ranges.
func clipMixture(sys *plant.System, c *plant.Connection) {
	if !c.P.Set {
		if c.P.Val < sys.PRange[0] {
			c.P.Val = sys.PRange[0]
		}
		if c.P.Val > sys.PRange[1] {
			c.P.Val = sys.PRange[1]
		}
	}
	if !c.H.Set {
		if c.H.Val < sys.HRange[0] {
			c.H.Val = sys.HRange[0]
		}
		if c.H.Val > sys.HRange[1] {
			c.H.Val = sys.HRange[1]
		}
	}
}
