package plant

import (
	"math"

	"github.com/san-kum/thermnet/internal/fluid"
)

// InitFluids distributes composition information across the network: every
// connection ends up with a full fluid vector, seeded from user specified
// anchors and composition-generating components and propagated through
// composition-preserving ones.
func (s *System) InitFluids() error {
	for _, c := range s.conns {
		normalizeComposition(&c.Fluid, s.Fluids)
	}

	// single fluid networks are trivially determined
	if len(s.Fluids) == 1 {
		f := s.Fluids[0]
		for _, c := range s.conns {
			c.Fluid.Val[f] = 1
			c.Fluid.Val0[f] = 1
		}
		return nil
	}

	// composition generating components seed their outlets first
	for _, cp := range s.comps {
		if seeder, ok := cp.(FluidSeeder); ok {
			if err := seeder.SeedFluids(s); err != nil {
				return err
			}
			for i := range cp.OutletIDs() {
				s.propagateForward(cp.Out(i), make(map[*Connection]bool))
			}
		}
	}

	// flood from user anchors in both directions
	for _, c := range s.conns {
		if c.Fluid.AnySet() {
			s.propagateForward(c, make(map[*Connection]bool))
			s.propagateBackward(c, make(map[*Connection]bool))
		}
	}

	// every connection needs some composition guess now
	for _, c := range s.conns {
		sum := 0.0
		for _, x := range c.Fluid.Val {
			sum += x
		}
		if sum < 1e-10 {
			return &FluidPropagationError{Conn: c.String()}
		}
		for f, x := range c.Fluid.Val {
			c.Fluid.Val0[f] = x
		}
	}
	return nil
}

// propagateForward pushes the composition of c through its target while the
// target preserves composition.
func (s *System) propagateForward(c *Connection, visited map[*Connection]bool) {
	if visited[c] {
		return
	}
	visited[c] = true

	cp := c.Tgt
	if len(cp.OutletIDs()) == 0 {
		return
	}
	switch fluidRuleOf(cp) {
	case RulePass, RuleLanes:
		lane := slotIndex(cp.InletIDs(), c.TgtID)
		if lane < 0 || lane >= len(cp.OutletIDs()) {
			return
		}
		out := cp.Out(lane)
		copyComposition(c, out)
		s.propagateForward(out, visited)
	case RuleSplit:
		for i := range cp.OutletIDs() {
			out := cp.Out(i)
			copyComposition(c, out)
			s.propagateForward(out, visited)
		}
	case RuleMerge, RuleBreak:
		// merge outlets mix streams, combustion generates new species
	}
}

// propagateBackward pulls the composition of c through its source towards
// the network's sources.
func (s *System) propagateBackward(c *Connection, visited map[*Connection]bool) {
	if visited[c] {
		return
	}
	visited[c] = true

	cp := c.Src
	if len(cp.InletIDs()) == 0 {
		return
	}
	switch fluidRuleOf(cp) {
	case RulePass, RuleLanes:
		lane := slotIndex(cp.OutletIDs(), c.SrcID)
		if lane < 0 || lane >= len(cp.InletIDs()) {
			return
		}
		in := cp.In(lane)
		copyComposition(c, in)
		s.propagateBackward(in, visited)
	case RuleSplit:
		in := cp.In(0)
		copyComposition(c, in)
		s.propagateBackward(in, visited)
	case RuleMerge:
		// a merge outlet composition is a valid guess for all inlets
		for i := range cp.InletIDs() {
			in := cp.In(i)
			copyComposition(c, in)
			s.propagateBackward(in, visited)
		}
	case RuleBreak:
	}
}

// InitProperties generates starting values for every unset variable and
// resolves references, temperature and vapour fraction specifications into
// enthalpy starting values.
func (s *System) InitProperties() error {
	for _, c := range s.conns {
		for _, key := range []string{"m", "p", "h"} {
			q := c.Quantity(key)
			if q.Set {
				continue
			}
			if math.IsNaN(q.Val0) {
				q.Val0 = s.startingValue(c, key)
			}
			q.Val = q.Val0
		}
	}

	// linear references resolve after plain values exist
	for _, c := range s.conns {
		for _, key := range []string{"m", "p", "h"} {
			q := c.Quantity(key)
			if q.RefSet && !q.Set && q.Ref != nil {
				q.Val = q.Ref.Conn.Quantity(key).Val*q.Ref.Factor + q.Ref.Offset
			}
		}
	}

	for _, c := range s.conns {
		if c.X.Set && !c.H.Set {
			f := fluid.SingleFluid(c.Fluid.Val)
			if f != "" {
				h, err := s.Backend.HPureQ(f, c.P.Val, c.X.Val)
				if err != nil {
					return err
				}
				c.H.Val = h
			}
		}
		if c.T.Set && !c.H.Set {
			h, err := s.Backend.HmixPT(c.Flow(), c.T.Val)
			if err != nil {
				return err
			}
			c.H.Val = h
		}
	}
	return nil
}

// startingValue synthesizes a generic starting value from the hints of the
// attached components.
func (s *System) startingValue(c *Connection, key string) float64 {
	if key == "m" {
		return 1
	}
	var vs, vt float64
	if st, ok := c.Src.(Starter); ok {
		vs = st.StartingValue(c, key, true)
	}
	if st, ok := c.Tgt.(Starter); ok {
		vt = st.StartingValue(c, key, false)
	}
	switch {
	case vs == 0 && vt == 0:
		if key == "p" {
			return 1e5
		}
		return 1e6
	case vs == 0:
		return vt
	case vt == 0:
		return vs
	default:
		return (vs + vt) / 2
	}
}

// SavedConn is one connection's prior solved state, as produced by the
// persistence layer.
type SavedConn struct {
	M float64
	P float64
	H float64
	X map[string]float64
}

// ApplyWarmStart overwrites starting values of unset variables from a prior
// solved state, matched by connection key. A differing fluid set is a fatal
// configuration error.
func (s *System) ApplyWarmStart(prior map[string]SavedConn, priorFluids []string) error {
	if !sameFluids(s.Fluids, priorFluids) {
		return &WarmStartError{Want: s.Fluids, Got: priorFluids}
	}
	for _, c := range s.conns {
		saved, ok := prior[c.Key()]
		if !ok {
			continue
		}
		if !c.M.Set {
			c.M.Val = saved.M
		}
		if !c.P.Set {
			c.P.Val = saved.P
		}
		if !c.H.Set {
			c.H.Val = saved.H
		}
		for f, x := range saved.X {
			if !c.Fluid.Set[f] {
				c.Fluid.Val[f] = x
			}
		}
	}
	s.WarmStarted = true
	return nil
}

// PrimeFromDesign loads the design-case result, records the design value of
// every quantity an offdesign switch will pin, lets components derive their
// design parameters from it, then restores the current state. Used before an
// offdesign solve.
func (s *System) PrimeFromDesign(prior map[string]SavedConn, priorFluids []string) error {
	if !sameFluids(s.Fluids, priorFluids) {
		return &WarmStartError{Want: s.Fluids, Got: priorFluids}
	}
	type snapshot struct {
		m, p, h float64
		x       map[string]float64
	}
	saved := make(map[*Connection]snapshot, len(s.conns))
	for _, c := range s.conns {
		x := make(map[string]float64, len(c.Fluid.Val))
		for f, v := range c.Fluid.Val {
			x[f] = v
		}
		saved[c] = snapshot{m: c.M.Val, p: c.P.Val, h: c.H.Val, x: x}

		st, ok := prior[c.Key()]
		if !ok {
			continue
		}
		c.M.Val, c.P.Val, c.H.Val = st.M, st.P, st.H
		for f, v := range st.X {
			c.Fluid.Val[f] = v
		}

		for _, name := range c.Offdesign {
			q := c.Quantity(name)
			if q == nil {
				continue
			}
			switch name {
			case "m":
				q.DesignVal = c.M.Val
			case "p":
				q.DesignVal = c.P.Val
			case "h":
				q.DesignVal = c.H.Val
			case "T":
				if tv, err := s.Backend.TmixPH(c.Flow()); err == nil {
					q.DesignVal = tv
				}
			case "v":
				if v, err := s.Backend.VmixPH(c.Flow()); err == nil {
					q.DesignVal = c.M.Val * v
				}
			}
		}
	}

	for _, cp := range s.comps {
		if pp, ok := cp.(PostProcessor); ok {
			pp.CalcParameters(s, true)
		}
	}

	for _, c := range s.conns {
		st := saved[c]
		c.M.Val, c.P.Val, c.H.Val = st.m, st.p, st.h
		c.Fluid.Val = st.x
	}
	return nil
}

func normalizeComposition(f *Composition, fluids []string) {
	val := make(map[string]float64, len(fluids))
	val0 := make(map[string]float64, len(fluids))
	set := make(map[string]bool, len(fluids))
	for _, name := range fluids {
		switch {
		case f.Set[name]:
			val[name] = f.Val[name]
			val0[name] = f.Val[name]
			set[name] = true
		default:
			if x0, ok := f.Val0[name]; ok {
				val[name] = x0
				val0[name] = x0
			} else {
				val[name] = 0
				val0[name] = 0
			}
		}
	}
	f.Val, f.Val0, f.Set = val, val0, set
}

func copyComposition(from, to *Connection) {
	for f, x := range from.Fluid.Val {
		if !to.Fluid.Set[f] {
			to.Fluid.Val[f] = x
		}
	}
}

func sameFluids(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
