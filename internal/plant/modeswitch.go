package plant

import "math"

// SwitchToOffdesign toggles every auto-switching component and every
// connection from the design to the offdesign parameter set. Offdesign
// component parameters take their stored design-case value; offdesign
// connection parameters pin the design-case result recorded by
// PrimeFromDesign, falling back to the current value when the design was
// solved in process.
func (s *System) SwitchToOffdesign() {
	for _, cp := range s.comps {
		if !cp.AutoSwitch() {
			continue
		}
		params := cp.Params()
		for _, name := range cp.DesignParams() {
			if p, ok := params[name]; ok && p.Set {
				p.Set = false
			}
		}
		for _, name := range cp.OffdesignParams() {
			if p, ok := params[name]; ok && !p.Set {
				p.Set = true
				if !p.IsVar {
					p.Val = p.DesignVal
				}
			}
		}
	}

	for _, c := range s.conns {
		for _, name := range c.Design {
			if q := c.Quantity(name); q != nil {
				q.Set = false
				q.RefSet = false
			}
		}
		for _, name := range c.Offdesign {
			if q := c.Quantity(name); q != nil {
				q.Set = true
				if !math.IsNaN(q.DesignVal) {
					q.Val = q.DesignVal
				}
			}
		}
	}
	s.Mode = Offdesign
}
