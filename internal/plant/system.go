package plant

import (
	"fmt"
	"sort"

	"github.com/san-kum/thermnet/internal/fluid"
)

// Mode selects the parameter set of a solve.
type Mode string

const (
	Design    Mode = "design"
	Offdesign Mode = "offdesign"
)

// System is the network context threaded through initialisation, assembly
// and solving. It owns the canonical component, connection and bus lists
// for the duration of one solve.
type System struct {
	Fluids  []string
	Backend *fluid.Backend

	conns  []*Connection
	comps  []Component
	busses []*Bus

	// mixture clipping ranges, SI
	PRange [2]float64
	HRange [2]float64
	TRange [2]float64

	Mode        Mode
	WarmStarted bool

	checked   bool
	preInited bool
}

// NewSystem creates a network for the given fluid set.
func NewSystem(fluids []string) (*System, error) {
	be, err := fluid.NewBackend(fluids)
	if err != nil {
		return nil, err
	}
	return &System{
		Fluids:  be.Fluids(),
		Backend: be,
		PRange:  [2]float64{2e2, 300e5},
		HRange:  [2]float64{1e3, 7e6},
		TRange:  [2]float64{273.16, 1773.15},
		Mode:    Design,
	}, nil
}

// NumVars is the number of system variables per connection.
func (s *System) NumVars() int { return 3 + len(s.Fluids) }

// FluidIndex returns the position of a fluid in the per-connection variable
// block (after m, p, h), or -1.
func (s *System) FluidIndex(name string) int {
	for i, f := range s.Fluids {
		if f == name {
			return 3 + i
		}
	}
	return -1
}

// Conns returns the connections in declaration order.
func (s *System) Conns() []*Connection { return s.conns }

// Comps returns the components sorted by label. Valid after Check.
func (s *System) Comps() []Component { return s.comps }

// Busses returns the registered busses.
func (s *System) Busses() []*Bus { return s.busses }

// ConnIndex returns a connection's position in the system vector layout.
func (s *System) ConnIndex(c *Connection) int {
	for i, have := range s.conns {
		if have == c {
			return i
		}
	}
	return -1
}

// AddConns registers connections. Source and target slots must not already
// be in use.
func (s *System) AddConns(conns ...*Connection) error {
	for _, c := range conns {
		for _, have := range s.conns {
			if have.Src == c.Src && have.SrcID == c.SrcID {
				return &TopologyError{Component: c.Src.Label(),
					Msg: fmt.Sprintf("outlet %s already connected", c.SrcID)}
			}
			if have.Tgt == c.Tgt && have.TgtID == c.TgtID {
				return &TopologyError{Component: c.Tgt.Label(),
					Msg: fmt.Sprintf("inlet %s already connected", c.TgtID)}
			}
		}
		s.conns = append(s.conns, c)
		s.checked = false
	}
	return nil
}

// AddBusses registers busses; labels must be unique.
func (s *System) AddBusses(busses ...*Bus) error {
	for _, b := range busses {
		for _, have := range s.busses {
			if have.Label == b.Label {
				return fmt.Errorf("bus %q already in network", b.Label)
			}
		}
		s.busses = append(s.busses, b)
	}
	return nil
}

// Check validates the topology: collects components from the connections,
// verifies unique labels, verifies every declared slot has exactly one
// incident connection, and attaches connections to components in slot
// order. Fatal before any numeric work.
func (s *System) Check() error {
	if len(s.conns) == 0 {
		return &TopologyError{Msg: "network has no connections"}
	}

	seen := make(map[Component]bool)
	byLabel := make(map[string]Component)
	s.comps = s.comps[:0]
	for _, c := range s.conns {
		for _, cp := range []Component{c.Src, c.Tgt} {
			if seen[cp] {
				continue
			}
			if other, ok := byLabel[cp.Label()]; ok && other != cp {
				return &TopologyError{Component: cp.Label(), Msg: "duplicate component label"}
			}
			seen[cp] = true
			byLabel[cp.Label()] = cp
			s.comps = append(s.comps, cp)
		}
	}
	sort.Slice(s.comps, func(i, j int) bool { return s.comps[i].Label() < s.comps[j].Label() })

	for _, cp := range s.comps {
		in := make([]*Connection, len(cp.InletIDs()))
		out := make([]*Connection, len(cp.OutletIDs()))
		for _, c := range s.conns {
			if c.Tgt == cp {
				i := slotIndex(cp.InletIDs(), c.TgtID)
				if i < 0 {
					return &TopologyError{Component: cp.Label(),
						Msg: fmt.Sprintf("unknown inlet %q", c.TgtID)}
				}
				in[i] = c
			}
			if c.Src == cp {
				i := slotIndex(cp.OutletIDs(), c.SrcID)
				if i < 0 {
					return &TopologyError{Component: cp.Label(),
						Msg: fmt.Sprintf("unknown outlet %q", c.SrcID)}
				}
				out[i] = c
			}
		}
		for i, c := range in {
			if c == nil {
				return &TopologyError{Component: cp.Label(),
					Msg: fmt.Sprintf("inlet %s not connected", cp.InletIDs()[i])}
			}
		}
		for i, c := range out {
			if c == nil {
				return &TopologyError{Component: cp.Label(),
					Msg: fmt.Sprintf("outlet %s not connected", cp.OutletIDs()[i])}
			}
		}
		cp.Attach(in, out)
	}

	s.checked = true
	return nil
}

// Checked reports whether the topology check has passed since the last
// mutation.
func (s *System) Checked() bool { return s.checked }

// PreInit runs every component's one-time preprocessing.
func (s *System) PreInit() error {
	for _, cp := range s.comps {
		if err := cp.PreInit(s); err != nil {
			return fmt.Errorf("pre-init %s: %w", cp.Label(), err)
		}
	}
	s.preInited = true
	return nil
}

func slotIndex(ids []string, id string) int {
	for i, have := range ids {
		if have == id {
			return i
		}
	}
	return -1
}
