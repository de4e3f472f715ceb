package components

import "github.com/san-kum/thermnet/internal/plant"

// Subsystem bundles a reusable group of components and their internal
// connections, e.g. a feedwater preheater train. The group is wired into a
// network by adding its connections; interface connections to the
// surrounding plant stay the caller's responsibility.
type Subsystem struct {
	label string
	conns []*plant.Connection
}

func NewSubsystem(label string) *Subsystem {
	return &Subsystem{label: label}
}

func (s *Subsystem) Label() string { return s.label }

func (s *Subsystem) Add(conns ...*plant.Connection) {
	s.conns = append(s.conns, conns...)
}

func (s *Subsystem) Connections() []*plant.Connection { return s.conns }

// AddTo registers the subsystem's internal connections with the network.
func (s *Subsystem) AddTo(sys *plant.System) error {
	return sys.AddConns(s.conns...)
}
