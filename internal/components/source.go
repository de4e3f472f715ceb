package components

import "github.com/san-kum/thermnet/internal/plant"

// Source feeds a stream into the network. It contributes no equations; the
// stream state is fixed entirely by the attached connection's
// parametrisation.
type Source struct {
	Base
}

func NewSource(label string) *Source {
	return &Source{Base: newBase(label, 0, 1)}
}

func (s *Source) Equations(sys *plant.System) ([]plant.Equation, error) {
	return nil, nil
}

func (s *Source) NumEquations(sys *plant.System) int { return 0 }

// Sink absorbs a stream leaving the network.
type Sink struct {
	Base
}

func NewSink(label string) *Sink {
	return &Sink{Base: newBase(label, 1, 0)}
}

func (s *Sink) Equations(sys *plant.System) ([]plant.Equation, error) {
	return nil, nil
}

func (s *Sink) NumEquations(sys *plant.System) int { return 0 }
