package plant

import "fmt"

// BusEntry attaches one component to a bus, optionally weighted by a
// characteristic evaluated at the component's relative load against Ref.
type BusEntry struct {
	Comp Component
	// Param names the aggregated quantity for persistence ("P", "Q").
	Param string
	// Ref is the design-case value of the component's contribution; the
	// characteristic argument is value/Ref.
	Ref  float64
	Char *CharLine
}

// Factor evaluates the characteristic weight for a raw contribution.
func (e *BusEntry) Factor(val float64) float64 {
	if e.Char == nil {
		return 1
	}
	x := 1.0
	if e.Ref != 0 {
		x = val / e.Ref
	}
	return e.Char.Evaluate(x)
}

// Bus aggregates the energy flows of selected components. With a target
// total set it contributes one equation to the system.
type Bus struct {
	Label   string
	Total   Quantity
	Entries []*BusEntry
}

// NewBus returns an empty bus.
func NewBus(label string) *Bus {
	return &Bus{Label: label, Total: NewQuantity()}
}

// Add appends a component entry. A component may appear at most once per
// distinct parameter.
func (b *Bus) Add(e *BusEntry) error {
	for _, have := range b.Entries {
		if have.Comp == e.Comp && have.Param == e.Param {
			return fmt.Errorf("bus %s: component %s already registered for %q", b.Label, e.Comp.Label(), e.Param)
		}
	}
	b.Entries = append(b.Entries, e)
	return nil
}

// Value sums the current weighted contributions of all entries.
func (b *Bus) Value() float64 {
	var total float64
	for _, e := range b.Entries {
		if es, ok := e.Comp.(EnergySupplier); ok {
			v := es.BusValue()
			total += v * e.Factor(v)
		}
	}
	return total
}
