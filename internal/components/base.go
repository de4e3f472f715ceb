// Package components implements the plant component variants: sources and
// sinks, valves, turbomachinery, heat exchangers, flow nodes, drums and
// combustion chambers. Every variant composes the shared equation fragments
// from fragments.go and contributes residuals only for the parameters the
// user has set.
package components

import (
	"fmt"

	"github.com/san-kum/thermnet/internal/plant"
)

// Base carries the bookkeeping every component shares: label, slots,
// attached connections, parameter table and mode switch lists.
type Base struct {
	label   string
	inIDs   []string
	outIDs  []string
	in      []*plant.Connection
	out     []*plant.Connection
	params  map[string]*plant.Parameter
	design  []string
	offdsgn []string
	manual  bool
}

func newBase(label string, numIn, numOut int) Base {
	b := Base{
		label:  label,
		params: make(map[string]*plant.Parameter),
	}
	for i := 1; i <= numIn; i++ {
		b.inIDs = append(b.inIDs, fmt.Sprintf("in%d", i))
	}
	for i := 1; i <= numOut; i++ {
		b.outIDs = append(b.outIDs, fmt.Sprintf("out%d", i))
	}
	return b
}

func (b *Base) Label() string       { return b.label }
func (b *Base) InletIDs() []string  { return b.inIDs }
func (b *Base) OutletIDs() []string { return b.outIDs }

func (b *Base) Attach(in, out []*plant.Connection) {
	b.in, b.out = in, out
}

func (b *Base) In(i int) *plant.Connection  { return b.in[i] }
func (b *Base) Out(i int) *plant.Connection { return b.out[i] }

func (b *Base) Params() map[string]*plant.Parameter { return b.params }
func (b *Base) DesignParams() []string              { return b.design }
func (b *Base) OffdesignParams() []string           { return b.offdsgn }
func (b *Base) AutoSwitch() bool                    { return !b.manual }

// SetManual opts the component out of automatic design/offdesign switching.
func (b *Base) SetManual(manual bool) { b.manual = manual }

// Param returns the named parameter, creating it on first use.
func (b *Base) Param(name string) *plant.Parameter {
	p, ok := b.params[name]
	if !ok {
		p = plant.NewParameter()
		b.params[name] = p
	}
	return p
}

// Set specifies a plain parameter value.
func (b *Base) Set(name string, val float64) { b.Param(name).Specify(val) }

// PreInit is a no-op default; variants with characteristics or
// stoichiometry precomputation override it.
func (b *Base) PreInit(sys *plant.System) error { return nil }

// vars lists the parameters registered as free system variables, in a
// stable name order.
func (b *Base) varsOf(names ...string) []*plant.Parameter {
	var out []*plant.Parameter
	for _, n := range names {
		if p, ok := b.params[n]; ok && p.IsVar {
			out = append(out, p)
		}
	}
	return out
}

func active(p *plant.Parameter) bool { return p != nil && (p.Set || p.IsVar) }
