package plant

import (
	"fmt"

	"github.com/san-kum/thermnet/internal/fluid"
)

// Connection is a directed edge from a component outlet to a component
// inlet. It owns the physical state of the stream: mass flow, pressure,
// enthalpy plus the optional temperature, vapour fraction and volumetric
// flow specifications, and the fluid composition.
type Connection struct {
	Src   Component
	SrcID string
	Tgt   Component
	TgtID string

	M Quantity // mass flow, kg/s
	P Quantity // pressure, Pa
	H Quantity // enthalpy, J/kg
	T Quantity // temperature spec, K
	X Quantity // vapour mass fraction spec
	V Quantity // volumetric flow spec, m3/s

	Fluid Composition

	// parameter names cleared/applied on a mode switch
	Design    []string
	Offdesign []string
}

// NewConnection links src:srcID to tgt:tgtID with everything unset.
func NewConnection(src Component, srcID string, tgt Component, tgtID string) *Connection {
	return &Connection{
		Src: src, SrcID: srcID, Tgt: tgt, TgtID: tgtID,
		M: NewQuantity(), P: NewQuantity(), H: NewQuantity(),
		T: NewQuantity(), X: NewQuantity(), V: NewQuantity(),
		Fluid: NewComposition(),
	}
}

// Key identifies the connection in persisted state: target label and slot.
func (c *Connection) Key() string {
	return c.Tgt.Label() + ":" + c.TgtID
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s:%s -> %s:%s", c.Src.Label(), c.SrcID, c.Tgt.Label(), c.TgtID)
}

// Quantity returns the quantity for a variable name (m, p, h, T, x, v).
func (c *Connection) Quantity(name string) *Quantity {
	switch name {
	case "m":
		return &c.M
	case "p":
		return &c.P
	case "h":
		return &c.H
	case "T":
		return &c.T
	case "x":
		return &c.X
	case "v":
		return &c.V
	}
	return nil
}

// Flow snapshots the connection state for property lookups.
func (c *Connection) Flow() fluid.Flow {
	return fluid.Flow{M: c.M.Val, P: c.P.Val, H: c.H.Val, X: c.Fluid.Val}
}
