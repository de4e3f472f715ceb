// Package plant holds the data model of a thermal plant network: connections
// carrying the physical state between component slots, the component
// contract, busses and characteristic lines, and the network container with
// its initialisation phases.
package plant

import (
	"math"
	"sort"
)

// Quantity is one physical variable on a connection: the current SI value,
// the user-set flag, a starting value for the solver and an optional linear
// reference to the same variable on another connection. DesignVal holds the
// design-case result a mode switch pins the value to.
type Quantity struct {
	Val       float64
	Set       bool
	Val0      float64
	DesignVal float64
	Ref       *Ref
	RefSet    bool
}

// NewQuantity returns an unset quantity with no starting value.
func NewQuantity() Quantity {
	return Quantity{Val: math.NaN(), Val0: math.NaN(), DesignVal: math.NaN()}
}

// Specify sets the value and marks it user-set.
func (q *Quantity) Specify(v float64) {
	q.Val = v
	q.Set = true
}

// Unset clears the user-set flag and the value.
func (q *Quantity) Unset() {
	q.Set = false
	q.Val = math.NaN()
}

// Ref expresses val = Factor*other.val + Offset against another connection.
// The link is by connection identity and resolved at assembly time.
type Ref struct {
	Conn   *Connection
	Factor float64
	Offset float64
}

// Composition is the fluid vector of a connection: mass fraction, starting
// value and set flag per network fluid, plus the balance flag meaning the
// unset fractions close the sum to one.
type Composition struct {
	Val     map[string]float64
	Val0    map[string]float64
	Set     map[string]bool
	Balance bool
}

// NewComposition returns an empty composition.
func NewComposition() Composition {
	return Composition{
		Val:  make(map[string]float64),
		Val0: make(map[string]float64),
		Set:  make(map[string]bool),
	}
}

// Specify sets the fraction of one fluid and marks it user-set.
func (c *Composition) Specify(fluid string, x float64) {
	c.Val[fluid] = x
	c.Val0[fluid] = x
	c.Set[fluid] = true
}

// AnySet reports whether any fraction is user-set.
func (c *Composition) AnySet() bool {
	for _, s := range c.Set {
		if s {
			return true
		}
	}
	return false
}

// Parameter is one typed component parameter: a plain value, a free variable
// solved for by the system, or a characteristic line reference.
type Parameter struct {
	Val       float64
	Set       bool
	IsVar     bool // solved as part of the system vector
	Min, Max  float64
	DesignVal float64 // stored design-case result, used after a mode switch
	Char      *CharLine
	CharSet   bool
}

// NewParameter returns an unset parameter with wide bounds.
func NewParameter() *Parameter {
	return &Parameter{Val: math.NaN(), Min: -math.MaxFloat64, Max: math.MaxFloat64}
}

// Specify sets the value and marks the parameter user-set.
func (p *Parameter) Specify(v float64) {
	p.Val = v
	p.Set = true
}

// CharLine is a piecewise linear characteristic: monotonic x samples mapped
// to scale factors, extrapolated linearly beyond the ends.
type CharLine struct {
	Label string
	X     []float64
	Y     []float64
}

// Evaluate interpolates the characteristic at x.
func (c *CharLine) Evaluate(x float64) float64 {
	n := len(c.X)
	if n == 0 {
		return 1
	}
	if n == 1 {
		return c.Y[0]
	}
	i := sort.SearchFloat64s(c.X, x)
	if i <= 0 {
		i = 1
	}
	if i >= n {
		i = n - 1
	}
	x0, x1 := c.X[i-1], c.X[i]
	y0, y1 := c.Y[i-1], c.Y[i]
	if x1 == x0 {
		return y0
	}
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}
