package solver

import (
	"github.com/san-kum/thermnet/internal/plant"
)

// perturbation sizes per variable column, matching the magnitudes the
// variables live at (kg/s, Pa, J/kg, mass fraction)
const (
	deltaM = 1e-4
	deltaP = 1.0
	deltaH = 1.0
	deltaX = 1e-5
)

// NumericDeriv approximates the partial derivative of a residual function
// with respect to one variable of one connection by central difference.
// col addresses the variable inside the connection's block: 0 mass flow,
// 1 pressure, 2 enthalpy, 3+i the i-th network fluid fraction. The
// connection state is restored before returning.
func NumericDeriv(sys *plant.System, f func() (float64, error), c *plant.Connection, col int) (float64, error) {
	get, set, delta := accessor(sys, c, col)
	orig := get()

	set(orig + delta)
	hi, err := f()
	if err != nil {
		set(orig)
		return 0, err
	}
	set(orig - delta)
	lo, err := f()
	set(orig)
	if err != nil {
		return 0, err
	}
	return (hi - lo) / (2 * delta), nil
}

func accessor(sys *plant.System, c *plant.Connection, col int) (func() float64, func(float64), float64) {
	switch col {
	case 0:
		return func() float64 { return c.M.Val }, func(v float64) { c.M.Val = v }, deltaM
	case 1:
		return func() float64 { return c.P.Val }, func(v float64) { c.P.Val = v }, deltaP
	case 2:
		return func() float64 { return c.H.Val }, func(v float64) { c.H.Val = v }, deltaH
	default:
		name := sys.Fluids[col-3]
		return func() float64 { return c.Fluid.Val[name] },
			func(v float64) { c.Fluid.Val[name] = v }, deltaX
	}
}
