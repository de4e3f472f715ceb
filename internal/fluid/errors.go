package fluid

import "fmt"

// PropertyError reports a property probe outside the backend's valid domain
// for a fluid.
type PropertyError struct {
	Fluid string
	Probe string // e.g. "T(p,h)"
	P     float64
	T     float64
	H     float64
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("fluid: %s lookup for %s outside valid domain (p=%.6g Pa, T=%.6g K, h=%.6g J/kg)",
		e.Probe, e.Fluid, e.P, e.T, e.H)
}
