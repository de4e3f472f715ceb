// Package fluid provides the property backend for plant simulations: pure
// fluid property lookups from two intensive state variables and ideal-gas
// mixing rules for multi-component streams.
//
// All values are SI (Pa, J/kg, K, kg/s). True two-phase mixture properties
// are not supported: the mixing rules are applied regardless of phase and
// return meaningless values for wet mixtures. Pure fluids handle the two
// phase region through the saturation helpers.
package fluid

import (
	"fmt"
	"sort"
)

// Phase model of a pure fluid.
type Kind int

const (
	IdealGas Kind = iota
	IncompressibleLiquid
)

// Flow is the state of one stream: mass flow, pressure, enthalpy and
// composition by mass fraction.
type Flow struct {
	M float64
	P float64
	H float64
	X map[string]float64
}

// Properties describes one pure fluid. Enthalpy of an ideal gas is
// Cp*(T-Tref)+H0, of an incompressible liquid Cp*(T-Tref)+(p-Pref)/Rho+H0.
type Properties struct {
	Name      string
	Kind      Kind
	MolarMass float64 // kg/mol
	Cp        float64 // J/(kg K)
	R         float64 // J/(kg K), gases only
	Rho       float64 // kg/m3, liquids only
	H0        float64 // enthalpy offset at Tref, Pref
	Tref      float64
	Pref      float64

	// valid property domain
	PMin, PMax float64
	TMin, TMax float64

	// saturation curve parameters (liquids with a vapour branch)
	Hfg   float64 // evaporation enthalpy at Pref
	TsatA float64 // Tsat(p) = TsatA + TsatB*ln(p/Pref)
	TsatB float64
}

var registry = map[string]Properties{
	"water": {
		Name: "water", Kind: IncompressibleLiquid, MolarMass: 0.018015,
		Cp: 4180, Rho: 997, Tref: 273.15, Pref: 1e5,
		PMin: 1e3, PMax: 1000e5, TMin: 273.16, TMax: 623.15,
		Hfg: 2.257e6, TsatA: 372.76, TsatB: 12.0,
	},
	"N2": {
		Name: "N2", Kind: IdealGas, MolarMass: 0.028013,
		Cp: 1040, R: 296.8, Tref: 273.15, Pref: 1e5,
		PMin: 1e2, PMax: 300e5, TMin: 100, TMax: 2273.15,
	},
	"O2": {
		Name: "O2", Kind: IdealGas, MolarMass: 0.031999,
		Cp: 918, R: 259.8, Tref: 273.15, Pref: 1e5,
		PMin: 1e2, PMax: 300e5, TMin: 100, TMax: 2273.15,
	},
	"CO2": {
		Name: "CO2", Kind: IdealGas, MolarMass: 0.044010,
		Cp: 844, R: 188.9, Tref: 273.15, Pref: 1e5,
		PMin: 1e2, PMax: 300e5, TMin: 220, TMax: 2273.15,
	},
	"H2O": {
		Name: "H2O", Kind: IdealGas, MolarMass: 0.018015,
		Cp: 1880, R: 461.5, Tref: 273.15, Pref: 1e5,
		H0: 2.501e6,
		PMin: 1e2, PMax: 300e5, TMin: 273.16, TMax: 2273.15,
	},
	"CH4": {
		Name: "CH4", Kind: IdealGas, MolarMass: 0.016043,
		Cp: 2220, R: 518.3, Tref: 273.15, Pref: 1e5,
		PMin: 1e2, PMax: 300e5, TMin: 100, TMax: 1273.15,
	},
	"Ar": {
		Name: "Ar", Kind: IdealGas, MolarMass: 0.039948,
		Cp: 520, R: 208.1, Tref: 273.15, Pref: 1e5,
		PMin: 1e2, PMax: 300e5, TMin: 100, TMax: 2273.15,
	},
}

// Known reports whether the backend has property data for the fluid.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names lists all fluids the backend knows, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Backend answers property lookups for a fixed fluid set. It is stateless
// apart from a read-heavy memoisation cache and safe for concurrent use.
type Backend struct {
	fluids map[string]Properties
	names  []string
	memo   *memoCache
}

// NewBackend builds a backend for the given fluid set.
func NewBackend(names []string) (*Backend, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("fluid: empty fluid list")
	}
	b := &Backend{
		fluids: make(map[string]Properties, len(names)),
		memo:   newMemoCache(),
	}
	for _, n := range names {
		p, ok := registry[n]
		if !ok {
			return nil, fmt.Errorf("fluid: no property data for %q (known: %v)", n, Names())
		}
		b.fluids[n] = p
		b.names = append(b.names, n)
	}
	sort.Strings(b.names)
	return b, nil
}

// Fluids returns the backend's fluid set, sorted.
func (b *Backend) Fluids() []string { return b.names }

// Props returns the property record for a pure fluid.
func (b *Backend) Props(name string) (Properties, bool) {
	p, ok := b.fluids[name]
	return p, ok
}

// Range returns the valid (pmin, pmax, tmin, tmax) domain for a fluid.
func (b *Backend) Range(name string) (pmin, pmax, tmin, tmax float64, err error) {
	p, ok := b.fluids[name]
	if !ok {
		return 0, 0, 0, 0, fmt.Errorf("fluid: unknown fluid %q", name)
	}
	return p.PMin, p.PMax, p.TMin, p.TMax, nil
}

// SingleFluid returns the fluid name if the composition is effectively a
// pure stream (one fraction ~1), otherwise "".
func SingleFluid(x map[string]float64) string {
	name := ""
	for f, v := range x {
		if v > 1-1e-4 {
			name = f
		} else if v > 1e-4 {
			return ""
		}
	}
	return name
}
