package fluid

import "math"

// deltas for the finite difference property derivatives
const (
	dp = 1.0  // Pa
	dh = 1.0  // J/kg
	dx = 1e-5 // mass fraction
)

// TPureHP returns the temperature of a pure fluid from pressure and enthalpy.
func (b *Backend) TPureHP(name string, p, h float64) (float64, error) {
	pr, ok := b.fluids[name]
	if !ok {
		return 0, &PropertyError{Fluid: name, Probe: "T(p,h)", P: p, H: h}
	}
	if v, ok := b.memo.get(opTPH, name, p, h); ok {
		return v, nil
	}
	var t float64
	switch pr.Kind {
	case IncompressibleLiquid:
		t = pr.Tref + (h-pr.H0-(p-pr.Pref)/pr.Rho)/pr.Cp
	default:
		t = pr.Tref + (h-pr.H0)/pr.Cp
	}
	if p < pr.PMin || p > pr.PMax || t < pr.TMin || t > pr.TMax {
		return 0, &PropertyError{Fluid: name, Probe: "T(p,h)", P: p, T: t, H: h}
	}
	b.memo.put(opTPH, name, p, h, t)
	return t, nil
}

// HPureTP returns the enthalpy of a pure fluid from pressure and temperature.
func (b *Backend) HPureTP(name string, p, t float64) (float64, error) {
	pr, ok := b.fluids[name]
	if !ok {
		return 0, &PropertyError{Fluid: name, Probe: "h(p,T)", P: p, T: t}
	}
	if p < pr.PMin || p > pr.PMax || t < pr.TMin || t > pr.TMax {
		return 0, &PropertyError{Fluid: name, Probe: "h(p,T)", P: p, T: t}
	}
	switch pr.Kind {
	case IncompressibleLiquid:
		return pr.H0 + pr.Cp*(t-pr.Tref) + (p-pr.Pref)/pr.Rho, nil
	default:
		return pr.H0 + pr.Cp*(t-pr.Tref), nil
	}
}

// Tsat returns the saturation temperature of a pure fluid. Only meaningful
// for fluids carrying a saturation curve (water).
func (b *Backend) Tsat(name string, p float64) (float64, error) {
	pr, ok := b.fluids[name]
	if !ok || pr.TsatB == 0 {
		return 0, &PropertyError{Fluid: name, Probe: "Tsat(p)", P: p}
	}
	if p < pr.PMin || p > pr.PMax {
		return 0, &PropertyError{Fluid: name, Probe: "Tsat(p)", P: p}
	}
	return pr.TsatA + pr.TsatB*math.Log(p/pr.Pref), nil
}

// HPureQ returns the enthalpy of a pure fluid at a given vapour mass
// fraction on the saturation curve.
func (b *Backend) HPureQ(name string, p, q float64) (float64, error) {
	pr, ok := b.fluids[name]
	if !ok || pr.Hfg == 0 {
		return 0, &PropertyError{Fluid: name, Probe: "h(p,x)", P: p}
	}
	ts, err := b.Tsat(name, p)
	if err != nil {
		return 0, err
	}
	hliq := pr.H0 + pr.Cp*(ts-pr.Tref) + (p-pr.Pref)/pr.Rho
	return hliq + q*pr.Hfg, nil
}

// TmixPH returns the temperature of a stream from pressure and enthalpy.
// Pure streams dispatch to the pure fluid lookup; mixtures use ideal-gas
// mixing rules (meaningless for wet mixtures, see package comment).
func (b *Backend) TmixPH(fl Flow) (float64, error) {
	if f := SingleFluid(fl.X); f != "" {
		return b.TPureHP(f, fl.P, fl.H)
	}
	var sumCp, sumH0 float64
	for name, x := range fl.X {
		pr, ok := b.fluids[name]
		if !ok {
			return 0, &PropertyError{Fluid: name, Probe: "T(p,h)", P: fl.P, H: fl.H}
		}
		sumCp += x * pr.Cp
		sumH0 += x * pr.H0
	}
	if sumCp == 0 {
		return 0, &PropertyError{Fluid: "mixture", Probe: "T(p,h)", P: fl.P, H: fl.H}
	}
	return 273.15 + (fl.H-sumH0)/sumCp, nil
}

// HmixPT returns the enthalpy of a stream from pressure and temperature.
func (b *Backend) HmixPT(fl Flow, t float64) (float64, error) {
	if f := SingleFluid(fl.X); f != "" {
		return b.HPureTP(f, fl.P, t)
	}
	var h float64
	for name, x := range fl.X {
		if x == 0 {
			continue
		}
		pr, ok := b.fluids[name]
		if !ok {
			return 0, &PropertyError{Fluid: name, Probe: "h(p,T)", P: fl.P, T: t}
		}
		hi := pr.H0 + pr.Cp*(t-pr.Tref)
		if pr.Kind == IncompressibleLiquid {
			hi += (fl.P - pr.Pref) / pr.Rho
		}
		h += x * hi
	}
	return h, nil
}

// VmixPH returns the specific volume of a stream from pressure and enthalpy.
func (b *Backend) VmixPH(fl Flow) (float64, error) {
	t, err := b.TmixPH(fl)
	if err != nil {
		return 0, err
	}
	var v float64
	for name, x := range fl.X {
		if x == 0 {
			continue
		}
		pr := b.fluids[name]
		if pr.Kind == IncompressibleLiquid {
			v += x / pr.Rho
		} else {
			v += x * pr.R * t / fl.P
		}
	}
	return v, nil
}

// HIsentropic returns the outlet enthalpy of an isentropic change of state
// from the inlet flow to outlet pressure pOut.
func (b *Backend) HIsentropic(fl Flow, pOut float64) (float64, error) {
	if f := SingleFluid(fl.X); f != "" {
		pr := b.fluids[f]
		if pr.Kind == IncompressibleLiquid {
			return fl.H + (pOut-fl.P)/pr.Rho, nil
		}
	}
	// ideal gas (mixtures by mass-weighted cp and R)
	t1, err := b.TmixPH(fl)
	if err != nil {
		return 0, err
	}
	var cp, r float64
	for name, x := range fl.X {
		pr, ok := b.fluids[name]
		if !ok {
			return 0, &PropertyError{Fluid: name, Probe: "h_s(p)", P: fl.P, H: fl.H}
		}
		cp += x * pr.Cp
		r += x * pr.R
	}
	if cp == 0 {
		return 0, &PropertyError{Fluid: "mixture", Probe: "h_s(p)", P: fl.P, H: fl.H}
	}
	t2 := t1 * math.Pow(pOut/fl.P, r/cp)
	return fl.H + cp*(t2-t1), nil
}

// DTdpMixPH is the partial derivative of TmixPH with respect to pressure.
func (b *Backend) DTdpMixPH(fl Flow) (float64, error) {
	lo, hi := fl, fl
	lo.P -= dp
	hi.P += dp
	tl, err := b.TmixPH(lo)
	if err != nil {
		return 0, err
	}
	th, err := b.TmixPH(hi)
	if err != nil {
		return 0, err
	}
	return (th - tl) / (2 * dp), nil
}

// DTdhMixPH is the partial derivative of TmixPH with respect to enthalpy.
func (b *Backend) DTdhMixPH(fl Flow) (float64, error) {
	lo, hi := fl, fl
	lo.H -= dh
	hi.H += dh
	tl, err := b.TmixPH(lo)
	if err != nil {
		return 0, err
	}
	th, err := b.TmixPH(hi)
	if err != nil {
		return 0, err
	}
	return (th - tl) / (2 * dh), nil
}

// DTdxMixPH is the partial derivative of TmixPH with respect to the mass
// fraction of one fluid.
func (b *Backend) DTdxMixPH(fl Flow, name string) (float64, error) {
	lo := cloneFlow(fl)
	hi := cloneFlow(fl)
	lo.X[name] -= dx
	hi.X[name] += dx
	tl, err := b.TmixPH(lo)
	if err != nil {
		return 0, err
	}
	th, err := b.TmixPH(hi)
	if err != nil {
		return 0, err
	}
	return (th - tl) / (2 * dx), nil
}

// DVdpMixPH is the partial derivative of VmixPH with respect to pressure.
func (b *Backend) DVdpMixPH(fl Flow) (float64, error) {
	lo, hi := fl, fl
	lo.P -= dp
	hi.P += dp
	vl, err := b.VmixPH(lo)
	if err != nil {
		return 0, err
	}
	vh, err := b.VmixPH(hi)
	if err != nil {
		return 0, err
	}
	return (vh - vl) / (2 * dp), nil
}

// DVdhMixPH is the partial derivative of VmixPH with respect to enthalpy.
func (b *Backend) DVdhMixPH(fl Flow) (float64, error) {
	lo, hi := fl, fl
	lo.H -= dh
	hi.H += dh
	vl, err := b.VmixPH(lo)
	if err != nil {
		return 0, err
	}
	vh, err := b.VmixPH(hi)
	if err != nil {
		return 0, err
	}
	return (vh - vl) / (2 * dh), nil
}

// DHdpPureQ is the partial derivative of HPureQ with respect to pressure.
func (b *Backend) DHdpPureQ(name string, p, q float64) (float64, error) {
	hl, err := b.HPureQ(name, p-dp, q)
	if err != nil {
		return 0, err
	}
	hh, err := b.HPureQ(name, p+dp, q)
	if err != nil {
		return 0, err
	}
	return (hh - hl) / (2 * dp), nil
}

func cloneFlow(fl Flow) Flow {
	x := make(map[string]float64, len(fl.X))
	for k, v := range fl.X {
		x[k] = v
	}
	fl.X = x
	return fl
}
