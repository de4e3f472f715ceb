package config

// Preset returns a ready-to-solve example plant, or nil for an unknown
// name.
func Preset(name string) *Config {
	switch name {
	case "pump-circuit":
		return pumpCircuit()
	case "heat-recovery":
		return heatRecovery()
	case "gas-turbine":
		return gasTurbine()
	default:
		return nil
	}
}

// PresetNames lists the available example plants.
func PresetNames() []string {
	return []string{"pump-circuit", "heat-recovery", "gas-turbine"}
}

func fptr(v float64) *float64 { return &v }

// pumpCircuit is a water loop: pump into a throttling valve.
func pumpCircuit() *Config {
	return &Config{
		Label:  "pump-circuit",
		Fluids: []string{"water"},
		Solver: SolverConfig{Tolerance: DefaultTolerance, MaxIter: DefaultMaxIter},
		Components: []ComponentConfig{
			{Label: "feed", Type: "source"},
			{Label: "pump", Type: "pump", Params: map[string]float64{"eta_s": 0.9}},
			{Label: "valve", Type: "valve"},
			{Label: "drain", Type: "sink"},
		},
		Connections: []ConnConfig{
			{
				Source: "feed", Target: "pump",
				M: fptr(1), P: fptr(1e5), T: fptr(293.15),
				Fluids: map[string]float64{"water": 1},
			},
			{Source: "pump", Target: "valve", P: fptr(10e5), Design: []string{"p"}},
			{Source: "valve", Target: "drain", P: fptr(1.2e5)},
		},
		Busses: []BusConfig{
			{
				Label:   "pump power",
				Entries: []BusEntryConfig{{Component: "pump", Param: "P"}},
			},
		},
	}
}

// heatRecovery cools a hot water stream against a cold one in a two-lane
// heat exchanger.
func heatRecovery() *Config {
	return &Config{
		Label:  "heat-recovery",
		Fluids: []string{"water"},
		Solver: SolverConfig{Tolerance: DefaultTolerance, MaxIter: DefaultMaxIter},
		Components: []ComponentConfig{
			{Label: "hot feed", Type: "source"},
			{Label: "hot drain", Type: "sink"},
			{Label: "cold feed", Type: "source"},
			{Label: "cold drain", Type: "sink"},
			{Label: "recuperator", Type: "heat_exchanger",
				Params: map[string]float64{"pr1": 0.98, "pr2": 0.98}},
		},
		Connections: []ConnConfig{
			{
				Source: "hot feed", Target: "recuperator", TargetID: "in1",
				M: fptr(2), P: fptr(2e5), T: fptr(363.15),
				Fluids: map[string]float64{"water": 1},
			},
			{
				Source: "recuperator", SourceID: "out1", Target: "hot drain",
				T: fptr(313.15), Design: []string{"T"},
			},
			{
				Source: "cold feed", Target: "recuperator", TargetID: "in2",
				M: fptr(1.5), P: fptr(2e5), T: fptr(288.15),
				Fluids: map[string]float64{"water": 1},
			},
			{Source: "recuperator", SourceID: "out2", Target: "cold drain"},
		},
	}
}

// gasTurbine is an open cycle: compressor, methane combustion, turbine.
func gasTurbine() *Config {
	air := map[string]float64{
		"N2": 0.7556, "O2": 0.2315, "Ar": 0.0129,
		"CO2": 0, "H2O": 0, "CH4": 0,
	}
	fuel := map[string]float64{
		"N2": 0, "O2": 0, "Ar": 0, "CO2": 0, "H2O": 0, "CH4": 1,
	}
	return &Config{
		Label:  "gas-turbine",
		Fluids: []string{"N2", "O2", "Ar", "CO2", "H2O", "CH4"},
		Solver: SolverConfig{Tolerance: DefaultTolerance, MaxIter: 100},
		Components: []ComponentConfig{
			{Label: "air intake", Type: "source"},
			{Label: "fuel supply", Type: "source"},
			{Label: "compressor", Type: "compressor", Params: map[string]float64{"eta_s": 0.85}},
			{Label: "burner", Type: "combustion_chamber", Params: map[string]float64{"ti": 10e6}},
			{Label: "turbine", Type: "turbine", Params: map[string]float64{"eta_s": 0.9}},
			{Label: "exhaust", Type: "sink"},
		},
		Connections: []ConnConfig{
			{
				Source: "air intake", Target: "compressor",
				P: fptr(1e5), T: fptr(288.15), Fluids: air,
			},
			{Source: "compressor", Target: "burner", TargetID: "in1", P: fptr(10e5)},
			{
				Source: "fuel supply", Target: "burner", TargetID: "in2",
				T: fptr(288.15), Fluids: fuel,
			},
			{Source: "burner", Target: "turbine", T: fptr(1373.15)},
			{Source: "turbine", Target: "exhaust", P: fptr(1e5)},
		},
		Busses: []BusConfig{
			{
				Label: "shaft power",
				Entries: []BusEntryConfig{
					{Component: "compressor", Param: "P"},
					{Component: "turbine", Param: "P"},
				},
			},
		},
	}
}
