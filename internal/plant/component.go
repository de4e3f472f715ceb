package plant

// Equation is one scalar residual contributed to the system, together with
// its partial derivatives. Jacobian holds one row per attached connection
// (inlets then outlets), each of length 3+len(fluids) in the order mass
// flow, pressure, enthalpy, fluid fractions. VarJacobian holds the partials
// with respect to the component's own free variables.
type Equation struct {
	Residual    float64
	Jacobian    [][]float64
	VarJacobian []float64
}

// Component is the contract every plant component implements. Equation sets
// are recomputed fresh on every assembly pass; their count may depend on
// which parameters are set and, for flow direction sensitive components, on
// the current sign of the attached mass flows.
type Component interface {
	Label() string

	// declared slots, e.g. ["in1", "in2"] / ["out1"]
	InletIDs() []string
	OutletIDs() []string

	// Attach wires the incident connections in slot order. Called once by
	// the topology check.
	Attach(in, out []*Connection)
	In(i int) *Connection
	Out(i int) *Connection

	// parameter access for mode switching and persistence
	Params() map[string]*Parameter
	DesignParams() []string
	OffdesignParams() []string
	AutoSwitch() bool

	// PreInit runs once before the first solve.
	PreInit(sys *System) error

	// Equations produces the active residuals and derivatives for the
	// current state.
	Equations(sys *System) ([]Equation, error)
}

// EquationCounter predicts how many equations a component will contribute
// for its current parametrisation, without evaluating any residual. The
// assembler uses it to diagnose an over- or underdetermined network before
// the first property lookup.
type EquationCounter interface {
	NumEquations(sys *System) int
}

// ConvergenceChecker is implemented by components that correct implausible
// intermediate iterates (early iterations only, see the solver stabilizer).
type ConvergenceChecker interface {
	ConvergenceCheck(sys *System)
}

// Starter provides component-role starting value hints for attached
// connections. outgoing marks the side of the component the connection is
// on. key is "p" or "h". A zero return means no hint.
type Starter interface {
	StartingValue(c *Connection, key string, outgoing bool) float64
}

// EnergySupplier exposes the energy flow a bus aggregates, e.g. shaft power
// of a turbomachine or heat flow of a heat exchanger.
type EnergySupplier interface {
	BusValue() float64
}

// VarHolder is implemented by components with free variables that join the
// system vector.
type VarHolder interface {
	Vars() []*Parameter
}

// PostProcessor recomputes component parameters from a solved state; design
// results feed the offdesign switch.
type PostProcessor interface {
	CalcParameters(sys *System, design bool)
}

// FluidRule classifies how a component treats composition during fluid
// propagation.
type FluidRule int

const (
	// RulePass propagates composition straight through (derived by default
	// for one-in/one-out components).
	RulePass FluidRule = iota
	// RuleLanes propagates along fixed inlet/outlet lanes (heat exchanger:
	// in1-out1, in2-out2).
	RuleLanes
	// RuleSplit copies the single inlet composition to all outlets.
	RuleSplit
	// RuleMerge stops forward propagation; composition continues backwards
	// from the outlet only.
	RuleMerge
	// RuleBreak stops propagation entirely; the component generates its own
	// outlet composition (combustion).
	RuleBreak
)

// FluidTopology overrides the propagation rule derived from a component's
// arity.
type FluidTopology interface {
	FluidRule() FluidRule
}

// FluidSeeder is implemented by composition-generating components
// (combustion chambers); SeedFluids writes an outlet composition guess.
type FluidSeeder interface {
	SeedFluids(sys *System) error
}

func fluidRuleOf(cp Component) FluidRule {
	if ft, ok := cp.(FluidTopology); ok {
		return ft.FluidRule()
	}
	if len(cp.InletIDs()) == 1 && len(cp.OutletIDs()) == 1 {
		return RulePass
	}
	return RuleBreak
}
