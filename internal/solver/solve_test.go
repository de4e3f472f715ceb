package solver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/thermnet/internal/components"
	"github.com/san-kum/thermnet/internal/config"
	"github.com/san-kum/thermnet/internal/plant"
	"github.com/san-kum/thermnet/internal/solver"
	"github.com/san-kum/thermnet/internal/storage"
)

// savedState captures a solved network the way the storage layer hands it
// back for priming and warm starts.
func savedState(sys *plant.System) map[string]plant.SavedConn {
	state := make(map[string]plant.SavedConn, len(sys.Conns()))
	for _, c := range sys.Conns() {
		x := make(map[string]float64, len(c.Fluid.Val))
		for f, v := range c.Fluid.Val {
			x[f] = v
		}
		state[c.Key()] = plant.SavedConn{M: c.M.Val, P: c.P.Val, H: c.H.Val, X: x}
	}
	return state
}

func buildPreset(t *testing.T, name string) *plant.System {
	t.Helper()
	cfg := config.Preset(name)
	require.NotNil(t, cfg, "preset %s", name)
	sys, err := cfg.Build()
	require.NoError(t, err)
	return sys
}

func TestSolvePumpCircuit(t *testing.T) {
	sys := buildPreset(t, "pump-circuit")
	sv := solver.New()

	res, err := sv.Solve(context.Background(), sys, solver.Options{})
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Less(t, res.Residual, sv.Tol)

	conns := sys.Conns()
	suction, discharge, drain := conns[0], conns[1], conns[2]

	require.InDelta(t, 10e5, discharge.P.Val, 1e-6, "discharge pressure is user set")

	// pumping 1 kg/s of water from 1 to 10 bar at 90 % efficiency
	wantDh := 9e5 / (997.0 * 0.9)
	require.InDelta(t, wantDh, discharge.H.Val-suction.H.Val, 0.5)

	// the valve is isenthalpic
	require.InDelta(t, discharge.H.Val, drain.H.Val, 1e-3)

	busses := sys.Busses()
	require.Len(t, busses, 1)
	require.InDelta(t, wantDh, busses[0].Value(), 0.5)
}

func TestSolveHeatRecovery(t *testing.T) {
	sys := buildPreset(t, "heat-recovery")
	sv := solver.New()

	res, err := sv.Solve(context.Background(), sys, solver.Options{})
	require.NoError(t, err)
	require.True(t, res.Converged)

	conns := sys.Conns()
	hotIn, hotOut, coldIn, coldOut := conns[0], conns[1], conns[2], conns[3]

	require.Less(t, hotOut.H.Val, hotIn.H.Val, "hot lane must cool down")
	require.Greater(t, coldOut.H.Val, coldIn.H.Val, "cold lane must heat up")

	// the duties match across the lanes
	qHot := hotIn.M.Val * (hotIn.H.Val - hotOut.H.Val)
	qCold := coldIn.M.Val * (coldOut.H.Val - coldIn.H.Val)
	require.InDelta(t, qHot, qCold, 1)
}

func TestVerifyPresets(t *testing.T) {
	for _, name := range config.PresetNames() {
		t.Run(name, func(t *testing.T) {
			sys := buildPreset(t, name)
			require.NoError(t, solver.New().Verify(sys))
		})
	}
}

func TestVerifyOverdetermined(t *testing.T) {
	sys := buildPreset(t, "pump-circuit")
	sys.Conns()[2].H.Specify(5e5)

	err := solver.New().Verify(sys)
	var perr *plant.ParameterCountError
	require.ErrorAs(t, err, &perr)
	require.Greater(t, perr.Supplied, perr.Required)
}

func TestVerifyUnderdetermined(t *testing.T) {
	sys := buildPreset(t, "pump-circuit")
	sys.Conns()[0].M.Unset()

	err := solver.New().Verify(sys)
	var perr *plant.ParameterCountError
	require.ErrorAs(t, err, &perr)
	require.Less(t, perr.Supplied, perr.Required)
}

func TestWarmStartReconverges(t *testing.T) {
	sys := buildPreset(t, "pump-circuit")
	sv := solver.New()
	cold, err := sv.Solve(context.Background(), sys, solver.Options{})
	require.NoError(t, err)

	state := savedState(sys)

	fresh := buildPreset(t, "pump-circuit")
	warm, err := sv.Solve(context.Background(), fresh, solver.Options{
		Warm:       state,
		WarmFluids: []string{"water"},
	})
	require.NoError(t, err)
	require.True(t, warm.Converged)
	require.LessOrEqual(t, warm.Iterations, cold.Iterations,
		"starting from the solution must not take longer")
}

// Replays the offdesign command sequence: design solve, save, fresh build
// from the config, prime, switch, solve. Quantities listed under offdesign
// must end up pinned at the design result even though the fresh network
// never held one.
func TestOffdesignSolvePinsDesignValues(t *testing.T) {
	design := buildPreset(t, "pump-circuit")
	sv := solver.New()
	res, err := sv.Solve(context.Background(), design, solver.Options{})
	require.NoError(t, err)
	require.True(t, res.Converged)

	state := savedState(design)
	fluids := []string{"water"}

	// part load holds the mass flow at the design point instead of
	// specifying it
	cfg := config.Preset("pump-circuit")
	cfg.Connections[0].Design = []string{"m"}
	cfg.Connections[0].Offdesign = []string{"m"}
	fresh, err := cfg.Build()
	require.NoError(t, err)

	require.NoError(t, fresh.Check())
	require.NoError(t, fresh.PrimeFromDesign(state, fluids))
	fresh.SwitchToOffdesign()
	require.Equal(t, plant.Offdesign, fresh.Mode)

	off, err := sv.Solve(context.Background(), fresh, solver.Options{
		Warm:       state,
		WarmFluids: fluids,
	})
	require.NoError(t, err)
	require.True(t, off.Converged)

	require.InDelta(t, 1.0, fresh.Conns()[0].M.Val, 1e-9,
		"mass flow must hold the design value")
	// the freed pump outlet pressure is reproduced by the valve friction
	// and the efficiency characteristic at the design load
	require.InDelta(t, 10e5, fresh.Conns()[1].P.Val, 1.0)
}

// Saving a solved case and warm starting a fresh network from it must
// reproduce the variable vector during initialisation alone.
func TestSaveLoadInitOnlyRoundTrip(t *testing.T) {
	sys := buildPreset(t, "pump-circuit")
	sv := solver.New()
	res, err := sv.Solve(context.Background(), sys, solver.Options{})
	require.NoError(t, err)
	require.True(t, res.Converged)

	st := storage.New(t.TempDir())
	require.NoError(t, st.Init())
	require.NoError(t, st.Save("design", sys, res))
	state, fluids, err := st.LoadState("design")
	require.NoError(t, err)

	fresh := buildPreset(t, "pump-circuit")
	_, err = sv.Solve(context.Background(), fresh, solver.Options{
		Warm:       state,
		WarmFluids: fluids,
		InitOnly:   true,
	})
	require.NoError(t, err)

	for i, c := range fresh.Conns() {
		want := sys.Conns()[i]
		require.Equal(t, want.M.Val, c.M.Val, "m of %s", c)
		require.Equal(t, want.P.Val, c.P.Val, "p of %s", c)
		require.Equal(t, want.H.Val, c.H.Val, "h of %s", c)
		for f, x := range want.Fluid.Val {
			require.Equal(t, x, c.Fluid.Val[f], "%s of %s", f, c)
		}
	}
}

// A wrong specification count is diagnosed before any equation is
// evaluated, so it is not masked by a property lookup that only fails
// because of the bad parametrisation.
func TestVerifyCountsSpecsBeforePropertyLookup(t *testing.T) {
	sys, err := plant.NewSystem([]string{"N2", "O2"})
	require.NoError(t, err)

	src := components.NewSource("feed")
	snk := components.NewSink("drain")
	c := plant.NewConnection(src, "out1", snk, "in1")
	c.M.Specify(1)
	c.P.Specify(1e5)
	c.H.Specify(3e5)
	c.Fluid.Specify("N2", 0.767)
	c.Fluid.Specify("O2", 0.233)
	// a vapour fraction on a mixture cannot be evaluated, and the extra
	// equation overdetermines the connection
	c.X.Specify(0.5)
	require.NoError(t, sys.AddConns(c))

	err = solver.New().Verify(sys)
	var perr *plant.ParameterCountError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 5, perr.Required)
	require.Equal(t, 6, perr.Supplied)
}

func TestSolveCancelled(t *testing.T) {
	sys := buildPreset(t, "pump-circuit")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := solver.New().Solve(ctx, sys, solver.Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSolveInitOnly(t *testing.T) {
	sys := buildPreset(t, "pump-circuit")
	res, err := solver.New().Solve(context.Background(), sys, solver.Options{InitOnly: true})
	require.NoError(t, err)
	require.False(t, res.Converged)
	require.Zero(t, res.Iterations)

	// starting values are in place
	for _, c := range sys.Conns() {
		require.Greater(t, c.P.Val, 0.0, "connection %s", c)
	}
}

func TestSolveObserverSeesEveryIteration(t *testing.T) {
	sys := buildPreset(t, "pump-circuit")
	sv := solver.New()

	var iters []int
	sv.Observers = append(sv.Observers, solver.ObserverFunc(func(iter int, residual float64) {
		iters = append(iters, iter)
	}))

	res, err := sv.Solve(context.Background(), sys, solver.Options{})
	require.NoError(t, err)
	require.Len(t, iters, len(res.History))
	for i, it := range iters {
		require.Equal(t, i, it)
	}
}

func TestSolveReportsConvergenceFailure(t *testing.T) {
	sys := buildPreset(t, "pump-circuit")
	sv := solver.New()
	sv.Tol = 0 // unreachable
	sv.MaxIter = 5

	_, err := sv.Solve(context.Background(), sys, solver.Options{})
	var cerr *solver.ConvergenceError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, 5, cerr.Iterations)
}
