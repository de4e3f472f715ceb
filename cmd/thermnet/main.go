package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/thermnet/internal/config"
	"github.com/san-kum/thermnet/internal/plant"
	"github.com/san-kum/thermnet/internal/solver"
	"github.com/san-kum/thermnet/internal/storage"
	"github.com/san-kum/thermnet/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	mode       string
	designCase string
	initCase   string
	maxIter    int
	tolerance  float64
	initOnly   bool
	watch      bool
	outCase    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "thermnet",
		Short: "steady state thermal plant simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".thermnet", "data directory")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve a plant network",
		RunE:  runSolve,
	}
	solveCmd.Flags().StringVar(&configFile, "config", "", "plant definition file (yaml)")
	solveCmd.Flags().StringVar(&preset, "preset", "", "use example plant")
	solveCmd.Flags().StringVar(&mode, "mode", "design", "calculation mode (design, offdesign)")
	solveCmd.Flags().StringVar(&designCase, "design", "", "design case for offdesign mode")
	solveCmd.Flags().StringVar(&initCase, "init", "", "warm start from saved case")
	solveCmd.Flags().IntVar(&maxIter, "max-iter", 0, "iteration limit")
	solveCmd.Flags().Float64Var(&tolerance, "tolerance", 0, "residual norm tolerance")
	solveCmd.Flags().BoolVar(&initOnly, "init-only", false, "stop after initialisation")
	solveCmd.Flags().BoolVar(&watch, "watch", false, "live convergence view")
	solveCmd.Flags().StringVar(&outCase, "out", "", "save the result under this case name")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "check a plant definition without solving",
		RunE:  runCheck,
	}
	checkCmd.Flags().StringVar(&configFile, "config", "", "plant definition file (yaml)")
	checkCmd.Flags().StringVar(&preset, "preset", "", "use example plant")

	reportCmd := &cobra.Command{
		Use:   "report [case]",
		Short: "show a saved case",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "list saved cases",
		RunE:  runHistory,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list example plants",
		Run: func(cmd *cobra.Command, args []string) {
			for _, n := range config.PresetNames() {
				fmt.Println(" ", n)
			}
		},
	}

	rootCmd.AddCommand(solveCmd, checkCmd, reportCmd, historyCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	switch {
	case configFile != "":
		return config.Load(configFile)
	case preset != "":
		cfg := config.Preset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.PresetNames())
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("either --config or --preset is required")
	}
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sys, err := cfg.Build()
	if err != nil {
		return err
	}

	sv := solver.New()
	sv.Tol = cfg.Solver.Tolerance
	sv.MaxIter = cfg.Solver.MaxIter
	if cmd.Flags().Changed("tolerance") {
		sv.Tol = tolerance
	}
	if cmd.Flags().Changed("max-iter") {
		sv.MaxIter = maxIter
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	var opts solver.Options
	opts.InitOnly = initOnly

	if mode == string(plant.Offdesign) {
		if designCase == "" {
			return fmt.Errorf("offdesign mode requires --design")
		}
		state, fluids, err := st.LoadState(designCase)
		if err != nil {
			return fmt.Errorf("load design case: %w", err)
		}
		if err := sys.Check(); err != nil {
			return err
		}
		if err := sys.PrimeFromDesign(state, fluids); err != nil {
			return err
		}
		sys.SwitchToOffdesign()

		// the design result doubles as the starting point
		opts.Warm, opts.WarmFluids = state, fluids
	}

	if initCase != "" {
		state, fluids, err := st.LoadState(initCase)
		if err != nil {
			return fmt.Errorf("load init case: %w", err)
		}
		opts.Warm, opts.WarmFluids = state, fluids
	}

	start := time.Now()
	var res *solver.Result
	if watch {
		res, err = tui.RunSolve(context.Background(), cfg.Label, sv, sys, opts)
	} else {
		res, err = sv.Solve(context.Background(), sys, opts)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if initOnly {
		fmt.Println("initialisation complete")
		printConnections(sys)
		return nil
	}

	fmt.Printf("converged in %d iterations (%.3es residual, %v)\n",
		res.Iterations, res.Residual, elapsed)
	printConnections(sys)
	printBusses(sys)

	if outCase != "" {
		if err := st.Save(outCase, sys, res); err != nil {
			return err
		}
		fmt.Printf("saved as %s\n", outCase)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sys, err := cfg.Build()
	if err != nil {
		return err
	}

	sv := solver.New()
	if err := sv.Verify(sys); err != nil {
		return err
	}

	fmt.Printf("%s: topology ok\n", cfg.Label)
	fmt.Printf("  components: %d\n", len(sys.Comps()))
	fmt.Printf("  connections: %d\n", len(sys.Conns()))
	fmt.Printf("  variables: %d\n", len(sys.Conns())*sys.NumVars())
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.LoadMeta(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("case: %s\n", meta.Name)
	fmt.Printf("mode: %s\n", meta.Mode)
	fmt.Printf("solved: %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("iterations: %d (residual %.3e, converged %v)\n\n",
		meta.Iterations, meta.Residual, meta.Converged)

	state, fluids, err := st.LoadState(args[0])
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "CONNECTION\tM kg/s\tP bar\tH kJ/kg"
	for _, f := range fluids {
		header += "\t" + f
	}
	fmt.Fprintln(w, header)
	for _, k := range keys {
		sc := state[k]
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.2f", k, sc.M, sc.P/1e5, sc.H/1e3)
		for _, f := range fluids {
			fmt.Fprintf(w, "\t%.4f", sc.X[f])
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	fmt.Println()

	hist, err := st.LoadResiduals(args[0])
	if err == nil && len(hist) > 1 {
		graph := asciigraph.Plot(hist,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption("residual norm"),
		)
		fmt.Println(graph)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	cases, err := st.List()
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		fmt.Println("no saved cases")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODE\tTIME\tITER\tRESIDUAL\tCONVERGED")
	for _, c := range cases {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3e\t%v\n",
			c.Name, c.Mode, c.Timestamp.Format("2006-01-02 15:04:05"),
			c.Iterations, c.Residual, c.Converged)
	}
	return w.Flush()
}

func printConnections(sys *plant.System) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONNECTION\tM kg/s\tP bar\tH kJ/kg\tT degC")
	for _, c := range sys.Conns() {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.2f\t%.2f\n",
			c.String(), c.M.Val, c.P.Val/1e5, c.H.Val/1e3, c.T.Val-273.15)
	}
	w.Flush()
}

func printBusses(sys *plant.System) {
	if len(sys.Busses()) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BUS\tVALUE kW")
	for _, b := range sys.Busses() {
		fmt.Fprintf(w, "%s\t%.3f\n", b.Label, b.Value()/1e3)
	}
	w.Flush()
}
