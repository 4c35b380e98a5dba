package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/voltlab/voltsim/internal/config"
	"github.com/voltlab/voltsim/internal/models"
	"github.com/voltlab/voltsim/internal/solver"
	"github.com/voltlab/voltsim/internal/store"
	"github.com/voltlab/voltsim/internal/symbolic"
	"github.com/voltlab/voltsim/internal/tape"
	"github.com/voltlab/voltsim/internal/viz"
)

var (
	dataDir    string
	method     string
	rtol       float64
	atol       float64
	tEnd       float64
	points     int
	inputFlags []string
	configFile string
	preset     string
	noSave     bool
	stateIdx   int
	frameRate  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "voltsim",
		Short: "symbolic cell models with a caching differentiable solver",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".voltsim", "data directory")

	solveCmd := &cobra.Command{
		Use:   "solve [model]",
		Short: "lower a model and solve it over a time grid",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	solveCmd.Flags().StringVar(&method, "method", config.DefaultMethod, "stepping family (rk45|bdf)")
	solveCmd.Flags().Float64Var(&rtol, "rtol", config.DefaultRTol, "relative tolerance")
	solveCmd.Flags().Float64Var(&atol, "atol", config.DefaultATol, "absolute tolerance")
	solveCmd.Flags().Float64Var(&tEnd, "t-end", config.DefaultTEnd, "final time")
	solveCmd.Flags().IntVar(&points, "points", config.DefaultPoints, "output grid points")
	solveCmd.Flags().StringSliceVar(&inputFlags, "input", nil, "input parameter value, name=value (repeatable)")
	solveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	solveCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	solveCmd.Flags().BoolVar(&noSave, "no-save", false, "skip persisting the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  runList,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and trajectory as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return store.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectory as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return store.New(dataDir).ExportCSV(os.Stdout, args[0])
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [model]",
		Short: "solve with both stepping families and compare",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompare,
	}
	compareCmd.Flags().Float64Var(&rtol, "rtol", config.DefaultRTol, "relative tolerance")
	compareCmd.Flags().Float64Var(&atol, "atol", config.DefaultATol, "absolute tolerance")
	compareCmd.Flags().Float64Var(&tEnd, "t-end", config.DefaultTEnd, "final time")
	compareCmd.Flags().IntVar(&points, "points", config.DefaultPoints, "output grid points")
	compareCmd.Flags().StringSliceVar(&inputFlags, "input", nil, "input parameter value, name=value (repeatable)")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "solve and replay the trajectory in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&method, "method", config.DefaultMethod, "stepping family (rk45|bdf)")
	liveCmd.Flags().Float64Var(&tEnd, "t-end", config.DefaultTEnd, "final time")
	liveCmd.Flags().IntVar(&points, "points", 200, "output grid points")
	liveCmd.Flags().StringSliceVar(&inputFlags, "input", nil, "input parameter value, name=value (repeatable)")
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range names {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range models.NewRegistry().List() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(solveCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, compareCmd, liveCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildConfig merges preset, config file and flags (flags win) into the
// effective run configuration for a model.
func buildConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		*cfg = *p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		*cfg = *loaded
		cfg.Model = model
	}

	if cmd.Flags().Changed("method") {
		cfg.Method = method
	}
	if cmd.Flags().Changed("rtol") {
		cfg.RTol = rtol
	}
	if cmd.Flags().Changed("atol") {
		cfg.ATol = atol
	}
	if cmd.Flags().Changed("t-end") {
		cfg.TEnd = tEnd
	}
	if cmd.Flags().Changed("points") {
		cfg.Points = points
	}

	if len(inputFlags) > 0 {
		if cfg.Inputs == nil {
			cfg.Inputs = make(map[string]float64)
		}
		for _, kv := range inputFlags {
			name, raw, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("bad --input %q, want name=value", kv)
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("bad --input %q: %w", kv, err)
			}
			cfg.Inputs[name] = v
		}
	}

	return cfg, cfg.Validate()
}

// prepare builds, lowers and solves the named model per cfg.
func prepare(cfg *config.Config) (*symbolic.Model, *solver.Solution, error) {
	m, err := models.NewRegistry().Get(cfg.Model)
	if err != nil {
		return nil, nil, err
	}
	if _, err := tape.Compile(m); err != nil {
		return nil, nil, err
	}

	inputs := cfg.Inputs
	if inputs == nil {
		inputs = map[string]float64{}
	}

	s := solver.New(solver.WithMethod(cfg.Method), solver.WithTolerances(cfg.RTol, cfg.ATol))
	sol, err := s.Solve(m, cfg.TimeGrid(), inputs)
	if err != nil {
		return nil, nil, err
	}
	return m, sol, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	m, sol, err := prepare(cfg)
	if err != nil {
		return err
	}

	fmt.Println(viz.Header("voltsim " + cfg.Model))
	fmt.Println(viz.Row("method", cfg.Method))
	fmt.Println(viz.Row("termination", sol.Termination))
	fmt.Println(viz.Row("set-up", sol.SetUpTime.String()))
	fmt.Println(viz.Row("solve", sol.SolveTime.String()))
	fmt.Println(viz.Row("total", sol.TotalTime.String()))
	fmt.Println(viz.Row("steps", fmt.Sprintf("%d (%d rejected)", sol.Stats.Steps, sol.Stats.Rejected)))
	fmt.Println()

	states := m.States()
	maxPlots := 4
	for i, series := range sol.Y {
		if i >= maxPlots {
			fmt.Printf("(%d more states not plotted)\n", len(sol.Y)-maxPlots)
			break
		}
		fmt.Println(viz.Plot(series, states[i]+" vs time"))
		fmt.Println()
	}

	if noSave {
		return nil
	}
	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(store.RunInfo{
		Model:  cfg.Model,
		Method: cfg.Method,
		RTol:   cfg.RTol,
		ATol:   cfg.ATol,
		Inputs: cfg.Inputs,
		States: states,
	}, sol)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	runs, err := store.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tMETHOD\tTIME\tSTEPS\tTOTAL")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4fs\n",
			run.ID,
			run.Model,
			run.Method,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.TotalTime,
		)
	}
	return w.Flush()
}

func runPlot(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	_, y, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(y) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\nmodel: %s\nsamples: %d\n\n", meta.ID, meta.Model, len(y[0]))

	maxPlots := 6
	for i, series := range y {
		if i >= maxPlots {
			break
		}
		name := fmt.Sprintf("y%d", i)
		if i < len(meta.States) {
			name = meta.States[i]
		}
		fmt.Println(viz.Plot(series, name+" vs time"))
		fmt.Println()
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("comparing stepping families for %s (rtol=%g atol=%g)\n\n", cfg.Model, cfg.RTol, cfg.ATol)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tFINAL_Y0\tSTEPS\tREJECTED\tRHS\tJAC\tSET_UP\tSOLVE")

	for _, name := range []string{"rk45", "bdf"} {
		cfg.Method = name
		_, sol, err := prepare(cfg)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.8f\t%d\t%d\t%d\t%d\t%v\t%v\n",
			name, sol.Final()[0],
			sol.Stats.Steps, sol.Stats.Rejected, sol.Stats.RHSEvals, sol.Stats.JacEvals,
			sol.SetUpTime, sol.SolveTime,
		)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	m, sol, err := prepare(cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewPlayback(cfg.Model, m.States(), sol, frameRate))
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
