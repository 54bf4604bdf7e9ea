package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/open-adkit/latctl/internal/config"
	"github.com/open-adkit/latctl/internal/metrics"
	"github.com/open-adkit/latctl/internal/mpc"
	"github.com/open-adkit/latctl/internal/qpsolver"
	"github.com/open-adkit/latctl/internal/sim"
	"github.com/open-adkit/latctl/internal/steering"
	"github.com/open-adkit/latctl/internal/storage"
	"github.com/open-adkit/latctl/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	pathName   string
	speed      float64
	duration   float64
	radius     float64
	offset     float64
	yawError   float64
	steerNoise float64
	seed       int64
	modelName  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "latctl",
		Short: "model predictive lateral steering lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".latctl", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [path]",
		Short: "run a closed-loop tracking scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addScenarioFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [path]",
		Short: "run a scenario and play it back in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "play back a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot tracking errors of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run records to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(args[0], os.Stdout)
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := storage.New(dataDir).Load(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [path]",
		Short: "list scenario presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run every scenario preset concurrently",
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sweepCmd.Flags().StringVar(&modelName, "model", "", "vehicle model (kinematic_lag, kinematic, dynamic)")

	rootCmd.AddCommand(runCmd, liveCmd, replayCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&speed, "speed", config.DefaultSpeed, "target speed [m/s]")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "run duration [s]")
	cmd.Flags().Float64Var(&radius, "radius", 50, "path radius [m] (circle, s_curve)")
	cmd.Flags().Float64Var(&offset, "offset", 0, "initial lateral offset [m]")
	cmd.Flags().Float64Var(&yawError, "yaw-error", 0, "initial heading error [rad]")
	cmd.Flags().Float64Var(&steerNoise, "noise", 0, "steering measurement noise amplitude [rad]")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringVar(&modelName, "model", "", "vehicle model (kinematic_lag, kinematic, dynamic)")
}

// resolveConfig layers preset, config file, and flags in that order of
// increasing precedence.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Scenario.Path = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Scenario.Path, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for path %q (available: %v)",
				preset, cfg.Scenario.Path, config.ListPresets(cfg.Scenario.Path))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			loaded.Scenario.Path = args[0]
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("model") {
		cfg.Model = modelName
	}
	if cmd.Flags().Changed("speed") {
		cfg.Scenario.Speed = speed
	}
	if cmd.Flags().Changed("time") {
		cfg.Scenario.Duration = duration
	}
	if cmd.Flags().Changed("radius") {
		cfg.Scenario.Radius = radius
	}
	if cmd.Flags().Changed("offset") {
		cfg.Scenario.LateralOffset = offset
	}
	if cmd.Flags().Changed("yaw-error") {
		cfg.Scenario.YawError = yawError
	}
	if cmd.Flags().Changed("noise") {
		cfg.Scenario.SteerNoise = steerNoise
	}
	if cmd.Flags().Changed("seed") || cfg.Scenario.Seed == 0 {
		cfg.Scenario.Seed = seed
	}
	return cfg, nil
}

func buildSimulator(cfg *config.Config) (*sim.Simulator, error) {
	model, err := cfg.BuildModel()
	if err != nil {
		return nil, err
	}

	var solver qpsolver.Solver
	switch cfg.Solver {
	case "", "least_squares":
		solver = qpsolver.NewLeastSquares()
	default:
		return nil, fmt.Errorf("unknown solver %q", cfg.Solver)
	}

	p := cfg.Params()
	ctrl := mpc.New(p, model, solver, steering.NewPredictor(cfg.Vehicle.SteerTau))
	plant := sim.NewPlant(cfg.Vehicle.Wheelbase, cfg.Vehicle.SteerTau, cfg.Vehicle.SteerLim)

	s := sim.New(ctrl, plant, p.CtrlPeriod)
	s.AddMetric(metrics.NewLateralRMS())
	s.AddMetric(metrics.NewLateralMax())
	s.AddMetric(metrics.NewControlEffort())
	s.AddMetric(metrics.NewSettlingTime(0.1))
	return s, nil
}

func scenario(cfg *config.Config) sim.Scenario {
	sc := cfg.Scenario
	return sim.Scenario{
		Path:          sc.Path,
		Duration:      sc.Duration,
		Speed:         sc.Speed,
		Radius:        sc.Radius,
		LateralOffset: sc.LateralOffset,
		YawError:      sc.YawError,
		SteerNoise:    sc.SteerNoise,
		Seed:          sc.Seed,
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s, err := buildSimulator(cfg)
	if err != nil {
		return err
	}

	sc := scenario(cfg)
	fmt.Printf("tracking %s at %.1f m/s for %.1f s (%s model)...\n",
		sc.Path, sc.Speed, sc.Duration, cfg.Model)
	start := time.Now()

	result, err := s.Run(context.Background(), sc)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(cfg.Model, sc, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("cycles: %d (%d failed)\n", len(result.Records), result.Failures)
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	s, err := buildSimulator(cfg)
	if err != nil {
		return err
	}

	sc := scenario(cfg)
	path, err := sim.BuildPath(sc)
	if err != nil {
		return err
	}

	fmt.Printf("simulating %s at %.1f m/s...\n", sc.Path, sc.Speed)
	result, err := s.Run(context.Background(), sc)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s %.0f m/s", sc.Path, sc.Speed)
	m := tui.NewModel(title, result.Records, path, result.Metrics)
	_, err = tea.NewProgram(m).Run()
	return err
}

func replayRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadRecords(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("run %s has no records", runID)
	}

	path, err := sim.BuildPath(sim.Scenario{
		Path:     meta.Path,
		Duration: meta.Duration,
		Speed:    meta.Speed,
		Radius:   meta.Radius,
	})
	if err != nil {
		return err
	}

	m := tui.NewModel(meta.ID, records, path, meta.Metrics)
	_, err = tea.NewProgram(m).Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tPATH\tSPEED\tDURATION\tFAILURES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%.1fs\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Path,
			run.Speed,
			run.Duration,
			run.Failures,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadRecords(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", len(records))

	series := []struct {
		caption string
		value   func(r sim.Record) float64
	}{
		{"lateral error (m)", func(r sim.Record) float64 { return r.LatErr }},
		{"heading error (rad)", func(r sim.Record) float64 { return r.YawErr }},
		{"steering command (rad)", func(r sim.Record) float64 { return r.SteerCmd }},
		{"steering angle (rad)", func(r sim.Record) float64 { return r.Steer }},
	}
	for _, s := range series {
		data := make([]float64, len(records))
		for i, r := range records {
			data[i] = s.value(r)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	fmt.Println("metrics:")
	printMetrics(meta.Metrics)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		paths := config.ListPaths()
		sort.Strings(paths)
		fmt.Println("paths:")
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
		return nil
	}

	names := config.ListPresets(args[0])
	if len(names) == 0 {
		fmt.Printf("no presets for path: %s\n", args[0])
		return nil
	}
	sort.Strings(names)
	fmt.Printf("presets for %s:\n", args[0])
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = modelName
	}

	type labeled struct {
		name string
		sc   sim.Scenario
	}
	var cases []labeled
	paths := config.ListPaths()
	sort.Strings(paths)
	for _, path := range paths {
		names := config.ListPresets(path)
		sort.Strings(names)
		for _, name := range names {
			p := config.GetPreset(path, name)
			cases = append(cases, labeled{
				name: fmt.Sprintf("%s/%s", path, name),
				sc:   scenario(p),
			})
		}
	}

	// Surface configuration errors before launching goroutines.
	if _, err := buildSimulator(cfg); err != nil {
		return err
	}
	sweep := sim.NewSweep(func() *sim.Simulator {
		s, _ := buildSimulator(cfg)
		return s
	})

	scenarios := make([]sim.Scenario, len(cases))
	for i, c := range cases {
		scenarios[i] = c.sc
	}

	fmt.Printf("sweeping %d scenarios (%s model)...\n\n", len(cases), cfg.Model)
	start := time.Now()
	results, err := sweep.Run(context.Background(), scenarios)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tRMS\tMAX\tEFFORT\tSETTLE\tFAILURES")
	for i, res := range results {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.2fs\t%d\n",
			cases[i].name,
			res.Metrics["lateral_rms"],
			res.Metrics["lateral_max"],
			res.Metrics["control_effort"],
			res.Metrics["settling_time"],
			res.Failures,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\ncompleted in %v\n", time.Since(start))
	return nil
}
