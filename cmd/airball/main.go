package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MathBorgess/automation-engineering/internal/config"
	"github.com/MathBorgess/automation-engineering/internal/control"
	"github.com/MathBorgess/automation-engineering/internal/fuzzy"
	"github.com/MathBorgess/automation-engineering/internal/hammerstein"
	"github.com/MathBorgess/automation-engineering/internal/ident"
	"github.com/MathBorgess/automation-engineering/internal/integrators"
	"github.com/MathBorgess/automation-engineering/internal/loop"
	"github.com/MathBorgess/automation-engineering/internal/metrics"
	"github.com/MathBorgess/automation-engineering/internal/physics"
	"github.com/MathBorgess/automation-engineering/internal/plant"
	"github.com/MathBorgess/automation-engineering/internal/samples"
	"github.com/MathBorgess/automation-engineering/internal/sim"
	"github.com/MathBorgess/automation-engineering/internal/storage"
	"github.com/MathBorgess/automation-engineering/internal/telemetry"
	"github.com/MathBorgess/automation-engineering/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	setpoint   float64
	controller string
	steps      int
	seed       uint64

	// identify
	outPath    string
	popSize    int
	maxGens    int
	nb         int
	na         int
	despike    float64
	integrator string

	// simulate --excite
	excite  bool
	lowCmd  float64
	highCmd float64
	holdMin int
	holdMax int

	// control
	useSim bool
	port   string
	baud   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "airball",
		Short: "ball levitation control and identification lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "runs", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "preset configuration name")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	identifyCmd := &cobra.Command{
		Use:   "identify [samples.csv]",
		Short: "fit a Hammerstein model to logged actuation/measurement data",
		Args:  cobra.ExactArgs(1),
		RunE:  runIdentify,
	}
	identifyCmd.Flags().StringVar(&outPath, "out", "model.yaml", "output model file")
	identifyCmd.Flags().IntVar(&popSize, "pop", 0, "population size")
	identifyCmd.Flags().IntVar(&maxGens, "gens", 0, "generation budget")
	identifyCmd.Flags().IntVar(&nb, "nb", 0, "feedforward taps")
	identifyCmd.Flags().IntVar(&na, "na", 0, "feedback taps")
	identifyCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 = wall clock)")
	identifyCmd.Flags().Float64Var(&despike, "despike", 0, "drop samples jumping more than this per step")
	identifyCmd.Flags().StringVar(&integrator, "integrator", "rk45", "cross-validation stepper: euler, rk4 or rk45")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "run the closed loop against the plant simulator",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().Float64Var(&setpoint, "setpoint", 0, "target height in cm")
	simulateCmd.Flags().StringVar(&controller, "controller", "", "fuzzy, proportional or pid")
	simulateCmd.Flags().IntVar(&steps, "steps", 1200, "sample periods to run")
	simulateCmd.Flags().Uint64Var(&seed, "seed", 0, "noise seed (0 = wall clock)")
	simulateCmd.Flags().BoolVar(&excite, "excite", false, "generate excitation data instead of closing the loop")
	simulateCmd.Flags().Float64Var(&lowCmd, "low", 40, "excitation low command percent")
	simulateCmd.Flags().Float64Var(&highCmd, "high", 70, "excitation high command percent")
	simulateCmd.Flags().IntVar(&holdMin, "hold-min", 5, "min steps per excitation level")
	simulateCmd.Flags().IntVar(&holdMax, "hold-max", 20, "max steps per excitation level")
	simulateCmd.Flags().StringVar(&outPath, "out", "samples.csv", "excitation output file")

	controlCmd := &cobra.Command{
		Use:   "control",
		Short: "run the control loop over serial or the simulator",
		RunE:  runControl,
	}
	controlCmd.Flags().Float64Var(&setpoint, "setpoint", 0, "target height in cm")
	controlCmd.Flags().StringVar(&controller, "controller", "", "fuzzy, proportional or pid")
	controlCmd.Flags().IntVar(&steps, "steps", 0, "sample periods to run (0 = until interrupted)")
	controlCmd.Flags().BoolVar(&useSim, "sim", false, "drive the simulator instead of hardware")
	controlCmd.Flags().Uint64Var(&seed, "seed", 0, "simulator noise seed")
	controlCmd.Flags().StringVar(&port, "port", "", "serial port (default from config)")
	controlCmd.Flags().IntVar(&baud, "baud", 0, "baud rate (default from config)")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [run_id]",
		Short: "derive a fuzzy controller definition from a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runCalibrate,
	}
	calibrateCmd.Flags().StringVar(&outPath, "out", "fuzzy.yaml", "output definition file")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch the simulated loop in the terminal",
		RunE:  runLive,
	}
	liveCmd.Flags().Float64Var(&setpoint, "setpoint", 0, "target height in cm")
	liveCmd.Flags().Uint64Var(&seed, "seed", 0, "noise seed")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  runList,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored run trace as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCSV,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(identifyCmd, simulateCmd, controlCmd, calibrateCmd,
		liveCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges preset, config file and command-line flags, in
// that order of precedence, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("setpoint") {
		cfg.Setpoint = setpoint
	}
	if cmd.Flags().Changed("controller") {
		cfg.Controller = controller
	}
	if cmd.Flags().Changed("seed") {
		cfg.Sim.Seed = seed
	}
	if cmd.Flags().Changed("steps") {
		cfg.Loop.Steps = steps
	}
	if cmd.Flags().Changed("port") {
		cfg.Telemetry.Port = port
	}
	if cmd.Flags().Changed("baud") {
		cfg.Telemetry.Baud = baud
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func buildController(cfg *config.Config) (control.Controller, error) {
	switch cfg.Controller {
	case "fuzzy":
		st := control.State{
			PrevOutput: cfg.Fuzzy.MinSpeed,
			Setpoint:   cfg.Setpoint,
			Alpha:      cfg.Fuzzy.Alpha,
			MinSpeed:   cfg.Fuzzy.MinSpeed,
			Gain:       cfg.Fuzzy.Gain,
		}
		if cfg.Fuzzy.SystemPath != "" {
			sys, err := fuzzy.LoadSystem(cfg.Fuzzy.SystemPath)
			if err != nil {
				return nil, fmt.Errorf("load fuzzy system: %w", err)
			}
			eng, err := sys.Build()
			if err != nil {
				return nil, err
			}
			return control.NewFuzzy(eng, st)
		}
		return control.NewDefaultFuzzy(st, cfg.Sim.MaxDistance())
	case "proportional":
		return &control.Proportional{
			Setpoint: cfg.Setpoint,
			Kp:       cfg.Proportional.Kp,
			Offset:   cfg.Proportional.Offset,
			Deadband: cfg.Proportional.Deadband,
		}, nil
	case "pid":
		return control.NewPID(cfg.Setpoint, cfg.PID.Offset, cfg.PID.Kp, cfg.PID.Ki, cfg.PID.Kd), nil
	}
	return nil, fmt.Errorf("unknown controller %q", cfg.Controller)
}

func defaultMetrics(setpoint float64) []metrics.Metric {
	return []metrics.Metric{
		metrics.NewSetpointMSE(setpoint),
		metrics.NewSettlingTime(setpoint, 2),
		metrics.NewControlEffort(),
		metrics.NewInBand(setpoint, 2),
	}
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	seq, err := samples.LoadCSV(args[0])
	if err != nil {
		return err
	}
	seq = samples.Condition(seq)
	if despike > 0 {
		seq = samples.RemoveSpikes(seq, despike)
	}

	idCfg := cfg.Ident
	if popSize > 0 {
		idCfg.PopSize = popSize
	}
	if maxGens > 0 {
		idCfg.MaxGens = maxGens
	}
	if cmd.Flags().Changed("seed") {
		idCfg.Seed = int64(seed)
	}
	if nb > 0 || na > 0 {
		if nb > 0 {
			idCfg.NB = nb
		}
		if na > 0 {
			idCfg.NA = na
		}
		idCfg.Bounds = defaultBounds(idCfg.NB, idCfg.NA)
	}

	engine, err := ident.New(idCfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("identifying from %d samples...\n", len(seq))
	start := time.Now()
	model, mse, err := engine.Identify(ctx, seq)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("mse: %.6g\n", mse)
	fmt.Printf("nonlinear: c0=%.4f c1=%.4f c2=%.4f\n",
		model.Nonlinear[0], model.Nonlinear[1], model.Nonlinear[2])
	fmt.Printf("feedforward: %v\n", model.Feedforward)
	fmt.Printf("feedback: %v\n", model.Feedback)

	integ, err := integrators.New(integrator)
	if err != nil {
		return err
	}
	report := ident.CrossValidate(seq, model, physics.NewBallTube(), integ, cfg.Sim.SampleDt)
	fmt.Printf("\ncross-validation mse: fitted=%.6g reference=%.6g\n",
		report.FittedMSE, report.ReferenceMSE)

	if err := hammerstein.Save(outPath, &hammerstein.Fitted{Model: *model, MSE: mse, Seed: idCfg.Seed}); err != nil {
		return err
	}
	fmt.Printf("model saved to %s\n", outPath)

	measured := seq.Measurements()
	simulated := model.Simulate(seq.Actuations())
	fmt.Println("\nmeasured:")
	fmt.Println(asciigraph.Plot(measured, asciigraph.Height(10), asciigraph.Width(80)))
	fmt.Println("\nsimulated:")
	fmt.Println(asciigraph.Plot(simulated, asciigraph.Height(10), asciigraph.Width(80)))
	return nil
}

// defaultBounds mirrors the stock search box for arbitrary filter
// orders: wide boxes for the nonlinearity, tighter ones for the taps.
func defaultBounds(nb, na int) []ident.Bound {
	bounds := []ident.Bound{{Lo: -10, Hi: 10}, {Lo: -10, Hi: 10}, {Lo: -5, Hi: 5}}
	for i := 0; i < nb; i++ {
		bounds = append(bounds, ident.Bound{Lo: -5, Hi: 5})
	}
	for i := 0; i < na; i++ {
		bounds = append(bounds, ident.Bound{Lo: -2, Hi: 2})
	}
	return bounds
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if excite {
		return runExcitation(cfg)
	}

	ctl, err := buildController(cfg)
	if err != nil {
		return err
	}
	s, err := sim.New(cfg.Sim, ctl)
	if err != nil {
		return err
	}
	for _, m := range defaultMetrics(cfg.Setpoint) {
		s.AddMetric(m)
	}
	s.SetMode(sim.Automatic)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("simulating %d steps with %s controller...\n", steps, cfg.Controller)
	start := time.Now()
	recs, err := s.Run(ctx, steps)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start))

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Source:     "sim",
		Controller: cfg.Controller,
		Seed:       cfg.Sim.Seed,
		Dt:         cfg.Sim.SampleDt,
		Setpoint:   cfg.Setpoint,
		Metrics:    s.Metrics(),
	}, storage.RowsFromSim(recs))
	if err != nil {
		return err
	}

	fmt.Printf("run id: %s\n", runID)
	fmt.Println("\nmetrics:")
	for name, val := range s.Metrics() {
		fmt.Printf("  %s: %.4f\n", name, val)
	}
	return nil
}

// runExcitation drives the open-loop plant with a two-level random
// hold signal and writes the actuation/measurement pairs for the
// identification engine.
func runExcitation(cfg *config.Config) error {
	s, err := sim.New(cfg.Sim, nil)
	if err != nil {
		return err
	}
	if holdMin < 1 {
		holdMin = 1
	}
	if holdMax < holdMin {
		holdMax = holdMin
	}

	rng := rand.New(rand.NewSource(int64(cfg.Sim.Seed) + 1))
	seq := make(samples.Sequence, 0, steps)

	command := lowCmd
	hold := 0
	for i := 0; i < steps; i++ {
		if hold == 0 {
			if rng.Float64() < 0.5 {
				command = lowCmd
			} else {
				command = highCmd
			}
			hold = holdMin + rng.Intn(holdMax-holdMin+1)
		}
		hold--

		s.SetManual(command)
		r := s.Step()
		seq = append(seq, plant.Sample{Actuation: command / 100, Measurement: r.Measured, Index: i})
	}

	if err := samples.SaveCSV(outPath, seq); err != nil {
		return err
	}
	fmt.Printf("wrote %d excitation samples to %s\n", len(seq), outPath)
	return nil
}

func runControl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctl, err := buildController(cfg)
	if err != nil {
		return err
	}

	var ch telemetry.Channel
	source := "serial"
	if useSim {
		source = "sim"
		s, err := sim.New(cfg.Sim, nil)
		if err != nil {
			return err
		}
		ch = telemetry.NewSimChannel(s)
	} else {
		sc, err := telemetry.OpenSerial(cfg.Telemetry.Port, cfg.Telemetry.Baud, logger)
		if err != nil {
			return err
		}
		// The firmware reboots when the port opens.
		time.Sleep(2 * time.Second)
		ch = sc
	}
	defer ch.Close()

	runner, err := loop.New(ch, ctl, loop.Config{
		Interval:       time.Duration(cfg.Loop.IntervalMs) * time.Millisecond,
		ReadTimeout:    time.Duration(cfg.Loop.ReadTimeoutMs) * time.Millisecond,
		Steps:          cfg.Loop.Steps,
		InitialCommand: cfg.Fuzzy.MinSpeed,
	}, logger)
	if err != nil {
		return err
	}
	for _, m := range defaultMetrics(cfg.Setpoint) {
		runner.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("controlling via %s, setpoint %.1f cm (interrupt to stop)\n", source, cfg.Setpoint)
	records, runErr := runner.Run(ctx)
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Source:     source,
		Controller: cfg.Controller,
		Seed:       cfg.Sim.Seed,
		Dt:         float64(cfg.Loop.IntervalMs) / 1000,
		Setpoint:   cfg.Setpoint,
		Metrics:    runner.Metrics(),
	}, storage.RowsFromLoop(records))
	if err != nil {
		return err
	}

	fmt.Printf("run id: %s (%d steps)\n", runID, len(records))
	return nil
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(cfg.DataDir)
	rows, err := st.LoadRows(args[0])
	if err != nil {
		return err
	}

	pts := make([]control.Point, 0, len(rows))
	for _, r := range rows {
		if r.Missed {
			continue
		}
		pts = append(pts, control.Point{Distance: r.Measured, Speed: r.Command})
	}

	sys, err := control.CalibrateFromHistory(pts, cfg.Sim.MaxDistance())
	if err != nil {
		return err
	}
	if err := fuzzy.SaveSystem(outPath, sys); err != nil {
		return err
	}
	fmt.Printf("calibrated fuzzy definition from %d points saved to %s\n", len(pts), outPath)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctl, err := buildController(cfg)
	if err != nil {
		return err
	}
	s, err := sim.New(cfg.Sim, ctl)
	if err != nil {
		return err
	}
	s.SetMode(sim.Automatic)

	fz, _ := ctl.(*control.Fuzzy)
	return tui.Run(tui.NewLive(s, fz, cfg.Setpoint,
		time.Duration(cfg.Loop.IntervalMs)*time.Millisecond))
}

func runList(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tCTRL\tTIME\tSTEPS\tSETPOINT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.1f\n",
			run.ID,
			run.Source,
			run.Controller,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Setpoint,
		)
	}
	return w.Flush()
}

func runPlot(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadRows(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s  setpoint: %.1f cm  steps: %d\n\n", meta.Controller, meta.Setpoint, meta.Steps)

	heights := make([]float64, len(rows))
	commands := make([]float64, len(rows))
	for i, r := range rows {
		heights[i] = r.Height
		commands[i] = r.Command
	}

	fmt.Println(asciigraph.Plot(heights,
		asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("height (cm)")))
	fmt.Println()
	fmt.Println(asciigraph.Plot(commands,
		asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("fan command (%)")))
	return nil
}

func runExportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	return st.ExportJSON(args[0], os.Stdout)
}

func runExportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	rows, err := st.LoadRows(args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	if err := w.Write([]string{"time", "height", "measured", "command", "missed"}); err != nil {
		return err
	}
	for _, r := range rows {
		missed := "0"
		if r.Missed {
			missed = "1"
		}
		if err := w.Write([]string{
			strconv.FormatFloat(r.Time, 'f', 6, 64),
			strconv.FormatFloat(r.Height, 'f', 6, 64),
			strconv.FormatFloat(r.Measured, 'f', 6, 64),
			strconv.FormatFloat(r.Command, 'f', 6, 64),
			missed,
		}); err != nil {
			return err
		}
	}
	return nil
}
