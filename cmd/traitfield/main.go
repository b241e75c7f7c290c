package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/traitfield/internal/config"
	"github.com/san-kum/traitfield/internal/experiment"
	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/telemetry"
)

var (
	dataDir     string
	verbose     bool
	configFile  string
	noEnv       bool
	steps       int
	seed        int64
	lawName     string
	integName   string
	recordEvery int
	noSave      bool
	metricsAddr string
	corsOrigins []string
	frameRate   int
	themeName   string
	outPath     string
	genPreset   string
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int
	numRuns     int
	seedStart   int64
	svgFrame    int
	svgNode     string
	svgSize     int
	tuneGrid    []string
	tuneMetric  string
	tuneMax     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "traitfield",
		Short:         "3D trait-compatibility layout lab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".traitfield", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a layout headless and save the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLayout,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 keeps the config value)")
	runCmd.Flags().IntVar(&recordEvery, "record-every", 1, "keep one frame every n steps")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the run to the store")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a layout with the terminal preview",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 0, "frame rate (0 keeps the config value)")
	liveCmd.Flags().StringVar(&themeName, "theme", "cyberpunk", "color theme")
	liveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address")
	liveCmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "allowed CORS origins for the telemetry server")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot spread and kinetic energy of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun("json"),
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run frames to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun("csv"),
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	genCmd := &cobra.Command{
		Use:   "gen [path]",
		Short: "write a config file (.yaml or .toml)",
		Args:  cobra.ExactArgs(1),
		RunE:  genConfig,
	}
	genCmd.Flags().StringVar(&genPreset, "preset", "default", "preset to start from")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the run to the store")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "sweep one physics parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "damping", "physics parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.8, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.99, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 5, "number of values")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [preset]",
		Short: "run a preset across consecutive seeds",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addConfigFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of runs")
	ensembleCmd.Flags().Int64Var(&seedStart, "seed-start", 1, "seed of the first run")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a stored frame or one node's path as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgFrame, "frame", -1, "frame index, negative counts from the end")
	exportSVGCmd.Flags().StringVar(&svgNode, "node", "", "draw this node's trajectory instead of a frame")
	exportSVGCmd.Flags().IntVar(&svgSize, "size", 600, "image width and height")

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search physics parameters for the best metric value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneGrid, "grid", nil, "param=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "mean_kinetic", "metric to optimize")
	tuneCmd.Flags().BoolVar(&tuneMax, "maximize", false, "prefer larger metric values")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd,
		presetsCmd, genCmd, scenarioCmd, sweepCmd, ensembleCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (.yaml, .yml or .toml)")
	cmd.Flags().BoolVar(&noEnv, "no-env", false, "ignore environment overrides")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 keeps the config value)")
	cmd.Flags().StringVar(&lawName, "law", "", "force law (empty keeps the config value)")
	cmd.Flags().StringVar(&integName, "integrator", "", "integrator (empty keeps the config value)")
}

// resolveConfig layers preset (or config file), environment and flags.
func resolveConfig(args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
		if cfg.Name == "" {
			cfg.Name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
		}
	case len(args) > 0:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	default:
		cfg = config.GetPreset("default")
	}

	if !noEnv {
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	registry := experiment.NewRegistry()
	if lawName != "" {
		law, err := registry.GetForceLaw(lawName)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, registry.ListForceLaws())
		}
		cfg.Physics.ForceLaw = law.Name()
	}
	if integName != "" {
		integ, err := registry.GetIntegrator(integName)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, registry.ListIntegrators())
		}
		cfg.Physics.Integrator = integ.Name()
	}
	if steps > 0 {
		cfg.Steps = steps
	}
	if frameRate > 0 {
		cfg.FPS = frameRate
		cfg.Physics.Dt = 1 / float64(frameRate)
	}
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
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

// newFileLogger logs to a file so the terminal preview is not overwritten.
func newFileLogger(path string) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// startTelemetry serves the collector on metricsAddr when it is set and
// returns the observer to attach to the engine.
func startTelemetry(ctx context.Context, logger *zap.Logger) layout.Observer {
	if metricsAddr == "" {
		return nil
	}
	collector := telemetry.NewCollector("traitfield")
	router := telemetry.NewRouter(collector, logger, corsOrigins)
	go func() {
		if err := telemetry.Serve(ctx, metricsAddr, router, logger); err != nil {
			logger.Error("telemetry server failed", zap.Error(err))
		}
	}()
	return collector
}
