package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/traitfield/internal/automation"
	"github.com/san-kum/traitfield/internal/config"
	"github.com/san-kum/traitfield/internal/experiment"
	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/metrics"
	"github.com/san-kum/traitfield/internal/population"
	"github.com/san-kum/traitfield/internal/storage"
	"github.com/san-kum/traitfield/internal/viz"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

func runLayout(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	opts := []experiment.Option{
		experiment.WithLogger(logger),
		experiment.WithRecordEvery(recordEvery),
	}
	if obs := startTelemetry(ctx, logger); obs != nil {
		opts = append(opts, experiment.WithObserver(obs))
	}

	registry := experiment.NewRegistry()
	exp := experiment.New(cfg, opts...)
	if err := exp.Setup(registry.DefaultMetrics()); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	printSummary(cfg, result)
	return saveRun(cfg, result)
}

func saveRun(cfg *config.Config, result *experiment.Result) error {
	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg, result)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	fmt.Printf("\nsaved: %s\n", runID)
	return nil
}

func printSummary(cfg *config.Config, result *experiment.Result) {
	final := result.Final()
	row := func(label, value string) {
		fmt.Println(labelStyle.Render(label) + valueStyle.Render(value))
	}
	fmt.Println(titleStyle.Render(strings.ToUpper(cfg.Name)))
	row("nodes", fmt.Sprintf("%d x %d traits", len(final.Nodes), cfg.Traits))
	row("steps", fmt.Sprintf("%d (%.2fs)", result.StepsTaken, final.Time))
	row("physics", fmt.Sprintf("%s / %s", cfg.Physics.ForceLaw, cfg.Physics.Integrator))
	row("spikes", fmt.Sprintf("%d", result.Spikes))

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, fmt.Sprintf("%.4f", result.Metrics[name]))
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	logger, err := newFileLogger(filepath.Join(dataDir, "live.log"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	nodes, err := population.Generate(population.Options{
		Count:     cfg.Nodes,
		Traits:    cfg.Traits,
		Range:     cfg.Physics.Range,
		Generator: cfg.Generator,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	population.SeedShell(nodes, 0, cfg.Physics.RestLength, rng)

	engOpts := []layout.Option{layout.WithLogger(logger), layout.WithRand(rng)}
	if obs := startTelemetry(ctx, logger); obs != nil {
		engOpts = append(engOpts, layout.WithObserver(obs))
	}
	eng := layout.New(engOpts...)
	if err := eng.Initialize(nodes, 0, cfg.Physics.Layout()); err != nil {
		return err
	}

	var updates <-chan *config.Config
	if configFile != "" {
		w, err := config.NewWatcher(configFile, logger, config.DefaultDebounce)
		if err != nil {
			return err
		}
		defer w.Close()
		updates = w.Updates()
	}

	spawned := 0
	spawn := func() (layout.Node, error) {
		if eng.Len() >= cfg.MaxNodes {
			return layout.Node{}, fmt.Errorf("%w: max_nodes %d reached", layout.ErrInvalidOperation, cfg.MaxNodes)
		}
		spawned++
		out, err := population.Generate(population.Options{
			Count:     1,
			Traits:    eng.Dims(),
			Range:     eng.Config().Range,
			Generator: "uniform",
			Seed:      cfg.Seed + int64(spawned)*7919,
		})
		if err != nil {
			return layout.Node{}, err
		}
		return out[0], nil
	}

	model, err := viz.NewModel(eng, viz.Options{
		Title:   cfg.Name,
		FPS:     cfg.FPS,
		Theme:   themeName,
		Updates: updates,
		Spawn:   spawn,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
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
	fmt.Fprintln(w, "ID\tTIME\tNODES\tSTEPS\tLAW\tINTEG\tSPIKES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			len(run.Nodes),
			run.Steps,
			run.ForceLaw,
			run.Integrator,
			run.Spikes,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) < 2 {
		return fmt.Errorf("run %s has too few frames to plot", meta.ID)
	}

	spread := metrics.NewSpread()
	spreads := make([]float64, len(frames))
	kinetic := make([]float64, len(frames))
	for i, f := range frames {
		bodies := f.Bodies()
		spread.Observe(metrics.Frame{Bodies: bodies, Central: f.Central, Time: f.Time})
		spreads[i] = spread.Value()
		kinetic[i] = metrics.Kinetic(bodies)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("frames: %d\n\n", len(frames))
	fmt.Println(asciigraph.Plot(spreads, asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption("spread (mean distance to central)")))
	fmt.Println()
	fmt.Println(asciigraph.Plot(kinetic, asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption("kinetic energy")))
	return nil
}

func exportRun(format string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		st := storage.New(dataDir)
		if err := st.ExportRun(args[0], format, outPath); err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
		if outPath != "" && outPath != "-" {
			fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)
		}
		return nil
	}
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tNODES\tTRAITS\tGEN\tLAW\tINTEG\tREST\tSWIRL")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\t%.0f\t%.2f\n",
			name, p.Nodes, p.Traits, p.Generator,
			p.Physics.ForceLaw, p.Physics.Integrator,
			p.Physics.RestLength, p.Physics.AngularSpeed)
	}
	return w.Flush()
}

func genConfig(cmd *cobra.Command, args []string) error {
	cfg := config.GetPreset(genPreset)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", genPreset, config.ListPresets())
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	out, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}
	for _, a := range out.Applied {
		fmt.Printf("step %4d  %s\n", a.At, a.Type)
	}
	fmt.Println()
	printSummary(sc.Config, out.Result)
	return saveRun(sc.Config, out.Result)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	registry := experiment.NewRegistry()
	results, err := automation.RunSweep(ctx, &automation.Sweep{
		Base:   cfg,
		Param:  sweepParam,
		Min:    sweepMin,
		Max:    sweepMax,
		Points: sweepPoints,
	}, registry, logger)
	if err != nil {
		return err
	}

	names := registry.ListMetrics()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSPIKES\t%s\n", strings.ToUpper(sweepParam), strings.ToUpper(strings.Join(names, "\t")))
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%d", r.Value, r.Spikes)
		for _, name := range names {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[name])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	registry := experiment.NewRegistry()
	results, err := experiment.NewEnsemble(cfg, registry, numRuns, seedStart, logger).Run(ctx)
	if err != nil {
		return err
	}

	names := registry.ListMetrics()
	sums := make(map[string]float64, len(names))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SEED\tSPIKES\t%s\n", strings.ToUpper(strings.Join(names, "\t")))
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d", seedStart+int64(i), r.Spikes)
		for _, name := range names {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[name])
			sums[name] += r.Metrics[name]
		}
		fmt.Fprintln(w)
	}
	fmt.Fprint(w, "mean\t")
	for _, name := range names {
		fmt.Fprintf(w, "\t%.4f", sums[name]/float64(len(results)))
	}
	fmt.Fprintln(w)
	logger.Debug("ensemble finished", zap.Int("runs", len(results)))
	return w.Flush()
}
