// Package experiment runs the layout engine headless for a fixed number of
// steps and collects the trajectory and summary metrics.
package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/san-kum/traitfield/internal/config"
	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/metrics"
	"github.com/san-kum/traitfield/internal/population"
)

type Result struct {
	// Nodes is the population as initialized, traits included.
	Nodes      []layout.Node
	Frames     []layout.Snapshot
	Metrics    map[string]float64
	StepsTaken int
	Spikes     int
}

// Final returns the last recorded frame.
func (r *Result) Final() layout.Snapshot {
	if len(r.Frames) == 0 {
		return layout.Snapshot{}
	}
	return r.Frames[len(r.Frames)-1]
}

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

// WithRecordEvery keeps one frame out of every n steps. The initial and final
// frames are always kept.
func WithRecordEvery(n int) Option {
	return func(e *Experiment) {
		if n > 0 {
			e.recordEvery = n
		}
	}
}

func WithObserver(o layout.Observer) Option {
	return func(e *Experiment) { e.observers = append(e.observers, o) }
}

type Experiment struct {
	cfg         *config.Config
	engine      *layout.Engine
	metrics     []metrics.Metric
	observers   []layout.Observer
	logger      *zap.Logger
	recordEvery int
	nodes       []layout.Node
	spikes      int
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:         cfg,
		logger:      zap.NewNop(),
		recordEvery: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup validates the config, generates the population and initializes a
// fresh engine.
func (e *Experiment) Setup(ms []metrics.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	nodes, err := population.Generate(population.Options{
		Count:     e.cfg.Nodes,
		Traits:    e.cfg.Traits,
		Range:     e.cfg.Physics.Range,
		Generator: e.cfg.Generator,
		Seed:      e.cfg.Seed,
	})
	if err != nil {
		return fmt.Errorf("generate population: %w", err)
	}
	rng := rand.New(rand.NewSource(e.cfg.Seed))
	population.SeedShell(nodes, 0, e.cfg.Physics.RestLength, rng)

	opts := []layout.Option{
		layout.WithLogger(e.logger),
		layout.WithRand(rng),
		layout.WithObserver(layout.ObserverFunc(e.countSpikes)),
	}
	for _, o := range e.observers {
		opts = append(opts, layout.WithObserver(o))
	}
	eng := layout.New(opts...)
	if err := eng.Initialize(nodes, 0, e.cfg.Physics.Layout()); err != nil {
		return err
	}

	e.engine = eng
	e.metrics = ms
	e.nodes = eng.Nodes()
	return nil
}

func (e *Experiment) countSpikes(ev layout.Event) {
	if ev.Kind == layout.EventEnergySpike {
		e.spikes++
	}
}

// Engine returns the engine built by Setup, or nil before Setup.
func (e *Experiment) Engine() *layout.Engine {
	return e.engine
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	return e.RunWithCallback(ctx, nil)
}

// RunWithCallback calls fn before every step. Returning an error from fn
// stops the run.
func (e *Experiment) RunWithCallback(ctx context.Context, fn func(step int, eng *layout.Engine) error) (*Result, error) {
	if e.engine == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	for _, m := range e.metrics {
		m.Reset()
	}
	e.spikes = 0

	result := &Result{
		Nodes:   e.nodes,
		Frames:  make([]layout.Snapshot, 0, e.cfg.Steps/e.recordEvery+2),
		Metrics: make(map[string]float64),
	}
	result.Frames = append(result.Frames, e.engine.Snapshot())

	for i := 0; i < e.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			e.finish(result)
			return result, ctx.Err()
		default:
		}

		if fn != nil {
			if err := fn(i, e.engine); err != nil {
				e.finish(result)
				return result, fmt.Errorf("step %d: %w", i, err)
			}
		}

		report, err := e.engine.Step()
		if err != nil {
			e.finish(result)
			return result, err
		}
		result.StepsTaken++

		snap := e.engine.Snapshot()
		frame := metrics.Frame{
			Bodies:  snap.Bodies(),
			Central: snap.Central,
			Time:    snap.Time,
			Spike:   report.Energy.Spike,
		}
		for _, m := range e.metrics {
			m.Observe(frame)
		}

		if (i+1)%e.recordEvery == 0 || i == e.cfg.Steps-1 {
			result.Frames = append(result.Frames, snap)
		}
	}

	e.finish(result)
	e.logger.Debug("experiment finished",
		zap.String("name", e.cfg.Name),
		zap.Int("steps", result.StepsTaken),
		zap.Int("spikes", result.Spikes),
	)
	return result, nil
}

func (e *Experiment) finish(result *Result) {
	result.Spikes = e.spikes
	for _, m := range e.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
