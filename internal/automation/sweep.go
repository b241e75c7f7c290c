package automation

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/traitfield/internal/config"
	"github.com/san-kum/traitfield/internal/experiment"
)

var physicsParams = map[string]func(p *config.Physics) *float64{
	"k_attraction":    func(p *config.Physics) *float64 { return &p.KAttraction },
	"k_repulsion":     func(p *config.Physics) *float64 { return &p.KRepulsion },
	"damping":         func(p *config.Physics) *float64 { return &p.Damping },
	"angular_speed":   func(p *config.Physics) *float64 { return &p.AngularSpeed },
	"rest_length":     func(p *config.Physics) *float64 { return &p.RestLength },
	"dt":              func(p *config.Physics) *float64 { return &p.Dt },
	"max_velocity":    func(p *config.Physics) *float64 { return &p.MaxVelocity },
	"min_sep_ratio":   func(p *config.Physics) *float64 { return &p.MinSepRatio },
	"central_clamp":   func(p *config.Physics) *float64 { return &p.CentralClamp },
	"repulsion_clamp": func(p *config.Physics) *float64 { return &p.RepulsionClamp },
	"compat_floor":    func(p *config.Physics) *float64 { return &p.CompatFloor },
	"energy_k":        func(p *config.Physics) *float64 { return &p.EnergyK },
	"seed_radius":     func(p *config.Physics) *float64 { return &p.SeedRadius },
}

// SetParam sets a numeric physics setting by its config file key.
func SetParam(p *config.Physics, name string, v float64) error {
	field, ok := physicsParams[name]
	if !ok {
		return fmt.Errorf("unknown physics parameter: %s", name)
	}
	*field(p) = v
	return nil
}

func ParamNames() []string {
	names := make([]string, 0, len(physicsParams))
	for name := range physicsParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sweep runs Base once per evenly spaced value of Param in [Min, Max].
type Sweep struct {
	Base   *config.Config
	Param  string
	Min    float64
	Max    float64
	Points int
}

type SweepResult struct {
	Value   float64
	Metrics map[string]float64
	Spikes  int
	Steps   int
}

func RunSweep(ctx context.Context, sw *Sweep, registry *experiment.Registry, logger *zap.Logger) ([]SweepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sw.Points < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 points, got %d", sw.Points)
	}
	if _, ok := physicsParams[sw.Param]; !ok {
		return nil, fmt.Errorf("unknown physics parameter: %s", sw.Param)
	}

	step := (sw.Max - sw.Min) / float64(sw.Points-1)
	results := make([]SweepResult, 0, sw.Points)
	for i := 0; i < sw.Points; i++ {
		v := sw.Min + float64(i)*step
		cfg := sw.Base.Clone()
		if err := SetParam(&cfg.Physics, sw.Param, v); err != nil {
			return results, err
		}

		exp := experiment.New(cfg, experiment.WithLogger(logger))
		if err := exp.Setup(registry.DefaultMetrics()); err != nil {
			return results, fmt.Errorf("%s=%g: %w", sw.Param, v, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sw.Param, v, err)
		}

		results = append(results, SweepResult{
			Value:   v,
			Metrics: res.Metrics,
			Spikes:  res.Spikes,
			Steps:   res.StepsTaken,
		})
		logger.Info("sweep point done",
			zap.String("param", sw.Param),
			zap.Float64("value", v),
			zap.Int("point", i+1),
			zap.Int("of", sw.Points),
		)
	}
	return results, nil
}
