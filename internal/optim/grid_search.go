// Package optim searches physics settings for the best value of a run
// metric.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/traitfield/internal/automation"
	"github.com/san-kum/traitfield/internal/config"
	"github.com/san-kum/traitfield/internal/experiment"
)

// GridSearch evaluates every combination of the given parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	maximize   bool
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Maximize makes the search prefer larger metric values.
func (g *GridSearch) Maximize() *GridSearch {
	g.maximize = true
	return g
}

type GridResult struct {
	Params    map[string]float64
	Value     float64
	Evaluated int
}

func (g *GridSearch) Search(ctx context.Context, base *config.Config, registry *experiment.Registry, metricName string) (*GridResult, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("grid search: %d params but %d ranges", len(g.paramNames), len(g.ranges))
	}
	if _, err := registry.GetMetric(metricName); err != nil {
		return nil, err
	}
	for _, name := range g.paramNames {
		if err := automation.SetParam(&config.Physics{}, name, 0); err != nil {
			return nil, err
		}
	}

	res := &GridResult{Value: math.Inf(1)}
	if g.maximize {
		res.Value = math.Inf(-1)
	}
	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, registry, metricName, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (g *GridSearch) better(v, best float64) bool {
	if g.maximize {
		return v > best
	}
	return v < best
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	registry *experiment.Registry,
	metricName string,
	res *GridResult,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		cfg := base.Clone()
		for name, v := range current {
			if err := automation.SetParam(&cfg.Physics, name, v); err != nil {
				return err
			}
		}

		exp := experiment.New(cfg)
		if err := exp.Setup(registry.DefaultMetrics()); err != nil {
			return fmt.Errorf("grid point %v: %w", current, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return fmt.Errorf("grid point %v: %w", current, err)
		}
		res.Evaluated++

		val := result.Metrics[metricName]
		if res.Params == nil || g.better(val, res.Value) {
			res.Value = val
			res.Params = make(map[string]float64, len(current))
			for k, v := range current {
				res.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, next, base, registry, metricName, res); err != nil {
			return err
		}
	}
	return nil
}
