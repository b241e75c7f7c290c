package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/traitfield/internal/force"
	"github.com/san-kum/traitfield/internal/integrators"
	"github.com/san-kum/traitfield/internal/metrics"
	"github.com/san-kum/traitfield/internal/population"
)

// Registry resolves the names used in config files and on the command line.
type Registry struct {
	metrics map[string]func() metrics.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func() metrics.Metric),
	}

	r.metrics["mean_kinetic"] = func() metrics.Metric { return metrics.NewMeanKinetic() }
	r.metrics["spread"] = func() metrics.Metric { return metrics.NewSpread() }
	r.metrics["stability"] = func() metrics.Metric { return metrics.NewStability() }

	return r
}

func (r *Registry) GetForceLaw(name string) (force.Law, error) {
	return force.Lookup(name)
}

func (r *Registry) GetIntegrator(name string) (integrators.Integrator, error) {
	return integrators.Lookup(name)
}

func (r *Registry) GetMetric(name string) (metrics.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListForceLaws() []string   { return force.Names() }
func (r *Registry) ListIntegrators() []string { return integrators.Names() }
func (r *Registry) ListGenerators() []string  { return population.GeneratorNames() }

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns a fresh instance of every registered metric.
func (r *Registry) DefaultMetrics() []metrics.Metric {
	out := make([]metrics.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name]())
	}
	return out
}
