// Package telemetry exports layout engine events as Prometheus metrics and
// serves them over HTTP alongside a JSON status document.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/traitfield/internal/layout"
)

// Collector is a layout.Observer backed by its own Prometheus registry.
// OnEvent runs on the engine's goroutine; Status and the HTTP handlers may
// be called from any goroutine.
type Collector struct {
	registry *prometheus.Registry

	Steps          prometheus.Counter
	Spikes         prometheus.Counter
	CentralChanges prometheus.Counter
	NodeEvents     *prometheus.CounterVec
	Nodes          prometheus.Gauge
	Energy         *prometheus.GaugeVec
	SimTime        prometheus.Gauge

	mu     sync.RWMutex
	status Status
}

type Status struct {
	Step          int     `json:"step"`
	Time          float64 `json:"time"`
	Nodes         int     `json:"nodes"`
	Central       int     `json:"central"`
	Spikes        int     `json:"spikes"`
	KineticEnergy float64 `json:"kinetic_energy"`
	TotalEnergy   float64 `json:"total_energy"`
	AverageEnergy float64 `json:"average_energy"`
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of layout steps",
		}),
		Spikes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "energy_spikes_total",
			Help:      "Total number of energy spikes that triggered velocity damping",
		}),
		CentralChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "central_changes_total",
			Help:      "Total number of central node changes",
		}),
		NodeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_events_total",
			Help:      "Nodes added to or removed from the layout",
		}, []string{"kind"}),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Current number of nodes including the central node",
		}),
		Energy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy",
			Help:      "System energy reported by the energy monitor",
		}, []string{"term"}),
		SimTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sim_time_seconds",
			Help:      "Simulated time since initialization",
		}),
	}

	c.registry.MustRegister(
		c.Steps,
		c.Spikes,
		c.CentralChanges,
		c.NodeEvents,
		c.Nodes,
		c.Energy,
		c.SimTime,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) OnEvent(e layout.Event) {
	c.Nodes.Set(float64(e.Nodes))
	c.SimTime.Set(e.Time)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Step = e.Step
	c.status.Time = e.Time
	c.status.Nodes = e.Nodes
	c.status.Central = e.Central

	switch e.Kind {
	case layout.EventStep:
		c.Steps.Inc()
		c.Energy.WithLabelValues("kinetic").Set(e.Energy.Kinetic)
		c.Energy.WithLabelValues("potential").Set(e.Energy.Potential)
		c.Energy.WithLabelValues("total").Set(e.Energy.Total)
		c.Energy.WithLabelValues("average").Set(e.Energy.Average)
		c.status.KineticEnergy = e.Energy.Kinetic
		c.status.TotalEnergy = e.Energy.Total
		c.status.AverageEnergy = e.Energy.Average
	case layout.EventEnergySpike:
		c.Spikes.Inc()
		c.status.Spikes++
	case layout.EventCentralChanged:
		c.CentralChanges.Inc()
	case layout.EventNodeAdded:
		c.NodeEvents.WithLabelValues("added").Inc()
	case layout.EventNodeRemoved:
		c.NodeEvents.WithLabelValues("removed").Inc()
	}
}

func (c *Collector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}
