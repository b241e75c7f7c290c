// Package metrics measures the state of a layout while it runs: the energy
// monitor that damps runaway frames, and summary metrics for headless runs.
package metrics

import "github.com/san-kum/traitfield/internal/geom"

const (
	DefaultWindow     = 240
	DefaultMinSamples = 120
	DefaultSpikeRatio = 1.2
	DefaultMultiplier = 0.9

	// pairs closer than this contribute no potential energy
	minPairDistance = 0.01
)

type MonitorConfig struct {
	Window     int
	MinSamples int
	SpikeRatio float64
	Multiplier float64
	K          float64
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Window:     DefaultWindow,
		MinSamples: DefaultMinSamples,
		SpikeRatio: DefaultSpikeRatio,
		Multiplier: DefaultMultiplier,
		K:          1,
	}
}

type Sample struct {
	Kinetic   float64
	Potential float64
	Total     float64
	Average   float64
	Spike     bool
}

// EnergyMonitor keeps a rolling window of total system energy. A frame whose
// total exceeds SpikeRatio times the window average is a spike, once the
// window holds at least MinSamples entries. The monitor only reports; the
// caller applies Multiplier to the velocities.
type EnergyMonitor struct {
	cfg     MonitorConfig
	history []float64
	next    int
	count   int
	sum     float64
}

func NewEnergyMonitor(cfg MonitorConfig) *EnergyMonitor {
	def := DefaultMonitorConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinSamples <= 0 || cfg.MinSamples > cfg.Window {
		cfg.MinSamples = min(def.MinSamples, cfg.Window)
	}
	if cfg.SpikeRatio <= 0 {
		cfg.SpikeRatio = def.SpikeRatio
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	return &EnergyMonitor{
		cfg:     cfg,
		history: make([]float64, cfg.Window),
	}
}

func (m *EnergyMonitor) Config() MonitorConfig { return m.cfg }

func (m *EnergyMonitor) Multiplier() float64 { return m.cfg.Multiplier }

// SetK changes the potential constant without clearing the window.
func (m *EnergyMonitor) SetK(k float64) { m.cfg.K = k }

// Len is the number of totals currently in the window.
func (m *EnergyMonitor) Len() int { return m.count }

func (m *EnergyMonitor) Observe(bodies []geom.Body) Sample {
	ke := Kinetic(bodies)
	pe := Potential(bodies, m.cfg.K)
	total := ke + pe

	if m.count == len(m.history) {
		m.sum -= m.history[m.next]
	} else {
		m.count++
	}
	m.history[m.next] = total
	m.sum += total
	m.next = (m.next + 1) % len(m.history)

	avg := m.sum / float64(m.count)
	return Sample{
		Kinetic:   ke,
		Potential: pe,
		Total:     total,
		Average:   avg,
		Spike:     m.count >= m.cfg.MinSamples && total > m.cfg.SpikeRatio*avg,
	}
}

func (m *EnergyMonitor) Reset() {
	for i := range m.history {
		m.history[i] = 0
	}
	m.next, m.count, m.sum = 0, 0, 0
}

func Kinetic(bodies []geom.Body) float64 {
	var ke float64
	for i := range bodies {
		ke += bodies[i].KineticEnergy()
	}
	return ke
}

// Potential sums k/d over unordered pairs.
func Potential(bodies []geom.Body, k float64) float64 {
	var pe float64
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			d := bodies[i].Position.Distance(bodies[j].Position)
			if d > minPairDistance {
				pe += k / d
			}
		}
	}
	return pe
}
