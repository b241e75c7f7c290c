package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/traitfield/internal/geom"
)

func TestEnergyTerms(t *testing.T) {
	bodies := []geom.Body{
		{Position: geom.Vec3{}, Velocity: geom.Vec3{X: 2}, Mass: 1},
		{Position: geom.Vec3{X: 4}, Velocity: geom.Vec3{Y: 1}, Mass: 2},
		{Position: geom.Vec3{X: 4.001}, Mass: 1},
	}

	if ke := Kinetic(bodies); math.Abs(ke-3) > 1e-12 {
		t.Errorf("expected kinetic 3, got %f", ke)
	}

	// pair (1,2) is closer than the cutoff and is skipped
	want := 2.0/4 + 2.0/4.001
	if pe := Potential(bodies, 2); math.Abs(pe-want) > 1e-12 {
		t.Errorf("expected potential %f, got %f", want, pe)
	}
}

func TestMonitorNoSpikeBeforeMinSamples(t *testing.T) {
	m := NewEnergyMonitor(DefaultMonitorConfig())
	calm := []geom.Body{{Velocity: geom.Vec3{X: 1}, Mass: 1}}
	hot := []geom.Body{{Velocity: geom.Vec3{X: 100}, Mass: 1}}

	for i := 0; i < DefaultMinSamples-2; i++ {
		if s := m.Observe(calm); s.Spike {
			t.Fatalf("unexpected spike at frame %d", i)
		}
	}
	if s := m.Observe(hot); s.Spike {
		t.Error("spike reported before the window reached min samples")
	}
}

func TestMonitorDetectsSpike(t *testing.T) {
	m := NewEnergyMonitor(DefaultMonitorConfig())
	calm := []geom.Body{{Velocity: geom.Vec3{X: 1}, Mass: 1}}
	hot := []geom.Body{{Velocity: geom.Vec3{X: 3}, Mass: 1}}

	for i := 0; i < DefaultMinSamples; i++ {
		m.Observe(calm)
	}
	s := m.Observe(hot)
	if !s.Spike {
		t.Fatalf("expected spike: total=%f avg=%f", s.Total, s.Average)
	}
	if s.Total <= DefaultSpikeRatio*s.Average {
		t.Errorf("spike total %f not above %f", s.Total, DefaultSpikeRatio*s.Average)
	}
}

func TestMonitorWindowWraps(t *testing.T) {
	m := NewEnergyMonitor(MonitorConfig{Window: 4, MinSamples: 2})
	b := []geom.Body{{Velocity: geom.Vec3{X: 2}, Mass: 1}}

	for i := 0; i < 10; i++ {
		m.Observe(b)
	}
	if m.Len() != 4 {
		t.Errorf("expected window length 4, got %d", m.Len())
	}
	s := m.Observe(b)
	if math.Abs(s.Average-2) > 1e-9 {
		t.Errorf("expected steady average 2, got %f", s.Average)
	}

	m.Reset()
	if m.Len() != 0 {
		t.Error("expected empty window after reset")
	}
}

func TestMonitorDefaults(t *testing.T) {
	m := NewEnergyMonitor(MonitorConfig{})
	cfg := m.Config()
	if cfg.Window != DefaultWindow || cfg.MinSamples != DefaultMinSamples {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if m.Multiplier() != DefaultMultiplier {
		t.Errorf("expected multiplier %f, got %f", DefaultMultiplier, m.Multiplier())
	}
}
