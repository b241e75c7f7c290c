package metrics

import "github.com/san-kum/traitfield/internal/geom"

// Frame is what a Metric sees after each engine step.
type Frame struct {
	Bodies  []geom.Body
	Central int
	Time    float64
	Spike   bool
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

// MeanKinetic averages total kinetic energy over observed frames.
type MeanKinetic struct {
	name    string
	sum     float64
	samples int
}

func NewMeanKinetic() *MeanKinetic {
	return &MeanKinetic{name: "mean_kinetic"}
}

func (m *MeanKinetic) Name() string { return m.name }

func (m *MeanKinetic) Observe(f Frame) {
	m.sum += Kinetic(f.Bodies)
	m.samples++
}

func (m *MeanKinetic) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanKinetic) Reset() {
	m.sum = 0
	m.samples = 0
}
