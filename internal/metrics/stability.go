package metrics

// Stability is the fraction of observed frames without an energy spike.
type Stability struct {
	name    string
	spikes  int
	samples int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f Frame) {
	s.samples++
	if f.Spike {
		s.spikes++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.spikes)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.spikes = 0
	s.samples = 0
}
