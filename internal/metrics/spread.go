package metrics

// Spread reports the mean distance of outer nodes from the central node in
// the latest frame.
type Spread struct {
	name  string
	value float64
}

func NewSpread() *Spread {
	return &Spread{name: "spread"}
}

func (s *Spread) Name() string { return s.name }

func (s *Spread) Observe(f Frame) {
	if f.Central < 0 || f.Central >= len(f.Bodies) || len(f.Bodies) < 2 {
		s.value = 0
		return
	}
	c := f.Bodies[f.Central].Position
	var sum float64
	for i := range f.Bodies {
		if i == f.Central {
			continue
		}
		sum += f.Bodies[i].Position.Distance(c)
	}
	s.value = sum / float64(len(f.Bodies)-1)
}

func (s *Spread) Value() float64 { return s.value }

func (s *Spread) Reset() { s.value = 0 }
