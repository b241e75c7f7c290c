package force

const (
	DefaultMinSepRatio    = 0.9
	DefaultCentralClamp   = 10.0
	DefaultRepulsionClamp = 5.0
	DefaultCompatFloor    = 0.2

	// minDistance floors the separation used by distance-divided laws.
	minDistance = 0.01
)

// Params are the tunables every force law reads.
type Params struct {
	KAttraction    float64
	KRepulsion     float64
	RestLength     float64
	MinSepRatio    float64
	CentralClamp   float64
	RepulsionClamp float64
	CompatFloor    float64
}

func DefaultParams() Params {
	return Params{
		KAttraction:    1,
		KRepulsion:     1,
		RestLength:     40,
		MinSepRatio:    DefaultMinSepRatio,
		CentralClamp:   DefaultCentralClamp,
		RepulsionClamp: DefaultRepulsionClamp,
		CompatFloor:    DefaultCompatFloor,
	}
}

// MinSep is the separation below which outer nodes repel each other.
func (p Params) MinSep() float64 { return p.MinSepRatio * p.RestLength }

// CompatScale maps a compatibility in [0,1] onto [CompatFloor, 1] so that
// even incompatible nodes feel some pull.
func (p Params) CompatScale(compat float64) float64 {
	return p.CompatFloor + (1-p.CompatFloor)*compat
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
