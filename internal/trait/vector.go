package trait

import (
	"fmt"
	"math"
)

const (
	DefaultLo   = 0.0
	DefaultHi   = 100.0
	DefaultFill = 50.0
)

// Vector is an ordered list of trait values. Every vector in one simulation
// run has the same length.
type Vector []float64

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Range bounds every trait value.
type Range struct {
	Lo float64 `yaml:"lo" toml:"lo" json:"lo"`
	Hi float64 `yaml:"hi" toml:"hi" json:"hi"`
}

func DefaultRange() Range { return Range{Lo: DefaultLo, Hi: DefaultHi} }

func (r Range) Span() float64 { return r.Hi - r.Lo }

func (r Range) Contains(x float64) bool { return x >= r.Lo && x <= r.Hi }

func (r Range) Clamp(x float64) float64 { return math.Max(r.Lo, math.Min(r.Hi, x)) }

func (r Range) Validate() error {
	if !(r.Span() > 0) {
		return fmt.Errorf("%w: [%g, %g]", ErrEmptyRange, r.Lo, r.Hi)
	}
	return nil
}

// ClampVector returns a copy of v with every value clamped into r.
func (r Range) ClampVector(v Vector) Vector {
	c := make(Vector, len(v))
	for i, x := range v {
		c[i] = r.Clamp(x)
	}
	return c
}

// CanonicalKey names trait dimension i (zero based) as attr1, attr2, ...
func CanonicalKey(i int) string {
	return fmt.Sprintf("attr%d", i+1)
}

// CanonicalKeys returns the first n canonical keys.
func CanonicalKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = CanonicalKey(i)
	}
	return keys
}

// FromMap orders a keyed trait map into a Vector. Missing keys read as zero.
func FromMap(m map[string]float64, keys []string) Vector {
	v := make(Vector, len(keys))
	for i, k := range keys {
		v[i] = m[k]
	}
	return v
}

// ToMap is the inverse of FromMap.
func ToMap(v Vector, keys []string) map[string]float64 {
	m := make(map[string]float64, len(keys))
	for i, k := range keys {
		if i < len(v) {
			m[k] = v[i]
		}
	}
	return m
}

// Resize grows v to n dimensions, filling new ones with fill, or trims it.
func Resize(v Vector, n int, fill float64) Vector {
	out := make(Vector, n)
	copy(out, v)
	for i := len(v); i < n; i++ {
		out[i] = fill
	}
	return out
}
