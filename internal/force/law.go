package force

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/traitfield/internal/geom"
)

// Law computes the force the central node exerts on one outer node.
type Law interface {
	Name() string
	Central(outer, central geom.Vec3, compat float64, p Params) geom.Vec3
}

// Spring holds each outer node near the rest shell around the central node.
// Stretched nodes are pulled in, compressed ones pushed out, and the spring
// is stiffer for more compatible nodes.
type Spring struct{}

func NewSpring() *Spring { return &Spring{} }

func (s *Spring) Name() string { return "spring" }

func (s *Spring) Central(outer, central geom.Vec3, compat float64, p Params) geom.Vec3 {
	toCentral := central.Sub(outer)
	dist := toCentral.Length()
	if dist == 0 {
		return geom.Vec3{}
	}
	stretch := dist - p.RestLength
	// Positive magnitude points at the central node, so this is the restoring
	// -k·(d-rest) along the outward direction.
	mag :=clamp(p.KAttraction*p.CompatScale(compat)*stretch, -p.CentralClamp, p.CentralClamp)
	return toCentral.Scale(mag / dist)
}

// InverseSquare pulls outer nodes toward the central node with a strength of
// k·compat/d². There is no rest shell: the layout relies on repulsion and
// damping to keep nodes apart.
type InverseSquare struct{}

func NewInverseSquare() *InverseSquare { return &InverseSquare{} }

func (s *InverseSquare) Name() string { return "inverse_square" }

func (s *InverseSquare) Central(outer, central geom.Vec3, compat float64, p Params) geom.Vec3 {
	toCentral := central.Sub(outer)
	dist := toCentral.Length()
	if dist == 0 {
		return geom.Vec3{}
	}
	d := math.Max(dist, minDistance)
	mag := clamp(p.KAttraction*compat/(d*d), 0, p.CentralClamp)
	return toCentral.Scale(mag / dist)
}

var laws = map[string]func() Law{
	"spring":         func() Law { return NewSpring() },
	"inverse_square": func() Law { return NewInverseSquare() },
}

// Lookup returns a fresh law registered under name.
func Lookup(name string) (Law, error) {
	fn, ok := laws[name]
	if !ok {
		return nil, fmt.Errorf("unknown force law: %s", name)
	}
	return fn(), nil
}

// Names lists the registered laws in sorted order.
func Names() []string {
	names := make([]string, 0, len(laws))
	for name := range laws {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
