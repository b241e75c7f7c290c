// Package integrators advances node velocities and positions one frame at a
// time. Every integrator is dissipative: velocity is multiplied by the
// damping factor and clamped to the speed limit on each step.
package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/traitfield/internal/geom"
)

const (
	DefaultDamping     = 0.95
	DefaultMaxVelocity = 3.0
)

type Params struct {
	Damping     float64
	MaxVelocity float64
}

func DefaultParams() Params {
	return Params{Damping: DefaultDamping, MaxVelocity: DefaultMaxVelocity}
}

// Integrator consumes the net force computed for b this frame.
type Integrator interface {
	Name() string
	Step(b *geom.Body, force geom.Vec3, p Params, dt float64)
}

// ClampSpeed rescales v to at most max, keeping its direction. A non-positive
// max disables the clamp.
func ClampSpeed(v geom.Vec3, max float64) geom.Vec3 {
	if max <= 0 {
		return v
	}
	if v.LengthSq() > max*max {
		return v.WithLength(max)
	}
	return v
}

// Swirl rigidly rotates every body except the pivot about the +Y axis
// through the pivot's position.
func Swirl(bodies []geom.Body, pivot int, angularSpeed, dt float64) {
	angle := angularSpeed * dt
	if angle == 0 || pivot < 0 || pivot >= len(bodies) {
		return
	}
	center := bodies[pivot].Position
	for i := range bodies {
		if i == pivot {
			continue
		}
		bodies[i].Position = bodies[i].Position.RotateY(center, angle)
	}
}

func mass(b *geom.Body) float64 {
	if b.Mass <= 0 {
		return 1
	}
	return b.Mass
}

var integrators = map[string]func() Integrator{
	"euler":  func() Integrator { return NewEuler() },
	"verlet": func() Integrator { return NewVerlet() },
}

func Lookup(name string) (Integrator, error) {
	fn, ok := integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(integrators))
	for name := range integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
