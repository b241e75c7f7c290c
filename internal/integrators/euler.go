package integrators

import "github.com/san-kum/traitfield/internal/geom"

// Euler is a damped semi-implicit Euler step: velocity first, then position
// from the new velocity.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(b *geom.Body, force geom.Vec3, p Params, dt float64) {
	acc := force.Scale(1 / mass(b))
	v := b.Velocity.AddScaled(acc, dt)
	v = v.Scale(p.Damping)
	b.Velocity = ClampSpeed(v, p.MaxVelocity)
	b.Position = b.Position.AddScaled(b.Velocity, dt)
}
