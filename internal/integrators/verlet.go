package integrators

import "github.com/san-kum/traitfield/internal/geom"

// Verlet advances position with the second-order term before updating
// velocity. Forces are held constant across the step, so it needs a single
// force evaluation like Euler.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Name() string { return "verlet" }

func (v *Verlet) Step(b *geom.Body, force geom.Vec3, p Params, dt float64) {
	acc := force.Scale(1 / mass(b))
	b.Position = b.Position.AddScaled(b.Velocity, dt).AddScaled(acc, 0.5*dt*dt)
	vel := b.Velocity.AddScaled(acc, dt).Scale(p.Damping)
	b.Velocity = ClampSpeed(vel, p.MaxVelocity)
}
