package geom

// Body is the mutable kinematic state of one simulated node.
type Body struct {
	Position Vec3
	Velocity Vec3
	Mass     float64
}

// KineticEnergy returns ½m|v|². A zero mass counts as unit mass.
func (b Body) KineticEnergy() float64 {
	m := b.Mass
	if m == 0 {
		m = 1
	}
	return 0.5 * m * b.Velocity.LengthSq()
}
