package layout

import (
	"math"

	"github.com/san-kum/traitfield/internal/force"
	"github.com/san-kum/traitfield/internal/integrators"
	"github.com/san-kum/traitfield/internal/trait"
)

// Config holds every tunable of a simulation run.
type Config struct {
	KAttraction float64
	KRepulsion  float64
	// Damping multiplies velocity once per step; 1 means undamped.
	Damping float64
	// AngularSpeed is the swirl rate in radians per unit time about +Y
	// through the central node.
	AngularSpeed float64
	RestLength   float64
	Dt           float64
	MaxVelocity  float64

	MinSepRatio    float64
	CentralClamp   float64
	RepulsionClamp float64
	CompatFloor    float64

	Range      trait.Range
	ForceLaw   string
	Integrator string

	EnergyMonitor bool
	EnergyK       float64

	// SeedRadius bounds the sphere new nodes are placed in. Zero means
	// 1.5 times RestLength.
	SeedRadius float64
}

func DefaultConfig() Config {
	return Config{
		KAttraction:    1,
		KRepulsion:     1,
		Damping:        integrators.DefaultDamping,
		AngularSpeed:   0.25,
		RestLength:     40,
		Dt:             1.0 / 60,
		MaxVelocity:    integrators.DefaultMaxVelocity,
		MinSepRatio:    force.DefaultMinSepRatio,
		CentralClamp:   force.DefaultCentralClamp,
		RepulsionClamp: force.DefaultRepulsionClamp,
		CompatFloor:    force.DefaultCompatFloor,
		Range:          trait.DefaultRange(),
		ForceLaw:       "spring",
		Integrator:     "euler",
		EnergyMonitor:  true,
		EnergyK:        1,
	}
}

func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"k_attraction":    c.KAttraction,
		"k_repulsion":     c.KRepulsion,
		"damping":         c.Damping,
		"angular_speed":   c.AngularSpeed,
		"rest_length":     c.RestLength,
		"dt":              c.Dt,
		"max_velocity":    c.MaxVelocity,
		"min_sep_ratio":   c.MinSepRatio,
		"central_clamp":   c.CentralClamp,
		"repulsion_clamp": c.RepulsionClamp,
		"compat_floor":    c.CompatFloor,
		"energy_k":        c.EnergyK,
		"seed_radius":     c.SeedRadius,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidf("%s is not finite", name)
		}
	}

	switch {
	case c.KAttraction < 0:
		return invalidf("k_attraction must be non-negative, got %g", c.KAttraction)
	case c.KRepulsion < 0:
		return invalidf("k_repulsion must be non-negative, got %g", c.KRepulsion)
	case c.Damping <= 0 || c.Damping > 1:
		return invalidf("damping must be in (0, 1], got %g", c.Damping)
	case c.RestLength <= 0:
		return invalidf("rest_length must be positive, got %g", c.RestLength)
	case c.Dt <= 0:
		return invalidf("dt must be positive, got %g", c.Dt)
	case c.MaxVelocity <= 0:
		return invalidf("max_velocity must be positive, got %g", c.MaxVelocity)
	case c.MinSepRatio < 0:
		return invalidf("min_sep_ratio must be non-negative, got %g", c.MinSepRatio)
	case c.CentralClamp <= 0:
		return invalidf("central_clamp must be positive, got %g", c.CentralClamp)
	case c.RepulsionClamp < 0:
		return invalidf("repulsion_clamp must be non-negative, got %g", c.RepulsionClamp)
	case c.CompatFloor < 0 || c.CompatFloor > 1:
		return invalidf("compat_floor must be in [0, 1], got %g", c.CompatFloor)
	case c.EnergyK < 0:
		return invalidf("energy_k must be non-negative, got %g", c.EnergyK)
	case c.SeedRadius < 0:
		return invalidf("seed_radius must be non-negative, got %g", c.SeedRadius)
	}

	if err := c.Range.Validate(); err != nil {
		return err
	}
	if _, err := force.Lookup(c.ForceLaw); err != nil {
		return invalidf("%v", err)
	}
	if _, err := integrators.Lookup(c.Integrator); err != nil {
		return invalidf("%v", err)
	}
	return nil
}

func (c Config) forceParams() force.Params {
	return force.Params{
		KAttraction:    c.KAttraction,
		KRepulsion:     c.KRepulsion,
		RestLength:     c.RestLength,
		MinSepRatio:    c.MinSepRatio,
		CentralClamp:   c.CentralClamp,
		RepulsionClamp: c.RepulsionClamp,
		CompatFloor:    c.CompatFloor,
	}
}

func (c Config) integratorParams() integrators.Params {
	return integrators.Params{Damping: c.Damping, MaxVelocity: c.MaxVelocity}
}

func (c Config) seedRadius() float64 {
	if c.SeedRadius > 0 {
		return c.SeedRadius
	}
	return c.RestLength * 1.5
}

// ConfigPatch is a partial Config. Nil fields are left unchanged by Apply.
type ConfigPatch struct {
	KAttraction    *float64
	KRepulsion     *float64
	Damping        *float64
	AngularSpeed   *float64
	RestLength     *float64
	Dt             *float64
	MaxVelocity    *float64
	MinSepRatio    *float64
	CentralClamp   *float64
	RepulsionClamp *float64
	CompatFloor    *float64
	Range          *trait.Range
	ForceLaw       *string
	Integrator     *string
	EnergyMonitor  *bool
	EnergyK        *float64
	SeedRadius     *float64
}

func (p ConfigPatch) Apply(c Config) Config {
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&c.KAttraction, p.KAttraction)
	setF(&c.KRepulsion, p.KRepulsion)
	setF(&c.Damping, p.Damping)
	setF(&c.AngularSpeed, p.AngularSpeed)
	setF(&c.RestLength, p.RestLength)
	setF(&c.Dt, p.Dt)
	setF(&c.MaxVelocity, p.MaxVelocity)
	setF(&c.MinSepRatio, p.MinSepRatio)
	setF(&c.CentralClamp, p.CentralClamp)
	setF(&c.RepulsionClamp, p.RepulsionClamp)
	setF(&c.CompatFloor, p.CompatFloor)
	setF(&c.EnergyK, p.EnergyK)
	setF(&c.SeedRadius, p.SeedRadius)
	if p.Range != nil {
		c.Range = *p.Range
	}
	if p.ForceLaw != nil {
		c.ForceLaw = *p.ForceLaw
	}
	if p.Integrator != nil {
		c.Integrator = *p.Integrator
	}
	if p.EnergyMonitor != nil {
		c.EnergyMonitor = *p.EnergyMonitor
	}
	return c
}

// IsEmpty reports whether the patch changes nothing.
func (p ConfigPatch) IsEmpty() bool {
	return p == ConfigPatch{}
}
