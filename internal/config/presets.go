package config

import "sort"

func preset(name string, mutate func(c *Config)) *Config {
	c := DefaultConfig()
	c.Name = name
	mutate(c)
	return c
}

var Presets = map[string]*Config{
	"default": preset("default", func(c *Config) {}),
	"sparse": preset("sparse", func(c *Config) {
		c.Nodes = 6
		c.Traits = 3
		c.Physics.RestLength = 60
	}),
	"dense": preset("dense", func(c *Config) {
		c.Nodes = 40
		c.Traits = 8
		c.Physics.RestLength = 30
		c.Physics.KRepulsion = 2
	}),
	"calm": preset("calm", func(c *Config) {
		c.Physics.Damping = 0.85
		c.Physics.AngularSpeed = 0
		c.Physics.MaxVelocity = 1.5
	}),
	"swirl": preset("swirl", func(c *Config) {
		c.Physics.AngularSpeed = 1.0
		c.Physics.Damping = 0.98
	}),
	"clusters": preset("clusters", func(c *Config) {
		c.Nodes = 24
		c.Generator = "perlin"
		c.Physics.KRepulsion = 3
	}),
	"inverse": preset("inverse", func(c *Config) {
		c.Physics.ForceLaw = "inverse_square"
		c.Physics.KAttraction = 400
		c.Physics.RestLength = 20
	}),
	"verlet": preset("verlet", func(c *Config) {
		c.Physics.Integrator = "verlet"
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
