package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/trait"
)

const (
	DefaultTraits    = 5
	DefaultNodes     = 12
	DefaultMaxNodes  = 64
	DefaultSteps     = 600
	DefaultFPS       = 60
	DefaultGenerator = "uniform"
)

var ErrUnsupportedFormat = errors.New("config: unsupported file format")

type Config struct {
	Name      string  `yaml:"name" toml:"name" json:"name"`
	Traits    int     `yaml:"traits" toml:"traits" json:"traits" validate:"min=1,max=32"`
	Nodes     int     `yaml:"nodes" toml:"nodes" json:"nodes" validate:"min=1,ltefield=MaxNodes"`
	MaxNodes  int     `yaml:"max_nodes" toml:"max_nodes" json:"max_nodes" validate:"min=1"`
	Generator string  `yaml:"generator" toml:"generator" json:"generator" validate:"oneof=uniform perlin"`
	Seed      int64   `yaml:"seed" toml:"seed" json:"seed"`
	Steps     int     `yaml:"steps" toml:"steps" json:"steps" validate:"min=0"`
	FPS       int     `yaml:"fps" toml:"fps" json:"fps" validate:"min=1,max=240"`
	Physics   Physics `yaml:"physics" toml:"physics" json:"physics"`
}

type Physics struct {
	KAttraction    float64     `yaml:"k_attraction" toml:"k_attraction" json:"k_attraction" validate:"gte=0"`
	KRepulsion     float64     `yaml:"k_repulsion" toml:"k_repulsion" json:"k_repulsion" validate:"gte=0"`
	Damping        float64     `yaml:"damping" toml:"damping" json:"damping" validate:"gt=0,lte=1"`
	AngularSpeed   float64     `yaml:"angular_speed" toml:"angular_speed" json:"angular_speed"`
	RestLength     float64     `yaml:"rest_length" toml:"rest_length" json:"rest_length" validate:"gt=0"`
	Dt             float64     `yaml:"dt" toml:"dt" json:"dt" validate:"gt=0"`
	MaxVelocity    float64     `yaml:"max_velocity" toml:"max_velocity" json:"max_velocity" validate:"gt=0"`
	MinSepRatio    float64     `yaml:"min_sep_ratio" toml:"min_sep_ratio" json:"min_sep_ratio" validate:"gte=0"`
	CentralClamp   float64     `yaml:"central_clamp" toml:"central_clamp" json:"central_clamp" validate:"gt=0"`
	RepulsionClamp float64     `yaml:"repulsion_clamp" toml:"repulsion_clamp" json:"repulsion_clamp" validate:"gte=0"`
	CompatFloor    float64     `yaml:"compat_floor" toml:"compat_floor" json:"compat_floor" validate:"gte=0,lte=1"`
	Range          trait.Range `yaml:"range" toml:"range" json:"range"`
	ForceLaw       string      `yaml:"force_law" toml:"force_law" json:"force_law" validate:"oneof=spring inverse_square"`
	Integrator     string      `yaml:"integrator" toml:"integrator" json:"integrator" validate:"oneof=euler verlet"`
	EnergyMonitor  bool        `yaml:"energy_monitor" toml:"energy_monitor" json:"energy_monitor"`
	EnergyK        float64     `yaml:"energy_k" toml:"energy_k" json:"energy_k" validate:"gte=0"`
	SeedRadius     float64     `yaml:"seed_radius" toml:"seed_radius" json:"seed_radius" validate:"gte=0"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:      "default",
		Traits:    DefaultTraits,
		Nodes:     DefaultNodes,
		MaxNodes:  DefaultMaxNodes,
		Generator: DefaultGenerator,
		Steps:     DefaultSteps,
		FPS:       DefaultFPS,
		Physics:   PhysicsFrom(layout.DefaultConfig()),
	}
}

func PhysicsFrom(c layout.Config) Physics {
	return Physics{
		KAttraction:    c.KAttraction,
		KRepulsion:     c.KRepulsion,
		Damping:        c.Damping,
		AngularSpeed:   c.AngularSpeed,
		RestLength:     c.RestLength,
		Dt:             c.Dt,
		MaxVelocity:    c.MaxVelocity,
		MinSepRatio:    c.MinSepRatio,
		CentralClamp:   c.CentralClamp,
		RepulsionClamp: c.RepulsionClamp,
		CompatFloor:    c.CompatFloor,
		Range:          c.Range,
		ForceLaw:       c.ForceLaw,
		Integrator:     c.Integrator,
		EnergyMonitor:  c.EnergyMonitor,
		EnergyK:        c.EnergyK,
		SeedRadius:     c.SeedRadius,
	}
}

func (p Physics) Layout() layout.Config {
	return layout.Config{
		KAttraction:    p.KAttraction,
		KRepulsion:     p.KRepulsion,
		Damping:        p.Damping,
		AngularSpeed:   p.AngularSpeed,
		RestLength:     p.RestLength,
		Dt:             p.Dt,
		MaxVelocity:    p.MaxVelocity,
		MinSepRatio:    p.MinSepRatio,
		CentralClamp:   p.CentralClamp,
		RepulsionClamp: p.RepulsionClamp,
		CompatFloor:    p.CompatFloor,
		Range:          p.Range,
		ForceLaw:       p.ForceLaw,
		Integrator:     p.Integrator,
		EnergyMonitor:  p.EnergyMonitor,
		EnergyK:        p.EnergyK,
		SeedRadius:     p.SeedRadius,
	}
}

// Patch sets every field, so applying it makes a running engine match p.
func (p Physics) Patch() layout.ConfigPatch {
	c := p.Layout()
	return layout.ConfigPatch{
		KAttraction:    &c.KAttraction,
		KRepulsion:     &c.KRepulsion,
		Damping:        &c.Damping,
		AngularSpeed:   &c.AngularSpeed,
		RestLength:     &c.RestLength,
		Dt:             &c.Dt,
		MaxVelocity:    &c.MaxVelocity,
		MinSepRatio:    &c.MinSepRatio,
		CentralClamp:   &c.CentralClamp,
		RepulsionClamp: &c.RepulsionClamp,
		CompatFloor:    &c.CompatFloor,
		Range:          &c.Range,
		ForceLaw:       &c.ForceLaw,
		Integrator:     &c.Integrator,
		EnergyMonitor:  &c.EnergyMonitor,
		EnergyK:        &c.EnergyK,
		SeedRadius:     &c.SeedRadius,
	}
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Load reads a YAML or TOML file, chosen by extension, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	switch formatOf(path) {
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	case "toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	switch formatOf(path) {
	case "yaml":
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		data = out
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return os.WriteFile(path, data, 0644)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	}
	return ""
}
