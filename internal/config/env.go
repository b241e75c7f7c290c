package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment overrides.
const (
	EnvTraitDimensions = "TRAIT_DIMENSIONS"
	EnvAttractForce    = "ATTRACT_FORCE"
	EnvRepelForce      = "REPEL_FORCE"
	EnvDamping         = "DAMPING"
	EnvFPS             = "FPS"
	EnvMaxNodes        = "MAX_NODES"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv() error {
	return c.ApplyLookup(os.LookupEnv)
}

// ApplyLookup overrides fields from lookup. DAMPING is the fraction of
// velocity lost per step, so the stored multiplier is 1 - DAMPING. FPS also
// sets the physics step to 1/FPS.
func (c *Config) ApplyLookup(lookup LookupFunc) error {
	if v, ok := lookup(EnvTraitDimensions); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvTraitDimensions, v, err)
		}
		if n < 3 || n > 10 {
			return envError(EnvTraitDimensions, v, fmt.Errorf("must be between 3 and 10"))
		}
		c.Traits = n
	}
	if v, ok := lookup(EnvAttractForce); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError(EnvAttractForce, v, err)
		}
		c.Physics.KAttraction = f
	}
	if v, ok := lookup(EnvRepelForce); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError(EnvRepelForce, v, err)
		}
		c.Physics.KRepulsion = f
	}
	if v, ok := lookup(EnvDamping); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError(EnvDamping, v, err)
		}
		c.Physics.Damping = 1 - f
	}
	if v, ok := lookup(EnvFPS); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvFPS, v, err)
		}
		if n <= 0 {
			return envError(EnvFPS, v, fmt.Errorf("must be positive"))
		}
		c.FPS = n
		c.Physics.Dt = 1 / float64(n)
	}
	if v, ok := lookup(EnvMaxNodes); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvMaxNodes, v, err)
		}
		c.MaxNodes = n
		if c.Nodes > n {
			c.Nodes = n
		}
	}
	return nil
}

func envError(key, val string, err error) error {
	return fmt.Errorf("env %s=%q: %w", key, val, err)
}
