package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/traitfield/internal/layout"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultMaxNodes, cfg.MaxNodes)
	assert.Equal(t, "spring", cfg.Physics.ForceLaw)
	assert.Equal(t, layout.DefaultConfig(), cfg.Physics.Layout())
}

func TestLoadYAMLAndTOML(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
name: yaml-run
nodes: 8
physics:
  damping: 0.8
  force_law: inverse_square
  range:
    lo: -1
    hi: 1
`), 0644))

	tomlPath := filepath.Join(dir, "run.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
name = "toml-run"
nodes = 8

[physics]
damping = 0.8
force_law = "inverse_square"

[physics.range]
lo = -1.0
hi = 1.0
`), 0644))

	for _, path := range []string{yamlPath, tomlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			cfg, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, 8, cfg.Nodes)
			assert.Equal(t, 0.8, cfg.Physics.Damping)
			assert.Equal(t, "inverse_square", cfg.Physics.ForceLaw)
			assert.Equal(t, -1.0, cfg.Physics.Range.Lo)
			// absent keys keep their defaults
			assert.Equal(t, DefaultTraits, cfg.Traits)
			assert.Equal(t, 40.0, cfg.Physics.RestLength)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestLoadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := GetPreset("dense")
	cfg.Seed = 42

	for _, name := range []string{"out.yml", "out.toml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, cfg))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded, name)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		msg    string
	}{
		{"too many nodes", func(c *Config) { c.Nodes = 65 }, "nodes must not exceed maxnodes"},
		{"no traits", func(c *Config) { c.Traits = 0 }, "traits must be at least 1"},
		{"bad generator", func(c *Config) { c.Generator = "gaussian" }, "generator must be one of"},
		{"zero damping", func(c *Config) { c.Physics.Damping = 0 }, "physics.damping must be greater than 0"},
		{"unknown law", func(c *Config) { c.Physics.ForceLaw = "gravity" }, "physics.forcelaw must be one of"},
		{"empty range", func(c *Config) { c.Physics.Range.Hi = c.Physics.Range.Lo }, "no span"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, layout.ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestApplyLookup(t *testing.T) {
	env := map[string]string{
		EnvTraitDimensions: "7",
		EnvAttractForce:    "0.1",
		EnvRepelForce:      "1.0",
		EnvDamping:         "0.05",
		EnvFPS:             "30",
		EnvMaxNodes:        "10",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyLookup(lookup))

	assert.Equal(t, 7, cfg.Traits)
	assert.Equal(t, 0.1, cfg.Physics.KAttraction)
	assert.Equal(t, 1.0, cfg.Physics.KRepulsion)
	assert.InDelta(t, 0.95, cfg.Physics.Damping, 1e-12)
	assert.Equal(t, 30, cfg.FPS)
	assert.InDelta(t, 1.0/30, cfg.Physics.Dt, 1e-12)
	assert.Equal(t, 10, cfg.MaxNodes)
	assert.Equal(t, 10, cfg.Nodes)
	assert.NoError(t, cfg.Validate())
}

func TestApplyLookupErrors(t *testing.T) {
	tests := map[string]string{
		EnvTraitDimensions: "2",
		EnvAttractForce:    "strong",
		EnvFPS:             "0",
		EnvMaxNodes:        "many",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.ApplyLookup(func(k string) (string, bool) {
				if k == key {
					return val, true
				}
				return "", false
			})
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	require.NotEmpty(t, names)
	assert.IsNonDecreasing(t, names)

	for _, name := range names {
		cfg := GetPreset(name)
		require.NotNil(t, cfg, name)
		assert.Equal(t, name, cfg.Name)
		assert.NoError(t, cfg.Validate(), name)
	}

	assert.Nil(t, GetPreset("nonexistent"))

	cfg := GetPreset("default")
	cfg.Nodes = 1
	assert.Equal(t, DefaultNodes, Presets["default"].Nodes, "GetPreset must return a copy")
}

func TestPhysicsPatch(t *testing.T) {
	p := GetPreset("swirl").Physics
	got := p.Patch().Apply(layout.DefaultConfig())
	assert.Equal(t, p.Layout(), got)
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.yaml")
	require.NoError(t, Save(path, DefaultConfig()))

	w, err := NewWatcher(path, nil, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	invalid := DefaultConfig()
	invalid.Physics.Damping = 2
	require.NoError(t, Save(path, invalid))
	time.Sleep(100 * time.Millisecond)

	next := DefaultConfig()
	next.Physics.Damping = 0.5
	require.NoError(t, Save(path, next))

	select {
	case cfg := <-w.Updates():
		assert.Equal(t, 0.5, cfg.Physics.Damping)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
