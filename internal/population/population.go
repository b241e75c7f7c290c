// Package population builds node sets for the layout engine: random or
// coherent trait vectors, ids, and starting positions on a shell around the
// central node.
package population

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/aquilax/go-perlin"
	"github.com/google/uuid"

	"github.com/san-kum/traitfield/internal/geom"
	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/trait"
)

type Generator interface {
	Name() string
	Attributes(i, dims int) trait.Vector
	Preferences(i, dims int) trait.Vector
}

// Uniform draws whole-number traits uniformly from the range.
type Uniform struct {
	rng *rand.Rand
	r   trait.Range
}

func NewUniform(r trait.Range, rng *rand.Rand) *Uniform {
	return &Uniform{rng: rng, r: r}
}

func (u *Uniform) Name() string { return "uniform" }

func (u *Uniform) Attributes(i, dims int) trait.Vector { return u.sample(dims) }

func (u *Uniform) Preferences(i, dims int) trait.Vector { return u.sample(dims) }

func (u *Uniform) sample(dims int) trait.Vector {
	v := make(trait.Vector, dims)
	for j := range v {
		x := math.Floor(u.r.Lo + u.rng.Float64()*(u.r.Span()+1))
		v[j] = u.r.Clamp(x)
	}
	return v
}

// Perlin samples 2D noise over (node, trait) so that nodes with nearby
// indices get similar traits and the population forms clusters.
type Perlin struct {
	noise *perlin.Perlin
	r     trait.Range
	freq  float64
}

const (
	perlinAlpha = 2
	perlinBeta  = 2
	perlinN     = 3
	perlinFreq  = 0.15
	// preferences are read from a band of the noise plane far from the
	// attributes
	preferenceOffset = 1000
)

func NewPerlin(r trait.Range, seed int64) *Perlin {
	return &Perlin{
		noise: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinN, seed),
		r:     r,
		freq:  perlinFreq,
	}
}

func (p *Perlin) Name() string { return "perlin" }

func (p *Perlin) Attributes(i, dims int) trait.Vector { return p.sample(float64(i), dims) }

func (p *Perlin) Preferences(i, dims int) trait.Vector {
	return p.sample(float64(i)+preferenceOffset, dims)
}

func (p *Perlin) sample(row float64, dims int) trait.Vector {
	v := make(trait.Vector, dims)
	for j := range v {
		n := p.noise.Noise2D(row*p.freq, float64(j)*p.freq*4+0.5)
		// noise is roughly in [-1, 1]
		v[j] = p.r.Clamp(math.Round(p.r.Lo + p.r.Span()*(0.5+0.5*n)))
	}
	return v
}

var generators = map[string]func(r trait.Range, seed int64) Generator{
	"uniform": func(r trait.Range, seed int64) Generator {
		return NewUniform(r, rand.New(rand.NewSource(seed)))
	},
	"perlin": func(r trait.Range, seed int64) Generator { return NewPerlin(r, seed) },
}

func NewGenerator(name string, r trait.Range, seed int64) (Generator, error) {
	fn, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return fn(r, seed), nil
}

func GeneratorNames() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Options struct {
	Count     int
	Traits    int
	Range     trait.Range
	Generator string
	Seed      int64
}

// Generate builds Count nodes. Node 0 is meant to be central. Ids are
// random UUIDs drawn from the seeded source, so a seed reproduces them.
func Generate(opts Options) ([]layout.Node, error) {
	if opts.Count <= 0 {
		return nil, fmt.Errorf("%w: node count must be positive, got %d", layout.ErrInvalidConfiguration, opts.Count)
	}
	if opts.Traits <= 0 {
		return nil, fmt.Errorf("%w: trait count must be positive, got %d", layout.ErrInvalidConfiguration, opts.Traits)
	}
	if err := opts.Range.Validate(); err != nil {
		return nil, err
	}
	name := opts.Generator
	if name == "" {
		name = "uniform"
	}
	gen, err := NewGenerator(name, opts.Range, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", layout.ErrInvalidConfiguration, err)
	}

	idSource := rand.New(rand.NewSource(opts.Seed))
	nodes := make([]layout.Node, opts.Count)
	for i := range nodes {
		id, err := uuid.NewRandomFromReader(idSource)
		if err != nil {
			return nil, err
		}
		nodes[i] = layout.Node{
			ID:          id.String(),
			Attributes:  gen.Attributes(i, opts.Traits),
			Preferences: gen.Preferences(i, opts.Traits),
			Mass:        1,
		}
	}
	return nodes, nil
}

// SeedShell places the central node at the origin and every other node at a
// random direction and a distance in [rest, 1.5*rest).
func SeedShell(nodes []layout.Node, central int, rest float64, rng *rand.Rand) {
	for i := range nodes {
		if i == central {
			nodes[i].Position = geom.Vec3{}
			nodes[i].HasPosition = true
			continue
		}
		var dir geom.Vec3
		for dir.LengthSq() < 1e-12 {
			dir = geom.Vec3{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		}
		r := rest + rng.Float64()*rest*0.5
		nodes[i].Position = dir.WithLength(r)
		nodes[i].HasPosition = true
	}
}
