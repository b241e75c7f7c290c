// Package automation drives the layout engine from scripts: scenarios that
// apply engine operations at fixed steps, and parameter sweeps over a base
// config.
package automation

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/traitfield/internal/config"
	"github.com/san-kum/traitfield/internal/experiment"
	"github.com/san-kum/traitfield/internal/geom"
	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/trait"
)

const (
	ActionSetCentral     = "set_central"
	ActionAddNode        = "add_node"
	ActionRemoveNode     = "remove_node"
	ActionResize         = "resize"
	ActionSetConfig      = "set_config"
	ActionDrag           = "drag"
	ActionRelease        = "release"
	ActionSetAttributes  = "set_attributes"
	ActionSetPreferences = "set_preferences"
)

var validate = validator.New()

// Scenario is a run config plus engine operations keyed by step number.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Preset      string         `yaml:"preset"`
	Config      *config.Config `yaml:"config"`
	Actions     []Action       `yaml:"actions" validate:"dive"`
}

// Action is applied before the step numbered At. Which fields are read
// depends on Type.
type Action struct {
	At          int                `yaml:"at" validate:"min=0"`
	Type        string             `yaml:"action" validate:"oneof=set_central add_node remove_node resize set_config drag release set_attributes set_preferences"`
	Index       *int               `yaml:"index,omitempty"`
	ID          string             `yaml:"id,omitempty"`
	Dims        int                `yaml:"dims,omitempty"`
	Fill        *float64           `yaml:"fill,omitempty"`
	Position    []float64          `yaml:"position,omitempty" validate:"omitempty,len=3"`
	Attributes  []float64          `yaml:"attributes,omitempty"`
	Preferences []float64          `yaml:"preferences,omitempty"`
	Physics     map[string]float64 `yaml:"physics,omitempty"`
}

// LoadScenario reads a YAML scenario. The config section is decoded over the
// named preset, or over the defaults when no preset is given.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	base := config.DefaultConfig()
	if head.Preset != "" {
		if base = config.GetPreset(head.Preset); base == nil {
			return nil, fmt.Errorf("scenario: unknown preset %q", head.Preset)
		}
	}

	baseName := base.Name
	sc := &Scenario{Config: base}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Name != "" && sc.Config.Name == baseName {
		sc.Config.Name = sc.Name
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	if s.Config == nil {
		return fmt.Errorf("scenario %s: missing config", s.Name)
	}
	return s.Config.Validate()
}

// Outcome is the experiment result plus the actions that were applied.
type Outcome struct {
	Result  *experiment.Result
	Applied []Action
}

// RunScenario runs the scenario's config for Config.Steps steps, applying
// each action before its step. Actions sharing a step run in file order.
// An action scheduled at or past Config.Steps never runs.
func RunScenario(ctx context.Context, sc *Scenario, registry *experiment.Registry, logger *zap.Logger) (*Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	actions := make([]Action, len(sc.Actions))
	copy(actions, sc.Actions)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].At < actions[j].At })

	exp := experiment.New(sc.Config, experiment.WithLogger(logger))
	if err := exp.Setup(registry.DefaultMetrics()); err != nil {
		return nil, fmt.Errorf("scenario %s setup: %w", sc.Name, err)
	}

	out := &Outcome{}
	next := 0
	result, err := exp.RunWithCallback(ctx, func(step int, eng *layout.Engine) error {
		for next < len(actions) && actions[next].At <= step {
			a := actions[next]
			next++
			if err := Apply(eng, a); err != nil {
				return fmt.Errorf("%s: %w", a.Type, err)
			}
			out.Applied = append(out.Applied, a)
			logger.Info("scenario action",
				zap.String("scenario", sc.Name),
				zap.Int("step", step),
				zap.String("action", a.Type),
			)
		}
		return nil
	})
	out.Result = result
	if err != nil {
		return out, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return out, nil
}

// Apply performs a single action against eng.
func Apply(eng *layout.Engine, a Action) error {
	switch a.Type {
	case ActionSetCentral:
		idx, err := resolveIndex(eng, a)
		if err != nil {
			return err
		}
		return eng.SetCentral(idx)

	case ActionAddNode:
		n, err := nodeFromAction(eng, a)
		if err != nil {
			return err
		}
		return eng.AddNode(n)

	case ActionRemoveNode:
		id := a.ID
		if id == "" {
			idx, err := resolveIndex(eng, a)
			if err != nil {
				return err
			}
			id = eng.Snapshot().Nodes[idx].ID
		}
		return eng.RemoveNode(id)

	case ActionResize:
		fill := eng.Config().Range.Lo + eng.Config().Range.Span()/2
		if a.Fill != nil {
			fill = *a.Fill
		}
		return eng.Resize(a.Dims, fill)

	case ActionSetConfig:
		p := config.PhysicsFrom(eng.Config())
		for name, v := range a.Physics {
			if err := SetParam(&p, name, v); err != nil {
				return err
			}
		}
		return eng.SetConfig(p.Patch())

	case ActionDrag:
		if len(a.Position) != 3 {
			return fmt.Errorf("drag needs a 3-element position, got %d", len(a.Position))
		}
		eng.DragCentral(geom.Vec3{X: a.Position[0], Y: a.Position[1], Z: a.Position[2]})
		return nil

	case ActionRelease:
		eng.ReleaseCentral()
		return nil

	case ActionSetAttributes:
		return eng.SetAttributes(a.ID, trait.Vector(a.Attributes))

	case ActionSetPreferences:
		return eng.SetPreferences(a.ID, trait.Vector(a.Preferences))
	}
	return fmt.Errorf("unknown action: %s", a.Type)
}

func resolveIndex(eng *layout.Engine, a Action) (int, error) {
	snap := eng.Snapshot()
	if a.ID != "" {
		for i, n := range snap.Nodes {
			if n.ID == a.ID {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: %s", layout.ErrNodeNotFound, a.ID)
	}
	if a.Index == nil {
		return 0, fmt.Errorf("%s needs an id or index", a.Type)
	}
	if *a.Index < 0 || *a.Index >= len(snap.Nodes) {
		return 0, fmt.Errorf("index %d out of range [0, %d)", *a.Index, len(snap.Nodes))
	}
	return *a.Index, nil
}

// nodeFromAction builds the node for add_node. Missing vectors are filled
// with the middle of the trait range.
func nodeFromAction(eng *layout.Engine, a Action) (layout.Node, error) {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	r := eng.Config().Range
	mid := r.Lo + r.Span()/2
	n := layout.Node{
		ID:          id,
		Attributes:  vectorOr(a.Attributes, eng.Dims(), mid),
		Preferences: vectorOr(a.Preferences, eng.Dims(), mid),
		Mass:        1,
	}
	if a.Position != nil {
		if len(a.Position) != 3 {
			return layout.Node{}, fmt.Errorf("position needs 3 elements, got %d", len(a.Position))
		}
		n.Position = geom.Vec3{X: a.Position[0], Y: a.Position[1], Z: a.Position[2]}
		n.HasPosition = true
	}
	return n, nil
}

func vectorOr(v []float64, dims int, fill float64) trait.Vector {
	if len(v) > 0 {
		return trait.Vector(v).Clone()
	}
	return trait.Resize(nil, dims, fill)
}
