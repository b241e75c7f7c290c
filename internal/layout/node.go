package layout

import (
	"github.com/san-kum/traitfield/internal/geom"
	"github.com/san-kum/traitfield/internal/trait"
)

type Node struct {
	ID          string
	Attributes  trait.Vector
	Preferences trait.Vector
	Position    geom.Vec3
	Velocity    geom.Vec3
	Mass        float64
	// HasPosition is false for nodes the engine should place itself.
	HasPosition bool
}

func (n Node) clone() Node {
	c := n
	c.Attributes = n.Attributes.Clone()
	c.Preferences = n.Preferences.Clone()
	return c
}

func (n Node) body() geom.Body {
	return geom.Body{Position: n.Position, Velocity: n.Velocity, Mass: n.Mass}
}

func (n *Node) setBody(b geom.Body) {
	n.Position = b.Position
	n.Velocity = b.Velocity
}

// NodeView is the read-only per-node state exposed through Snapshot.
type NodeView struct {
	ID            string
	Position      geom.Vec3
	Velocity      geom.Vec3
	Mass          float64
	Compatibility float64
}

type Snapshot struct {
	Central int
	Nodes   []NodeView
	Step    int
	Time    float64
}

// Bodies returns the kinematic state of every node, indexed like Nodes.
func (s Snapshot) Bodies() []geom.Body {
	out := make([]geom.Body, len(s.Nodes))
	for i, n := range s.Nodes {
		out[i] = geom.Body{Position: n.Position, Velocity: n.Velocity, Mass: n.Mass}
	}
	return out
}
