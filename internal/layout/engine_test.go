package layout_test

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/traitfield/internal/geom"
	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/trait"
)

func node(id string, attrs ...float64) layout.Node {
	return layout.Node{
		ID:          id,
		Attributes:  trait.Vector(attrs),
		Preferences: trait.Vector(attrs).Clone(),
	}
}

func prefers(n layout.Node, prefs ...float64) layout.Node {
	n.Preferences = trait.Vector(prefs)
	return n
}

func placed(id string, p geom.Vec3, attrs ...float64) layout.Node {
	n := node(id, attrs...)
	n.Position = p
	n.HasPosition = true
	return n
}

type recorder struct {
	events []layout.Event
}

func (r *recorder) OnEvent(e layout.Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []layout.EventKind {
	out := make([]layout.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

var _ = Describe("Engine", func() {
	var (
		eng *layout.Engine
		rec *recorder
		cfg layout.Config
	)

	BeforeEach(func() {
		rec = &recorder{}
		eng = layout.New(layout.WithRand(rand.New(rand.NewSource(7))), layout.WithObserver(rec))
		cfg = layout.DefaultConfig()
	})

	Describe("before Initialize", func() {
		It("rejects Step", func() {
			_, err := eng.Step()
			Expect(err).To(MatchError(layout.ErrInvalidOperation))
			Expect(err).To(MatchError(layout.ErrNotInitialized))
		})

		It("rejects node edits", func() {
			Expect(eng.AddNode(node("a", 1))).To(MatchError(layout.ErrInvalidOperation))
			Expect(eng.RemoveNode("a")).To(MatchError(layout.ErrInvalidOperation))
			Expect(eng.SetCentral(0)).To(MatchError(layout.ErrInvalidOperation))
		})

		It("reports itself uninitialized", func() {
			Expect(eng.Initialized()).To(BeFalse())
			Expect(eng.Snapshot().Nodes).To(BeEmpty())
		})
	})

	Describe("Initialize", func() {
		It("places the central node at the origin and seeds the rest inside the seed radius", func() {
			nodes := []layout.Node{node("sun", 50, 50, 50), node("a", 10, 20, 30), node("b", 90, 80, 70)}
			Expect(eng.Initialize(nodes, 0, cfg)).To(Succeed())

			snap := eng.Snapshot()
			Expect(snap.Central).To(Equal(0))
			Expect(snap.Nodes[0].Position).To(Equal(geom.Vec3{}))
			for _, n := range snap.Nodes[1:] {
				Expect(n.Position.Length()).To(BeNumerically("<=", cfg.RestLength*1.5))
				Expect(n.Velocity).To(Equal(geom.Vec3{}))
			}
		})

		It("keeps explicit positions", func() {
			nodes := []layout.Node{
				placed("sun", geom.Vec3{X: 1, Y: 2, Z: 3}, 50),
				placed("a", geom.Vec3{X: 10}, 50),
			}
			Expect(eng.Initialize(nodes, 0, cfg)).To(Succeed())
			Expect(eng.Snapshot().Nodes[1].Position).To(Equal(geom.Vec3{X: 10}))
		})

		It("does not alias the caller's vectors", func() {
			nodes := []layout.Node{node("sun", 50, 50), node("a", 10, 20)}
			Expect(eng.Initialize(nodes, 0, cfg)).To(Succeed())
			nodes[1].Attributes[0] = 99
			Expect(eng.Nodes()[1].Attributes[0]).To(Equal(10.0))
		})

		DescribeTable("rejects invalid input",
			func(nodes []layout.Node, central int, mutate func(*layout.Config)) {
				if mutate != nil {
					mutate(&cfg)
				}
				err := eng.Initialize(nodes, central, cfg)
				Expect(err).To(MatchError(layout.ErrInvalidConfiguration))
				Expect(eng.Initialized()).To(BeFalse())
			},
			Entry("no nodes", []layout.Node{}, 0, nil),
			Entry("central out of range", []layout.Node{node("a", 1)}, 3, nil),
			Entry("zero dimensions", []layout.Node{node("a"), node("b")}, 0, nil),
			Entry("length mismatch", []layout.Node{node("a", 1, 2), node("b", 1)}, 0, nil),
			Entry("duplicate id", []layout.Node{node("a", 1), node("a", 2)}, 0, nil),
			Entry("empty id", []layout.Node{node("", 1)}, 0, nil),
			Entry("damping zero", []layout.Node{node("a", 1)}, 0, func(c *layout.Config) { c.Damping = 0 }),
			Entry("damping above one", []layout.Node{node("a", 1)}, 0, func(c *layout.Config) { c.Damping = 1.5 }),
			Entry("empty range", []layout.Node{node("a", 1)}, 0, func(c *layout.Config) { c.Range = trait.Range{Lo: 5, Hi: 5} }),
			Entry("unknown force law", []layout.Node{node("a", 1)}, 0, func(c *layout.Config) { c.ForceLaw = "gravity" }),
			Entry("unknown integrator", []layout.Node{node("a", 1)}, 0, func(c *layout.Config) { c.Integrator = "rk4" }),
			Entry("attribute above the range", []layout.Node{node("a", 50), node("far", 1000)}, 0, nil),
			Entry("preference below the range", []layout.Node{node("a", 50), prefers(node("neg", 50), -900)}, 0, nil),
			Entry("trait outside a custom range", []layout.Node{node("a", 0.5), node("b", 2)}, 0,
				func(c *layout.Config) { c.Range = trait.Range{Lo: -1, Hi: 1} }),
		)

		It("reports mismatched preference lengths with the lengths involved", func() {
			bad := node("b", 1, 2)
			bad.Preferences = trait.Vector{1}
			err := eng.Initialize([]layout.Node{node("a", 1, 2), bad}, 0, cfg)

			var mismatch *trait.MismatchError
			Expect(err).To(MatchError(layout.ErrInvalidConfiguration))
			Expect(errors.As(err, &mismatch)).To(BeTrue())
			Expect(mismatch.Want).To(Equal(2))
			Expect(mismatch.Got).To(Equal(1))
		})
	})

	Describe("Step", func() {
		It("steps a single-node engine without moving the central node", func() {
			Expect(eng.Initialize([]layout.Node{placed("sun", geom.Vec3{X: 2}, 50, 50)}, 0, cfg)).To(Succeed())
			for i := 0; i < 10; i++ {
				_, err := eng.Step()
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(eng.Snapshot().Nodes[0].Position).To(Equal(geom.Vec3{X: 2}))
		})

		It("leaves every position unchanged for dt = 0", func() {
			nodes := []layout.Node{node("sun", 50, 50), node("a", 0, 100), node("b", 30, 30), node("c", 70, 10)}
			Expect(eng.Initialize(nodes, 0, cfg)).To(Succeed())
			before := eng.Snapshot()

			report, err := eng.Step(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Dt).To(BeZero())

			after := eng.Snapshot()
			for i := range before.Nodes {
				Expect(after.Nodes[i].Position).To(Equal(before.Nodes[i].Position))
			}
		})

		It("rejects a negative dt", func() {
			Expect(eng.Initialize([]layout.Node{node("sun", 1)}, 0, cfg)).To(Succeed())
			_, err := eng.Step(-0.1)
			Expect(err).To(MatchError(layout.ErrInvalidOperation))
		})

		It("uses the configured dt by default and counts steps", func() {
			Expect(eng.Initialize([]layout.Node{node("sun", 1), node("a", 2)}, 0, cfg)).To(Succeed())
			eng.Step()
			report, err := eng.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Step).To(Equal(2))
			Expect(report.Time).To(BeNumerically("~", 2*cfg.Dt, 1e-12))
			Expect(rec.kinds()).To(Equal([]layout.EventKind{layout.EventStep, layout.EventStep}))
		})

		It("keeps every speed within MaxVelocity", func() {
			cfg.KAttraction = 50
			cfg.KRepulsion = 50
			cfg.CentralClamp = 1000
			cfg.RepulsionClamp = 1000
			cfg.Damping = 1
			nodes := []layout.Node{node("sun", 50), node("a", 0), node("b", 100), node("c", 50), node("d", 20)}
			Expect(eng.Initialize(nodes, 0, cfg)).To(Succeed())

			for i := 0; i < 50; i++ {
				_, err := eng.Step(1)
				Expect(err).NotTo(HaveOccurred())
				for _, n := range eng.Snapshot().Nodes {
					Expect(n.Velocity.Length()).To(BeNumerically("<=", cfg.MaxVelocity+1e-9))
				}
			}
		})

		It("draws a stretched outer node toward the rest shell", func() {
			cfg.AngularSpeed = 0
			nodes := []layout.Node{node("sun", 50), placed("a", geom.Vec3{X: 80}, 50)}
			Expect(eng.Initialize(nodes, 0, cfg)).To(Succeed())

			for i := 0; i < 100; i++ {
				eng.Step(1)
			}
			d := eng.Snapshot().Nodes[1].Position.Length()
			Expect(d).To(BeNumerically("<", 80))
			Expect(d).To(BeNumerically(">", cfg.RestLength*0.5))
		})

		It("swirls outer nodes about the central node without changing their radius", func() {
			cfg.KAttraction = 0
			cfg.KRepulsion = 0
			cfg.AngularSpeed = 1
			nodes := []layout.Node{node("sun", 50), placed("a", geom.Vec3{X: 10, Y: 3}, 50)}
			Expect(eng.Initialize(nodes, 0, cfg)).To(Succeed())

			_, err := eng.Step(0.5)
			Expect(err).NotTo(HaveOccurred())

			p := eng.Snapshot().Nodes[1].Position
			Expect(p.Y).To(BeNumerically("~", 3, 1e-12))
			Expect(geom.Vec3{X: p.X, Z: p.Z}.Length()).To(BeNumerically("~", 10, 1e-9))
			Expect(p.Z).NotTo(BeNumerically("~", 0, 1e-6))
		})

		It("damps velocities and reports an energy spike", func() {
			core, logs := observer.New(zapcore.WarnLevel)
			eng = layout.New(layout.WithLogger(zap.New(core)), layout.WithObserver(rec))

			cfg.AngularSpeed = 0
			nodes := []layout.Node{node("sun", 50), placed("a", geom.Vec3{X: 40}, 50)}
			Expect(eng.Initialize(nodes, 0, cfg)).To(Succeed())
			for i := 0; i < 120; i++ {
				report, err := eng.Step()
				Expect(err).NotTo(HaveOccurred())
				Expect(report.Energy.Spike).To(BeFalse())
			}

			Expect(eng.AddNode(placed("b", geom.Vec3{X: 0.5}, 50))).To(Succeed())
			report, err := eng.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Energy.Spike).To(BeTrue())

			// undamped speed for one clamped push is CentralClamp*dt*Damping
			want := cfg.CentralClamp * cfg.Dt * cfg.Damping * 0.9
			Expect(eng.Snapshot().Nodes[2].Velocity.Length()).To(BeNumerically("~", want, 1e-9))

			Expect(rec.kinds()).To(ContainElement(layout.EventEnergySpike))
			Expect(logs.FilterMessageSnippet("energy spike").Len()).To(Equal(1))
		})

		It("skips the energy monitor when disabled", func() {
			cfg.EnergyMonitor = false
			Expect(eng.Initialize([]layout.Node{node("sun", 1), node("a", 1)}, 0, cfg)).To(Succeed())
			report, err := eng.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Energy.Total).To(BeZero())
		})
	})

	Describe("central designation", func() {
		BeforeEach(func() {
			nodes := []layout.Node{node("sun", 10, 20), node("a", 30, 40), node("b", 50, 60)}
			nodes[0].Preferences = trait.Vector{30, 40}
			Expect(eng.Initialize(nodes, 0, cfg)).To(Succeed())
		})

		It("round-trips SetCentral without touching trait data", func() {
			before := eng.Nodes()

			Expect(eng.SetCentral(2)).To(Succeed())
			Expect(eng.Central()).To(Equal(2))
			Expect(eng.SetCentral(0)).To(Succeed())
			Expect(eng.Central()).To(Equal(0))

			Expect(eng.Nodes()).To(Equal(before))
			Expect(rec.kinds()).To(Equal([]layout.EventKind{layout.EventCentralChanged, layout.EventCentralChanged}))
		})

		It("rejects an out-of-range index", func() {
			Expect(eng.SetCentral(3)).To(MatchError(layout.ErrInvalidOperation))
			Expect(eng.SetCentral(-1)).To(MatchError(layout.ErrInvalidOperation))
			Expect(eng.Central()).To(Equal(0))
		})

		It("exposes compatibility with the central node", func() {
			snap := eng.Snapshot()
			Expect(snap.Nodes[0].Compatibility).To(Equal(1.0))
			Expect(snap.Nodes[1].Compatibility).To(BeNumerically("~", 1, 1e-12))
			Expect(snap.Nodes[2].Compatibility).To(BeNumerically("~", 0.8, 1e-12))
		})

		It("follows a dragged central node and stops it on release", func() {
			eng.DragCentral(geom.Vec3{X: 5, Y: -5})
			Expect(eng.Dragging()).To(BeTrue())
			eng.Step()
			Expect(eng.Snapshot().Nodes[0].Position).To(Equal(geom.Vec3{X: 5, Y: -5}))

			eng.ReleaseCentral()
			Expect(eng.Dragging()).To(BeFalse())
			Expect(eng.Snapshot().Nodes[0].Velocity).To(Equal(geom.Vec3{}))
		})
	})

	Describe("node management", func() {
		BeforeEach(func() {
			nodes := []layout.Node{node("a", 1, 2), node("sun", 50, 50), node("b", 3, 4)}
			Expect(eng.Initialize(nodes, 1, cfg)).To(Succeed())
		})

		It("refuses to remove the central node", func() {
			err := eng.RemoveNode("sun")
			Expect(err).To(MatchError(layout.ErrCentralRemoval))
			Expect(err).To(MatchError(layout.ErrInvalidOperation))
			Expect(eng.Len()).To(Equal(3))
		})

		It("reports unknown ids", func() {
			Expect(eng.RemoveNode("nope")).To(MatchError(layout.ErrNodeNotFound))
		})

		It("keeps the central designation when an earlier node is removed", func() {
			Expect(eng.RemoveNode("a")).To(Succeed())
			Expect(eng.Len()).To(Equal(2))
			Expect(eng.Central()).To(Equal(0))
			Expect(eng.Snapshot().Nodes[eng.Central()].ID).To(Equal("sun"))
			Expect(rec.kinds()).To(ContainElement(layout.EventNodeRemoved))
		})

		It("adds nodes of the current dimension", func() {
			Expect(eng.AddNode(node("c", 9, 9))).To(Succeed())
			Expect(eng.Len()).To(Equal(4))
			Expect(rec.events[len(rec.events)-1].Kind).To(Equal(layout.EventNodeAdded))
			Expect(rec.events[len(rec.events)-1].NodeID).To(Equal("c"))
		})

		It("rejects mismatched or duplicate nodes", func() {
			Expect(eng.AddNode(node("c", 9))).To(MatchError(layout.ErrInvalidConfiguration))
			Expect(eng.AddNode(node("b", 9, 9))).To(MatchError(layout.ErrDuplicateID))
			Expect(eng.Len()).To(Equal(3))
		})

		It("rejects trait values outside the range", func() {
			before := eng.Nodes()
			Expect(eng.SetAttributes("b", trait.Vector{5000, 1})).To(MatchError(layout.ErrInvalidConfiguration))
			Expect(eng.SetPreferences("b", trait.Vector{50, -1})).To(MatchError(layout.ErrInvalidConfiguration))
			Expect(eng.AddNode(node("c", 101, 5))).To(MatchError(layout.ErrInvalidConfiguration))
			Expect(eng.Nodes()).To(Equal(before))
			Expect(eng.SetAttributes("b", trait.Vector{0, 100})).To(Succeed())
		})

		It("validates trait edits", func() {
			Expect(eng.SetAttributes("a", trait.Vector{7, 8})).To(Succeed())
			Expect(eng.Nodes()[0].Attributes).To(Equal(trait.Vector{7, 8}))
			Expect(eng.SetPreferences("sun", trait.Vector{1})).To(MatchError(layout.ErrInvalidConfiguration))
			Expect(eng.SetAttributes("zzz", trait.Vector{1, 2})).To(MatchError(layout.ErrNodeNotFound))
		})

		It("resizes trait vectors as a reinitialization boundary", func() {
			eng.Step(1)
			positions := eng.Snapshot().Nodes

			Expect(eng.Resize(4, trait.DefaultFill)).To(Succeed())
			Expect(eng.Dims()).To(Equal(4))
			Expect(eng.Central()).To(Equal(1))

			snap := eng.Snapshot()
			Expect(snap.Step).To(BeZero())
			for i, n := range eng.Nodes() {
				Expect(n.Attributes).To(HaveLen(4))
				Expect(n.Preferences).To(HaveLen(4))
				Expect(n.Attributes[3]).To(Equal(trait.DefaultFill))
				Expect(snap.Nodes[i].Position).To(Equal(positions[i].Position))
				Expect(snap.Nodes[i].Velocity).To(Equal(geom.Vec3{}))
			}

			Expect(eng.Resize(1, 0)).To(Succeed())
			Expect(eng.Nodes()[0].Attributes).To(Equal(trait.Vector{1}))
			Expect(eng.Resize(0, 0)).To(MatchError(layout.ErrInvalidConfiguration))
		})
	})

	Describe("SetConfig", func() {
		BeforeEach(func() {
			Expect(eng.Initialize([]layout.Node{node("sun", 1), node("a", 2)}, 0, cfg)).To(Succeed())
		})

		It("merges valid patches", func() {
			d := 0.5
			law := "inverse_square"
			Expect(eng.SetConfig(layout.ConfigPatch{Damping: &d, ForceLaw: &law})).To(Succeed())
			Expect(eng.Config().Damping).To(Equal(0.5))
			Expect(eng.Config().ForceLaw).To(Equal("inverse_square"))
			Expect(eng.Config().RestLength).To(Equal(cfg.RestLength))
		})

		It("rejects a range that excludes current trait values", func() {
			narrow := trait.Range{Lo: 0, Hi: 1.5}
			err := eng.SetConfig(layout.ConfigPatch{Range: &narrow})
			Expect(err).To(MatchError(layout.ErrInvalidConfiguration))
			Expect(eng.Config()).To(Equal(cfg))

			wide := trait.Range{Lo: -10, Hi: 10}
			Expect(eng.SetConfig(layout.ConfigPatch{Range: &wide})).To(Succeed())
			Expect(eng.Config().Range).To(Equal(wide))
		})

		It("leaves the configuration unchanged on an invalid patch", func() {
			d := 0.5
			bad := -1.0
			err := eng.SetConfig(layout.ConfigPatch{Damping: &d, RestLength: &bad})
			Expect(err).To(MatchError(layout.ErrInvalidConfiguration))
			Expect(eng.Config()).To(Equal(cfg))
		})
	})
})
