package layout

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/traitfield/internal/force"
	"github.com/san-kum/traitfield/internal/geom"
	"github.com/san-kum/traitfield/internal/integrators"
	"github.com/san-kum/traitfield/internal/metrics"
	"github.com/san-kum/traitfield/internal/trait"
)

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRand sets the source used to seed node positions.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.AddObserver(o) }
}

type Engine struct {
	log       *zap.Logger
	rng       *rand.Rand
	observers []Observer

	cfg     Config
	law     force.Law
	integ   integrators.Integrator
	monitor *metrics.EnergyMonitor

	nodes       []Node
	central     int
	dims        int
	initialized bool
	dragging    bool

	step int
	time float64

	compat []float64
	sim    [][]float64
}

func New(opts ...Option) *Engine {
	e := &Engine{
		log: zap.NewNop(),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		cfg: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) AddObserver(o Observer) {
	if o != nil {
		e.observers = append(e.observers, o)
	}
}

// Initialize replaces the engine's nodes and configuration. Nodes without a
// position are seeded uniformly inside a sphere around the central node,
// which sits at the origin unless it has a position of its own. On error the
// engine is left as it was.
func (e *Engine) Initialize(nodes []Node, centralIndex int, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return &OpError{Op: "initialize", Err: err}
	}
	law, integ, err := resolve(cfg)
	if err != nil {
		return &OpError{Op: "initialize", Err: err}
	}
	if len(nodes) == 0 {
		return &OpError{Op: "initialize", Err: invalidf("no nodes")}
	}
	if centralIndex < 0 || centralIndex >= len(nodes) {
		return &OpError{Op: "initialize", Err: invalidf("central index %d out of range [0, %d)", centralIndex, len(nodes))}
	}
	dims, err := validateNodes(nodes, cfg.Range)
	if err != nil {
		return &OpError{Op: "initialize", Err: err}
	}

	owned := make([]Node, len(nodes))
	for i, n := range nodes {
		owned[i] = n.clone()
		owned[i].Velocity = geom.Vec3{}
		if owned[i].Mass <= 0 {
			owned[i].Mass = 1
		}
	}
	if !owned[centralIndex].HasPosition {
		owned[centralIndex].Position = geom.Vec3{}
		owned[centralIndex].HasPosition = true
	}
	center := owned[centralIndex].Position
	for i := range owned {
		if !owned[i].HasPosition {
			owned[i].Position = e.seedPosition(center, cfg.seedRadius())
			owned[i].HasPosition = true
		}
	}

	e.cfg = cfg
	e.law = law
	e.integ = integ
	e.monitor = metrics.NewEnergyMonitor(monitorConfig(cfg))
	e.nodes = owned
	e.central = centralIndex
	e.dims = dims
	e.dragging = false
	e.step = 0
	e.time = 0
	e.initialized = true
	if err := e.refresh(); err != nil {
		e.initialized = false
		return &OpError{Op: "initialize", Err: err}
	}

	e.log.Debug("layout initialized",
		zap.Int("nodes", len(owned)),
		zap.Int("dims", dims),
		zap.Int("central", centralIndex),
		zap.String("force_law", law.Name()),
		zap.String("integrator", integ.Name()),
	)
	return nil
}

// Step advances the layout by one frame. dt defaults to Config.Dt; a zero dt
// recomputes forces and damping without moving anything.
//
// Cost is O(N²) in the number of nodes.
func (e *Engine) Step(dt ...float64) (StepReport, error) {
	if !e.initialized {
		return StepReport{}, &OpError{Op: "step", Err: ErrNotInitialized}
	}
	h := e.cfg.Dt
	if len(dt) > 0 {
		h = dt[0]
	}
	if h < 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return StepReport{}, &OpError{Op: "step", Err: invalidOp("dt must be a finite non-negative number, got %g", h)}
	}

	if err := e.refresh(); err != nil {
		return StepReport{}, &OpError{Op: "step", Err: err}
	}

	positions := make([]geom.Vec3, len(e.nodes))
	for i := range e.nodes {
		positions[i] = e.nodes[i].Position
	}
	forces := force.Accumulate(e.law, positions, e.central, e.compat, e.sim, e.cfg.forceParams())

	ip := e.cfg.integratorParams()
	bodies := make([]geom.Body, len(e.nodes))
	for i := range e.nodes {
		bodies[i] = e.nodes[i].body()
		if i == e.central {
			continue
		}
		e.integ.Step(&bodies[i], forces[i], ip, h)
	}
	integrators.Swirl(bodies, e.central, e.cfg.AngularSpeed, h)

	report := StepReport{Dt: h}
	if e.cfg.EnergyMonitor {
		sample := e.monitor.Observe(bodies)
		if sample.Spike {
			mult := e.monitor.Multiplier()
			for i := range bodies {
				bodies[i].Velocity = bodies[i].Velocity.Scale(mult)
			}
			e.log.Warn("energy spike detected, damping velocities",
				zap.Int("step", e.step+1),
				zap.Float64("total", sample.Total),
				zap.Float64("average", sample.Average),
			)
		}
		report.Energy = sample
	}

	for i := range e.nodes {
		if i == e.central {
			continue
		}
		e.nodes[i].setBody(bodies[i])
	}

	e.step++
	e.time += h
	report.Step = e.step
	report.Time = e.time

	if report.Energy.Spike {
		e.emit(Event{Kind: EventEnergySpike, Energy: report.Energy})
	}
	e.emit(Event{Kind: EventStep, Energy: report.Energy})
	return report, nil
}

// SetCentral designates another node as central. Positions are not changed.
func (e *Engine) SetCentral(i int) error {
	if !e.initialized {
		return &OpError{Op: "set central", Err: ErrNotInitialized}
	}
	if i < 0 || i >= len(e.nodes) {
		return &OpError{Op: "set central", Err: invalidOp("index %d out of range [0, %d)", i, len(e.nodes))}
	}
	if i == e.central {
		return nil
	}
	e.central = i
	e.nodes[i].Velocity = geom.Vec3{}
	e.dragging = false
	if err := e.refresh(); err != nil {
		return &OpError{Op: "set central", Err: err}
	}
	e.log.Debug("central changed", zap.String("id", e.nodes[i].ID), zap.Int("index", i))
	e.emit(Event{Kind: EventCentralChanged, NodeID: e.nodes[i].ID})
	return nil
}

// SetConfig merges p into the current configuration. An invalid result, or a
// range that excludes a current trait value, leaves the configuration
// unchanged.
func (e *Engine) SetConfig(p ConfigPatch) error {
	next := p.Apply(e.cfg)
	if err := next.Validate(); err != nil {
		return &OpError{Op: "set config", Err: err}
	}
	law, integ, err := resolve(next)
	if err != nil {
		return &OpError{Op: "set config", Err: err}
	}
	if e.monitor != nil {
		if next.EnergyMonitor && !e.cfg.EnergyMonitor {
			e.monitor.Reset()
		}
		e.monitor.SetK(next.EnergyK)
	}
	rangeChanged := next.Range != e.cfg.Range
	if rangeChanged && e.initialized {
		for _, n := range e.nodes {
			if err := checkTraitRange(n, next.Range); err != nil {
				return &OpError{Op: "set config", NodeID: n.ID, Err: err}
			}
		}
	}
	e.cfg = next
	e.law = law
	e.integ = integ
	if rangeChanged && e.initialized {
		if err := e.refresh(); err != nil {
			return &OpError{Op: "set config", Err: err}
		}
	}
	e.log.Debug("config updated",
		zap.String("force_law", law.Name()),
		zap.String("integrator", integ.Name()),
		zap.Float64("damping", next.Damping),
	)
	return nil
}

// AddNode appends n. Its vectors must match the current trait dimension.
func (e *Engine) AddNode(n Node) error {
	if !e.initialized {
		return &OpError{Op: "add node", NodeID: n.ID, Err: ErrNotInitialized}
	}
	if err := checkNode(n, e.dims, e.cfg.Range); err != nil {
		return &OpError{Op: "add node", NodeID: n.ID, Err: err}
	}
	if e.indexOf(n.ID) >= 0 {
		return &OpError{Op: "add node", NodeID: n.ID, Err: ErrDuplicateID}
	}

	owned := n.clone()
	if owned.Mass <= 0 {
		owned.Mass = 1
	}
	if !owned.HasPosition {
		owned.Position = e.seedPosition(e.nodes[e.central].Position, e.cfg.seedRadius())
		owned.HasPosition = true
	}
	e.nodes = append(e.nodes, owned)
	if err := e.refresh(); err != nil {
		e.nodes = e.nodes[:len(e.nodes)-1]
		return &OpError{Op: "add node", NodeID: n.ID, Err: err}
	}
	e.emit(Event{Kind: EventNodeAdded, NodeID: n.ID})
	return nil
}

// RemoveNode deletes the node with the given id. The central node cannot be
// removed.
func (e *Engine) RemoveNode(id string) error {
	if !e.initialized {
		return &OpError{Op: "remove node", NodeID: id, Err: ErrNotInitialized}
	}
	idx := e.indexOf(id)
	if idx < 0 {
		return &OpError{Op: "remove node", NodeID: id, Err: ErrNodeNotFound}
	}
	if idx == e.central {
		return &OpError{Op: "remove node", NodeID: id, Err: ErrCentralRemoval}
	}

	e.nodes = append(e.nodes[:idx], e.nodes[idx+1:]...)
	if idx < e.central {
		e.central--
	}
	if err := e.refresh(); err != nil {
		return &OpError{Op: "remove node", NodeID: id, Err: err}
	}
	e.emit(Event{Kind: EventNodeRemoved, NodeID: id})
	return nil
}

// Resize changes the trait dimension of every node, padding with fill or
// truncating. It is a reinitialization boundary: positions are kept but
// velocities and the energy history are cleared.
func (e *Engine) Resize(n int, fill float64) error {
	if !e.initialized {
		return &OpError{Op: "resize", Err: ErrNotInitialized}
	}
	if n <= 0 {
		return &OpError{Op: "resize", Err: invalidf("trait dimension must be positive, got %d", n)}
	}
	nodes := make([]Node, len(e.nodes))
	for i, node := range e.nodes {
		nodes[i] = node
		nodes[i].Attributes = trait.Resize(node.Attributes, n, fill)
		nodes[i].Preferences = trait.Resize(node.Preferences, n, fill)
		nodes[i].Velocity = geom.Vec3{}
	}
	if err := e.Initialize(nodes, e.central, e.cfg); err != nil {
		return &OpError{Op: "resize", Err: err}
	}
	return nil
}

// DragCentral moves the central node to p. The move is external; the central
// node is never integrated.
func (e *Engine) DragCentral(p geom.Vec3) {
	if !e.initialized || !p.IsValid() {
		return
	}
	e.nodes[e.central].Position = p
	e.dragging = true
}

// ReleaseCentral ends a drag and zeroes the central node's velocity.
func (e *Engine) ReleaseCentral() {
	if !e.initialized {
		return
	}
	e.nodes[e.central].Velocity = geom.Vec3{}
	e.dragging = false
}

func (e *Engine) Dragging() bool { return e.dragging }

func (e *Engine) SetAttributes(id string, v trait.Vector) error {
	return e.setTraits("set attributes", id, v, func(n *Node, v trait.Vector) { n.Attributes = v })
}

func (e *Engine) SetPreferences(id string, v trait.Vector) error {
	return e.setTraits("set preferences", id, v, func(n *Node, v trait.Vector) { n.Preferences = v })
}

func (e *Engine) setTraits(op, id string, v trait.Vector, set func(*Node, trait.Vector)) error {
	if !e.initialized {
		return &OpError{Op: op, NodeID: id, Err: ErrNotInitialized}
	}
	idx := e.indexOf(id)
	if idx < 0 {
		return &OpError{Op: op, NodeID: id, Err: ErrNodeNotFound}
	}
	if len(v) != e.dims {
		return &OpError{Op: op, NodeID: id, Err: &trait.MismatchError{Want: e.dims, Got: len(v)}}
	}
	if !v.IsValid() {
		return &OpError{Op: op, NodeID: id, Err: invalidf("trait vector contains NaN or Inf")}
	}
	if err := inRange(v, e.cfg.Range); err != nil {
		return &OpError{Op: op, NodeID: id, Err: err}
	}
	set(&e.nodes[idx], v.Clone())
	if err := e.refresh(); err != nil {
		return &OpError{Op: op, NodeID: id, Err: err}
	}
	return nil
}

func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Central: e.central,
		Nodes:   make([]NodeView, len(e.nodes)),
		Step:    e.step,
		Time:    e.time,
	}
	for i, n := range e.nodes {
		s.Nodes[i] = NodeView{
			ID:       n.ID,
			Position: n.Position,
			Velocity: n.Velocity,
			Mass:     n.Mass,
		}
		if i < len(e.compat) {
			s.Nodes[i].Compatibility = e.compat[i]
		}
	}
	return s
}

// Nodes returns deep copies of every node, including trait vectors.
func (e *Engine) Nodes() []Node {
	out := make([]Node, len(e.nodes))
	for i, n := range e.nodes {
		out[i] = n.clone()
	}
	return out
}

func (e *Engine) Central() int      { return e.central }
func (e *Engine) Len() int          { return len(e.nodes) }
func (e *Engine) Dims() int         { return e.dims }
func (e *Engine) Config() Config    { return e.cfg }
func (e *Engine) Initialized() bool { return e.initialized }

// refresh recomputes the compatibility and similarity tables from the
// current trait vectors.
func (e *Engine) refresh() error {
	n := len(e.nodes)
	central := e.nodes[e.central]
	compat := make([]float64, n)
	attrs := make([]trait.Vector, n)
	for i, node := range e.nodes {
		attrs[i] = node.Attributes
		if i == e.central {
			compat[i] = 1
			continue
		}
		c, err := trait.Compatibility(central.Preferences, node.Attributes, e.cfg.Range)
		if err != nil {
			return err
		}
		compat[i] = c
	}
	sim, err := trait.SimilarityMatrix(attrs, e.cfg.Range)
	if err != nil {
		return err
	}
	e.compat = compat
	e.sim = sim
	return nil
}

func (e *Engine) indexOf(id string) int {
	for i := range e.nodes {
		if e.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) emit(ev Event) {
	ev.Step = e.step
	ev.Time = e.time
	ev.Central = e.central
	ev.Nodes = len(e.nodes)
	for _, o := range e.observers {
		o.OnEvent(ev)
	}
}

// seedPosition samples a point uniformly inside the ball of radius r.
func (e *Engine) seedPosition(center geom.Vec3, r float64) geom.Vec3 {
	var dir geom.Vec3
	for dir.LengthSq() < 1e-12 {
		dir = geom.Vec3{X: e.rng.NormFloat64(), Y: e.rng.NormFloat64(), Z: e.rng.NormFloat64()}
	}
	dist := r * math.Cbrt(e.rng.Float64())
	return center.Add(dir.WithLength(dist))
}

func resolve(cfg Config) (force.Law, integrators.Integrator, error) {
	law, err := force.Lookup(cfg.ForceLaw)
	if err != nil {
		return nil, nil, invalidf("%v", err)
	}
	integ, err := integrators.Lookup(cfg.Integrator)
	if err != nil {
		return nil, nil, invalidf("%v", err)
	}
	return law, integ, nil
}

func monitorConfig(cfg Config) metrics.MonitorConfig {
	mc := metrics.DefaultMonitorConfig()
	mc.K = cfg.EnergyK
	return mc
}

func validateNodes(nodes []Node, r trait.Range) (int, error) {
	dims := len(nodes[0].Attributes)
	if dims == 0 {
		return 0, trait.ErrNoDimensions
	}
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if err := checkNode(n, dims, r); err != nil {
			return 0, &OpError{Op: "validate", NodeID: n.ID, Err: err}
		}
		if _, dup := seen[n.ID]; dup {
			return 0, &OpError{Op: "validate", NodeID: n.ID, Err: ErrDuplicateID}
		}
		seen[n.ID] = struct{}{}
	}
	return dims, nil
}

func checkNode(n Node, dims int, r trait.Range) error {
	if n.ID == "" {
		return invalidf("node id is empty")
	}
	if len(n.Attributes) != dims {
		return &trait.MismatchError{Want: dims, Got: len(n.Attributes)}
	}
	if len(n.Preferences) != dims {
		return &trait.MismatchError{Want: dims, Got: len(n.Preferences)}
	}
	if !n.Attributes.IsValid() || !n.Preferences.IsValid() {
		return invalidf("trait vector contains NaN or Inf")
	}
	if err := checkTraitRange(n, r); err != nil {
		return err
	}
	if n.HasPosition && !n.Position.IsValid() {
		return invalidf("position contains NaN or Inf")
	}
	return nil
}

func checkTraitRange(n Node, r trait.Range) error {
	if err := inRange(n.Attributes, r); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}
	if err := inRange(n.Preferences, r); err != nil {
		return fmt.Errorf("preferences: %w", err)
	}
	return nil
}

// inRange reports the first trait value outside r.
func inRange(v trait.Vector, r trait.Range) error {
	for i, x := range v {
		if !r.Contains(x) {
			return invalidf("trait %d = %g outside [%g, %g]", i, x, r.Lo, r.Hi)
		}
	}
	return nil
}
