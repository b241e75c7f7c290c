package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"

	"github.com/san-kum/traitfield/internal/config"
	"github.com/san-kum/traitfield/internal/geom"
	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/metrics"
)

const (
	width           = 60
	height          = 22
	statsWidth      = 52
	historyCapacity = 300
	// dragFraction of the rest length is moved per arrow key press.
	dragFraction = 0.1
	maxTraits    = 32
)

type TickMsg time.Time

// ConfigMsg carries a configuration reloaded from disk.
type ConfigMsg struct {
	Config *config.Config
}

type Options struct {
	Title string
	FPS   int
	Theme string
	// Updates delivers reloaded configurations; physics changes are applied
	// to the running engine. May be nil.
	Updates <-chan *config.Config
	// Spawn builds the node added by the "a" key. Nil disables adding.
	Spawn  func() (layout.Node, error)
	Logger *zap.Logger
}

type tunable struct {
	name  string
	get   func(layout.Config) float64
	patch func(v float64) layout.ConfigPatch
}

var tunables = []tunable{
	{"k_attract", func(c layout.Config) float64 { return c.KAttraction },
		func(v float64) layout.ConfigPatch { return layout.ConfigPatch{KAttraction: &v} }},
	{"k_repulse", func(c layout.Config) float64 { return c.KRepulsion },
		func(v float64) layout.ConfigPatch { return layout.ConfigPatch{KRepulsion: &v} }},
	{"damping", func(c layout.Config) float64 { return c.Damping },
		func(v float64) layout.ConfigPatch { return layout.ConfigPatch{Damping: &v} }},
	{"angular", func(c layout.Config) float64 { return c.AngularSpeed },
		func(v float64) layout.ConfigPatch { return layout.ConfigPatch{AngularSpeed: &v} }},
	{"rest_len", func(c layout.Config) float64 { return c.RestLength },
		func(v float64) layout.ConfigPatch { return layout.ConfigPatch{RestLength: &v} }},
}

// Model is the bubbletea model of the live layout preview. It owns the
// engine for the lifetime of the program.
type Model struct {
	engine *layout.Engine
	opts   Options
	log    *zap.Logger

	canvas   *Canvas
	camera   *Camera
	theme    Theme
	styles   styles
	running  bool
	showHelp bool
	selected int

	initialNodes   []layout.Node
	initialCentral int
	initialConfig  layout.Config

	last    layout.StepReport
	spikes  int
	energy  []float64
	spread  []float64
	spreadM *metrics.Spread
	notice  string
}

// NewModel wraps an initialized engine. Reset restores the engine state at
// the time NewModel was called.
func NewModel(eng *layout.Engine, opts Options) (Model, error) {
	if eng == nil || !eng.Initialized() {
		return Model{}, &layout.OpError{Op: "preview", Err: layout.ErrNotInitialized}
	}
	if opts.FPS <= 0 {
		opts.FPS = config.DefaultFPS
	}
	if opts.Title == "" {
		opts.Title = "traitfield"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	theme := GetTheme(opts.Theme)
	m := Model{
		engine:         eng,
		opts:           opts,
		log:            log,
		canvas:         NewCanvas(width, height),
		camera:         NewCamera(),
		theme:          theme,
		styles:         newStyles(theme),
		running:        true,
		initialNodes:   eng.Nodes(),
		initialCentral: eng.Central(),
		initialConfig:  eng.Config(),
		energy:         make([]float64, 0, historyCapacity),
		spread:         make([]float64, 0, historyCapacity),
		spreadM:        metrics.NewSpread(),
	}
	m.redraw()
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), waitForConfig(m.opts.Updates))
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FPS), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func waitForConfig(ch <-chan *config.Config) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok {
			return nil
		}
		return ConfigMsg{Config: cfg}
	}
}

// Update handles input, engine ticks and config reloads.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		w := max(20, msg.Width-statsWidth-6)
		h := max(10, msg.Height-4)
		m.canvas = NewCanvas(w, h)
		m.redraw()
	case TickMsg:
		if m.running {
			m.step()
		}
		m.redraw()
		return m, m.tick()
	case ConfigMsg:
		m.applyConfig(msg.Config)
		return m, waitForConfig(m.opts.Updates)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case "s":
		if !m.running {
			m.step()
		}
	case "r":
		m.reset()
	case "n", "tab":
		m.cycleCentral(1)
	case "p", "shift+tab":
		m.cycleCentral(-1)
	case "left":
		m.drag(geom.Vec3{X: -1})
	case "right":
		m.drag(geom.Vec3{X: 1})
	case "up":
		m.drag(geom.Vec3{Y: 1})
	case "down":
		m.drag(geom.Vec3{Y: -1})
	case "pgup":
		m.drag(geom.Vec3{Z: 1})
	case "pgdown":
		m.drag(geom.Vec3{Z: -1})
	case "enter":
		m.engine.ReleaseCentral()
	case "[":
		m.selected = (m.selected + len(tunables) - 1) % len(tunables)
	case "]":
		m.selected = (m.selected + 1) % len(tunables)
	case "k":
		m.adjust(1.05)
	case "j":
		m.adjust(0.95)
	case ">":
		m.changeTraits(1)
	case "<":
		m.changeTraits(-1)
	case "a":
		m.addNode()
	case "d":
		m.removeNode()
	case "t":
		m.theme = NextTheme(m.theme.Name)
		m.styles = newStyles(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	case "x":
		m.camera.RotateX(0.1)
	case "X":
		m.camera.RotateX(-0.1)
	case "y":
		m.camera.RotateY(0.1)
	case "Y":
		m.camera.RotateY(-0.1)
	case "z":
		m.camera.RotateZ(0.1)
	case "Z":
		m.camera.RotateZ(-0.1)
	case "+", "=":
		m.camera.ZoomIn()
	case "-", "_":
		m.camera.ZoomOut()
	}
	m.redraw()
	return m, nil
}

// step advances the engine one frame and records the energy history.
func (m *Model) step() {
	rep, err := m.engine.Step()
	if err != nil {
		m.fail("step", err)
		m.running = false
		return
	}
	m.last = rep
	if rep.Energy.Spike {
		m.spikes++
	}

	snap := m.engine.Snapshot()
	energy := rep.Energy.Total
	if !m.engine.Config().EnergyMonitor {
		energy = metrics.Kinetic(snap.Bodies())
	}
	m.energy = pushHistory(m.energy, energy)
	m.spreadM.Observe(metrics.Frame{Bodies: snap.Bodies(), Central: snap.Central, Time: snap.Time})
	m.spread = pushHistory(m.spread, m.spreadM.Value())
}

func pushHistory(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m *Model) redraw() {
	snap := m.engine.Snapshot()
	m.camera.Follow(snap)
	RenderLayout(m.canvas, m.camera, snap)
}

func (m *Model) reset() {
	if err := m.engine.Initialize(m.initialNodes, m.initialCentral, m.initialConfig); err != nil {
		m.fail("reset", err)
		return
	}
	m.energy = m.energy[:0]
	m.spread = m.spread[:0]
	m.spreadM.Reset()
	m.spikes = 0
	m.last = layout.StepReport{}
	m.notice = "reset"
}

func (m *Model) cycleCentral(dir int) {
	n := m.engine.Len()
	if n < 2 {
		return
	}
	next := (m.engine.Central() + dir + n) % n
	if err := m.engine.SetCentral(next); err != nil {
		m.fail("set central", err)
	}
}

func (m *Model) drag(dir geom.Vec3) {
	snap := m.engine.Snapshot()
	pos := snap.Nodes[snap.Central].Position
	m.engine.DragCentral(pos.AddScaled(dir, m.engine.Config().RestLength*dragFraction))
}

func (m *Model) adjust(factor float64) {
	t := tunables[m.selected]
	v := t.get(m.engine.Config()) * factor
	if err := m.engine.SetConfig(t.patch(v)); err != nil {
		m.fail("tune "+t.name, err)
		return
	}
	m.notice = ""
}

func (m *Model) addNode() {
	if m.opts.Spawn == nil {
		return
	}
	n, err := m.opts.Spawn()
	if err == nil {
		err = m.engine.AddNode(n)
	}
	if err != nil {
		m.fail("add node", err)
	}
}

// removeNode drops the most recently added non-central node.
func (m *Model) removeNode() {
	snap := m.engine.Snapshot()
	for i := len(snap.Nodes) - 1; i >= 0; i-- {
		if i == snap.Central {
			continue
		}
		if err := m.engine.RemoveNode(snap.Nodes[i].ID); err != nil {
			m.fail("remove node", err)
		}
		return
	}
}

func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if err := m.engine.SetConfig(cfg.Physics.Patch()); err != nil {
		m.fail("reload", err)
		return
	}
	if cfg.Traits > 0 && cfg.Traits != m.engine.Dims() {
		if err := m.resize(cfg.Traits); err != nil {
			m.fail("reload", err)
			return
		}
	}
	if cfg.FPS > 0 {
		m.opts.FPS = cfg.FPS
	}
	m.notice = "config reloaded"
	m.log.Info("applied reloaded config", zap.String("name", cfg.Name))
}

func (m *Model) changeTraits(delta int) {
	n := m.engine.Dims() + delta
	if n < 1 || n > maxTraits {
		return
	}
	if err := m.resize(n); err != nil {
		m.fail("resize", err)
		return
	}
	m.notice = fmt.Sprintf("traits: %d", n)
}

// resize reinitializes the engine with n traits, padding with the middle of
// the trait range.
func (m *Model) resize(n int) error {
	r := m.engine.Config().Range
	return m.engine.Resize(n, r.Lo+r.Span()/2)
}

func (m *Model) fail(op string, err error) {
	m.notice = fmt.Sprintf("%s: %v", op, err)
	m.log.Warn("preview operation failed", zap.String("op", op), zap.Error(err))
}

// View renders the canvas and the stats panel.
func (m Model) View() string {
	st := m.styles
	snap := m.engine.Snapshot()
	cfg := m.engine.Config()

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.opts.Title)) + "\n")
	status := "RUNNING"
	switch {
	case m.engine.Dragging():
		status = "DRAGGING"
	case !m.running:
		status = "PAUSED"
	}
	s.WriteString(status + "\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", snap.Step))
	row("Time", fmt.Sprintf("%.2fs", snap.Time))
	row("Nodes", fmt.Sprintf("%d x %d traits", len(snap.Nodes), m.engine.Dims()))
	row("Central", shortID(snap.Nodes[snap.Central].ID))
	row("Kinetic", fmt.Sprintf("%.3f", m.last.Energy.Kinetic))
	if cfg.EnergyMonitor {
		row("Total", fmt.Sprintf("%.3f (avg %.3f)", m.last.Energy.Total, m.last.Energy.Average))
	}
	spikes := fmt.Sprintf("%d", m.spikes)
	if m.last.Energy.Spike {
		spikes = st.warn.Render(spikes + " !")
	}
	row("Spikes", spikes)
	row("Spread", st.Sparkline(m.spread, 24))

	s.WriteString("\nPARAMETERS\n")
	for i, t := range tunables {
		line := fmt.Sprintf("%-10s %8.3f", t.name, t.get(cfg))
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.label.Render(line) + "\n")
		}
	}
	if m.notice != "" {
		s.WriteString("\n" + st.warn.Render(m.notice) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset Q:Quit ?:Help\nTab:Central ←↑↓→:Drag [ ]/J K:Tune"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top,
		st.canvas.Render(m.canvas.String()),
		st.stats.Render(s.String()),
	)
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
╔═══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS          ║
╠═══════════════════════════════════════╣
║  Space      Pause/Resume              ║
║  S          Single step while paused  ║
║  R          Reset layout              ║
║  Tab/N P    Next/previous central     ║
║  Arrows     Drag central (X/Y)        ║
║  PgUp/PgDn  Drag central (Z)          ║
║  Enter      Release central           ║
║  [ ]        Select parameter          ║
║  K / J      Parameter +5% / -5%       ║
║  A / D      Add / remove node         ║
║  < / >      Fewer / more traits       ║
║  X Y Z      Rotate view               ║
║  + / -      Zoom                      ║
║  T          Cycle themes              ║
║  Q          Quit                      ║
╚═══════════════════════════════════════╝`

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
