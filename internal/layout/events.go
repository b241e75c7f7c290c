package layout

import "github.com/san-kum/traitfield/internal/metrics"

type EventKind int

const (
	EventStep EventKind = iota
	EventEnergySpike
	EventCentralChanged
	EventNodeAdded
	EventNodeRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventStep:
		return "step"
	case EventEnergySpike:
		return "energy_spike"
	case EventCentralChanged:
		return "central_changed"
	case EventNodeAdded:
		return "node_added"
	case EventNodeRemoved:
		return "node_removed"
	}
	return "unknown"
}

type Event struct {
	Kind    EventKind
	Step    int
	Time    float64
	Central int
	NodeID  string
	Nodes   int
	// Energy is set for EventStep and EventEnergySpike when the monitor
	// is enabled.
	Energy metrics.Sample
}

// Observer receives engine events synchronously from the goroutine calling
// the engine.
type Observer interface {
	OnEvent(e Event)
}

type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

type StepReport struct {
	Step   int
	Dt     float64
	Time   float64
	Energy metrics.Sample
}
