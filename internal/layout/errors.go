package layout

import (
	"errors"
	"fmt"

	"github.com/san-kum/traitfield/internal/trait"
)

var (
	// ErrInvalidConfiguration is shared with package trait so one errors.Is
	// check covers bad vectors, ranges and engine settings.
	ErrInvalidConfiguration = trait.ErrInvalidConfiguration

	// ErrInvalidOperation indicates a call that is not allowed in the
	// engine's current state.
	ErrInvalidOperation = errors.New("invalid operation")
)

var (
	ErrNotInitialized = fmt.Errorf("%w: engine not initialized", ErrInvalidOperation)
	ErrCentralRemoval = fmt.Errorf("%w: cannot remove the central node", ErrInvalidOperation)
	ErrNodeNotFound   = fmt.Errorf("%w: node not found", ErrInvalidOperation)
	ErrDuplicateID    = fmt.Errorf("%w: duplicate node id", ErrInvalidConfiguration)
)

// OpError wraps an error with the operation and node it concerns.
type OpError struct {
	Op     string
	NodeID string
	Err    error
}

func (e *OpError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("layout %s %q: %v", e.Op, e.NodeID, e.Err)
	}
	return fmt.Sprintf("layout %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

func invalidOp(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}
