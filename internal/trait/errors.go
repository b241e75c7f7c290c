package trait

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the root of every input-shape error in this
// package. The layout engine re-exports it so callers can use errors.Is
// against a single sentinel.
var ErrInvalidConfiguration = errors.New("invalid configuration")

var (
	ErrNoDimensions   = fmt.Errorf("%w: trait vectors have no dimensions", ErrInvalidConfiguration)
	ErrLengthMismatch = fmt.Errorf("%w: trait vector length mismatch", ErrInvalidConfiguration)
	ErrEmptyRange     = fmt.Errorf("%w: trait range has no span", ErrInvalidConfiguration)
)

// MismatchError reports the two lengths that disagreed.
type MismatchError struct {
	Want, Got int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("trait vector length mismatch: want %d, got %d", e.Want, e.Got)
}

func (e *MismatchError) Unwrap() error { return ErrLengthMismatch }
