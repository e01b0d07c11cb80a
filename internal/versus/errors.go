package versus

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArity is returned when fewer than two models are requested.
	ErrInvalidArity = errors.New("VS mode requires at least 2 models")
	// ErrModeInactive is returned when dispatching without a comparison set.
	ErrModeInactive = errors.New("not in VS mode")
	// ErrNoSelectableResults is returned when every model in a round failed.
	ErrNoSelectableResults = errors.New("no valid responses to select from")
	// ErrInvalidSelection is returned for non-numeric or out-of-range input.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrSelectionAborted is returned when the operator types exit or quit.
	// Nothing has been committed when it is returned.
	ErrSelectionAborted = errors.New("selection aborted")
)

// ModelError is one model's failure within a round. Its message names the
// model and the failed step; the provider error is reachable via Unwrap.
type ModelError struct {
	Model string
	Op    string // "create client" or "generate"
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %s failed", e.Model, e.Op)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
