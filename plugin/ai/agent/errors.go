package agent

import "fmt"

// Stages at which an agent call can fail.
const (
	StageChat        = "chat"
	StageToolLoop    = "tool_loop"
	StagePersistence = "persistence"
)

// Error is a fatal failure of one agent call. It carries the stage at
// which the call failed so the boundary layer can report it without
// leaking internals.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("agent %s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError creates an agent error for the given stage.
func NewError(stage string, err error) *Error {
	return &Error{Stage: stage, Err: err}
}
