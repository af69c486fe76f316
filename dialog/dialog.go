package dialog

import (
	"errors"
	"fmt"
)

var (
	// ErrDialogNotFound is returned when a dialog id cannot be resolved.
	ErrDialogNotFound = errors.New("dialog not found")
	// ErrStepLimit is returned when a single turn runs too many actions,
	// which usually means a RepeatDialog loop without an input.
	ErrStepLimit = errors.New("dialog step limit exceeded")
)

// Status describes where a dialog stands after a call.
type Status string

const (
	// StatusEmpty means no dialog was active.
	StatusEmpty Status = "empty"
	// StatusWaiting means the dialog waits for the next user turn.
	StatusWaiting Status = "waiting"
	// StatusComplete means the dialog ended; Result carries its value.
	StatusComplete Status = "complete"
)

// TurnResult is returned by every dialog operation.
type TurnResult struct {
	Status Status
	Result any
}

// Dialog is a unit of conversational logic on the dialog stack.
//
// Begin is called when the dialog is pushed, Continue on each later turn
// while it is on top of the stack, and Resume when a child it started ends.
type Dialog interface {
	ID() string
	Begin(dc *DialogContext, options map[string]any) (TurnResult, error)
	Continue(dc *DialogContext) (TurnResult, error)
	Resume(dc *DialogContext, result any) (TurnResult, error)
}

// Instance is the persisted state of a dialog on the stack.
type Instance struct {
	ID     string         `json:"id"`
	Memory map[string]any `json:"memory"`
	Plan   []Step         `json:"plan,omitempty"`
}

// Step is a pending action, addressed by its compiled path, plus the
// action's own state (input turn counts, waiting flags).
type Step struct {
	Path  string         `json:"path"`
	State map[string]any `json:"state,omitempty"`
}

func (s *Step) flag(key string) bool {
	v, _ := s.State[key].(bool)
	return v
}

func (s *Step) setFlag(key string, v bool) {
	if s.State == nil {
		s.State = map[string]any{}
	}
	s.State[key] = v
}

func (s *Step) count(key string) int {
	switch v := s.State[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (s *Step) setCount(key string, n int) {
	if s.State == nil {
		s.State = map[string]any{}
	}
	s.State[key] = n
}

func notFound(id string) error { return fmt.Errorf("%w: %s", ErrDialogNotFound, id) }
