package terminal

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================
// Every failure inside a command is recovered by the dispatcher and rendered
// as a single error line. The kinds below let handlers say what went wrong
// and let tests assert on it with errors.Is.

var (
	ErrUnknownCommand      = errors.New("unknown command")
	ErrMissingArgument     = errors.New("missing argument")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrCollaboratorFailure = errors.New("collaborator failure")
	ErrInternalHandler     = errors.New("internal handler error")
)

// Submission rejections. These are returned to the caller of Begin/Submit
// and never rendered into scrollback.
var (
	ErrEmptyInput    = errors.New("empty input")
	ErrBusy          = errors.New("a command is already in progress")
	ErrBooting       = errors.New("terminal is still booting")
	ErrSessionClosed = errors.New("session closed")
)

// unknownErrorMessage is rendered when a failure carries no usable text.
const unknownErrorMessage = "Unknown error occurred"

// CommandError is a classified handler failure.
type CommandError struct {
	Kind    error  // one of the Err* taxonomy sentinels
	Message string // user-facing text
	Err     error  // underlying cause, if any
}

func (e *CommandError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return unknownErrorMessage
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *CommandError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// MissingArgument reports a command invoked without a required argument.
func MissingArgument(format string, args ...any) error {
	return &CommandError{Kind: ErrMissingArgument, Message: fmt.Sprintf(format, args...)}
}

// PreconditionFailed reports a command that cannot run in the current state,
// for example submitting a line while the wallet is disconnected.
func PreconditionFailed(format string, args ...any) error {
	return &CommandError{Kind: ErrPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

// CollaboratorFailure wraps an error surfaced by an external collaborator.
// An empty message falls back to the cause's text.
func CollaboratorFailure(err error, message string) error {
	return &CommandError{Kind: ErrCollaboratorFailure, Message: message, Err: err}
}

// Classify returns the taxonomy kind of err. Errors that were not classified
// by their handler are treated as internal handler errors.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		ErrUnknownCommand,
		ErrMissingArgument,
		ErrPreconditionFailed,
		ErrCollaboratorFailure,
		ErrInternalHandler,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternalHandler
}

// renderError produces the single scrollback line for a failed command.
func renderError(err error) string {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = unknownErrorMessage
	}
	return "Error: " + msg
}

// panicError converts a recovered panic value into a CommandError.
func panicError(r any) error {
	switch v := r.(type) {
	case error:
		return &CommandError{Kind: ErrInternalHandler, Err: v}
	case string:
		if v != "" {
			return &CommandError{Kind: ErrInternalHandler, Message: v}
		}
	}
	return &CommandError{Kind: ErrInternalHandler, Message: unknownErrorMessage}
}
