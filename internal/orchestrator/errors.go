package orchestrator

import (
	"errors"

	"github.com/dimslaev/ai-chat/internal/session"
)

// Machine-readable error codes carried by error events.
const (
	CodeProviderError  = "provider_error"
	CodeStreamError    = "stream_error"
	CodeAssemblyError  = "assembly_error"
	CodeTurnInProgress = "turn_in_progress"
)

// ErrTurnInProgress is returned by Submit while another turn is active.
var ErrTurnInProgress = session.ErrTurnInProgress

// TurnError is a failed turn together with its error code.
type TurnError struct {
	Code string
	Err  error
}

func (e *TurnError) Error() string {
	return e.Code + ": " + e.Err.Error()
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code of a *TurnError in err's chain, or "".
func ErrorCode(err error) string {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
