package optimistic

import (
	"errors"
	"fmt"

	"bizdash/internal/remote"
)

// ErrSessionExpired means the backend rejected the token. The token is gone and the
// local change was rolled back; the user has to log in again.
var ErrSessionExpired = errors.New("session expired, log in again")

// Error is a failed mutation whose local change was rolled back. It is recoverable:
// the user can simply try again.
type Error struct {
	Scope string
	ID    string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s/%s rolled back: %v", e.Op, e.Scope, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is a short explanation for the user.
func (e *Error) Message() string {
	var se *remote.StatusError
	if errors.As(e.Err, &se) {
		return se.Message()
	}
	if errors.Is(e.Err, remote.ErrTransport) {
		return "could not reach the server"
	}
	return e.Err.Error()
}
