package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bizdash/internal/decode"
	"bizdash/internal/normalize"
)

var (
	// ErrUnauthorized is a 401 from the backend. The stored token has been discarded.
	ErrUnauthorized = errors.New("session expired")
	// ErrTransport wraps failures where no HTTP response was received.
	ErrTransport = errors.New("transport failure")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code   int
	Body   string
	Method string
	Path   string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, msg)
}

// Is lets errors.Is(err, ErrUnauthorized) match a 401.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// Message is the backend's explanation for the failure, suitable for the user.
func (e *StatusError) Message() string {
	obj := normalize.Object(decode.Decode(e.Body), "message", "error", "detail", "title")
	if v := normalize.String(obj, "message", "error", "detail", "title"); v != "" {
		return v
	}
	if body := strings.TrimSpace(e.Body); body != "" && !strings.HasPrefix(body, "<") && len(body) <= 200 {
		return body
	}
	return http.StatusText(e.Code)
}

// IsStatus reports whether err is a StatusError with code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
