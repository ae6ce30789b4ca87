// Package decode turns raw response bodies into best-effort JSON values.
//
// The backend is inconsistent about what it sends back: plain JSON, JSON that was
// serialized a second time and wrapped in quotes, or free text. Decode never fails;
// callers treat a nil result as "undecodable" and fall back to an empty value.
package decode

import (
	"encoding/json"
	"strings"
	"sync/atomic"
)

// FailureRecorder is notified when a non-empty body cannot be decoded.
type FailureRecorder interface {
	DecodeFailed()
}

type recorderHolder struct{ r FailureRecorder }

var recorder atomic.Pointer[recorderHolder]

// SetFailureRecorder installs r as the process-wide decode failure sink. Passing nil
// disables recording.
func SetFailureRecorder(r FailureRecorder) {
	recorder.Store(&recorderHolder{r: r})
}

// Decode parses text as JSON. If that fails and the trimmed text is wrapped in one
// layer of matching quote characters, the layer is stripped and the parse retried.
// Empty input and anything still unparsable yield nil.
func Decode(text string) any {
	if text == "" {
		return nil
	}

	if v, ok := parse(text); ok {
		return v
	}

	trimmed := strings.TrimSpace(text)
	if inner, ok := unquote(trimmed); ok {
		if v, ok := parse(inner); ok {
			return v
		}
	}

	if h := recorder.Load(); h != nil && h.r != nil {
		h.r.DecodeFailed()
	}
	return nil
}

// DecodeBytes is Decode for a raw body.
func DecodeBytes(body []byte) any {
	return Decode(string(body))
}

func parse(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}

// unquote strips exactly one layer of "..." or '...'.
func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	first, last := s[0], s[len(s)-1]
	if first != last || (first != '"' && first != '\'') {
		return "", false
	}
	return s[1 : len(s)-1], true
}
