package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound matches failures answered with 404.
var ErrNotFound = errors.New("backend: not found")

// Failure is an unsuccessful backend call: a non-2xx status, an undecodable
// body or an envelope with success false. StatusCode is zero when no
// response was received.
type Failure struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (f *Failure) Error() string {
	msg := f.Message
	if msg == "" && f.Err != nil {
		msg = f.Err.Error()
	}
	if f.StatusCode > 0 {
		return fmt.Sprintf("backend %s %s: status %d: %s", f.Method, f.Path, f.StatusCode, msg)
	}
	return fmt.Sprintf("backend %s %s: %s", f.Method, f.Path, msg)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is reports ErrNotFound for 404 failures.
func (f *Failure) Is(target error) bool {
	return target == ErrNotFound && f.StatusCode == http.StatusNotFound
}

// serverSide reports whether the failure says something about the health of
// the store rather than about the request.
func serverSide(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var f *Failure
	if !errors.As(err, &f) {
		return err != nil
	}
	return f.StatusCode == 0 || f.StatusCode >= http.StatusInternalServerError
}
