package engine

import (
	"context"
	"fmt"
)

// Engine is the boundary to the messaging library. Every request receives
// exactly one Response on the channel returned by Send; push updates arrive
// independently on Updates. Ordering is only guaranteed within each channel.
type Engine interface {
	Send(req Request) <-chan Response
	Updates() <-chan Update
	Close() error
}

// Factory builds a fresh engine instance, used after a full logout.
type Factory func() (Engine, error)

// Response is the single completion of a request.
type Response struct {
	Object any
	Err    error
}

// Error is a failure reported by the engine for one request.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

// Errorf builds an engine error.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Respond returns an already-completed response channel.
func Respond(obj any, err error) <-chan Response {
	ch := make(chan Response, 1)
	ch <- Response{Object: obj, Err: err}
	close(ch)
	return ch
}

// Call sends req and waits for its response, asserting the result type.
// A response of an unexpected type is reported as an error.
func Call[T any](ctx context.Context, eng Engine, req Request) (T, error) {
	var zero T
	if eng == nil {
		return zero, fmt.Errorf("%s: engine not running", req.Kind())
	}
	select {
	case resp, ok := <-eng.Send(req):
		if !ok {
			return zero, fmt.Errorf("%s: engine closed", req.Kind())
		}
		if resp.Err != nil {
			return zero, resp.Err
		}
		v, ok := resp.Object.(T)
		if !ok {
			return zero, fmt.Errorf("%s: unexpected response %T", req.Kind(), resp.Object)
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
