package notify

import (
	"context"
	"sync"
)

// Call is one recorded Emit call.
type Call struct {
	Event      EventType
	Recipients []string
	Payload    any
}

// Recorder is an in-memory Emitter that keeps every call. Tests use it to assert pushes.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	Err   error
}

func (r *Recorder) Emit(ctx context.Context, event EventType, recipientIDs []string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Event: event, Recipients: append([]string(nil), recipientIDs...), Payload: payload})
	return r.Err
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Of returns the recorded calls of one event type.
func (r *Recorder) Of(event EventType) []Call {
	var out []Call
	for _, s := range r.Calls() {
		if s.Event == event {
			out = append(out, s)
		}
	}
	return out
}

// Reset drops recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
