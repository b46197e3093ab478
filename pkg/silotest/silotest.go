package silotest

import (
	"testing"

	"github.com/vango-dev/silo/pkg/silo"
)

// Call is one recorded notification.
type Call[S any] struct {
	Next S
	Prev S
}

// Recorder records every notification delivered by a store.
type Recorder[S any] struct {
	calls []Call[S]
	unsub silo.Unsubscribe
}

// Record subscribes a new Recorder to store.
//
// Example:
//
//	rec := silotest.Record[*silo.CombinedState](match)
func Record[S any](store silo.Store[S]) *Recorder[S] {
	r := &Recorder[S]{}
	r.unsub = store.Subscribe(r.record)
	return r
}

func (r *Recorder[S]) record(next, prev S) {
	r.calls = append(r.calls, Call[S]{Next: next, Prev: prev})
}

// Count returns the number of recorded notifications.
func (r *Recorder[S]) Count() int {
	return len(r.calls)
}

// Calls returns a copy of the recorded notifications in delivery order.
func (r *Recorder[S]) Calls() []Call[S] {
	out := make([]Call[S], len(r.calls))
	copy(out, r.calls)
	return out
}

// Last returns the most recent notification.
func (r *Recorder[S]) Last() (Call[S], bool) {
	if len(r.calls) == 0 {
		return Call[S]{}, false
	}
	return r.calls[len(r.calls)-1], true
}

// Stop unsubscribes the recorder. Recorded calls are kept.
func (r *Recorder[S]) Stop() {
	if r.unsub != nil {
		r.unsub()
	}
}

// Values records the values delivered to an observer. The zero value is ready
// to use; pass Record as the observer.
type Values[T any] struct {
	values []T
}

// Record appends value. It has the signature of an Observe observer.
func (v *Values[T]) Record(value T) {
	v.values = append(v.values, value)
}

// Count returns the number of recorded values.
func (v *Values[T]) Count() int {
	return len(v.values)
}

// All returns a copy of the recorded values.
func (v *Values[T]) All() []T {
	out := make([]T, len(v.values))
	copy(out, v.values)
	return out
}

// Last returns the most recent value.
func (v *Values[T]) Last() (T, bool) {
	if len(v.values) == 0 {
		var zero T
		return zero, false
	}
	return v.values[len(v.values)-1], true
}

// Catch runs fn and returns the value it panicked with, or nil.
func Catch(fn func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	fn()
	return nil
}

// ExpectViolation runs fn and fails the test unless it panics with a
// *silo.ProtocolViolation carrying code. An empty code accepts any violation.
func ExpectViolation(t testing.TB, code string, fn func()) *silo.ProtocolViolation {
	t.Helper()

	r := Catch(fn)
	if r == nil {
		t.Fatalf("expected protocol violation %s, got no panic", code)
		return nil
	}

	v, ok := silo.AsViolation(r)
	if !ok {
		t.Fatalf("expected protocol violation %s, got panic: %v", code, r)
		return nil
	}
	if code != "" && v.Code != code {
		t.Errorf("expected violation code %s, got %s (%v)", code, v.Code, v)
	}
	return v
}
