package silo

import (
	"fmt"
	"log/slog"
	"time"

	ierrors "github.com/vango-dev/silo/internal/errors"
)

// Store is the read surface shared by Silo and Combined.
type Store[S any] interface {
	// State returns the current snapshot.
	State() S

	// InitialState returns the snapshot the store was created with.
	InitialState() S

	// Subscribe registers fn to be called after every committed change.
	Subscribe(fn Subscriber[S]) Unsubscribe

	// Destroy detaches all subscribers. It is terminal and idempotent.
	Destroy()
}

// Member is the type-erased view of a store that Combine aggregates.
// Both *Silo[S] and *Combined implement it.
type Member interface {
	// Snapshot returns the current state as an any.
	Snapshot() any

	// Watch calls fn after every committed change.
	Watch(fn func()) Unsubscribe
}

// Silo is an immutable-state container. State is replaced only by actions,
// each bound to a pure modifier, and every change is pushed to subscribers.
type Silo[S any] struct {
	id   uint64
	name string

	state   S
	initial S

	// modifying is set while a modifier runs; running names its action.
	modifying bool
	running   string

	destroyed bool
	subs      registry[S]

	// actions lists bound action names in bind order.
	actions  []string
	handlers map[string]func(payload any) error

	same       func(a, b S) bool
	logger     *slog.Logger
	instrument Instrument
}

var (
	_ Store[int] = (*Silo[int])(nil)
	_ Member     = (*Silo[int])(nil)
)

// New creates a silo holding initial. Actions are attached with Bind and Bind0.
func New[S any](initial S, opts ...Option) *Silo[S] {
	o := applyOptions(opts)

	s := &Silo[S]{
		id:         nextID(),
		name:       o.name,
		handlers:   make(map[string]func(payload any) error),
		logger:     o.logger,
		instrument: o.instrument,
	}
	if s.name == "" {
		s.name = fmt.Sprintf("silo-%d", s.id)
	}

	s.same = typed[func(a, b S) bool](o.same, "WithSame")
	if s.same == nil {
		s.same = Same[S]
	}

	clone := typed[func(S) S](o.clone, "WithClone")
	if clone != nil {
		s.state = clone(initial)
		s.initial = clone(initial)
	} else {
		s.state = initial
		s.initial = initial
	}

	return s
}

// ID returns the unique identifier of this silo.
func (s *Silo[S]) ID() uint64 {
	return s.id
}

// Name returns the silo name.
func (s *Silo[S]) Name() string {
	return s.name
}

// State returns the current snapshot. Callers must treat it as read-only.
func (s *Silo[S]) State() S {
	return s.state
}

// InitialState returns the snapshot the silo was created with. It never changes.
func (s *Silo[S]) InitialState() S {
	return s.initial
}

// Snapshot implements Member.
func (s *Silo[S]) Snapshot() any {
	return s.state
}

// Actions returns the bound action names in bind order.
func (s *Silo[S]) Actions() []string {
	names := make([]string, len(s.actions))
	copy(names, s.actions)
	return names
}

// Subscribers returns the number of live subscribers.
func (s *Silo[S]) Subscribers() int {
	return s.subs.len()
}

// Destroyed reports whether Destroy has been called.
func (s *Silo[S]) Destroyed() bool {
	return s.destroyed
}

// Subscribe registers fn to be called with (next, prev) after every committed
// change, in registration order. It panics with a *ProtocolViolation when
// called from a running modifier. On a destroyed silo it registers nothing.
//
// A subscriber may dispatch into the same silo. The nested change is then
// delivered to the subscribers registered after it before they receive the
// outer change, whose next value is already stale. State is authoritative.
func (s *Silo[S]) Subscribe(fn Subscriber[S]) Unsubscribe {
	s.guard(OpSubscribe, "")
	return s.subs.subscribe(fn, func() {
		s.guard(OpUnsubscribe, "")
	})
}

// Watch implements Member.
func (s *Silo[S]) Watch(fn func()) Unsubscribe {
	if fn == nil {
		return noopUnsubscribe
	}
	return s.Subscribe(func(S, S) { fn() })
}

// Destroy detaches all subscribers and observers. Actions keep working but
// notify nobody. It panics with a *ProtocolViolation when called from a
// running modifier.
func (s *Silo[S]) Destroy() {
	s.guard(OpDestroy, "")
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.subs.clear()
	s.logger.Debug("silo destroyed", "silo", s.name)
}

// Dispatch invokes the action bound under name with payload. A nil payload
// dispatches the zero value of the action's payload type.
//
// Unknown names and mismatched payloads are reported as errors wrapping
// ErrUnknownAction and ErrPayloadType. Protocol violations and modifier
// panics propagate as panics, exactly as with a typed Action.
func (s *Silo[S]) Dispatch(name string, payload any) error {
	h, ok := s.handlers[name]
	if !ok {
		return ierrors.New("S010").
			WithDetail(fmt.Sprintf("silo %q has no action %q", s.name, name)).
			Wrap(ErrUnknownAction)
	}
	return h(payload)
}

// guard panics with a *ProtocolViolation when a modifier is running.
func (s *Silo[S]) guard(op Op, action string) {
	if !s.modifying {
		return
	}
	v := newViolation(op, s.name, s.running, action)
	s.logger.Error("silo protocol violation",
		"silo", s.name,
		"code", v.Code,
		"op", string(op),
		"running", s.running,
	)
	panic(v)
}

// dispatch runs modify against the current snapshot and, when the result is
// not the same snapshot, commits it and notifies subscribers.
func (s *Silo[S]) dispatch(name string, modify func(S) S) {
	s.guard(OpDispatch, name)

	if s.instrument == nil {
		s.commit(s.apply(name, modify))
		return
	}

	var (
		start = time.Now()
		res   DispatchResult
	)
	done := s.instrument.StartDispatch(DispatchInfo{Silo: s.name, Action: name})
	if done != nil {
		defer func() {
			res.Duration = time.Since(start)
			if r := recover(); r != nil {
				res.Panic = r
				done(res)
				panic(r)
			}
			done(res)
		}()
	}

	res.Changed, res.Subscribers = s.commit(s.apply(name, modify))
}

// apply runs the modifier with the flag set. The flag is cleared on return,
// including when the modifier panics.
func (s *Silo[S]) apply(name string, modify func(S) S) (prev, next S) {
	s.modifying = true
	s.running = name
	defer func() {
		s.modifying = false
		s.running = ""
	}()

	prev = s.state
	next = modify(prev)
	return prev, next
}

// commit publishes next and notifies subscribers unless next is the same
// snapshot as prev.
func (s *Silo[S]) commit(prev, next S) (changed bool, notified int) {
	if s.same(next, prev) {
		return false, 0
	}
	s.state = next
	return true, s.subs.notify(next, prev)
}
