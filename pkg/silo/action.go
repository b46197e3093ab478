package silo

import (
	"fmt"

	ierrors "github.com/vango-dev/silo/internal/errors"
)

// Modifier computes the next state from the current state and a payload. It
// must not mutate state in place: return the input unchanged to signal a no-op
// or a new snapshot to commit.
type Modifier[S, P any] func(state S, payload P) S

// Action dispatches a payload through a bound modifier. It returns once the
// new state is committed and every subscriber, combiner and observer has run.
type Action[P any] func(payload P)

// Bind attaches modify to s under name and returns the typed action. The
// action is also reachable by name through s.Dispatch.
//
// Bind panics if name is already bound, if modify is nil, or, with a
// *ProtocolViolation, if called from a running modifier.
func Bind[S, P any](s *Silo[S], name string, modify Modifier[S, P]) Action[P] {
	if modify == nil {
		panic(fmt.Sprintf("silo: nil modifier for action %q", name))
	}

	s.register(name, func(payload any) error {
		var p P
		if payload != nil {
			v, ok := payload.(P)
			if !ok {
				return ierrors.New("S011").
					WithDetail(fmt.Sprintf("action %q on silo %q takes %T, got %T", name, s.name, p, payload)).
					Wrap(ErrPayloadType)
			}
			p = v
		}
		s.dispatch(name, func(state S) S { return modify(state, p) })
		return nil
	})

	return func(payload P) {
		s.dispatch(name, func(state S) S { return modify(state, payload) })
	}
}

// Bind0 attaches a modifier that takes no payload. Dispatch by name accepts
// only a nil payload for it.
func Bind0[S any](s *Silo[S], name string, modify func(state S) S) func() {
	if modify == nil {
		panic(fmt.Sprintf("silo: nil modifier for action %q", name))
	}

	s.register(name, func(payload any) error {
		if payload != nil {
			return ierrors.New("S011").
				WithDetail(fmt.Sprintf("action %q on silo %q takes no payload, got %T", name, s.name, payload)).
				Wrap(ErrPayloadType)
		}
		s.dispatch(name, modify)
		return nil
	})

	return func() {
		s.dispatch(name, modify)
	}
}

func (s *Silo[S]) register(name string, handler func(payload any) error) {
	s.guard(OpBind, name)
	if _, exists := s.handlers[name]; exists {
		panic(ierrors.New("S012").
			WithDetail(fmt.Sprintf("silo %q already has an action %q", s.name, name)).
			Wrap(ErrDuplicateAction))
	}
	s.handlers[name] = handler
	s.actions = append(s.actions, name)
	s.logger.Debug("silo action bound", "silo", s.name, "action", name)
}
