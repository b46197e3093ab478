package silo

// Subscriber is called after every committed change with the new and the
// previous snapshot.
type Subscriber[S any] func(next, prev S)

// Unsubscribe detaches a subscriber. Calling it more than once is a no-op.
type Unsubscribe func()

// noopUnsubscribe is handed out when nothing was registered.
func noopUnsubscribe() {}

// subscription is one registry entry. Entries are compared by identity, so the
// same function may be registered more than once.
type subscription[S any] struct {
	fn Subscriber[S]

	// removed marks entries detached while a notification snapshot still
	// references them.
	removed bool
}

// registry is an insertion-ordered list of subscribers.
// It is not safe for concurrent use; the owning store serialises access.
type registry[S any] struct {
	subs []*subscription[S]

	// closed is set by clear and rejects further subscriptions.
	closed bool
}

// subscribe appends fn and returns its detach function. guard runs before a
// live entry is removed and may panic to refuse the removal.
func (r *registry[S]) subscribe(fn Subscriber[S], guard func()) Unsubscribe {
	if fn == nil || r.closed {
		return noopUnsubscribe
	}

	sub := &subscription[S]{fn: fn}
	r.subs = append(r.subs, sub)

	return func() {
		if sub.removed {
			return
		}
		if guard != nil {
			guard()
		}
		r.remove(sub)
	}
}

// remove detaches sub, keeping the remaining entries in registration order.
func (r *registry[S]) remove(sub *subscription[S]) {
	sub.removed = true
	for i, existing := range r.subs {
		if existing == sub {
			last := len(r.subs) - 1
			copy(r.subs[i:], r.subs[i+1:])
			r.subs[last] = nil
			r.subs = r.subs[:last]
			return
		}
	}
}

// notify calls, in registration order, every subscriber that was registered
// when the notification started and is still registered when its turn comes.
// It returns the number of subscribers called.
func (r *registry[S]) notify(next, prev S) int {
	if len(r.subs) == 0 {
		return 0
	}

	// Copy subscribers before calling any of them
	subs := make([]*subscription[S], len(r.subs))
	copy(subs, r.subs)

	called := 0
	for _, sub := range subs {
		if sub.removed {
			continue
		}
		sub.fn(next, prev)
		called++
	}
	return called
}

// clear detaches every subscriber and closes the registry.
func (r *registry[S]) clear() {
	for _, sub := range r.subs {
		sub.removed = true
	}
	r.subs = nil
	r.closed = true
}

// len returns the number of live subscribers.
func (r *registry[S]) len() int {
	return len(r.subs)
}
