package silo

// ObserveOption configures Observe.
type ObserveOption[T any] func(*observeConfig[T])

type observeConfig[T any] struct {
	changed func(next, prev T) bool
}

// WithChanged replaces the default change test (!Same(next, prev)) used to
// decide whether the observer should be called.
func WithChanged[T any](fn func(next, prev T) bool) ObserveOption[T] {
	return func(c *observeConfig[T]) {
		c.changed = fn
	}
}

// Observe derives a value from store with selector and calls observer with it
// whenever it changes.
//
// The observer is called once, synchronously, with the value selected from the
// current state before Observe returns. After that it is called only for
// notifications whose selected value differs from the last delivered one, so
// it never sees the same value twice in a row.
//
// When an earlier subscriber dispatches into the same store, the observer
// receives the nested value first and the outer one last, so the value it
// holds can be older than store.State().
//
// The returned function detaches the observation. Observe is built on
// Subscribe and shares its protocol rules.
func Observe[S, T any](store Store[S], selector func(S) T, observer func(T), opts ...ObserveOption[T]) Unsubscribe {
	var cfg observeConfig[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	changed := cfg.changed
	if changed == nil {
		changed = func(next, prev T) bool { return !Same(next, prev) }
	}

	value := selector(store.State())
	observer(value)

	return store.Subscribe(func(next, _ S) {
		v := selector(next)
		if !changed(v, value) {
			return
		}
		value = v
		observer(v)
	})
}
