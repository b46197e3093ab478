package silo

import "time"

// DispatchInfo identifies one action invocation.
type DispatchInfo struct {
	Silo   string
	Action string
}

// DispatchResult reports how an action invocation ended.
type DispatchResult struct {
	// Changed is true when a new snapshot was committed.
	Changed bool

	// Subscribers is the number of subscribers notified.
	Subscribers int

	// Duration covers the modifier and the notification fan-out.
	Duration time.Duration

	// Panic holds the recovered value when the modifier or a subscriber
	// panicked. The panic is re-raised after the result is reported.
	Panic any
}

// Instrument observes dispatches. It cannot alter state or stop a dispatch.
//
// StartDispatch is called before the modifier runs; the returned function,
// when non-nil, is called once the dispatch has finished. Dispatches started
// by subscribers nest inside the outer dispatch.
type Instrument interface {
	StartDispatch(info DispatchInfo) func(DispatchResult)
}

// InstrumentFunc adapts a function to the Instrument interface.
type InstrumentFunc func(info DispatchInfo) func(DispatchResult)

// StartDispatch implements Instrument.
func (f InstrumentFunc) StartDispatch(info DispatchInfo) func(DispatchResult) {
	return f(info)
}
