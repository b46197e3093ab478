// Package silo provides a minimal immutable-state container with action-based
// mutation, change subscription, derived-value observation and composition of
// several containers into one read-only view.
//
// # Core Types
//
// Silo[S] owns one state snapshot and the actions allowed to replace it:
//
//	stats := silo.New(Stats{})
//	addKill := silo.Bind(stats, "addKill", func(s Stats, n int) Stats {
//	    s.Kills += n
//	    return s
//	})
//	addKill(10)
//	stats.State() // Stats{Kills: 10}
//
// A modifier returning the same snapshot it received (see Same) is a no-op:
// nothing is committed and no subscriber is called.
//
// Subscribers receive the new and previous snapshot after every change:
//
//	unsub := stats.Subscribe(func(next, prev Stats) { ... })
//	defer unsub()
//
// Observe derives a value and calls the observer only when it changes. The
// observer is always called once, immediately, with the current value:
//
//	silo.Observe(stats, func(s Stats) int { return s.Kills }, func(kills int) {
//	    fmt.Println("kills:", kills)
//	})
//
// Combine aggregates several silos into a read-only Combined whose state maps
// each child name to the child's current snapshot:
//
//	match := silo.Combine(map[string]silo.Member{"stats": stats, "profile": profile})
//	silo.Child[Stats](match.State(), "stats")
//
// # Protocol
//
// A modifier must be a pure function of its state and payload. Dispatching an
// action, subscribing, unsubscribing, binding or destroying on a silo whose
// modifier is running panics with a *ProtocolViolation. Subscribers run after
// the modifier has returned and are free to do any of those things.
//
// # Thread Safety
//
// Silos are not safe for concurrent use. Every dispatch, notification and
// observer call runs to completion on the calling goroutine; callers own the
// serialisation, typically by driving all silos from one event loop.
package silo
