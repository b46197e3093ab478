package silo

import (
	"fmt"
	"log/slog"
	"sort"
)

// CombinedState is the snapshot of a Combined: the state of every child, keyed
// by child name. It is read-only; a new CombinedState replaces the old one on
// every child change.
type CombinedState struct {
	values map[string]any
}

// Get returns the snapshot of the named child.
func (c *CombinedState) Get(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[name]
	return v, ok
}

// Names returns the child names in sorted order.
func (c *CombinedState) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of children.
func (c *CombinedState) Len() int {
	if c == nil {
		return 0
	}
	return len(c.values)
}

// Map returns a copy of the name to snapshot mapping.
func (c *CombinedState) Map() map[string]any {
	out := make(map[string]any, c.Len())
	if c == nil {
		return out
	}
	for name, v := range c.values {
		out[name] = v
	}
	return out
}

// Child returns the named child snapshot as an S. The boolean is false when the
// child does not exist or holds a different type.
func Child[S any](c *CombinedState, name string) (S, bool) {
	v, ok := c.Get(name)
	if !ok {
		var zero S
		return zero, false
	}
	s, ok := v.(S)
	return s, ok
}

// Combined is a read-only aggregate of several members. Its state mirrors the
// current state of every child, and its subscribers are notified once for each
// change committed by any child. It has no actions; use All, Member or Lookup
// to reach the children's own actions.
type Combined struct {
	id   uint64
	name string

	members map[string]Member

	// names fixes the order children are read and watched in.
	names []string

	state   *CombinedState
	initial *CombinedState

	destroyed bool
	subs      registry[*CombinedState]

	logger *slog.Logger
}

var (
	_ Store[*CombinedState] = (*Combined)(nil)
	_ Member                = (*Combined)(nil)
)

// Combine aggregates members into a Combined. Members are observed, never
// owned: destroying the Combined leaves them untouched. Combined values are
// members themselves, so combinations nest.
//
// Combine honours WithName and WithLogger; other options are ignored.
func Combine(members map[string]Member, opts ...Option) *Combined {
	o := applyOptions(opts)

	c := &Combined{
		id:      nextID(),
		name:    o.name,
		members: make(map[string]Member, len(members)),
		names:   make([]string, 0, len(members)),
		logger:  o.logger,
	}
	if c.name == "" {
		c.name = fmt.Sprintf("combined-%d", c.id)
	}

	for name, m := range members {
		if m == nil {
			panic(fmt.Sprintf("silo: nil member %q", name))
		}
		c.members[name] = m
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)

	c.state = c.combineState()
	c.initial = c.combineState()

	for _, name := range c.names {
		c.members[name].Watch(c.refresh)
	}

	c.logger.Debug("silo combined", "silo", c.name, "members", c.names)
	return c
}

// combineState reads every child from scratch.
func (c *Combined) combineState() *CombinedState {
	values := make(map[string]any, len(c.names))
	for _, name := range c.names {
		values[name] = c.members[name].Snapshot()
	}
	return &CombinedState{values: values}
}

// refresh rebuilds the aggregate after any child change and notifies the
// combined subscribers. The notification content is not needed: every child
// is re-read.
func (c *Combined) refresh() {
	prev := c.state
	next := c.combineState()
	c.state = next
	c.subs.notify(next, prev)
}

// ID returns the unique identifier of this combined silo.
func (c *Combined) ID() uint64 {
	return c.id
}

// Name returns the combined silo name.
func (c *Combined) Name() string {
	return c.name
}

// State returns the current aggregate snapshot.
func (c *Combined) State() *CombinedState {
	return c.state
}

// InitialState returns the aggregate captured when Combine was called.
func (c *Combined) InitialState() *CombinedState {
	return c.initial
}

// Snapshot implements Member.
func (c *Combined) Snapshot() any {
	return c.state
}

// Subscribe registers fn to be called with (next, prev) after every child
// change. On a destroyed Combined it registers nothing. Nested dispatches
// follow the ordering described on Silo.Subscribe.
func (c *Combined) Subscribe(fn Subscriber[*CombinedState]) Unsubscribe {
	return c.subs.subscribe(fn, nil)
}

// Watch implements Member.
func (c *Combined) Watch(fn func()) Unsubscribe {
	if fn == nil {
		return noopUnsubscribe
	}
	return c.Subscribe(func(*CombinedState, *CombinedState) { fn() })
}

// Subscribers returns the number of live subscribers.
func (c *Combined) Subscribers() int {
	return c.subs.len()
}

// Destroy detaches the combined subscribers. Children are not destroyed and
// the aggregate keeps tracking them.
func (c *Combined) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.subs.clear()
	c.logger.Debug("silo destroyed", "silo", c.name)
}

// All returns the children keyed by name. The map is a copy; the members are
// the originals, so their actions can be called directly.
func (c *Combined) All() map[string]Member {
	out := make(map[string]Member, len(c.members))
	for name, m := range c.members {
		out[name] = m
	}
	return out
}

// Member returns the named child.
func (c *Combined) Member(name string) (Member, bool) {
	m, ok := c.members[name]
	return m, ok
}

// Lookup returns the named child as a *Silo[S]. The boolean is false when the
// child does not exist or is not a silo of that state type.
func Lookup[S any](c *Combined, name string) (*Silo[S], bool) {
	m, ok := c.members[name]
	if !ok {
		return nil, false
	}
	s, ok := m.(*Silo[S])
	return s, ok
}
