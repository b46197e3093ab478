package silo_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/silo/pkg/silo"
	"github.com/vango-dev/silo/pkg/silotest"
)

type Stats struct {
	Kills  int
	Deaths int
}

func addKill(s Stats, n int) Stats {
	return Stats{Kills: s.Kills + n, Deaths: s.Deaths}
}

func TestSiloBasic(t *testing.T) {
	s := silo.New(Stats{}, silo.WithName("stats"))
	add := silo.Bind(s, "addKill", addKill)

	add(10)

	if got := s.State(); got != (Stats{Kills: 10}) {
		t.Errorf("expected {10 0}, got %+v", got)
	}
	if got := s.InitialState(); got != (Stats{}) {
		t.Errorf("expected initial state to stay {0 0}, got %+v", got)
	}
	if s.Name() != "stats" {
		t.Errorf("expected name stats, got %q", s.Name())
	}
}

func TestSiloDefaultName(t *testing.T) {
	a := silo.New(0)
	b := silo.New(0)
	if a.Name() == "" || a.Name() == b.Name() {
		t.Errorf("expected distinct default names, got %q and %q", a.Name(), b.Name())
	}
	if a.ID() == b.ID() {
		t.Errorf("expected distinct IDs")
	}
}

func TestSiloStateFollowsLastChange(t *testing.T) {
	s := silo.New(0)
	set := silo.Bind(s, "set", func(_ int, v int) int { return v })

	for _, v := range []int{3, 7, 7, 1, 1, 9} {
		set(v)
		if s.State() != v {
			t.Fatalf("expected state %d, got %d", v, s.State())
		}
	}
	if s.InitialState() != 0 {
		t.Errorf("initial state changed to %d", s.InitialState())
	}
}

func TestSiloNoopDoesNotNotify(t *testing.T) {
	s := silo.New(Stats{})
	add := silo.Bind(s, "addKill", addKill)
	identity := silo.Bind0(s, "identity", func(s Stats) Stats { return s })

	rec := silotest.Record[Stats](s)

	identity()
	if rec.Count() != 0 {
		t.Errorf("modifier returning its input must not notify, got %d", rec.Count())
	}

	add(10)
	add(0) // rebuilds an equal value struct: same snapshot by value
	if rec.Count() != 1 {
		t.Errorf("expected 1 notification, got %d", rec.Count())
	}

	last, _ := rec.Last()
	if last.Next != (Stats{Kills: 10}) || last.Prev != (Stats{}) {
		t.Errorf("expected (next, prev) = ({10 0}, {0 0}), got %+v", last)
	}
}

type Backpack struct {
	Owner string
	Items []string
}

func TestSiloNoopOnSliceHoldingState(t *testing.T) {
	s := silo.New(Backpack{Owner: "ana", Items: []string{"sword"}})
	keep := silo.Bind0(s, "keep", func(inv Backpack) Backpack { return inv })
	pickUp := silo.Bind(s, "pickUp", func(inv Backpack, item string) Backpack {
		items := append(append([]string(nil), inv.Items...), item)
		return Backpack{Owner: inv.Owner, Items: items}
	})
	rename := silo.Bind(s, "rename", func(inv Backpack, owner string) Backpack {
		return Backpack{Owner: owner, Items: inv.Items}
	})

	rec := silotest.Record[Backpack](s)

	keep()
	rename("ana")
	if rec.Count() != 0 {
		t.Fatalf("unchanged struct holding a slice must not notify, got %d", rec.Count())
	}

	pickUp("shield")
	if rec.Count() != 1 {
		t.Fatalf("expected 1 notification after pickUp, got %d", rec.Count())
	}
	if got := s.State().Items; !reflect.DeepEqual(got, []string{"sword", "shield"}) {
		t.Errorf("expected [sword shield], got %v", got)
	}

	rename("bo")
	if rec.Count() != 2 {
		t.Errorf("expected 2 notifications after rename, got %d", rec.Count())
	}
}

func TestSiloZeroDeltaPointerState(t *testing.T) {
	t.Run("fresh allocation is a change", func(t *testing.T) {
		s := silo.New(&Stats{})
		add := silo.Bind(s, "addKill", func(s *Stats, n int) *Stats {
			return &Stats{Kills: s.Kills + n, Deaths: s.Deaths}
		})
		rec := silotest.Record[*Stats](s)

		add(10)
		before := s.State()
		add(0)

		if rec.Count() != 2 {
			t.Errorf("expected 2 notifications, got %d", rec.Count())
		}
		if s.State() == before {
			t.Error("expected a new snapshot after zero-delta allocation")
		}
		if *s.State() != *before {
			t.Errorf("expected equal content, got %+v and %+v", *s.State(), *before)
		}
	})

	t.Run("returning the same pointer is a no-op", func(t *testing.T) {
		s := silo.New(&Stats{})
		add := silo.Bind(s, "addKill", func(s *Stats, n int) *Stats {
			if n == 0 {
				return s
			}
			return &Stats{Kills: s.Kills + n, Deaths: s.Deaths}
		})
		rec := silotest.Record[*Stats](s)

		add(10)
		before := s.State()
		add(0)

		if rec.Count() != 1 {
			t.Errorf("expected 1 notification, got %d", rec.Count())
		}
		if s.State() != before {
			t.Error("expected the snapshot to be kept")
		}
	})
}

func TestSiloWithSame(t *testing.T) {
	s := silo.New([]int{1}, silo.WithSame(func(a, b []int) bool {
		return reflect.DeepEqual(a, b)
	}))
	set := silo.Bind(s, "set", func(_ []int, v []int) []int { return v })
	rec := silotest.Record[[]int](s)

	set([]int{1})
	if rec.Count() != 0 {
		t.Errorf("content-equal slice must be a no-op with DeepEqual, got %d", rec.Count())
	}

	set([]int{2})
	if rec.Count() != 1 {
		t.Errorf("expected 1 notification, got %d", rec.Count())
	}
}

func TestSiloWithSameTypeMismatchPanics(t *testing.T) {
	r := silotest.Catch(func() {
		silo.New(0, silo.WithSame(func(a, b string) bool { return a == b }))
	})
	if r == nil {
		t.Fatal("expected panic for mismatched WithSame type")
	}
}

func TestSiloWithClone(t *testing.T) {
	clone := func(m map[string]int) map[string]int {
		out := make(map[string]int, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}

	src := map[string]int{"kills": 0}
	s := silo.New(src, silo.WithClone(clone))

	src["kills"] = 99
	if s.State()["kills"] != 0 || s.InitialState()["kills"] != 0 {
		t.Error("clone must isolate the silo from the caller's map")
	}
	if reflect.ValueOf(s.State()).Pointer() == reflect.ValueOf(s.InitialState()).Pointer() {
		t.Error("initial and live state must be separate copies")
	}
}

func TestSiloSubscribeThenUnsubscribe(t *testing.T) {
	s := silo.New(0)
	inc := silo.Bind0(s, "inc", func(n int) int { return n + 1 })

	calls := 0
	unsub := s.Subscribe(func(int, int) { calls++ })
	unsub()

	for i := 0; i < 5; i++ {
		inc()
	}
	if calls != 0 {
		t.Errorf("expected 0 notifications, got %d", calls)
	}

	unsub() // idempotent
	if s.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", s.Subscribers())
	}
}

func TestSiloSubscriberOrder(t *testing.T) {
	s := silo.New(0)
	inc := silo.Bind0(s, "inc", func(n int) int { return n + 1 })

	var order []int
	for i := 0; i < 4; i++ {
		i := i
		s.Subscribe(func(int, int) { order = append(order, i) })
	}
	inc()

	if want := []int{0, 1, 2, 3}; !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestSiloReentrantDispatch(t *testing.T) {
	s := silo.New(Stats{}, silo.WithName("stats"))
	add := silo.Bind(s, "addKill", addKill)
	var both func(int)
	both = silo.Bind(s, "both", func(st Stats, n int) Stats {
		add(n)
		return Stats{Kills: st.Kills + n, Deaths: st.Deaths + n}
	})

	rec := silotest.Record[Stats](s)

	v := silotest.ExpectViolation(t, "S001", func() { both(1) })
	if v.Op != silo.OpDispatch || v.Running != "both" || v.Action != "addKill" || v.Silo != "stats" {
		t.Errorf("unexpected violation fields: %+v", v)
	}
	if !errors.Is(v, silo.ErrProtocolViolation) {
		t.Error("violation must match ErrProtocolViolation")
	}

	if s.State() != (Stats{}) {
		t.Errorf("nothing may be committed, got %+v", s.State())
	}
	if rec.Count() != 0 {
		t.Errorf("nothing may be notified, got %d", rec.Count())
	}

	// The silo stays usable.
	add(2)
	if s.State().Kills != 2 {
		t.Errorf("expected silo to accept actions after a violation, got %+v", s.State())
	}
}

func TestSiloGuardsInsideModifier(t *testing.T) {
	tests := []struct {
		name string
		code string
		op   silo.Op
		call func(s *silo.Silo[int], unsub silo.Unsubscribe)
	}{
		{"subscribe", "S002", silo.OpSubscribe, func(s *silo.Silo[int], _ silo.Unsubscribe) {
			s.Subscribe(func(int, int) {})
		}},
		{"observe", "S002", silo.OpSubscribe, func(s *silo.Silo[int], _ silo.Unsubscribe) {
			silo.Observe(s, func(n int) int { return n }, func(int) {})
		}},
		{"unsubscribe", "S003", silo.OpUnsubscribe, func(_ *silo.Silo[int], unsub silo.Unsubscribe) {
			unsub()
		}},
		{"destroy", "S004", silo.OpDestroy, func(s *silo.Silo[int], _ silo.Unsubscribe) {
			s.Destroy()
		}},
		{"bind", "S005", silo.OpBind, func(s *silo.Silo[int], _ silo.Unsubscribe) {
			silo.Bind0(s, "late", func(n int) int { return n })
		}},
		{"dispatch by name", "S001", silo.OpDispatch, func(s *silo.Silo[int], _ silo.Unsubscribe) {
			if err := s.Dispatch("noop", nil); err != nil {
				panic(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := silo.New(0)
			silo.Bind0(s, "noop", func(n int) int { return n })
			calls := 0
			unsub := s.Subscribe(func(int, int) { calls++ })

			bad := silo.Bind0(s, "bad", func(n int) int {
				tt.call(s, unsub)
				return n + 1
			})

			v := silotest.ExpectViolation(t, tt.code, bad)
			if v.Op != tt.op {
				t.Errorf("expected op %s, got %s", tt.op, v.Op)
			}
			if s.State() != 0 {
				t.Errorf("nothing may be committed, got %d", s.State())
			}
			if s.Subscribers() != 1 || s.Destroyed() {
				t.Errorf("guarded operation must not take effect: %d subscribers, destroyed=%v",
					s.Subscribers(), s.Destroyed())
			}
		})
	}
}

func TestSiloSubscriberMayDispatch(t *testing.T) {
	s := silo.New(0)
	inc := silo.Bind0(s, "inc", func(n int) int { return n + 1 })

	var seen []int
	s.Subscribe(func(next, _ int) {
		seen = append(seen, next)
		if next < 3 {
			inc()
		}
	})

	inc()

	if s.State() != 3 {
		t.Errorf("expected cascading dispatch to reach 3, got %d", s.State())
	}
	if want := []int{1, 2, 3}; !reflect.DeepEqual(seen, want) {
		t.Errorf("expected %v, got %v", want, seen)
	}
}

func TestSiloNestedDispatchOrdering(t *testing.T) {
	s := silo.New(0)
	inc := silo.Bind0(s, "inc", func(n int) int { return n + 1 })

	s.Subscribe(func(next, _ int) {
		if next == 1 {
			inc()
		}
	})
	rec := silotest.Record[int](s)
	var observed silotest.Values[int]
	silo.Observe[int, int](s, func(n int) int { return n }, observed.Record)

	inc()

	if s.State() != 2 {
		t.Fatalf("expected state 2, got %d", s.State())
	}
	var pairs [][2]int
	for _, c := range rec.Calls() {
		pairs = append(pairs, [2]int{c.Next, c.Prev})
	}
	if want := [][2]int{{2, 1}, {1, 0}}; !reflect.DeepEqual(pairs, want) {
		t.Errorf("later subscribers get the nested change first: want %v, got %v", want, pairs)
	}
	if want := []int{0, 2, 1}; !reflect.DeepEqual(observed.All(), want) {
		t.Errorf("expected observer values %v, got %v", want, observed.All())
	}
}

func TestSiloSubscriberMayUnsubscribe(t *testing.T) {
	s := silo.New(0)
	inc := silo.Bind0(s, "inc", func(n int) int { return n + 1 })

	calls := 0
	var unsub silo.Unsubscribe
	unsub = s.Subscribe(func(int, int) {
		calls++
		unsub()
	})

	inc()
	inc()
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestSiloModifierPanicPropagates(t *testing.T) {
	s := silo.New(0)
	boom := silo.Bind0(s, "boom", func(int) int { panic("boom") })
	inc := silo.Bind0(s, "inc", func(n int) int { return n + 1 })

	if r := silotest.Catch(boom); r != "boom" {
		t.Fatalf("expected modifier panic to propagate unchanged, got %v", r)
	}

	// The modifying flag must have been cleared.
	inc()
	if s.State() != 1 {
		t.Errorf("expected silo to keep working, got %d", s.State())
	}
	s.Subscribe(func(int, int) {})
}

func TestSiloDestroy(t *testing.T) {
	s := silo.New(0)
	inc := silo.Bind0(s, "inc", func(n int) int { return n + 1 })

	calls := 0
	unsub := s.Subscribe(func(int, int) { calls++ })
	observed := 0
	silo.Observe(s, func(n int) int { return n }, func(int) { observed++ })

	s.Destroy()
	s.Destroy()
	unsub()

	inc()
	if calls != 0 || observed != 1 {
		t.Errorf("destroyed silo must not notify: %d calls, %d observations", calls, observed)
	}
	if s.State() != 1 {
		t.Errorf("actions keep replacing state after destroy, got %d", s.State())
	}

	s.Subscribe(func(int, int) { calls++ })
	inc()
	if calls != 0 || s.Subscribers() != 0 {
		t.Errorf("destroy is terminal: %d calls, %d subscribers", calls, s.Subscribers())
	}
	if !s.Destroyed() {
		t.Error("expected Destroyed() to be true")
	}
}

func TestSiloInstrument(t *testing.T) {
	var infos []silo.DispatchInfo
	var results []silo.DispatchResult

	in := silo.InstrumentFunc(func(info silo.DispatchInfo) func(silo.DispatchResult) {
		infos = append(infos, info)
		return func(res silo.DispatchResult) {
			results = append(results, res)
		}
	})

	s := silo.New(0, silo.WithName("counter"), silo.WithInstrument(in))
	set := silo.Bind(s, "set", func(_ int, v int) int { return v })
	boom := silo.Bind0(s, "boom", func(int) int { panic("boom") })
	s.Subscribe(func(int, int) {})
	s.Subscribe(func(int, int) {})

	set(5)
	set(5)
	if r := silotest.Catch(boom); r != "boom" {
		t.Fatalf("expected boom, got %v", r)
	}

	if len(infos) != 3 || len(results) != 3 {
		t.Fatalf("expected 3 starts and 3 results, got %d and %d", len(infos), len(results))
	}
	if infos[0] != (silo.DispatchInfo{Silo: "counter", Action: "set"}) {
		t.Errorf("unexpected info: %+v", infos[0])
	}
	if !results[0].Changed || results[0].Subscribers != 2 {
		t.Errorf("expected changed dispatch with 2 subscribers, got %+v", results[0])
	}
	if results[1].Changed || results[1].Subscribers != 0 {
		t.Errorf("expected no-op dispatch, got %+v", results[1])
	}
	if results[2].Panic != "boom" || results[2].Changed {
		t.Errorf("expected panicking dispatch to be reported, got %+v", results[2])
	}
}

func TestSiloDispatchByName(t *testing.T) {
	s := silo.New(Stats{}, silo.WithName("stats"))
	silo.Bind(s, "addKill", addKill)
	silo.Bind0(s, "reset", func(Stats) Stats { return Stats{} })

	if want := []string{"addKill", "reset"}; !reflect.DeepEqual(s.Actions(), want) {
		t.Errorf("expected actions %v, got %v", want, s.Actions())
	}

	if err := s.Dispatch("addKill", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State().Kills != 4 {
		t.Errorf("expected 4 kills, got %d", s.State().Kills)
	}

	if err := s.Dispatch("addKill", nil); err != nil {
		t.Errorf("nil payload dispatches the zero value, got %v", err)
	}

	if err := s.Dispatch("reset", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != (Stats{}) {
		t.Errorf("expected reset state, got %+v", s.State())
	}

	if err := s.Dispatch("jump", nil); !errors.Is(err, silo.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if err := s.Dispatch("addKill", "ten"); !errors.Is(err, silo.ErrPayloadType) {
		t.Errorf("expected ErrPayloadType, got %v", err)
	}
	if err := s.Dispatch("reset", 1); !errors.Is(err, silo.ErrPayloadType) {
		t.Errorf("expected ErrPayloadType for payload on Bind0 action, got %v", err)
	}
}

func TestSiloBindDuplicatePanics(t *testing.T) {
	s := silo.New(0)
	silo.Bind0(s, "inc", func(n int) int { return n + 1 })

	r := silotest.Catch(func() {
		silo.Bind0(s, "inc", func(n int) int { return n + 2 })
	})
	err, ok := r.(error)
	if !ok || !errors.Is(err, silo.ErrDuplicateAction) {
		t.Errorf("expected ErrDuplicateAction panic, got %v", r)
	}
}

func TestSiloBindNilModifierPanics(t *testing.T) {
	s := silo.New(0)
	if r := silotest.Catch(func() { silo.Bind[int, int](s, "nil", nil) }); r == nil {
		t.Error("expected panic for nil modifier")
	}
}
