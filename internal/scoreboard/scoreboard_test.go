package scoreboard

import (
	"testing"

	"github.com/vango-dev/silo/pkg/silo"
	"github.com/vango-dev/silo/pkg/silotest"
)

func TestAddKill(t *testing.T) {
	stats := NewStats()
	stats.AddKill(10)

	if got := stats.State(); got != (Stats{Kills: 10, Deaths: 0}) {
		t.Errorf("expected {10 0}, got %+v", got)
	}
	if got := stats.InitialState(); got != (Stats{}) {
		t.Errorf("expected initial state {0 0}, got %+v", got)
	}
}

func TestStatsActions(t *testing.T) {
	stats := NewStats()
	rec := silotest.Record[Stats](stats)

	stats.AddKill(3)
	stats.AddDeath(1)
	stats.Reset()
	stats.Reset()

	if rec.Count() != 3 {
		t.Fatalf("expected 3 notifications, got %d", rec.Count())
	}
	calls := rec.Calls()
	if calls[1].Next != (Stats{Kills: 3, Deaths: 1}) || calls[1].Prev != (Stats{Kills: 3}) {
		t.Errorf("unexpected addDeath notification %+v", calls[1])
	}
	if stats.State() != (Stats{}) {
		t.Errorf("expected reset state, got %+v", stats.State())
	}
}

func TestActionsByName(t *testing.T) {
	stats := NewStats()
	want := []string{"addKill", "addDeath", "reset"}
	got := stats.Actions()
	if len(got) != len(want) {
		t.Fatalf("expected actions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if err := stats.Dispatch("addKill", 2); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if stats.State().Kills != 2 {
		t.Errorf("expected 2 kills, got %d", stats.State().Kills)
	}
}

func TestZeroDelta_ValueState(t *testing.T) {
	stats := NewStats()
	rec := silotest.Record[Stats](stats)

	stats.AddKill(0)
	stats.AddDeath(0)

	if rec.Count() != 0 {
		t.Errorf("expected zero-delta actions on value state to be no-ops, got %d notifications", rec.Count())
	}
}

func TestZeroDelta_PointerState(t *testing.T) {
	s := silo.New(&Stats{})
	fresh := silo.Bind(s, "addKill", func(st *Stats, n int) *Stats {
		next := addKill(*st, n)
		return &next
	})
	guarded := silo.Bind(s, "addKillGuarded", func(st *Stats, n int) *Stats {
		if n == 0 {
			return st
		}
		next := addKill(*st, n)
		return &next
	})
	rec := silotest.Record[*Stats](s)

	fresh(0)
	if rec.Count() != 1 {
		t.Errorf("expected a fresh pointer to count as a change, got %d notifications", rec.Count())
	}

	guarded(0)
	if rec.Count() != 1 {
		t.Errorf("expected returning the same pointer to be a no-op, got %d notifications", rec.Count())
	}
}

func TestRename(t *testing.T) {
	profile := NewProfile()
	if profile.State().Name != DefaultProfileName {
		t.Errorf("expected initial name %q, got %q", DefaultProfileName, profile.State().Name)
	}

	var names silotest.Values[string]
	unsub := silo.Observe[Profile, string](profile, func(p Profile) string { return p.Name }, names.Record)
	defer unsub()

	profile.Rename("world")
	profile.Rename("world")

	got := names.All()
	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Errorf("expected [hello world], got %v", got)
	}
}

func TestMatch(t *testing.T) {
	match := NewMatch()
	match.Stats.AddKill(10)

	state := match.State()
	if got := StatsOf(state); got != (Stats{Kills: 10}) {
		t.Errorf("expected combined stats {10 0}, got %+v", got)
	}
	if got := ProfileOf(state); got.Name != DefaultProfileName {
		t.Errorf("expected combined profile %q, got %q", DefaultProfileName, got.Name)
	}

	names := state.Names()
	if len(names) != 2 || names[0] != MemberProfile || names[1] != MemberStats {
		t.Errorf("expected members [%s %s], got %v", MemberProfile, MemberStats, names)
	}
}

func TestMatchNotifiesOncePerChange(t *testing.T) {
	match := NewMatch()
	rec := silotest.Record[*silo.CombinedState](match)

	match.Stats.AddKill(1)
	match.Profile.Rename("player")
	match.Stats.AddKill(0)

	if rec.Count() != 2 {
		t.Fatalf("expected 2 combined notifications, got %d", rec.Count())
	}
	last, _ := rec.Last()
	if ProfileOf(last.Next).Name != "player" {
		t.Errorf("expected latest profile name player, got %q", ProfileOf(last.Next).Name)
	}
	if StatsOf(last.Prev).Kills != 1 {
		t.Errorf("expected previous combined state to hold 1 kill, got %d", StatsOf(last.Prev).Kills)
	}
}

func TestMatchLookup(t *testing.T) {
	match := NewMatch()

	stats, ok := silo.Lookup[Stats](match.Combined, MemberStats)
	if !ok {
		t.Fatal("expected stats member")
	}
	if err := stats.Dispatch("addDeath", 4); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if StatsOf(match.State()).Deaths != 4 {
		t.Errorf("expected 4 deaths in match state, got %d", StatsOf(match.State()).Deaths)
	}
}

func TestKD(t *testing.T) {
	tests := []struct {
		stats Stats
		want  float64
	}{
		{Stats{}, 0},
		{Stats{Kills: 5}, 5},
		{Stats{Kills: 6, Deaths: 3}, 2},
	}

	for _, tt := range tests {
		if got := tt.stats.KD(); got != tt.want {
			t.Errorf("%+v.KD() = %v, want %v", tt.stats, got, tt.want)
		}
	}
}
