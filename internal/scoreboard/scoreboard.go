// Package scoreboard is a small game domain built on silos: per-player combat
// stats, a profile, and a match combining the two.
package scoreboard

import "github.com/vango-dev/silo/pkg/silo"

// Member names inside a Match.
const (
	MemberStats   = "test"
	MemberProfile = "another"
)

// Stats is a player's combat record.
type Stats struct {
	Kills  int `json:"kills"`
	Deaths int `json:"deaths"`
}

// Profile holds the player's display name.
type Profile struct {
	Name string `json:"name"`
}

// DefaultProfileName is the initial profile name.
const DefaultProfileName = "hello"

// StatsSilo is a Stats silo with its actions bound.
type StatsSilo struct {
	*silo.Silo[Stats]

	AddKill  silo.Action[int]
	AddDeath silo.Action[int]
	Reset    func()
}

// NewStats creates a Stats silo starting at zero.
func NewStats(opts ...silo.Option) *StatsSilo {
	s := silo.New(Stats{}, append([]silo.Option{silo.WithName("stats")}, opts...)...)
	return &StatsSilo{
		Silo:     s,
		AddKill:  silo.Bind(s, "addKill", addKill),
		AddDeath: silo.Bind(s, "addDeath", addDeath),
		Reset:    silo.Bind0(s, "reset", reset),
	}
}

func addKill(s Stats, n int) Stats {
	s.Kills += n
	return s
}

func addDeath(s Stats, n int) Stats {
	s.Deaths += n
	return s
}

func reset(Stats) Stats {
	return Stats{}
}

// ProfileSilo is a Profile silo with its actions bound.
type ProfileSilo struct {
	*silo.Silo[Profile]

	Rename silo.Action[string]
}

// NewProfile creates a Profile silo named DefaultProfileName.
func NewProfile(opts ...silo.Option) *ProfileSilo {
	s := silo.New(Profile{Name: DefaultProfileName}, append([]silo.Option{silo.WithName("profile")}, opts...)...)
	return &ProfileSilo{
		Silo:   s,
		Rename: silo.Bind(s, "rename", rename),
	}
}

func rename(p Profile, name string) Profile {
	p.Name = name
	return p
}

// Match combines a player's stats and profile.
type Match struct {
	*silo.Combined

	Stats   *StatsSilo
	Profile *ProfileSilo
}

// NewMatch creates fresh stats and profile silos and combines them under
// MemberStats and MemberProfile. Options apply to all three silos.
func NewMatch(opts ...silo.Option) *Match {
	stats := NewStats(opts...)
	profile := NewProfile(opts...)
	combined := silo.Combine(map[string]silo.Member{
		MemberStats:   stats.Silo,
		MemberProfile: profile.Silo,
	}, append([]silo.Option{silo.WithName("match")}, opts...)...)

	return &Match{
		Combined: combined,
		Stats:    stats,
		Profile:  profile,
	}
}

// StatsOf returns the Stats snapshot held in a match state.
func StatsOf(state *silo.CombinedState) Stats {
	s, _ := silo.Child[Stats](state, MemberStats)
	return s
}

// ProfileOf returns the Profile snapshot held in a match state.
func ProfileOf(state *silo.CombinedState) Profile {
	p, _ := silo.Child[Profile](state, MemberProfile)
	return p
}

// KD returns the kill/death ratio. With no deaths it returns the kill count.
func (s Stats) KD() float64 {
	if s.Deaths == 0 {
		return float64(s.Kills)
	}
	return float64(s.Kills) / float64(s.Deaths)
}
