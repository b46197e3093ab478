package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vango-dev/silo/internal/config"
	"github.com/vango-dev/silo/internal/scoreboard"
	"github.com/vango-dev/silo/pkg/instrument"
	"github.com/vango-dev/silo/pkg/silo"
)

func demoCmd(load func() (*config.Config, error)) *cobra.Command {
	var violation bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the scoreboard example",
		Long: `Run the scoreboard example: a stats silo and a profile silo combined
into a match. Every observed value and combined notification is printed.

With --violation, a modifier that dispatches into its own silo is run
and the resulting protocol violation is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := cfg.Logger(cmd.ErrOrStderr())
			if err := runDemo(cmd.OutOrStdout(), logger); err != nil {
				return err
			}
			if violation {
				return runViolationDemo(cmd.OutOrStdout(), logger)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&violation, "violation", false, "Also demonstrate a re-entrant dispatch violation")

	return cmd
}

func runDemo(w io.Writer, logger *slog.Logger) error {
	match := scoreboard.NewMatch(
		silo.WithLogger(logger),
		silo.WithInstrument(instrument.Logger(logger)),
	)

	info(w, "initial match state: stats=%+v profile=%+v",
		scoreboard.StatsOf(match.InitialState()), scoreboard.ProfileOf(match.InitialState()))

	stopKills := silo.Observe[scoreboard.Stats, int](match.Stats,
		func(s scoreboard.Stats) int { return s.Kills },
		func(kills int) { info(w, "observed kills: %d", kills) },
	)
	defer stopKills()

	stopKD := silo.Observe[*silo.CombinedState, float64](match,
		func(state *silo.CombinedState) float64 { return scoreboard.StatsOf(state).KD() },
		func(kd float64) { info(w, "observed K/D: %.2f", kd) },
	)
	defer stopKD()

	notifications := 0
	stopMatch := match.Subscribe(func(next, prev *silo.CombinedState) {
		notifications++
		info(w, "match changed: stats %+v -> %+v, profile %q -> %q",
			scoreboard.StatsOf(prev), scoreboard.StatsOf(next),
			scoreboard.ProfileOf(prev).Name, scoreboard.ProfileOf(next).Name)
	})
	defer stopMatch()

	fmt.Fprintln(w)
	info(w, "addKill(10)")
	match.Stats.AddKill(10)

	info(w, "addDeath(4)")
	match.Stats.AddDeath(4)

	info(w, "addKill(0), a no-op")
	match.Stats.AddKill(0)

	info(w, "rename(%q)", "player")
	match.Profile.Rename("player")

	info(w, "dispatch by name: addKill(2)")
	if err := match.Stats.Dispatch("addKill", 2); err != nil {
		return err
	}

	fmt.Fprintln(w)
	success(w, "final stats %+v after %d match notifications", match.Stats.State(), notifications)
	return nil
}

func runViolationDemo(w io.Writer, logger *slog.Logger) error {
	fmt.Fprintln(w)
	warn(w, "dispatching from inside a modifier")

	stats := scoreboard.NewStats(silo.WithLogger(logger))
	again := silo.Bind0(stats.Silo, "again", func(s scoreboard.Stats) scoreboard.Stats {
		stats.AddKill(1)
		return s
	})

	v := catchViolation(again)
	if v == nil {
		return fmt.Errorf("expected a protocol violation")
	}
	fmt.Fprint(w, v.Format())

	stats.AddKill(1)
	success(w, "silo still usable after the violation: %+v", stats.State())
	return nil
}

// catchViolation runs fn and returns the protocol violation it panicked
// with. Other panics propagate.
func catchViolation(fn func()) (v *silo.ProtocolViolation) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		pv, ok := silo.AsViolation(r)
		if !ok {
			panic(r)
		}
		v = pv
	}()
	fn()
	return nil
}
