// Package silotest provides testing helpers for code built on silo.
//
// # Recording notifications
//
//	rec := silotest.Record[Stats](stats)
//	addKill(10)
//	if rec.Count() != 1 {
//	    t.Fatalf("expected 1 notification, got %d", rec.Count())
//	}
//	last, _ := rec.Last()
//	// last.Next, last.Prev
//
// # Recording observed values
//
//	var kills silotest.Values[int]
//	silo.Observe(stats, func(s Stats) int { return s.Kills }, kills.Record)
//	// kills.All() == []int{0} right after Observe returns
//
// # Protocol assertions
//
//	silotest.ExpectViolation(t, "S001", func() {
//	    nested(1) // dispatches on the same silo from a modifier
//	})
package silotest
