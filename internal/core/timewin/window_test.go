package timewin

import (
	"testing"
	"time"

	"slipway/internal/platform/testkit"
)

var day = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func TestNextFreshDay(t *testing.T) {
	w, ok := Next(day, 3600, nil)
	if !ok {
		t.Fatalf("expected a window")
	}
	if !w.Start.Equal(day) || !w.End.Equal(at(1, 0)) {
		t.Fatalf("got [%v, %v)", w.Start, w.End)
	}
	if w.Interval != "1h" {
		t.Fatalf("interval = %q", w.Interval)
	}
}

func TestNextFreshStartEquivalence(t *testing.T) {
	// nil continuation and continuation at day start must agree
	a, okA := Next(day, 7200, nil)
	d := day
	b, okB := Next(day, 7200, &d)
	if !okA || !okB {
		t.Fatalf("expected windows, got %v %v", okA, okB)
	}
	if !a.Start.Equal(b.Start) || !a.End.Equal(b.End) || a.Interval != b.Interval {
		t.Fatalf("fresh %+v != day-start %+v", a, b)
	}
}

func TestNextContinues(t *testing.T) {
	c := at(10, 0)
	w, ok := Next(day, 3*3600, &c)
	if !ok {
		t.Fatalf("expected a window")
	}
	if !w.Start.Equal(c) || !w.End.Equal(at(13, 0)) {
		t.Fatalf("got [%v, %v)", w.Start, w.End)
	}
	if w.Interval != "3h" {
		t.Fatalf("interval = %q", w.Interval)
	}
}

func TestNextCapsAtDayBoundary(t *testing.T) {
	c := at(22, 0)
	w, ok := Next(day, 3*3600, &c)
	if !ok {
		t.Fatalf("expected a window")
	}
	if !w.Start.Equal(c) || !w.End.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("got [%v, %v)", w.Start, w.End)
	}
	// requested 3h, capped to the 2h that remain
	if w.Interval != "2h" {
		t.Fatalf("interval = %q", w.Interval)
	}
}

func TestNextCompleteBeforeDay(t *testing.T) {
	c := day.Add(-time.Second)
	if _, ok := Next(day, 3600, &c); ok {
		t.Fatalf("continuation before the day must be complete")
	}
}

func TestNextCompleteAtNextDay(t *testing.T) {
	c := day.AddDate(0, 0, 1)
	if _, ok := Next(day, 3600, &c); ok {
		t.Fatalf("continuation at next day start must be complete")
	}

	// one second shy of the boundary still yields a final 1s window
	c = day.AddDate(0, 0, 1).Add(-time.Second)
	w, ok := Next(day, 3600, &c)
	if !ok {
		t.Fatalf("expected a final window")
	}
	if !w.End.Equal(day.AddDate(0, 0, 1)) || w.Interval != "1s" {
		t.Fatalf("got end %v interval %q", w.End, w.Interval)
	}
}

func TestNextMonotonicWalk(t *testing.T) {
	// walking a day by feeding each end back as the continuation must tile
	// the day exactly, never cross the boundary, and finish complete
	granularities := []int64{3600, 7 * 3600, 5413, 86400, 100000}
	nextDay := day.AddDate(0, 0, 1)

	for _, g := range granularities {
		var cont *time.Time
		prevEnd := day
		steps := 0
		for {
			w, ok := Next(day, g, cont)
			if !ok {
				break
			}
			if !w.Start.Equal(prevEnd) {
				t.Fatalf("g=%d: window start %v, want %v", g, w.Start, prevEnd)
			}
			if !w.Start.Before(w.End) {
				t.Fatalf("g=%d: degenerate window [%v, %v)", g, w.Start, w.End)
			}
			if w.End.After(nextDay) {
				t.Fatalf("g=%d: window end %v crosses day boundary", g, w.End)
			}
			got, err := ParseDuration(w.Interval)
			if err != nil || got != int64(w.End.Sub(w.Start)/time.Second) {
				t.Fatalf("g=%d: interval %q does not encode window length", g, w.Interval)
			}
			prevEnd = w.End
			cont = &prevEnd
			if steps++; steps > 100000 {
				t.Fatalf("g=%d: walk did not terminate", g)
			}
		}
		if !prevEnd.Equal(nextDay) {
			t.Fatalf("g=%d: day finished at %v, want %v", g, prevEnd, nextDay)
		}
	}
}

func TestNextPanicsOnBadGranularity(t *testing.T) {
	testkit.MustPanic(t, func() { Next(day, 0, nil) })
	testkit.MustPanic(t, func() { Next(day, -3600, nil) })
}

func TestNextDSTShortDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	// spring forward: 2025-03-09 has 23 wall-clock hours
	d := time.Date(2025, 3, 9, 0, 0, 0, 0, loc)
	nextDay := d.AddDate(0, 0, 1)
	if nextDay.Sub(d) != 23*time.Hour {
		t.Skipf("unexpected dst offset %v", nextDay.Sub(d))
	}

	var cont *time.Time
	var total time.Duration
	prev := d
	for {
		w, ok := Next(d, 6*3600, cont)
		if !ok {
			break
		}
		total += w.End.Sub(w.Start)
		prev = w.End
		cont = &prev
	}
	if total != 23*time.Hour {
		t.Fatalf("tiled %v of a 23h day", total)
	}
}

func TestTargetDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 7, 1, 3, 30, 0, 0, loc)

	// 4h stability lands us on the previous day
	got := TargetDay(now, 4*3600, loc)
	want := time.Date(2025, 6, 30, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("TargetDay = %v, want %v", got, want)
	}

	// 1h stability stays on the same day
	got = TargetDay(now, 3600, loc)
	want = time.Date(2025, 7, 1, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("TargetDay = %v, want %v", got, want)
	}
}
