package timewin

import "time"

// Window is one contiguous slice of the target day
type Window struct {
	// Start is inclusive, End exclusive
	Start time.Time
	End   time.Time

	// Interval is the actual window length re-encoded as a d/h/m/s string.
	// It equals the configured granularity except for the final, capped
	// window of the day
	Interval string
}

// Next computes the next window of the day anchored at dayStart.
//
// continuation is where the previous run left off (typically the max window
// end already recorded for the day); nil means the day has not been started.
// ok is false when the day is complete: the continuation either predates
// dayStart (an older day was finished) or has consumed the whole day.
//
// The last window of the day is silently capped at the next calendar day
// start, so no window ever spans a day boundary. granularitySeconds must be
// positive; callers obtain it via ParseDuration which already rejects zero
func Next(dayStart time.Time, granularitySeconds int64, continuation *time.Time) (Window, bool) {
	if granularitySeconds <= 0 {
		panic("timewin: non-positive granularity")
	}

	// next calendar day, not dayStart+24h: these differ across DST shifts
	nextDay := dayStart.AddDate(0, 0, 1)

	start := dayStart
	if continuation != nil {
		c := *continuation
		if c.Before(dayStart) || !c.Before(nextDay) {
			return Window{}, false
		}
		start = c
	}

	end := start.Add(time.Duration(granularitySeconds) * time.Second)
	if end.After(nextDay) {
		end = nextDay
	}

	return Window{
		Start:    start,
		End:      end,
		Interval: FormatDuration(int64(end.Sub(start) / time.Second)),
	}, true
}
