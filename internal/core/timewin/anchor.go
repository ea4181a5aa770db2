package timewin

import "time"

// TargetDay returns local midnight of the day that sits stabilitySeconds
// behind now in loc. The stability offset keeps the planner away from data
// that upstream systems are still settling
func TargetDay(now time.Time, stabilitySeconds int64, loc *time.Location) time.Time {
	shifted := now.Add(-time.Duration(stabilitySeconds) * time.Second).In(loc)
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, loc)
}
