// Package timewin slices a target day into contiguous ingestion windows
// and encodes window lengths as compact d/h/m/s duration strings
package timewin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	perr "slipway/internal/platform/errors"
)

// durationRx matches the full d/h/m/s form, components optional but ordered
var durationRx = regexp.MustCompile(`^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// ParseDuration converts a compact duration like "1d2h30m45s" into seconds.
// Components are optional but must appear in d, h, m, s order with no
// separators. Empty input, malformed input, and a zero total are all
// configuration errors
func ParseDuration(s string) (int64, error) {
	if s == "" {
		return 0, perr.Configf("duration is empty")
	}
	m := durationRx.FindStringSubmatch(s)
	if m == nil {
		return 0, perr.Configf("invalid duration %q", s)
	}

	var total int64
	for i, mult := range []int64{secondsPerDay, secondsPerHour, secondsPerMinute, 1} {
		part := m[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, perr.Configf("invalid duration %q: %v", s, err)
		}
		total += n * mult
	}
	if total == 0 {
		return 0, perr.Configf("duration %q is zero", s)
	}
	return total, nil
}

// FormatDuration renders seconds as a compact d/h/m/s string, omitting zero
// components. Zero renders as "0s" so every value stays round-trippable
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	var b strings.Builder
	if d := seconds / secondsPerDay; d > 0 {
		fmt.Fprintf(&b, "%dd", d)
		seconds %= secondsPerDay
	}
	if h := seconds / secondsPerHour; h > 0 {
		fmt.Fprintf(&b, "%dh", h)
		seconds %= secondsPerHour
	}
	if m := seconds / secondsPerMinute; m > 0 {
		fmt.Fprintf(&b, "%dm", m)
		seconds %= secondsPerMinute
	}
	if seconds > 0 {
		fmt.Fprintf(&b, "%ds", seconds)
	}
	return b.String()
}
