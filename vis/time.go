package vis

import (
	"fmt"
	"math"
	"time"
)

// Relational visibility tables store row times as seconds since the modified
// Julian date epoch, 1858-11-17T00:00:00 UTC, with no leap seconds applied.
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 86400.0

// EpochFromTableSeconds converts a visibility-table timestamp (seconds since
// the MJD epoch) to a wall-clock time.
func EpochFromTableSeconds(seconds float64) time.Time {
	return mjdEpoch.Add(time.Duration(seconds * float64(time.Second))).UTC()
}

// ModifiedJulianDate returns the MJD of t in UTC days.
func ModifiedJulianDate(t time.Time) float64 {
	return t.Sub(mjdEpoch).Seconds() / secondsPerDay
}

// JulianDate returns the Julian date of t in UTC days.
func JulianDate(t time.Time) float64 {
	return ModifiedJulianDate(t) + 2400000.5
}

// TruncatedJulianDate returns the reference date a container's per-row date
// offsets are measured against: the Julian date rounded down to the
// preceding midday boundary, floor(JD) + 0.5.
func TruncatedJulianDate(t time.Time) float64 {
	return math.Floor(JulianDate(t)) + 0.5
}

// DateOffset returns the fractional-day offset of t from the truncated
// reference Julian date.
func DateOffset(t time.Time, truncatedJD float64) float32 {
	return float32(JulianDate(t) - truncatedJD)
}

// TruncatedDate formats t as its calendar date with the time of day zeroed,
// e.g. "2013-10-15T00:00:00.0".
func TruncatedDate(t time.Time) string {
	y, m, d := t.UTC().Date()
	return fmt.Sprintf("%04d-%02d-%02dT00:00:00.0", y, int(m), d)
}
