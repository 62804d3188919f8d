// Package daytime converts host time-of-day values into the decimal-hour
// notation used by show windows (19h50m is 19.50, not 19.83).
package daytime

import "math"

// DecimalHour turns a fractional hour (e.g. 19.8333) into hour + minute/100
// (19.50). Minutes are truncated.
func DecimalHour(timeOfDay float64) float64 {
	h := math.Floor(timeOfDay)
	// epsilon absorbs float error so 50/60 of an hour stays minute 50
	m := math.Floor((timeOfDay-h)*60 + 1e-6)
	if m > 59 {
		m = 59
	}
	return h + m/100
}

// InWindow reports whether now lies in [start, end], both inclusive. When
// start > end the window wraps past midnight.
func InWindow(now, start, end float64) bool {
	if start > end {
		return now >= start || now <= end
	}
	return now >= start && now <= end
}
