package shared

import "time"

// Clock supplies the current instant. Business dates are derived from it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the business location.
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the configured location.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always reports the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// Today returns the civil date of clock as midnight UTC.
func Today(c Clock) time.Time {
	if c == nil {
		c = SystemClock{}
	}
	return DateOf(c.Now())
}

// DateOf truncates t to its civil date, expressed as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
