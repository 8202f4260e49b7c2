package clock

import "time"

// Func returns the current instant. Services take one so tests can pin time.
type Func func() time.Time

// UTC is the production clock. The result carries no monotonic reading, so
// it compares equal to its stored and reloaded form.
func UTC() time.Time {
	return time.Now().UTC()
}

// Or returns f, or UTC when f is nil.
func Or(f Func) Func {
	if f == nil {
		return UTC
	}
	return f
}

// After returns now when it is later than prev, otherwise the smallest
// stored instant after prev. updated_at stamps never repeat or go back.
func After(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}
