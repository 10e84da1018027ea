package recurrence

import "time"

const (
	// DefaultMaxOccurrences caps the occurrences returned by one Generate call
	// when the caller does not ask for a different limit.
	DefaultMaxOccurrences = 1000
	// MaxSteps bounds the internal iterations of one Generate call, so a rule
	// with no end and a window spanning centuries still terminates.
	MaxSteps = 10000
	// lookaheadYears is how far NextOccurrenceAfter searches.
	lookaheadYears = 10
)

// Window is a query range, inclusive at both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window [start, end].
func NewWindow(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// Contains reports whether t lies within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// IsEmpty reports whether the window ends before it starts.
func (w Window) IsEmpty() bool {
	return w.End.Before(w.Start)
}

// limits bounds a single expansion.
type limits struct {
	maxOccurrences int
	maxSteps       int
}

func newLimits(maxOccurrences, maxSteps int) limits {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	if maxSteps <= 0 {
		maxSteps = MaxSteps
	}
	return limits{maxOccurrences: maxOccurrences, maxSteps: maxSteps}
}
