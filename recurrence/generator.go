package recurrence

import "time"

// strategy expands a rule into concrete start times inside a window.
//
// Two implementations exist on purpose. weekStride walks whole weeks and tests
// every day against the weekly pattern, which is the only way to emit several
// occurrences per period. frequencyStride emits at most one candidate per
// period using the shared stepping primitive and covers everything else.
type strategy interface {
	expand(r Rule, anchor time.Time, w Window, lim limits) []time.Time
}

func strategyFor(r Rule) strategy {
	if r.Frequency == FreqWeekly {
		if days, ok := r.weekdays(); ok {
			return weekStride{days: days}
		}
	}
	return frequencyStride{}
}

// Generate returns the start times of r's occurrences that fall inside w,
// in chronological order. The series starts at anchor. At most maxCount
// occurrences are returned; maxCount <= 0 means DefaultMaxOccurrences.
//
// Generate always terminates: it gives up after MaxSteps internal iterations
// whatever the end condition says.
func Generate(r Rule, anchor time.Time, w Window, maxCount int) []time.Time {
	return generate(r, anchor, w, newLimits(maxCount, MaxSteps))
}

func generate(r Rule, anchor time.Time, w Window, lim limits) []time.Time {
	if r.Interval == 0 || w.IsEmpty() {
		return nil
	}
	if r.End.Kind == EndUntil && r.End.Until.Before(w.Start) && r.End.Until.Before(anchor) {
		return nil
	}
	return strategyFor(r).expand(r, anchor, w, lim)
}

// series tracks a rule's end condition while a strategy walks candidates.
type series struct {
	end     End
	emitted uint32
}

func (s *series) exhausted(t time.Time) bool {
	switch s.end.Kind {
	case EndCount:
		return s.emitted >= s.end.Count
	case EndUntil:
		return t.After(s.end.Until)
	default:
		return false
	}
}

// canSkip reports whether candidates before the window may be skipped
// without walking them. A count end needs every earlier occurrence counted.
func canSkip(r Rule) bool {
	return r.End.Kind != EndCount
}

type weekStride struct {
	days WeekdaySet
}

func (s weekStride) expand(r Rule, anchor time.Time, w Window, lim limits) []time.Time {
	var out []time.Time
	end := series{end: r.End}
	monday := mondayOnOrBefore(anchor)
	interval := int(r.Interval)

	first := 0
	if canSkip(r) {
		first = max(0, int((civilDay(w.Start)-civilDay(monday))/7)-1)
	}

	for week, steps := first, 0; steps < lim.maxSteps; week, steps = week+1, steps+1 {
		weekStart := monday.AddDate(0, 0, 7*week)
		if weekStart.After(w.End) {
			break
		}
		if week%interval != 0 {
			continue
		}
		for d := 0; d < 7; d++ {
			t := weekStart.AddDate(0, 0, d)
			if t.Before(anchor) || !s.days.Has(t.Weekday()) {
				continue
			}
			if t.After(w.End) || end.exhausted(t) {
				return out
			}
			end.emitted++
			if w.Contains(t) && r.Matches(t) {
				out = append(out, t)
				if len(out) >= lim.maxOccurrences {
					return out
				}
			}
		}
	}
	return out
}

type frequencyStride struct{}

func (frequencyStride) expand(r Rule, anchor time.Time, w Window, lim limits) []time.Time {
	var out []time.Time
	end := series{end: r.End}

	first := 0
	if canSkip(r) {
		first = skipSteps(r, anchor, w.Start)
	}

	for k, steps := first, 0; steps < lim.maxSteps; k, steps = k+1, steps+1 {
		t, ok := r.stepFrom(anchor, k)
		if t.After(w.End) {
			break
		}
		if !ok || t.Before(anchor) {
			continue
		}
		if end.exhausted(t) {
			break
		}
		end.emitted++
		if w.Contains(t) && r.Matches(t) {
			out = append(out, t)
			if len(out) >= lim.maxOccurrences {
				break
			}
		}
	}
	return out
}

// skipSteps returns a step index whose candidate is not after from, so that
// every earlier step can be skipped. It undershoots by one step to stay clear
// of clock-time and month-length edge cases.
func skipSteps(r Rule, anchor, from time.Time) int {
	if !from.After(anchor) {
		return 0
	}
	from = from.In(anchor.Location())
	interval := int64(r.Interval)
	var periods int64
	switch r.Frequency {
	case FreqDaily:
		periods = civilDay(from) - civilDay(anchor)
	case FreqWeekly:
		periods = (civilDay(from) - civilDay(anchor)) / 7
	case FreqMonthly:
		periods = int64(from.Year()-anchor.Year())*12 + int64(from.Month()-anchor.Month())
	case FreqYearly:
		periods = int64(from.Year() - anchor.Year())
	}
	return int(max(0, periods/interval-1))
}
