package recurrence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// JSON forms used by the HTTP API:
//
//	{"frequency":"weekly","interval":2,"end":{"type":"count","count":10},
//	 "weekly_pattern":["mon","wed"],"monthly_pattern":null}
//
// A missing interval defaults to 1. Missing patterns are absent, and so is an
// empty weekly pattern.

func (f Frequency) MarshalText() ([]byte, error) {
	if f > FreqYearly {
		return nil, ErrInvalidFrequency
	}
	return []byte(f.String()), nil
}

func (f *Frequency) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "daily":
		*f = FreqDaily
	case "weekly":
		*f = FreqWeekly
	case "monthly":
		*f = FreqMonthly
	case "yearly":
		*f = FreqYearly
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, text)
	}
	return nil
}

type endJSON struct {
	Type  string     `json:"type"`
	Count *uint32    `json:"count,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

func (e End) MarshalJSON() ([]byte, error) {
	out := endJSON{Type: e.Kind.String()}
	switch e.Kind {
	case EndNever:
	case EndCount:
		out.Count = &e.Count
	case EndUntil:
		out.Until = &e.Until
	default:
		return nil, ErrInvalidEndType
	}
	return json.Marshal(out)
}

func (e *End) UnmarshalJSON(b []byte) error {
	var in endJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch strings.ToLower(in.Type) {
	case "", "never":
		*e = NeverEnds()
	case "count":
		if in.Count == nil {
			return errors.New("end: count is required for type count")
		}
		*e = AfterCount(*in.Count)
	case "until":
		if in.Until == nil {
			return errors.New("end: until is required for type until")
		}
		*e = UntilTime(*in.Until)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEndType, in.Type)
	}
	return nil
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, s.Len())
	for _, d := range s.Days() {
		names = append(names, weekdayName(d))
	}
	return json.Marshal(names)
}

func (s *WeekdaySet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	var set WeekdaySet
	for _, name := range names {
		d, err := parseWeekday(name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidWeekday, err)
		}
		set = set.Add(d)
	}
	*s = set
	return nil
}

type monthlyJSON struct {
	Day        int    `json:"day,omitempty"`
	Weekday    string `json:"weekday,omitempty"`
	Occurrence int    `json:"occurrence,omitempty"`
}

func (p MonthlyPattern) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case MonthlyByDay:
		return json.Marshal(monthlyJSON{Day: p.Day})
	case MonthlyByWeekday:
		return json.Marshal(monthlyJSON{Weekday: weekdayName(p.Weekday), Occurrence: p.Occurrence})
	default:
		return nil, fmt.Errorf("unknown monthly pattern kind %d", p.Kind)
	}
}

func (p *MonthlyPattern) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var in monthlyJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch {
	case in.Weekday != "":
		wd, err := parseWeekday(in.Weekday)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidWeekday, err)
		}
		*p = WeekdayOccurrence(wd, in.Occurrence)
	case in.Day != 0:
		*p = DayOfMonth(in.Day)
	default:
		return errors.New("monthly pattern needs either day or weekday")
	}
	return nil
}

func (r *Rule) UnmarshalJSON(b []byte) error {
	type plain Rule
	aux := struct {
		*plain
		Interval *uint32 `json:"interval"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Interval == nil {
		r.Interval = 1
	} else {
		r.Interval = *aux.Interval
	}
	if days, ok := r.Weekly.Get(); ok && days.IsEmpty() {
		r.Weekly = mo.None[WeekdaySet]()
	}
	return nil
}
