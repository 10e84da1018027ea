package recurrence

import (
	"fmt"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// SetComponentRule writes r as the RRULE property of comp, replacing any
// existing one.
func SetComponentRule(comp *ical.Component, r Rule) {
	// Props.SetText would escape the commas in BYDAY lists.
	prop := ical.NewProp(ical.PropRecurrenceRule)
	prop.Value = r.RRuleString()
	comp.Props.Set(prop)
}

// ComponentRule extracts the RRULE of comp. A component without an RRULE
// yields None; an RRULE that does not parse, or uses parts a Rule cannot
// express, is an error.
func ComponentRule(comp *ical.Component) (mo.Option[Rule], error) {
	prop := comp.Props.Get(ical.PropRecurrenceRule)
	if prop == nil || prop.Value == "" {
		return mo.None[Rule](), nil
	}
	r, err := ParseRRule(prop.Value)
	if err != nil {
		return mo.None[Rule](), fmt.Errorf("component %s: %w", comp.Name, err)
	}
	return mo.Some(r), nil
}
