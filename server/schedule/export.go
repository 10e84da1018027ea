package schedule

import (
	"fmt"
	"io"
	"time"

	"github.com/cyp0633/libnebula/recurrence"
	"github.com/cyp0633/libnebula/server/storage"
	"github.com/emersion/go-ical"
)

// ProductID is written as PRODID when Calendar is given an empty one.
const ProductID = "-//libnebula//Schedule Export//EN"

// PropPlannedFor carries a task's planned date, which iCalendar has no
// property for.
const PropPlannedFor = "X-NEBULA-PLANNED-FOR"

// Calendar renders the schedule as an iCalendar object: one VEVENT per event,
// carrying its RRULE so clients expand it themselves, and one VTODO per task.
// now is used for DTSTAMP.
func (s *Schedule) Calendar(prodID string, now time.Time) *ical.Calendar {
	if prodID == "" {
		prodID = ProductID
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	for _, ev := range s.Events {
		cal.Children = append(cal.Children, eventComponent(ev, now))
	}
	for _, t := range s.Tasks {
		cal.Children = append(cal.Children, taskComponent(t, now))
	}
	return cal
}

// WriteICS encodes the schedule as text/calendar.
func (s *Schedule) WriteICS(w io.Writer, prodID string, now time.Time) error {
	if err := ical.NewEncoder(w).Encode(s.Calendar(prodID, now)); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func eventComponent(ev EventView, now time.Time) *ical.Component {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, ev.ID)
	comp.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	comp.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
	if end, ok := ev.End.Get(); ok {
		comp.Props.SetDateTime(ical.PropDateTimeEnd, end)
	}
	comp.Props.SetText(ical.PropSummary, ev.Name)
	if ev.Description != "" {
		comp.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		comp.Props.SetText(ical.PropLocation, ev.Location)
	}
	if rule, ok := ev.Rule.Get(); ok {
		recurrence.SetComponentRule(comp, rule)
	}
	return comp
}

func taskComponent(t storage.Task, now time.Time) *ical.Component {
	comp := ical.NewComponent(ical.CompToDo)
	comp.Props.SetText(ical.PropUID, t.ID)
	comp.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	comp.Props.SetText(ical.PropSummary, t.Title)
	if t.Description != "" {
		comp.Props.SetText(ical.PropDescription, t.Description)
	}
	if start, ok := t.StartDate.Get(); ok {
		comp.Props.SetDateTime(ical.PropDateTimeStart, start)
	}
	if due, ok := t.DueDate.Get(); ok {
		comp.Props.SetDateTime(ical.PropDue, due)
	}
	if planned, ok := t.PlannedFor.Get(); ok {
		comp.Props.SetDateTime(PropPlannedFor, planned)
	}
	if p, ok := t.Priority.Get(); ok {
		prop := ical.NewProp(ical.PropPriority)
		prop.Value = fmt.Sprint(icalPriority(p))
		comp.Props.Set(prop)
	}
	status := "NEEDS-ACTION"
	if t.Completed {
		status = "COMPLETED"
	}
	comp.Props.SetText(ical.PropStatus, status)
	return comp
}

// icalPriority maps onto RFC 5545's 1 (highest) to 9 (lowest) scale.
func icalPriority(p storage.Priority) int {
	switch p {
	case storage.PriorityImportant:
		return 1
	case storage.PriorityDesirable:
		return 5
	default:
		return 9
	}
}
