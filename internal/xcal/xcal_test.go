package xcal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//libnebula//Test//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, "ev-1")
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	event.Props.SetDateTime(ical.PropDateTimeStart, time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC))
	event.Props.SetText(ical.PropSummary, "Plan, then review")
	rrule := ical.NewProp(ical.PropRecurrenceRule)
	rrule.Value = "FREQ=WEEKLY;INTERVAL=2;UNTIL=20241231T000000Z;BYDAY=MO,WE"
	event.Props.Set(rrule)
	cal.Children = append(cal.Children, event.Component)

	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, "task-1")
	todo.Props.SetDateTime(ical.PropDateTimeStamp, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	todo.Props.SetDate(ical.PropDue, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	priority := ical.NewProp(ical.PropPriority)
	priority.Value = "1"
	todo.Props.Set(priority)
	planned := ical.NewProp("X-NEBULA-PLANNED-FOR")
	planned.Value = "20240612T090000Z"
	todo.Props.Set(planned)
	cal.Children = append(cal.Children, todo)

	return cal
}

func TestEncode(t *testing.T) {
	doc := Encode(sampleCalendar())

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, TagICalendar, root.Tag)
	assert.Equal(t, Namespace, root.SelectAttrValue("xmlns", ""))

	prodid := doc.FindElement("/icalendar/vcalendar/properties/prodid/text")
	require.NotNil(t, prodid)
	assert.Equal(t, "-//libnebula//Test//EN", prodid.Text())

	vevent := doc.FindElement("/icalendar/vcalendar/components/vevent")
	require.NotNil(t, vevent)

	dtstart := vevent.FindElement("properties/dtstart/date-time")
	require.NotNil(t, dtstart)
	assert.Equal(t, "2024-06-03T17:00:00Z", dtstart.Text())

	summary := vevent.FindElement("properties/summary/text")
	require.NotNil(t, summary)
	assert.Equal(t, "Plan, then review", summary.Text(), "text values are unescaped")

	recur := vevent.FindElement("properties/rrule/recur")
	require.NotNil(t, recur)
	assert.Equal(t, "WEEKLY", recur.SelectElement("freq").Text())
	assert.Equal(t, "2", recur.SelectElement("interval").Text())
	assert.Equal(t, "2024-12-31T00:00:00Z", recur.SelectElement("until").Text())
	byday := recur.SelectElements("byday")
	require.Len(t, byday, 2)
	assert.Equal(t, "MO", byday[0].Text())
	assert.Equal(t, "WE", byday[1].Text())

	vtodo := doc.FindElement("/icalendar/vcalendar/components/vtodo")
	require.NotNil(t, vtodo)
	due := vtodo.FindElement("properties/due/date")
	require.NotNil(t, due)
	assert.Equal(t, "2024-06-14", due.Text())
	assert.Nil(t, vtodo.FindElement("properties/due/parameters"), "VALUE is carried by the value element")
	assert.Equal(t, "1", vtodo.FindElement("properties/priority/integer").Text())
	assert.Equal(t, "2024-06-12T09:00:00Z", vtodo.FindElement("properties/x-nebula-planned-for/date-time").Text())
}

func TestEncodeParameters(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}

	cal := ical.NewCalendar()
	event := ical.NewEvent()
	event.Props.SetDateTime(ical.PropDateTimeStart, time.Date(2024, 6, 3, 17, 0, 0, 0, berlin))
	cal.Children = append(cal.Children, event.Component)

	doc := Encode(cal)
	tzid := doc.FindElement("//vevent/properties/dtstart/parameters/tzid/text")
	require.NotNil(t, tzid)
	assert.Equal(t, "Europe/Berlin", tzid.Text())
	assert.Equal(t, "2024-06-03T17:00:00", doc.FindElement("//vevent/properties/dtstart/date-time").Text())
}

func TestRoundTrip(t *testing.T) {
	want := sampleCalendar()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, want))
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, ical.CompCalendar, got.Name)
	require.Len(t, got.Children, 2)

	for i, wantComp := range want.Children {
		gotComp := got.Children[i]
		assert.Equal(t, wantComp.Name, gotComp.Name)
		for name, props := range wantComp.Props {
			require.Len(t, gotComp.Props[name], len(props), name)
			assert.Equal(t, props[0].Value, gotComp.Props[name][0].Value, name)
		}
	}

	due := got.Children[1].Props.Get(ical.PropDue)
	require.NotNil(t, due)
	assert.Equal(t, "DATE", due.Params.Get(ical.ParamValue))

	// The decoded calendar is valid iCalendar.
	var ics bytes.Buffer
	require.NoError(t, ical.NewEncoder(&ics).Encode(got))
	assert.Contains(t, ics.String(), "RRULE:FREQ=WEEKLY;INTERVAL=2;UNTIL=20241231T000000Z;BYDAY=MO,WE")
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(etree.NewDocument())
	assert.Error(t, err)

	tests := []struct {
		name string
		xml  string
	}{
		{"wrong root", `<calendar/>`},
		{"no vcalendar", `<icalendar xmlns="urn:ietf:params:xml:ns:icalendar-2.0"/>`},
		{"property without value", `<icalendar><vcalendar><properties><prodid/></properties></vcalendar></icalendar>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.xml))
			assert.Error(t, err)
		})
	}
}
