// Package xcal converts iCalendar objects to and from their XML
// representation (xCal, RFC 6321).
package xcal

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/emersion/go-ical"
)

// Namespace is the xCal XML namespace.
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// Element names
const (
	TagICalendar  = "icalendar"
	TagProperties = "properties"
	TagParameters = "parameters"
	TagComponents = "components"
)

// Value type element names
const (
	TypeText     = "text"
	TypeDate     = "date"
	TypeDateTime = "date-time"
	TypeInteger  = "integer"
	TypeRecur    = "recur"
	TypeUnknown  = "unknown"
)

var valueTypes = map[string]string{
	ical.PropDateTimeStart:   TypeDateTime,
	ical.PropDateTimeEnd:     TypeDateTime,
	ical.PropDateTimeStamp:   TypeDateTime,
	ical.PropDue:             TypeDateTime,
	ical.PropCreated:         TypeDateTime,
	ical.PropLastModified:    TypeDateTime,
	ical.PropRecurrenceID:    TypeDateTime,
	ical.PropExceptionDates:  TypeDateTime,
	ical.PropRecurrenceDates: TypeDateTime,
	ical.PropCompleted:       TypeDateTime,
	ical.PropRecurrenceRule:  TypeRecur,
	ical.PropPriority:        TypeInteger,
	ical.PropSequence:        TypeInteger,
	ical.PropPercentComplete: TypeInteger,
}

var (
	dateTimeValue = regexp.MustCompile(`^\d{8}T\d{6}Z?$`)
	dateValue     = regexp.MustCompile(`^\d{8}$`)
)

// valueType picks the xCal value element for prop. An explicit VALUE
// parameter wins; unregistered X- properties holding a date-time are
// recognised by shape.
func valueType(prop *ical.Prop) string {
	if v := prop.Params.Get(ical.ParamValue); v != "" {
		return strings.ToLower(v)
	}
	if t, ok := valueTypes[prop.Name]; ok {
		return t
	}
	if strings.HasPrefix(prop.Name, "X-") {
		switch {
		case dateTimeValue.MatchString(prop.Value):
			return TypeDateTime
		case dateValue.MatchString(prop.Value):
			return TypeDate
		}
		return TypeUnknown
	}
	return TypeText
}

// Encode renders cal as an xCal document.
func Encode(cal *ical.Calendar) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(TagICalendar)
	root.CreateAttr("xmlns", Namespace)
	encodeComponent(root, cal.Component)
	return doc
}

// Write encodes cal and writes it, indented, to w.
func Write(w io.Writer, cal *ical.Calendar) error {
	doc := Encode(cal)
	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

func encodeComponent(parent *etree.Element, comp *ical.Component) {
	el := parent.CreateElement(strings.ToLower(comp.Name))

	if len(comp.Props) > 0 {
		props := el.CreateElement(TagProperties)
		names := make([]string, 0, len(comp.Props))
		for name := range comp.Props {
			names = append(names, name)
		}
		// Props is a map; sort for stable output.
		slices.Sort(names)
		for _, name := range names {
			for i := range comp.Props[name] {
				encodeProp(props, &comp.Props[name][i])
			}
		}
	}

	if len(comp.Children) > 0 {
		children := el.CreateElement(TagComponents)
		for _, child := range comp.Children {
			encodeComponent(children, child)
		}
	}
}

func encodeProp(parent *etree.Element, prop *ical.Prop) {
	el := parent.CreateElement(strings.ToLower(prop.Name))
	typ := valueType(prop)

	var params []string
	for name := range prop.Params {
		if name != ical.ParamValue {
			params = append(params, name)
		}
	}
	if len(params) > 0 {
		slices.Sort(params)
		pe := el.CreateElement(TagParameters)
		for _, name := range params {
			p := pe.CreateElement(strings.ToLower(name))
			for _, v := range prop.Params[name] {
				p.CreateElement(TypeText).SetText(v)
			}
		}
	}

	switch typ {
	case TypeDateTime, TypeDate:
		for _, v := range strings.Split(prop.Value, ",") {
			el.CreateElement(typ).SetText(formatDateTime(v))
		}
	case TypeRecur:
		encodeRecur(el.CreateElement(TypeRecur), prop.Value)
	case TypeText:
		text, err := prop.Text()
		if err != nil {
			text = prop.Value
		}
		el.CreateElement(TypeText).SetText(text)
	default:
		el.CreateElement(typ).SetText(prop.Value)
	}
}

func encodeRecur(el *etree.Element, value string) {
	for _, part := range strings.Split(value, ";") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(key)
		if key == "until" {
			el.CreateElement(key).SetText(formatDateTime(val))
			continue
		}
		for _, v := range strings.Split(val, ",") {
			el.CreateElement(key).SetText(v)
		}
	}
}

// formatDateTime turns 20240601T170000Z into 2024-06-01T17:00:00Z and
// 20240601 into 2024-06-01. Anything else is returned unchanged.
func formatDateTime(v string) string {
	switch {
	case dateTimeValue.MatchString(v):
		return v[0:4] + "-" + v[4:6] + "-" + v[6:8] + "T" + v[9:11] + ":" + v[11:13] + ":" + v[13:]
	case dateValue.MatchString(v):
		return v[0:4] + "-" + v[4:6] + "-" + v[6:8]
	}
	return v
}

func parseDateTime(v string) string {
	return strings.NewReplacer("-", "", ":", "").Replace(v)
}

// Decode reads an xCal document back into an iCalendar object.
func Decode(doc *etree.Document) (*ical.Calendar, error) {
	if doc == nil || doc.Root() == nil {
		return nil, fmt.Errorf("empty document")
	}
	root := doc.Root()
	if root.Tag != TagICalendar {
		return nil, fmt.Errorf("invalid root tag: %s", root.Tag)
	}
	vcal := root.SelectElement(strings.ToLower(ical.CompCalendar))
	if vcal == nil {
		return nil, fmt.Errorf("missing %s element", strings.ToLower(ical.CompCalendar))
	}
	comp, err := decodeComponent(vcal)
	if err != nil {
		return nil, err
	}
	return &ical.Calendar{Component: comp}, nil
}

// Read parses an xCal document from r.
func Read(r io.Reader) (*ical.Calendar, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read xcal: %w", err)
	}
	return Decode(doc)
}

func decodeComponent(el *etree.Element) (*ical.Component, error) {
	comp := ical.NewComponent(strings.ToUpper(el.Tag))

	if props := el.SelectElement(TagProperties); props != nil {
		for _, pe := range props.ChildElements() {
			prop, err := decodeProp(pe)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", comp.Name, err)
			}
			comp.Props[prop.Name] = append(comp.Props[prop.Name], *prop)
		}
	}

	if children := el.SelectElement(TagComponents); children != nil {
		for _, ce := range children.ChildElements() {
			child, err := decodeComponent(ce)
			if err != nil {
				return nil, err
			}
			comp.Children = append(comp.Children, child)
		}
	}
	return comp, nil
}

func decodeProp(el *etree.Element) (*ical.Prop, error) {
	prop := ical.NewProp(strings.ToUpper(el.Tag))

	var values []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == TagParameters {
			for _, pe := range child.ChildElements() {
				for _, v := range pe.ChildElements() {
					name := strings.ToUpper(pe.Tag)
					prop.Params[name] = append(prop.Params[name], v.Text())
				}
			}
			continue
		}
		values = append(values, child)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("property %s has no value", prop.Name)
	}

	switch typ := values[0].Tag; typ {
	case TypeDateTime, TypeDate:
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, parseDateTime(v.Text()))
		}
		prop.Value = strings.Join(parts, ",")
		if typ == TypeDate {
			prop.Params[ical.ParamValue] = []string{"DATE"}
		}
	case TypeRecur:
		prop.Value = decodeRecur(values[0])
	case TypeText:
		prop.SetText(values[0].Text())
	default:
		prop.Value = values[0].Text()
	}
	return prop, nil
}

func decodeRecur(el *etree.Element) string {
	var (
		keys  []string
		parts = map[string][]string{}
	)
	for _, child := range el.ChildElements() {
		key := strings.ToUpper(child.Tag)
		if _, seen := parts[key]; !seen {
			keys = append(keys, key)
		}
		v := child.Text()
		if key == "UNTIL" {
			v = parseDateTime(v)
		}
		parts[key] = append(parts[key], v)
	}

	rules := make([]string, 0, len(keys))
	for _, key := range keys {
		rules = append(rules, key+"="+strings.Join(parts[key], ","))
	}
	return strings.Join(rules, ";")
}
