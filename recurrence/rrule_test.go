package recurrence

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func TestRRuleString(t *testing.T) {
	tests := []struct {
		rule Rule
		want string
	}{
		{Daily(1), "FREQ=DAILY"},
		{Daily(3).WithCount(7), "FREQ=DAILY;INTERVAL=3;COUNT=7"},
		{Weekly(2, time.Friday, time.Monday, time.Wednesday), "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR"},
		{Weekly(1, time.Sunday), "FREQ=WEEKLY;BYDAY=SU"},
		{MonthlyDay(1, 15), "FREQ=MONTHLY;BYMONTHDAY=15"},
		{MonthlyWeekday(3, time.Friday, -1).WithEndDate(date(2030, time.December, 31)), "FREQ=MONTHLY;INTERVAL=3;UNTIL=20301231T000000Z;BYDAY=-1FR"},
		{Yearly(1), "FREQ=YEARLY"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.RRuleString())
			assert.Equal(t, tt.want, tt.rule.String())
		})
	}
}

func TestParseRRule(t *testing.T) {
	tests := []struct {
		input string
		want  Rule
	}{
		{"FREQ=DAILY", Daily(1)},
		{"FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE", Weekly(2, time.Monday, time.Wednesday)},
		{"RRULE:FREQ=MONTHLY;BYDAY=-1FR;UNTIL=20301231T000000Z", MonthlyWeekday(1, time.Friday, -1).WithEndDate(date(2030, time.December, 31))},
		{"rrule:FREQ=MONTHLY;BYMONTHDAY=15;COUNT=6", MonthlyDay(1, 15).WithCount(6)},
		{"FREQ=MONTHLY;INTERVAL=2;BYDAY=+2TU", MonthlyWeekday(2, time.Tuesday, 2)},
		{"FREQ=WEEKLY", Rule{Frequency: FreqWeekly, Interval: 1}},
		{"FREQ=YEARLY;INTERVAL=4", Yearly(4)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRRule(tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, ruleCmpOpts); diff != "" {
				t.Errorf("ParseRRule mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRRuleRejectsUnsupported(t *testing.T) {
	unsupported := []string{
		"FREQ=HOURLY",
		"FREQ=MONTHLY;BYSETPOS=-1;BYDAY=MO,TU,WE,TH,FR",
		"FREQ=YEARLY;BYMONTH=3",
		"FREQ=WEEKLY;BYDAY=1MO",
		"FREQ=MONTHLY;BYDAY=MO",
		"FREQ=MONTHLY;BYMONTHDAY=1,15",
		"FREQ=MONTHLY;BYMONTHDAY=-1",
		"FREQ=DAILY;BYDAY=MO",
		"FREQ=DAILY;BYHOUR=9",
	}
	for _, input := range unsupported {
		t.Run(input, func(t *testing.T) {
			_, err := ParseRRule(input)
			assert.ErrorIs(t, err, ErrUnsupportedRRule)
		})
	}

	_, err := ParseRRule("FREQ=SOMETIMES")
	assert.Error(t, err)
}

func TestRRuleStringRoundTrip(t *testing.T) {
	rules := []Rule{
		Daily(2).WithEndDate(date(2025, time.May, 1)),
		Weekly(1, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday).WithCount(40),
		MonthlyDay(12, 28),
		MonthlyWeekday(1, time.Sunday, 3).WithCount(12),
		Yearly(2),
	}
	for _, r := range rules {
		t.Run(r.String(), func(t *testing.T) {
			got, err := ParseRRule(r.String())
			require.NoError(t, err)
			if diff := cmp.Diff(r, got, ruleCmpOpts); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Where RFC 5545 and the packed rule agree on semantics, the generator must
// produce exactly what rrule-go produces.
func TestGenerateMatchesRRuleGo(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		anchor time.Time
		window Window
	}{
		{"daily 3", Daily(3), at(2024, time.January, 1, 9), NewWindow(date(2034, time.May, 1), date(2034, time.June, 1))},
		{"weekly tue thu every other week", Weekly(2, time.Tuesday, time.Thursday), at(2024, time.March, 6, 14), NewWindow(date(2024, time.March, 1), date(2024, time.December, 31))},
		{"weekly mwf count", Weekly(1, time.Monday, time.Wednesday, time.Friday).WithCount(10), at(2024, time.June, 1, 17), NewWindow(date(2024, time.June, 1), date(2024, time.December, 31))},
		{"monthly 15th", MonthlyDay(1, 15), at(2024, time.January, 20, 8), NewWindow(date(2024, time.January, 1), date(2026, time.January, 1))},
		{"monthly 31st", MonthlyDay(1, 31), at(2024, time.January, 10, 8), NewWindow(date(2024, time.January, 1), date(2026, time.January, 1))},
		{"last friday quarterly", MonthlyWeekday(3, time.Friday, -1).WithEndDate(date(2030, time.December, 31)), at(2024, time.January, 26, 18), NewWindow(date(2024, time.January, 1), date(2031, time.January, 1))},
		{"second monday", MonthlyWeekday(1, time.Monday, 2).WithCount(15), at(2024, time.February, 1, 10), NewWindow(date(2024, time.January, 1), date(2026, time.January, 1))},
		{"yearly", Yearly(1), at(2024, time.July, 4, 12), NewWindow(date(2024, time.January, 1), date(2040, time.January, 1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := tt.rule.ToROption(tt.anchor)
			require.NoError(t, err)
			ref, err := rrule.NewRRule(opt)
			require.NoError(t, err)

			want := ref.Between(tt.window.Start, tt.window.End, true)
			got := Generate(tt.rule, tt.anchor, tt.window, 0)

			require.Len(t, got, len(want))
			for i := range want {
				assert.True(t, want[i].Equal(got[i]), "occurrence %d: want %s, got %s", i, want[i], got[i])
			}
		})
	}
}
