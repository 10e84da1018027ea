package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestGenerateWeeklyWindow(t *testing.T) {
	// 2024-06-01 is a Saturday.
	anchor := at(2024, time.June, 1, 17)
	rule := Weekly(1, time.Monday, time.Wednesday, time.Friday)
	window := NewWindow(at(2024, time.June, 1, 0), at(2024, time.July, 1, 0))

	got := Generate(rule, anchor, window, 0)
	require.Len(t, got, 12)

	for _, occ := range got {
		assert.Contains(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, occ.Weekday())
		assert.False(t, occ.Before(anchor), "occurrence %s before anchor", occ)
		assert.Equal(t, 17, occ.Hour())
	}
	assert.Equal(t, at(2024, time.June, 3, 17), got[0])
	assert.Equal(t, at(2024, time.June, 28, 17), got[11])
}

func TestGenerateWeeklyInterval(t *testing.T) {
	anchor := at(2024, time.June, 1, 17)
	rule := Weekly(2, time.Monday)
	window := NewWindow(anchor, at(2024, time.July, 31, 0))

	got := Generate(rule, anchor, window, 0)
	assert.Equal(t, []time.Time{
		at(2024, time.June, 10, 17),
		at(2024, time.June, 24, 17),
		at(2024, time.July, 8, 17),
		at(2024, time.July, 22, 17),
	}, got)
}

func TestGenerateCountIncludesOccurrencesBeforeWindow(t *testing.T) {
	anchor := at(2024, time.June, 1, 17)
	rule := Weekly(1, time.Monday, time.Wednesday, time.Friday).WithCount(4)

	all := Generate(rule, anchor, NewWindow(anchor, at(2024, time.December, 31, 0)), 0)
	assert.Equal(t, []time.Time{
		at(2024, time.June, 3, 17),
		at(2024, time.June, 5, 17),
		at(2024, time.June, 7, 17),
		at(2024, time.June, 10, 17),
	}, all)

	late := Generate(rule, anchor, NewWindow(at(2024, time.June, 6, 0), at(2024, time.December, 31, 0)), 0)
	assert.Equal(t, []time.Time{at(2024, time.June, 7, 17), at(2024, time.June, 10, 17)}, late)

	daily := Generate(Daily(2).WithCount(3), anchor, NewWindow(at(2024, time.June, 4, 0), at(2025, time.January, 1, 0)), 0)
	assert.Equal(t, []time.Time{at(2024, time.June, 5, 17)}, daily)
}

func TestGenerateUntilIsInclusive(t *testing.T) {
	anchor := at(2024, time.June, 1, 17)
	window := NewWindow(anchor, at(2024, time.December, 31, 0))

	got := Generate(Weekly(1, time.Monday, time.Wednesday).WithEndDate(at(2024, time.June, 12, 17)), anchor, window, 0)
	assert.Equal(t, []time.Time{
		at(2024, time.June, 3, 17),
		at(2024, time.June, 5, 17),
		at(2024, time.June, 10, 17),
		at(2024, time.June, 12, 17),
	}, got)

	got = Generate(Daily(1).WithEndDate(at(2024, time.June, 3, 0)), anchor, window, 0)
	assert.Equal(t, []time.Time{at(2024, time.June, 1, 17), at(2024, time.June, 2, 17)}, got)
}

func TestGenerateMonthClamping(t *testing.T) {
	monthly := Rule{Frequency: FreqMonthly, Interval: 1}

	tests := []struct {
		name   string
		anchor time.Time
		want   []time.Time
	}{
		{
			name:   "common year",
			anchor: at(2023, time.January, 31, 9),
			want:   []time.Time{at(2023, time.January, 31, 9), at(2023, time.February, 28, 9), at(2023, time.March, 31, 9), at(2023, time.April, 30, 9)},
		},
		{
			name:   "leap year",
			anchor: at(2024, time.January, 31, 9),
			want:   []time.Time{at(2024, time.January, 31, 9), at(2024, time.February, 29, 9), at(2024, time.March, 31, 9), at(2024, time.April, 30, 9)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(monthly, tt.anchor, NewWindow(tt.anchor, tt.anchor.AddDate(0, 3, 5)), 0)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateMonthRollsIntoNextYear(t *testing.T) {
	anchor := at(2024, time.November, 30, 8)
	got := Generate(Rule{Frequency: FreqMonthly, Interval: 3}, anchor, NewWindow(anchor, at(2025, time.December, 31, 0)), 0)
	assert.Equal(t, []time.Time{
		at(2024, time.November, 30, 8),
		at(2025, time.February, 28, 8),
		at(2025, time.May, 30, 8),
		at(2025, time.August, 30, 8),
		at(2025, time.November, 30, 8),
	}, got)
}

func TestGenerateYearlyLeapDay(t *testing.T) {
	anchor := at(2024, time.February, 29, 12)
	got := Generate(Yearly(1), anchor, NewWindow(anchor, at(2028, time.December, 31, 0)), 0)
	assert.Equal(t, []time.Time{
		at(2024, time.February, 29, 12),
		at(2025, time.February, 28, 12),
		at(2026, time.February, 28, 12),
		at(2027, time.February, 28, 12),
		at(2028, time.February, 29, 12),
	}, got)
}

func TestGenerateLastFridayUntil2030(t *testing.T) {
	anchor := at(2024, time.January, 26, 18)
	rule := MonthlyWeekday(3, time.Friday, -1).WithEndDate(date(2030, time.December, 31))

	got := Generate(rule, anchor, NewWindow(date(2024, time.January, 1), date(2035, time.January, 1)), 0)
	require.Len(t, got, 28)

	for _, occ := range got {
		assert.Equal(t, time.Friday, occ.Weekday(), occ.String())
		assert.NotEqual(t, occ.Month(), occ.AddDate(0, 0, 7).Month(), "%s is not the last Friday", occ)
		assert.Contains(t, []time.Month{time.January, time.April, time.July, time.October}, occ.Month())
	}
	assert.Equal(t, at(2030, time.October, 25, 18), got[len(got)-1])
}

func TestGenerateMonthlyPatterns(t *testing.T) {
	t.Run("day 31 skips short months", func(t *testing.T) {
		anchor := at(2024, time.January, 10, 9)
		got := Generate(MonthlyDay(1, 31), anchor, NewWindow(anchor, at(2024, time.June, 30, 23)), 0)
		assert.Equal(t, []time.Time{
			at(2024, time.January, 31, 9),
			at(2024, time.March, 31, 9),
			at(2024, time.May, 31, 9),
		}, got)
	})

	t.Run("second tuesday", func(t *testing.T) {
		anchor := at(2024, time.January, 1, 10)
		got := Generate(MonthlyWeekday(1, time.Tuesday, 2), anchor, NewWindow(anchor, at(2024, time.April, 30, 0)), 0)
		assert.Equal(t, []time.Time{
			at(2024, time.January, 9, 10),
			at(2024, time.February, 13, 10),
			at(2024, time.March, 12, 10),
			at(2024, time.April, 9, 10),
		}, got)
	})

	t.Run("fifth friday only where it exists", func(t *testing.T) {
		anchor := at(2024, time.January, 1, 10)
		got := Generate(MonthlyWeekday(1, time.Friday, 5), anchor, NewWindow(anchor, at(2024, time.June, 30, 0)), 0)
		assert.Equal(t, []time.Time{
			at(2024, time.March, 29, 10),
			at(2024, time.May, 31, 10),
		}, got)
	})

	t.Run("pattern day before anchor day is skipped in first month", func(t *testing.T) {
		anchor := at(2024, time.January, 20, 10)
		got := Generate(MonthlyDay(1, 15), anchor, NewWindow(anchor, at(2024, time.March, 31, 0)), 0)
		assert.Equal(t, []time.Time{at(2024, time.February, 15, 10), at(2024, time.March, 15, 10)}, got)
	})
}

func TestGenerateAbsentPatternsArePermissive(t *testing.T) {
	t.Run("weekly without pattern keeps anchor weekday", func(t *testing.T) {
		anchor := at(2024, time.June, 5, 9) // Wednesday
		rule := Rule{Frequency: FreqWeekly, Interval: 2}
		got := Generate(rule, anchor, NewWindow(anchor, at(2024, time.July, 10, 0)), 0)
		assert.Equal(t, []time.Time{
			at(2024, time.June, 5, 9),
			at(2024, time.June, 19, 9),
			at(2024, time.July, 3, 9),
		}, got)
	})

	t.Run("monthly without pattern keeps anchor day", func(t *testing.T) {
		anchor := at(2024, time.June, 12, 9)
		rule := Rule{Frequency: FreqMonthly, Interval: 1}
		got := Generate(rule, anchor, NewWindow(anchor, at(2024, time.August, 31, 0)), 0)
		assert.Equal(t, []time.Time{
			at(2024, time.June, 12, 9),
			at(2024, time.July, 12, 9),
			at(2024, time.August, 12, 9),
		}, got)
	})

	t.Run("matcher accepts any day without pattern", func(t *testing.T) {
		for d := 1; d <= 7; d++ {
			day := at(2024, time.June, d, 0)
			assert.True(t, Rule{Frequency: FreqWeekly, Interval: 1}.Matches(day))
			assert.True(t, Rule{Frequency: FreqMonthly, Interval: 1}.Matches(day))
		}
	})
}

func TestGenerateEmptyWeeklyPatternIsPermissive(t *testing.T) {
	anchor := at(2024, time.June, 1, 17) // Saturday
	window := NewWindow(at(2024, time.June, 1, 0), at(2024, time.July, 1, 0))
	want := []time.Time{
		at(2024, time.June, 1, 17),
		at(2024, time.June, 8, 17),
		at(2024, time.June, 15, 17),
		at(2024, time.June, 22, 17),
		at(2024, time.June, 29, 17),
	}

	tests := []struct {
		name string
		rule Rule
	}{
		{"builder without days", Weekly(1)},
		{"explicit empty set", Rule{Frequency: FreqWeekly, Interval: 1, Weekly: mo.Some(WeekdaySet(0))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, Generate(tt.rule, anchor, window, 0))
			for d := 1; d <= 7; d++ {
				assert.True(t, tt.rule.Matches(at(2024, time.June, d, 0)))
			}
			assert.True(t, IsOccurrenceOn(tt.rule, at(2024, time.June, 8, 0), anchor))
			assert.False(t, IsOccurrenceOn(tt.rule, at(2024, time.June, 10, 0), anchor))

			packed, err := Encode(tt.rule)
			require.NoError(t, err)
			decoded, err := Decode(packed)
			require.NoError(t, err)
			assert.Equal(t, want, Generate(decoded, anchor, window, 0), "same result after a round trip")
		})
	}
}

func TestGenerateSafetyBound(t *testing.T) {
	anchor := at(2000, time.January, 1, 0)
	centuries := NewWindow(anchor, at(2600, time.January, 1, 0))

	got := Generate(Daily(1), anchor, centuries, 1_000_000)
	assert.Len(t, got, MaxSteps)

	got = Generate(Weekly(1, time.Saturday), anchor, centuries, 1_000_000)
	assert.Len(t, got, MaxSteps)

	got = Generate(Daily(1), anchor, centuries, 0)
	assert.Len(t, got, DefaultMaxOccurrences)

	got = Generate(Daily(1).WithCount(4095), anchor, centuries, 10)
	assert.Len(t, got, 10)
}

func TestGenerateFarWindowSkipsAhead(t *testing.T) {
	anchor := at(2000, time.January, 1, 9)

	got := Generate(Daily(1), anchor, NewWindow(at(2040, time.March, 1, 0), at(2040, time.March, 3, 23)), 0)
	assert.Equal(t, []time.Time{at(2040, time.March, 1, 9), at(2040, time.March, 2, 9), at(2040, time.March, 3, 9)}, got)

	got = Generate(Weekly(3, time.Saturday), anchor, NewWindow(at(2100, time.January, 1, 0), at(2100, time.February, 1, 0)), 0)
	require.NotEmpty(t, got)
	for _, occ := range got {
		weeks := (civilDay(occ) - civilDay(mondayOnOrBefore(anchor))) / 7
		assert.Zero(t, weeks%3, occ.String())
		assert.Equal(t, time.Saturday, occ.Weekday())
	}
}

func TestGenerateEmptyInputs(t *testing.T) {
	anchor := at(2024, time.June, 1, 0)

	assert.Empty(t, Generate(Daily(0), anchor, NewWindow(anchor, anchor.AddDate(1, 0, 0)), 0))
	assert.Empty(t, Generate(Daily(1), anchor, NewWindow(anchor.AddDate(0, 0, 1), anchor), 0))
	assert.Empty(t, Generate(Daily(1).WithCount(0), anchor, NewWindow(anchor, anchor.AddDate(1, 0, 0)), 0))
	assert.Empty(t, Generate(Daily(1), anchor, NewWindow(anchor.AddDate(-1, 0, 0), anchor.AddDate(0, 0, -1)), 0))
}

func TestGeneratePreservesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// DST starts on 2024-03-31 in Berlin; wall-clock time stays at 09:00.
	anchor := time.Date(2024, time.March, 29, 9, 0, 0, 0, loc)
	got := Generate(Daily(1), anchor, NewWindow(anchor, anchor.AddDate(0, 0, 3)), 0)
	require.Len(t, got, 4)
	for _, occ := range got {
		assert.Equal(t, 9, occ.Hour())
		assert.Equal(t, loc, occ.Location())
	}
}

func TestStrategyFor(t *testing.T) {
	assert.IsType(t, weekStride{}, strategyFor(Weekly(1, time.Monday)))
	assert.IsType(t, frequencyStride{}, strategyFor(Rule{Frequency: FreqWeekly, Interval: 1}))
	assert.IsType(t, frequencyStride{}, strategyFor(Daily(1)))
	assert.IsType(t, frequencyStride{}, strategyFor(MonthlyDay(1, 1)))
	assert.IsType(t, frequencyStride{}, strategyFor(Yearly(1)))
}
