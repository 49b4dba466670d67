package recurrence

import (
	"database/sql"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weeklyRule(day int16) Rule {
	return Rule{Frequency: FrequencyWeekly, DayOfWeek: sql.NullInt16{Int16: day, Valid: true}}
}

func biweeklyRule(day int16) Rule {
	return Rule{Frequency: FrequencyBiweekly, DayOfWeek: sql.NullInt16{Int16: day, Valid: true}}
}

func monthlyRule(day int16) Rule {
	return Rule{Frequency: FrequencyMonthly, DayOfMonth: sql.NullInt16{Int16: day, Valid: true}}
}

func TestWeeklyOccurrencesMatchWeekdayAndStep(t *testing.T) {
	rule := weeklyRule(2) // Tuesday

	dates, err := OccurrencesInRange(rule, date(2024, time.March, 1), date(2024, time.April, 30))
	if err != nil {
		t.Fatalf("OccurrencesInRange: %v", err)
	}
	if len(dates) == 0 {
		t.Fatal("expected occurrences, got none")
	}
	for i, d := range dates {
		if d.Weekday() != time.Tuesday {
			t.Fatalf("occurrence %d is %s, want Tuesday", i, d.Weekday())
		}
		if i > 0 {
			if diff := d.Sub(dates[i-1]); diff != 7*24*time.Hour {
				t.Fatalf("gap between occurrences %d and %d is %v, want 168h", i-1, i, diff)
			}
		}
	}
	if !dates[0].Equal(date(2024, time.March, 5)) {
		t.Fatalf("first occurrence = %v, want 2024-03-05", dates[0])
	}
}

func TestBiweeklyOccurrencesStepFourteenDays(t *testing.T) {
	rule := biweeklyRule(5) // Friday

	dates, err := OccurrencesInRange(rule, date(2024, time.January, 1), date(2024, time.February, 29))
	if err != nil {
		t.Fatalf("OccurrencesInRange: %v", err)
	}
	want := []time.Time{
		date(2024, time.January, 5),
		date(2024, time.January, 19),
		date(2024, time.February, 2),
		date(2024, time.February, 16),
	}
	if len(dates) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(dates), len(want), dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Fatalf("occurrence %d = %v, want %v", i, dates[i], want[i])
		}
	}
}

func TestMonthlyClampsShortMonths(t *testing.T) {
	rule := monthlyRule(31)

	dates, err := OccurrencesInRange(rule, date(2024, time.January, 1), date(2024, time.April, 30))
	if err != nil {
		t.Fatalf("OccurrencesInRange: %v", err)
	}
	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29), // leap year; clamped, not rolled to March
		date(2024, time.March, 31),
		date(2024, time.April, 30),
	}
	if len(dates) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(dates), len(want), dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Fatalf("occurrence %d = %v, want %v", i, dates[i], want[i])
		}
	}
}

func TestMonthlyClampNonLeapFebruary(t *testing.T) {
	rule := monthlyRule(31)

	dates, err := OccurrencesInRange(rule, date(2023, time.February, 1), date(2023, time.February, 28))
	if err != nil {
		t.Fatalf("OccurrencesInRange: %v", err)
	}
	if len(dates) != 1 || !dates[0].Equal(date(2023, time.February, 28)) {
		t.Fatalf("got %v, want exactly [2023-02-28]", dates)
	}
}

func TestEmptyAndInvertedRanges(t *testing.T) {
	rule := weeklyRule(1)

	dates, err := OccurrencesInRange(rule, date(2024, time.March, 10), date(2024, time.March, 1))
	if err != nil {
		t.Fatalf("OccurrencesInRange: %v", err)
	}
	if len(dates) != 0 {
		t.Fatalf("inverted range produced %d occurrences, want 0", len(dates))
	}

	// A one-day range not containing the anchor weekday.
	dates, err = OccurrencesInRange(rule, date(2024, time.March, 5), date(2024, time.March, 5))
	if err != nil {
		t.Fatalf("OccurrencesInRange: %v", err)
	}
	if len(dates) != 0 {
		t.Fatalf("non-matching single day produced %d occurrences, want 0", len(dates))
	}
}

func TestOccurrencesRequireAnchor(t *testing.T) {
	_, err := OccurrencesInRange(Rule{Frequency: FrequencyWeekly}, date(2024, time.March, 1), date(2024, time.March, 31))
	if err != ErrMissingDayOfWeek {
		t.Fatalf("got %v, want ErrMissingDayOfWeek", err)
	}
	_, err = OccurrencesInRange(Rule{Frequency: FrequencyMonthly}, date(2024, time.March, 1), date(2024, time.March, 31))
	if err != ErrMissingDayOfMonth {
		t.Fatalf("got %v, want ErrMissingDayOfMonth", err)
	}
	_, err = OccurrencesInRange(Rule{Frequency: "yearly"}, date(2024, time.March, 1), date(2024, time.March, 31))
	if err != ErrInvalidFrequency {
		t.Fatalf("got %v, want ErrInvalidFrequency", err)
	}
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		after time.Time
		want  time.Time
	}{
		{"weekly on-cadence steps a week", weeklyRule(2), date(2024, time.March, 5), date(2024, time.March, 12)},
		{"weekly off-cadence finds next weekday", weeklyRule(2), date(2024, time.March, 6), date(2024, time.March, 12)},
		{"biweekly on-cadence steps two weeks", biweeklyRule(2), date(2024, time.March, 5), date(2024, time.March, 19)},
		{"monthly later in same month", monthlyRule(15), date(2024, time.March, 1), date(2024, time.March, 15)},
		{"monthly rolls to next month", monthlyRule(15), date(2024, time.March, 15), date(2024, time.April, 15)},
		{"monthly clamp from late January", monthlyRule(31), date(2024, time.January, 31), date(2024, time.February, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.rule, tt.after)
			if err != nil {
				t.Fatalf("NextOccurrence: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("NextOccurrence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr error
	}{
		{"valid weekly", weeklyRule(3), nil},
		{"valid monthly", monthlyRule(15), nil},
		{"weekly missing anchor", Rule{Frequency: FrequencyWeekly}, ErrMissingDayOfWeek},
		{"monthly missing anchor", Rule{Frequency: FrequencyMonthly}, ErrMissingDayOfMonth},
		{"weekly with day of month", func() Rule {
			r := weeklyRule(3)
			r.DayOfMonth = sql.NullInt16{Int16: 10, Valid: true}
			return r
		}(), ErrAnchorMismatch},
		{"monthly with day of week", func() Rule {
			r := monthlyRule(10)
			r.DayOfWeek = sql.NullInt16{Int16: 3, Valid: true}
			return r
		}(), ErrAnchorMismatch},
		{"day of week out of range", weeklyRule(7), ErrDayOfWeekRange},
		{"day of month out of range", monthlyRule(32), ErrDayOfMonthRange},
		{"unknown frequency", Rule{Frequency: "fortnightly"}, ErrInvalidFrequency},
		{"bad preferred time", func() Rule {
			r := weeklyRule(3)
			r.PreferredTime = sql.NullString{String: "25:99", Valid: true}
			return r
		}(), ErrInvalidTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rule.Validate(); err != tt.wantErr {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
