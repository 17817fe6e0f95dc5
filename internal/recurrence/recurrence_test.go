package recurrence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khata/internal/domain"
	"khata/internal/recurrence"
)

var date = domain.MustParseDate

func TestOccurrence_MonthlyFromJan31ClampsToMonthEnd(t *testing.T) {
	start := date("2025-01-31")
	want := []string{
		"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30", "2025-05-31", "2025-06-30",
		"2025-07-31", "2025-08-31", "2025-09-30", "2025-10-31", "2025-11-30", "2025-12-31",
		"2026-01-31", "2026-02-28",
	}
	for n, w := range want {
		got, err := recurrence.Occurrence(start, domain.FrequencyMonthly, 1, n)
		require.NoError(t, err)
		assert.Equal(t, w, got.String(), "occurrence %d", n)
	}
}

func TestOccurrence_LeapYear(t *testing.T) {
	got, err := recurrence.Occurrence(date("2024-01-31"), domain.FrequencyMonthly, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got.String())

	got, err = recurrence.Occurrence(date("2024-02-29"), domain.FrequencyAnnually, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", got.String())

	got, err = recurrence.Occurrence(date("2024-02-29"), domain.FrequencyAnnually, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "2028-02-29", got.String())
}

func TestOccurrence_Frequencies(t *testing.T) {
	start := date("2025-01-15")
	cases := []struct {
		freq     domain.Frequency
		interval int
		n        int
		want     string
	}{
		{domain.FrequencyDaily, 1, 20, "2025-02-04"},
		{domain.FrequencyDaily, 3, 2, "2025-01-21"},
		{domain.FrequencyWeekly, 1, 3, "2025-02-05"},
		{domain.FrequencyBiweekly, 1, 2, "2025-02-12"},
		{domain.FrequencyMonthly, 2, 6, "2026-01-15"},
		{domain.FrequencyQuarterly, 1, 1, "2025-04-15"},
		{domain.FrequencyQuarterly, 1, 4, "2026-01-15"},
		{domain.FrequencyAnnually, 2, 1, "2027-01-15"},
	}
	for _, tc := range cases {
		got, err := recurrence.Occurrence(start, tc.freq, tc.interval, tc.n)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.String(), "%s x%d n=%d", tc.freq, tc.interval, tc.n)
	}
}

func TestOccurrence_InvalidInput(t *testing.T) {
	_, err := recurrence.Occurrence(date("2025-01-01"), "hourly", 1, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidFrequency)

	_, err = recurrence.Occurrence(date("2025-01-01"), domain.FrequencyMonthly, 0, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
}

func TestNextAfter_WalksAnchoredSequence(t *testing.T) {
	start := date("2025-01-31")
	run := start
	var got []string
	for i := 0; i < 4; i++ {
		next, err := recurrence.NextAfter(start, domain.FrequencyMonthly, 1, run)
		require.NoError(t, err)
		got = append(got, next.String())
		run = next
	}
	assert.Equal(t, []string{"2025-02-28", "2025-03-31", "2025-04-30", "2025-05-31"}, got)
}

func TestNextAfter_BeforeStartReturnsStart(t *testing.T) {
	next, err := recurrence.NextAfter(date("2025-06-01"), domain.FrequencyWeekly, 1, date("2025-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", next.String())
}

func TestNextAfter_FarFuture(t *testing.T) {
	next, err := recurrence.NextAfter(date("2020-03-10"), domain.FrequencyDaily, 1, date("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", next.String())

	next, err = recurrence.NextAfter(date("2020-03-10"), domain.FrequencyQuarterly, 1, date("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", next.String())
}

func TestNextOnOrAfter(t *testing.T) {
	start := date("2025-01-01")
	next, err := recurrence.NextOnOrAfter(start, domain.FrequencyWeekly, 1, date("2025-01-15"))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", next.String())

	next, err = recurrence.NextOnOrAfter(start, domain.FrequencyWeekly, 1, date("2025-01-16"))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-22", next.String())
}

func TestAddMonths_NegativeAndYearWrap(t *testing.T) {
	assert.Equal(t, "2024-12-31", recurrence.AddMonths(date("2025-03-31"), -3).String())
	assert.Equal(t, "2026-02-28", recurrence.AddMonths(date("2025-11-30"), 3).String())
}

func TestValidFrequency(t *testing.T) {
	assert.True(t, recurrence.ValidFrequency(domain.FrequencyBiweekly))
	assert.False(t, recurrence.ValidFrequency("fortnightly"))
}
