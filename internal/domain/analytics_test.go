package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, PeriodWeek, ParsePeriod("week"))
	assert.Equal(t, PeriodQuarter, ParsePeriod("quarter"))
	assert.Equal(t, PeriodYear, ParsePeriod("year"))
	assert.Equal(t, PeriodMonth, ParsePeriod("month"))
	assert.Equal(t, PeriodMonth, ParsePeriod(""))
	assert.Equal(t, PeriodMonth, ParsePeriod("decade"))
}

func TestPeriod_Start(t *testing.T) {
	now := time.Date(2024, 8, 17, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		period Period
		want   time.Time
	}{
		{PeriodWeek, time.Date(2024, 8, 10, 15, 4, 5, 0, time.UTC)},
		{PeriodMonth, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodQuarter, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.period.Start(now))
		})
	}
}

func TestPeriod_QuarterBoundaries(t *testing.T) {
	for month, want := range map[time.Month]time.Month{
		time.January: time.January, time.March: time.January,
		time.April: time.April, time.June: time.April,
		time.September: time.July, time.October: time.October, time.December: time.October,
	} {
		now := time.Date(2023, month, 15, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, want, PeriodQuarter.Start(now).Month(), month.String())
	}
}
