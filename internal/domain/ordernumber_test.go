package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderNumberGenerator_Format(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 5, 23, 59, 0, 0, time.UTC) }

	tests := []struct {
		draw int
		want string
	}{
		{7, "ORD240105007"},
		{0, "ORD240105000"},
		{999, "ORD240105999"},
	}
	for _, tt := range tests {
		g := NewOrderNumberGenerator(now, func(int) int { return tt.draw })
		assert.Equal(t, tt.want, g.Next())
	}
}

func TestOrderNumberGenerator_UsesUTCDate(t *testing.T) {
	// 01:30 on the 6th in UTC+3 is still the 5th in UTC.
	east := time.FixedZone("UTC+3", 3*60*60)
	now := func() time.Time { return time.Date(2024, 1, 6, 1, 30, 0, 0, east) }

	g := NewOrderNumberGenerator(now, func(int) int { return 7 })
	assert.Equal(t, "ORD240105007", g.Next())
}

func TestOrderNumberGenerator_Defaults(t *testing.T) {
	g := NewOrderNumberGenerator(nil, nil)
	assert.Regexp(t, regexp.MustCompile(`^ORD\d{6}\d{3}$`), g.Next())
}

func TestOrderNumberGenerator_SuffixBound(t *testing.T) {
	var gotN int
	g := NewOrderNumberGenerator(time.Now, func(n int) int { gotN = n; return 0 })
	g.Next()
	assert.Equal(t, 1000, gotN)
}
