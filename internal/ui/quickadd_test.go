package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseQuickAdd(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC) // Wednesday

	fields := ParseQuickAdd("Review PR @work @code !high due:friday #Engineering", now)
	require.Equal(t, "Review PR", fields["title"])
	require.Equal(t, []string{"work", "code"}, fields["tags"])
	require.Equal(t, "high", fields["priority"])
	require.Equal(t, "Engineering", fields["category"])
	require.Equal(t, time.Date(2024, 5, 17, 23, 59, 59, 0, time.UTC), fields["dueDate"])
}

func TestParseQuickAddKeepsUnknownTokens(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	fields := ParseQuickAdd("Fix !!! bug due:someday", now)
	require.Equal(t, "Fix !!! bug due:someday", fields["title"])
	require.NotContains(t, fields, "priority")
	require.NotContains(t, fields, "dueDate")
	require.NotContains(t, fields, "tags")
}

func TestParseNaturalDate(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC) // Wednesday
	eod := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
	}

	cases := map[string]time.Time{
		"today":      eod(2024, 5, 15),
		"tomorrow":   eod(2024, 5, 16),
		"wed":        eod(2024, 5, 22),
		"monday":     eod(2024, 5, 20),
		"nextweek":   eod(2024, 5, 22),
		"2024-07-04": eod(2024, 7, 4),
		"07/04/2025": eod(2025, 7, 4),
		"jun 3":      eod(2024, 6, 3),
	}
	for in, want := range cases {
		got := parseNaturalDate(in, now)
		require.NotNil(t, got, in)
		require.Equal(t, want, *got, in)
	}

	require.Nil(t, parseNaturalDate("someday", now))
}
