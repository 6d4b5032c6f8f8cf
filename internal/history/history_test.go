package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityarao312/feednest/internal/feednest"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "Today"},
		{1, "Yesterday"},
		{2, "2 days ago"},
		{6, "6 days ago"},
		{7, "1 week ago"},
		{13, "1 week ago"},
		{14, "2 weeks ago"},
		{29, "4 weeks ago"},
		{30, "1 month ago"},
		{90, "3 months ago"},
		{365, "1 year ago"},
		{800, "2 years ago"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.days))
		})
	}
}

func TestGroup(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	opened := func(daysAgo int) *time.Time {
		ts := now.AddDate(0, 0, -daysAgo)
		return &ts
	}

	items := []feednest.Item{
		{ID: "a", LastOpenedAt: opened(0)},
		{ID: "b", LastOpenedAt: opened(0)},
		{ID: "c", LastOpenedAt: opened(1)},
		{ID: "d", LastOpenedAt: opened(8)},
		{ID: "e", LastOpenedAt: nil}, // Never opened: skipped.
	}

	buckets := Group(items, now)
	require.Len(t, buckets, 3)

	assert.Equal(t, "Today", buckets[0].Label)
	assert.Len(t, buckets[0].Items, 2)
	assert.Equal(t, "Yesterday", buckets[1].Label)
	assert.Len(t, buckets[1].Items, 1)
	assert.Equal(t, "1 week ago", buckets[2].Label)
	assert.Equal(t, "d", buckets[2].Items[0].ID)
}

func TestGroup_Empty(t *testing.T) {
	assert.Empty(t, Group(nil, time.Now()))
}

func TestDaysBetween_CalendarBoundary(t *testing.T) {
	// Late last night counts as yesterday even if under 24h ago.
	now := time.Date(2024, 6, 15, 0, 30, 0, 0, time.UTC)
	then := time.Date(2024, 6, 14, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, 1, daysBetween(then, now))
}
