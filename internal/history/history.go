// Package history buckets read feed items by how long ago they were opened,
// entirely in memory: fetch the user's read items, then group them here.
package history

import (
	"fmt"
	"time"

	"github.com/adityarao312/feednest/internal/feednest"
)

// Bucket is one labeled group of read items, newest first.
type Bucket struct {
	Label string          `json:"label"`
	Items []feednest.Item `json:"items"`
}

// Label maps an elapsed number of days to a human-readable bucket label.
func Label(days int) string {
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 14:
		return "1 week ago"
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	case days < 60:
		return "1 month ago"
	case days < 365:
		return fmt.Sprintf("%d months ago", days/30)
	case days < 730:
		return "1 year ago"
	default:
		return fmt.Sprintf("%d years ago", days/365)
	}
}

// Group splits items into ordered buckets by their last-opened day relative
// to now. Items are expected most-recently-opened first; the bucket order
// follows from that. Items never opened are skipped.
func Group(items []feednest.Item, now time.Time) []Bucket {
	var (
		buckets []Bucket
		byLabel = map[string]int{}
	)
	for _, item := range items {
		if item.LastOpenedAt == nil {
			continue
		}

		label := Label(daysBetween(*item.LastOpenedAt, now))
		i, ok := byLabel[label]
		if !ok {
			buckets = append(buckets, Bucket{Label: label})
			i = len(buckets) - 1
			byLabel[label] = i
		}
		buckets[i].Items = append(buckets[i].Items, item)
	}

	return buckets
}

// Whole calendar days between then and now, in now's location.
func daysBetween(then, now time.Time) int {
	then = then.In(now.Location())
	thenDay := time.Date(then.Year(), then.Month(), then.Day(), 0, 0, 0, 0, now.Location())
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	return int(nowDay.Sub(thenDay) / (24 * time.Hour))
}
