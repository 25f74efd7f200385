// Package dataset defines the canonical daily dataset: one point
// per UTC calendar day with nullable per-source fields, plus the
// compact columnar form used as the persisted transport artifact.
package dataset

import (
	"sort"
	"time"
)

// Point is the canonical record for one UTC calendar day. A nil
// field means no source contributed a confident value that day;
// zero is a real observation, never an absence marker.
type Point struct {
	Date      time.Time
	Visitors  *int64 // daily max visitors online (primary)
	Guests    *int64 // daily max guests online
	Downloads *int64 // downloads that day, from the cumulative counter
}

// Merge unions the calendar days of all per-source series into one
// ascending Point sequence, leaving fields nil where a source has
// no value for that day.
func Merge(visitors, guests, downloads map[time.Time]int64) []Point {
	days := make(map[time.Time]struct{})
	for d := range visitors {
		days[d] = struct{}{}
	}
	for d := range guests {
		days[d] = struct{}{}
	}
	for d := range downloads {
		days[d] = struct{}{}
	}

	points := make([]Point, 0, len(days))
	for d := range days {
		points = append(points, Point{
			Date:      d,
			Visitors:  lookup(visitors, d),
			Guests:    lookup(guests, d),
			Downloads: lookup(downloads, d),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

func lookup(m map[time.Time]int64, d time.Time) *int64 {
	v, ok := m[d]
	if !ok {
		return nil
	}
	return &v
}
