// Package daily turns validated samples into per-day values: a
// max-per-day aggregation for gauge sources and a boundary
// interpolation for cumulative counter sources. Days without a
// confident value are simply absent from the result, never zero.
package daily

import (
	"time"

	"github.com/pulseboard/activitytrack/internal/sample"
	"github.com/pulseboard/activitytrack/internal/timeutil"
)

// MaxByDay returns the maximum sample value per UTC calendar day.
// Days with no samples have no entry. Duplicate samples are
// harmless; max is idempotent.
func MaxByDay(samples []sample.Sample) map[time.Time]int64 {
	byDay := make(map[time.Time]int64, len(samples))
	for _, s := range samples {
		day := timeutil.DayOf(s.Timestamp)
		if v, ok := byDay[day]; !ok || s.Value > v {
			byDay[day] = s.Value
		}
	}
	return byDay
}
