package stats

import (
	"math"

	"github.com/pulseboard/activitytrack/internal/dataset"
	"github.com/pulseboard/activitytrack/internal/timeutil"
)

// maxDeltaLookbackDays bounds how far back a delta may reach for a
// prior value. Past it the change is too stale to present as a
// day-over-day figure.
const maxDeltaLookbackDays = 7

// Row is one table line: the day's point plus a nullable delta per
// field against the nearest prior day with data.
type Row struct {
	dataset.Point
	VisitorsDelta  *int64
	GuestsDelta    *int64
	DownloadsDelta *int64
}

// Rows derives the table view of points. Deltas are computed
// independently per field; a delta spanning a multi-day gap is
// amortized to an average daily change.
func Rows(points []dataset.Point) []Row {
	rows := make([]Row, len(points))
	for i, p := range points {
		rows[i] = Row{
			Point:          p,
			VisitorsDelta:  delta(points, i, func(p dataset.Point) *int64 { return p.Visitors }),
			GuestsDelta:    delta(points, i, func(p dataset.Point) *int64 { return p.Guests }),
			DownloadsDelta: delta(points, i, func(p dataset.Point) *int64 { return p.Downloads }),
		}
	}
	return rows
}

// delta computes the gap-aware day-over-day change for one field at
// index i: exact against yesterday, amortized (total change divided
// by the day gap, rounded) across gaps of up to
// maxDeltaLookbackDays, nil otherwise.
func delta(points []dataset.Point, i int, field func(dataset.Point) *int64) *int64 {
	v := field(points[i])
	if v == nil {
		return nil
	}

	for j := i - 1; j >= 0; j-- {
		prev := field(points[j])
		if prev == nil {
			continue
		}
		gap := timeutil.DaysBetween(points[j].Date, points[i].Date)
		if gap <= 0 || gap > maxDeltaLookbackDays {
			return nil
		}
		d := *v - *prev
		if gap > 1 {
			d = int64(math.Round(float64(d) / float64(gap)))
		}
		return &d
	}
	return nil
}
