// Package stats derives presentation metrics from the canonical
// daily dataset: a summary (current value, all-time peak and low,
// last-updated instant) and per-day table rows with gap-aware
// day-over-day deltas. Everything here is a pure view; nothing is
// persisted.
package stats

import (
	"time"

	"github.com/pulseboard/activitytrack/internal/dataset"
	"github.com/pulseboard/activitytrack/internal/timeutil"
)

// Extreme records an all-time high or low and the first day it
// was reached.
type Extreme struct {
	Value int64     `json:"value"`
	Date  time.Time `json:"date"`
}

// Summary holds headline figures over the primary (visitors)
// series. Fields are nil when the dataset has no data to support
// them.
type Summary struct {
	Current     *int64     `json:"current"`
	Peak        *Extreme   `json:"peak"`
	Low         *Extreme   `json:"low"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

// Summarize computes the summary over points. updatedAt is the
// batch freshness instant; when zero, LastUpdated falls back to
// midnight UTC of the last date in the sequence.
func Summarize(points []dataset.Point, updatedAt time.Time) Summary {
	var s Summary

	for i := len(points) - 1; i >= 0; i-- {
		if v := points[i].Visitors; v != nil {
			cur := *v
			s.Current = &cur
			break
		}
	}

	for _, p := range points {
		if p.Visitors == nil {
			continue
		}
		v := *p.Visitors
		// Strict comparisons keep the first day an extreme was
		// reached as its date of record.
		if s.Peak == nil || v > s.Peak.Value {
			s.Peak = &Extreme{Value: v, Date: p.Date}
		}
		if s.Low == nil || v < s.Low.Value {
			s.Low = &Extreme{Value: v, Date: p.Date}
		}
	}

	switch {
	case !updatedAt.IsZero():
		t := updatedAt.UTC()
		s.LastUpdated = &t
	case len(points) > 0:
		t := timeutil.DayOf(points[len(points)-1].Date)
		s.LastUpdated = &t
	}
	return s
}
