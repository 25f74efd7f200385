package daily

import (
	"math"
	"sort"
	"time"

	"github.com/pulseboard/activitytrack/internal/sample"
	"github.com/pulseboard/activitytrack/internal/timeutil"
)

// MaxBracketGap is the widest span between bracketing counter
// samples that interpolation will cross. Beyond it the data window
// is considered stale and the boundary value is undefined.
const MaxBracketGap = 48 * time.Hour

// Interpolator evaluates a monotonically-intended cumulative
// counter at arbitrary instants by linear interpolation between
// the two nearest real samples. It never extrapolates.
type Interpolator struct {
	samples []sample.Sample // deduped, ascending by timestamp
}

// NewInterpolator prepares samples for boundary evaluation:
// exact-timestamp duplicates collapse to the larger value, then
// the list is sorted ascending.
func NewInterpolator(samples []sample.Sample) *Interpolator {
	byInstant := make(map[time.Time]int64, len(samples))
	for _, s := range samples {
		if v, ok := byInstant[s.Timestamp]; !ok || s.Value > v {
			byInstant[s.Timestamp] = s.Value
		}
	}

	deduped := make([]sample.Sample, 0, len(byInstant))
	for ts, v := range byInstant {
		deduped = append(deduped, sample.Sample{Timestamp: ts, Value: v})
	}
	sort.Slice(deduped, func(i, j int) bool {
		return deduped[i].Timestamp.Before(deduped[j].Timestamp)
	})

	return &Interpolator{samples: deduped}
}

// ValueAt evaluates the counter at instant t. The value is
// undefined (ok=false) when t lies outside the sampled range, when
// the bracketing samples are more than MaxBracketGap apart, or when
// they decrease (a counter reset must not be smoothed over).
func (in *Interpolator) ValueAt(t time.Time) (v float64, ok bool) {
	n := len(in.samples)
	i := sort.Search(n, func(i int) bool {
		return !in.samples[i].Timestamp.Before(t)
	})

	if i == n {
		return 0, false // after the last sample
	}
	next := in.samples[i]
	if next.Timestamp.Equal(t) {
		return float64(next.Value), true
	}
	if i == 0 {
		return 0, false // before the first sample
	}
	prev := in.samples[i-1]

	span := next.Timestamp.Sub(prev.Timestamp)
	if span > MaxBracketGap {
		return 0, false
	}
	if next.Value < prev.Value {
		return 0, false
	}

	frac := float64(t.Sub(prev.Timestamp)) / float64(span)
	return float64(prev.Value) + float64(next.Value-prev.Value)*frac, true
}

// LoadsByDay derives one "loads that day" value per UTC day from
// counter samples: the rounded difference between the counter
// evaluated at the day's end and start midnights. Days are emitted
// from cutoff up to (but not including) the day of the last
// sample; each day independently succeeds or is absent. A negative
// difference signals bad data and the day is absent.
func LoadsByDay(samples []sample.Sample, cutoff time.Time) map[time.Time]int64 {
	loads := make(map[time.Time]int64)
	if len(samples) == 0 {
		return loads
	}

	in := NewInterpolator(samples)
	last := in.samples[len(in.samples)-1].Timestamp
	end := timeutil.DayOf(last)

	for day := timeutil.DayOf(cutoff); day.Before(end); day = timeutil.NextDay(day) {
		start, ok := in.ValueAt(day)
		if !ok {
			continue
		}
		stop, ok := in.ValueAt(timeutil.NextDay(day))
		if !ok {
			continue
		}
		delta := math.Round(stop - start)
		if delta < 0 {
			continue
		}
		loads[day] = int64(delta)
	}
	return loads
}
