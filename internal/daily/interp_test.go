package daily

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/activitytrack/internal/sample"
)

func TestValueAt_Interpolates(t *testing.T) {
	in := NewInterpolator([]sample.Sample{
		{Timestamp: at("2026-01-01T18:00:00Z"), Value: 1000},
		{Timestamp: at("2026-01-02T06:00:00Z"), Value: 1120},
	})

	// Midnight sits halfway between the samples.
	v, ok := in.ValueAt(at("2026-01-02T00:00:00Z"))
	require.True(t, ok)
	assert.InDelta(t, 1060, v, 1e-9)
}

func TestValueAt_ExactSample(t *testing.T) {
	in := NewInterpolator([]sample.Sample{
		{Timestamp: at("2026-01-02T00:00:00Z"), Value: 500},
	})
	v, ok := in.ValueAt(at("2026-01-02T00:00:00Z"))
	require.True(t, ok)
	assert.Equal(t, 500.0, v)
}

func TestValueAt_NoExtrapolation(t *testing.T) {
	in := NewInterpolator([]sample.Sample{
		{Timestamp: at("2026-01-02T08:00:00Z"), Value: 100},
		{Timestamp: at("2026-01-02T20:00:00Z"), Value: 200},
	})

	_, ok := in.ValueAt(at("2026-01-02T00:00:00Z"))
	assert.False(t, ok, "before first sample")

	_, ok = in.ValueAt(at("2026-01-03T00:00:00Z"))
	assert.False(t, ok, "after last sample")
}

func TestValueAt_GapGuard(t *testing.T) {
	// Bracketing samples 72h apart: refuse to interpolate.
	in := NewInterpolator([]sample.Sample{
		{Timestamp: at("2026-01-01T00:00:00Z"), Value: 100},
		{Timestamp: at("2026-01-04T00:00:00Z"), Value: 400},
	})
	_, ok := in.ValueAt(at("2026-01-02T00:00:00Z"))
	assert.False(t, ok)
}

func TestValueAt_MonotonicityGuard(t *testing.T) {
	// A counter reset must not be smoothed over.
	in := NewInterpolator([]sample.Sample{
		{Timestamp: at("2026-01-01T12:00:00Z"), Value: 900},
		{Timestamp: at("2026-01-02T12:00:00Z"), Value: 100},
	})
	_, ok := in.ValueAt(at("2026-01-02T00:00:00Z"))
	assert.False(t, ok)
}

func TestNewInterpolator_DedupeKeepsLarger(t *testing.T) {
	in := NewInterpolator([]sample.Sample{
		{Timestamp: at("2026-01-01T12:00:00Z"), Value: 10},
		{Timestamp: at("2026-01-01T12:00:00Z"), Value: 30},
		{Timestamp: at("2026-01-01T12:00:00Z"), Value: 20},
	})
	v, ok := in.ValueAt(at("2026-01-01T12:00:00Z"))
	require.True(t, ok)
	assert.Equal(t, 30.0, v)
}

func TestLoadsByDay(t *testing.T) {
	samples := []sample.Sample{
		{Timestamp: at("2026-01-01T00:00:00Z"), Value: 1000},
		{Timestamp: at("2026-01-02T00:00:00Z"), Value: 1240},
		{Timestamp: at("2026-01-02T12:00:00Z"), Value: 1300},
		{Timestamp: at("2026-01-03T12:00:00Z"), Value: 1420},
		// 3-day gap: every boundary inside it is undefined.
		{Timestamp: at("2026-01-06T12:00:00Z"), Value: 2000},
		{Timestamp: at("2026-01-07T06:00:00Z"), Value: 2090},
		{Timestamp: at("2026-01-08T00:30:00Z"), Value: 2150},
	}

	loads := LoadsByDay(samples, day("2026-01-01"))

	// Jan 1: 1240 - 1000.
	require.Contains(t, loads, day("2026-01-01"))
	assert.Equal(t, int64(240), loads[day("2026-01-01")])

	// Jan 2: midnight Jan 3 interpolated between 12:00 samples a
	// day apart: 1300 + 120/2 = 1360; 1360 - 1240 = 120.
	require.Contains(t, loads, day("2026-01-02"))
	assert.Equal(t, int64(120), loads[day("2026-01-02")])

	// Days with a boundary inside the stale window are absent:
	// the 72h bracket around their midnights trips the gap guard.
	for _, d := range []string{
		"2026-01-03", "2026-01-04", "2026-01-05", "2026-01-06",
	} {
		assert.NotContains(t, loads, day(d), d)
	}

	// Jan 7: both midnights bracketed tightly again.
	// Start: 2000 + 90*(12/18) = 2060.
	// End:   2090 + 60*(18/18.5) ≈ 2148.4. Delta rounds to 88.
	require.Contains(t, loads, day("2026-01-07"))
	assert.Equal(t, int64(88), loads[day("2026-01-07")])

	// The day of the last sample is never emitted.
	assert.NotContains(t, loads, day("2026-01-08"))
}

func TestLoadsByDay_CutoffBound(t *testing.T) {
	samples := []sample.Sample{
		{Timestamp: at("2025-12-30T00:00:00Z"), Value: 100},
		{Timestamp: at("2025-12-31T00:00:00Z"), Value: 200},
		{Timestamp: at("2026-01-01T00:00:00Z"), Value: 300},
		{Timestamp: at("2026-01-02T00:00:00Z"), Value: 400},
	}

	loads := LoadsByDay(samples, day("2026-01-01"))
	assert.NotContains(t, loads, day("2025-12-30"))
	assert.NotContains(t, loads, day("2025-12-31"))
	assert.Equal(t, int64(100), loads[day("2026-01-01")])
}

func TestLoadsByDay_Empty(t *testing.T) {
	loads := LoadsByDay(nil, day("2026-01-01"))
	assert.Empty(t, loads)
}
