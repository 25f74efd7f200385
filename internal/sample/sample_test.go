package sample

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseRows_Gauge(t *testing.T) {
	input := strings.Join([]string{
		"12:30:00,2026-01-02,41",
		"23:59:59,2026-01-02,57",
		"",
		"bad time,2026-01-03,10", // clock optional for gauges
		"12:00:00,03-01-2026,10", // wrong date order
		"12:00:00,2026-01-03,-4", // negative value
		"12:00:00,2026-01-03,x",  // non-numeric value
		"12:00:00,2026-01-03",    // missing field
	}, "\n")

	samples, stats := ParseRows(strings.NewReader(input), Options{})
	require.Len(t, samples, 3)
	assert.Equal(t, 3, stats.Accepted)
	assert.Equal(t, 4, stats.Dropped)

	assert.Equal(t, ts("2026-01-02T12:30:00Z"), samples[0].Timestamp)
	assert.Equal(t, int64(41), samples[0].Value)
	assert.Equal(t, int64(57), samples[1].Value)

	// Malformed clock falls back to midnight for gauges.
	assert.Equal(t, ts("2026-01-03T00:00:00Z"), samples[2].Timestamp)
}

func TestParseRows_CounterRequiresClock(t *testing.T) {
	input := strings.Join([]string{
		"09:15:30,2026-01-02,1000",
		"bad,2026-01-02,1100",
		",2026-01-03,1200",
	}, "\n")

	samples, stats := ParseRows(
		strings.NewReader(input), Options{RequireClock: true},
	)
	require.Len(t, samples, 1)
	assert.Equal(t, ts("2026-01-02T09:15:30Z"), samples[0].Timestamp)
	assert.Equal(t, 2, stats.Dropped)
}

func TestParseRows_ZeroIsAValue(t *testing.T) {
	samples, stats := ParseRows(
		strings.NewReader("00:00:01,2026-01-02,0"), Options{},
	)
	require.Len(t, samples, 1)
	assert.Equal(t, int64(0), samples[0].Value)
	assert.Equal(t, 0, stats.Dropped)
}

func TestParseJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"time":"12:30:00","date":"2026-01-02","value":41}`,
		`{"time":"12:31:00","date":"2026-01-02","value":"41"}`, // string value
		`{"date":"2026-01-02"}`,                                // no value
		`not json`,
		`{"time":"08:00:00","date":"2026-01-04","value":12}`,
	}, "\n")

	samples, stats := ParseJSONL(strings.NewReader(input), Options{})
	require.Len(t, samples, 2)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 3, stats.Dropped)
	assert.Equal(t, ts("2026-01-04T08:00:00Z"), samples[1].Timestamp)
}
