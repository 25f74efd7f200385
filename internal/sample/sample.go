// Package sample parses raw per-source observation rows into
// validated (timestamp, value) samples. Parsing is tolerant:
// malformed rows are dropped and counted, never fatal, so one bad
// line cannot sink a batch.
package sample

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Sample is one accepted observation of a source counter.
type Sample struct {
	Timestamp time.Time
	Value     int64
}

// Stats reports how a parse went. Dropped rows are diagnostic
// only; they never fail the batch.
type Stats struct {
	Accepted int
	Dropped  int
}

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
)

// Options controls row acceptance.
type Options struct {
	// RequireClock rejects rows whose clock-time field is not a
	// valid HH:MM:SS. Counter sources need intraday precision for
	// boundary interpolation; gauge sources only need the day.
	RequireClock bool
}

// ParseRows reads headerless "HH:MM:SS,YYYY-MM-DD,value" rows, one
// per line, UTC. Rows that fail validation are dropped and counted.
// Accepted samples carry the row's instant: date midnight plus the
// clock time when it is well formed, date midnight otherwise.
func ParseRows(r io.Reader, opts Options) ([]Sample, Stats) {
	var (
		samples []Sample
		stats   Stats
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s, ok := parseRow(line, opts)
		if !ok {
			stats.Dropped++
			continue
		}
		samples = append(samples, s)
		stats.Accepted++
	}
	if err := scanner.Err(); err != nil {
		// A truncated read drops the remainder, same as any other
		// malformed input.
		stats.Dropped++
	}
	return samples, stats
}

func parseRow(line string, opts Options) (Sample, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return Sample{}, false
	}
	return buildSample(fields[0], fields[1], fields[2], opts)
}

// ParseJSONL reads one JSON object per line with "time", "date" and
// "value" fields, validated by the same rules as ParseRows. Lines
// that are not valid JSON objects are dropped.
func ParseJSONL(r io.Reader, opts Options) ([]Sample, Stats) {
	var (
		samples []Sample
		stats   Stats
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			stats.Dropped++
			continue
		}
		clock := gjson.Get(line, "time").Str
		date := gjson.Get(line, "date").Str
		value := gjson.Get(line, "value")
		if value.Type != gjson.Number {
			stats.Dropped++
			continue
		}
		s, ok := buildSample(clock, date, value.Raw, opts)
		if !ok {
			stats.Dropped++
			continue
		}
		samples = append(samples, s)
		stats.Accepted++
	}
	if err := scanner.Err(); err != nil {
		stats.Dropped++
	}
	return samples, stats
}

// buildSample validates the three row fields and assembles the
// sample instant.
func buildSample(clock, date, value string, opts Options) (Sample, bool) {
	clock = strings.TrimSpace(clock)
	date = strings.TrimSpace(date)
	value = strings.TrimSpace(value)

	if !datePattern.MatchString(date) {
		return Sample{}, false
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return Sample{}, false
	}

	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil || v < 0 {
		return Sample{}, false
	}

	clockOK := clockPattern.MatchString(clock)
	var tod time.Duration
	if clockOK {
		t, err := time.Parse("15:04:05", clock)
		if err != nil {
			clockOK = false
		} else {
			tod = time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second
		}
	}
	if !clockOK {
		if opts.RequireClock {
			return Sample{}, false
		}
		tod = 0
	}

	return Sample{Timestamp: day.Add(tod), Value: v}, true
}
