package dataset

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/mod/semver"

	"github.com/pulseboard/activitytrack/internal/timeutil"
)

// SchemaVersion tags the compact artifact so consumers can refuse
// formats newer than they understand. Only the major component
// gates compatibility.
const SchemaVersion = "v1.0.0"

// Compact is the columnar transport form of a Point sequence: one
// ordered date array plus one parallel nullable-integer array per
// field. UpdatedAt is the instant the producing batch ran, supplied
// by the caller, not derived from the data.
type Compact struct {
	Version   string   `json:"version"`
	Dates     []string `json:"dates"`
	Visitors  []*int64 `json:"visitors"`
	Guests    []*int64 `json:"guests"`
	Downloads []*int64 `json:"downloads"`
	UpdatedAt string   `json:"updatedAt"`
}

// Encode produces the columnar form of points, stamped with
// updatedAt as its freshness instant.
func Encode(points []Point, updatedAt time.Time) Compact {
	c := Compact{
		Version:   SchemaVersion,
		Dates:     make([]string, len(points)),
		Visitors:  make([]*int64, len(points)),
		Guests:    make([]*int64, len(points)),
		Downloads: make([]*int64, len(points)),
		UpdatedAt: timeutil.Format(updatedAt),
	}
	for i, p := range points {
		c.Dates[i] = timeutil.FormatDay(p.Date)
		c.Visitors[i] = copyInt(p.Visitors)
		c.Guests[i] = copyInt(p.Guests)
		c.Downloads[i] = copyInt(p.Downloads)
	}
	return c
}

// Decode reconstructs the Point sequence from its columnar form,
// preserving nils and date order. It is the exact inverse of
// Encode for any valid dataset.
func Decode(c Compact) ([]Point, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	points := make([]Point, len(c.Dates))
	var prev time.Time
	for i, ds := range c.Dates {
		d, err := timeutil.ParseDay(ds)
		if err != nil {
			return nil, fmt.Errorf("date %q at index %d: %w", ds, i, err)
		}
		if i > 0 && !prev.Before(d) {
			return nil, fmt.Errorf(
				"dates not strictly increasing at index %d (%s)", i, ds,
			)
		}
		prev = d
		points[i] = Point{
			Date:      d,
			Visitors:  copyInt(c.Visitors[i]),
			Guests:    copyInt(c.Guests[i]),
			Downloads: copyInt(c.Downloads[i]),
		}
	}
	return points, nil
}

func (c Compact) validate() error {
	if c.Version != "" {
		if !semver.IsValid(c.Version) {
			return fmt.Errorf("invalid schema version %q", c.Version)
		}
		if semver.Compare(semver.Major(c.Version), semver.Major(SchemaVersion)) > 0 {
			return fmt.Errorf(
				"dataset schema %s is newer than supported %s",
				c.Version, SchemaVersion,
			)
		}
	}
	n := len(c.Dates)
	for name, l := range map[string]int{
		"visitors":  len(c.Visitors),
		"guests":    len(c.Guests),
		"downloads": len(c.Downloads),
	} {
		if l != n {
			return fmt.Errorf(
				"column %s has %d entries, want %d", name, l, n,
			)
		}
	}
	return nil
}

// Marshal renders the compact dataset as JSON.
func (c Compact) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Unmarshal parses a compact dataset from JSON.
func Unmarshal(data []byte) (Compact, error) {
	var c Compact
	if err := json.Unmarshal(data, &c); err != nil {
		return Compact{}, fmt.Errorf("parsing dataset: %w", err)
	}
	return c, nil
}

// ContentHash digests the columnar data, excluding the freshness
// timestamp. Two batches over identical inputs therefore hash
// identically, which is what gates downstream publication.
func (c Compact) ContentHash() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(c.Version)
	for _, d := range c.Dates {
		_, _ = h.WriteString("|" + d)
	}
	for _, col := range [][]*int64{c.Visitors, c.Guests, c.Downloads} {
		_, _ = h.WriteString("#")
		var buf [8]byte
		for _, v := range col {
			if v == nil {
				_, _ = h.WriteString("_")
				continue
			}
			binary.LittleEndian.PutUint64(buf[:], uint64(*v))
			_, _ = h.Write(buf[:])
		}
	}
	return h.Sum64()
}

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
