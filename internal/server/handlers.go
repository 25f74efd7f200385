package server

import (
	"log"
	"net/http"
	"time"

	"github.com/pulseboard/activitytrack/internal/dataset"
	"github.com/pulseboard/activitytrack/internal/stats"
	"github.com/pulseboard/activitytrack/internal/timeutil"
)

// pointJSON is the wire form of one daily point.
type pointJSON struct {
	Date      string `json:"date"`
	Visitors  *int64 `json:"visitors"`
	Guests    *int64 `json:"guests"`
	Downloads *int64 `json:"downloads"`
}

// rowJSON is a pointJSON plus the per-field day-over-day deltas.
type rowJSON struct {
	pointJSON
	VisitorsDelta  *int64 `json:"visitorsDelta"`
	GuestsDelta    *int64 `json:"guestsDelta"`
	DownloadsDelta *int64 `json:"downloadsDelta"`
}

// extremeJSON is the wire form of an all-time peak or low.
type extremeJSON struct {
	Value int64  `json:"value"`
	Date  string `json:"date"`
}

// summaryJSON is the wire form of the stats summary.
type summaryJSON struct {
	Current     *int64       `json:"current"`
	Peak        *extremeJSON `json:"peak"`
	Low         *extremeJSON `json:"low"`
	LastUpdated *string      `json:"lastUpdated"`
}

// loadDataset reads and decodes the artifact, answering 404 when
// no dataset has been produced yet.
func (s *Server) loadDataset(
	w http.ResponseWriter,
) (dataset.Compact, []dataset.Point, bool) {
	c, err := dataset.ReadFile(s.cfg.ArtifactPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "dataset not available")
		return dataset.Compact{}, nil, false
	}
	points, err := dataset.Decode(c)
	if err != nil {
		log.Printf("decoding artifact: %v", err)
		writeError(w, http.StatusInternalServerError,
			"dataset is corrupt")
		return dataset.Compact{}, nil, false
	}
	return c, points, true
}

// handleDataset serves the compact artifact itself, the only
// form downstream consumers persist.
func (s *Server) handleDataset(w http.ResponseWriter, _ *http.Request) {
	c, _, ok := s.loadDataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePoints(w http.ResponseWriter, _ *http.Request) {
	_, points, ok := s.loadDataset(w)
	if !ok {
		return
	}
	out := make([]pointJSON, len(points))
	for i, p := range points {
		out[i] = toPointJSON(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	c, points, ok := s.loadDataset(w)
	if !ok {
		return
	}

	var updatedAt time.Time
	if t, err := time.Parse(time.RFC3339, c.UpdatedAt); err == nil {
		updatedAt = t
	}
	sum := stats.Summarize(points, updatedAt)

	out := summaryJSON{
		Current:     sum.Current,
		Peak:        toExtremeJSON(sum.Peak),
		Low:         toExtremeJSON(sum.Low),
		LastUpdated: formatInstant(sum.LastUpdated),
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTable(w http.ResponseWriter, _ *http.Request) {
	_, points, ok := s.loadDataset(w)
	if !ok {
		return
	}
	rows := stats.Rows(points)
	out := make([]rowJSON, len(rows))
	for i, r := range rows {
		out[i] = rowJSON{
			pointJSON:      toPointJSON(r.Point),
			VisitorsDelta:  r.VisitorsDelta,
			GuestsDelta:    r.GuestsDelta,
			DownloadsDelta: r.DownloadsDelta,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRun triggers a batch run on demand.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.pipe.Run(r.Context())
	if err != nil {
		log.Printf("batch run: %v", err)
		writeError(w, http.StatusInternalServerError,
			"batch run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ranAt":       timeutil.Format(res.RanAt),
		"points":      res.Points,
		"droppedRows": res.DroppedRows,
		"published":   res.Published,
		"contentHash": res.ContentHash,
	})
}

func toPointJSON(p dataset.Point) pointJSON {
	return pointJSON{
		Date:      timeutil.FormatDay(p.Date),
		Visitors:  p.Visitors,
		Guests:    p.Guests,
		Downloads: p.Downloads,
	}
}

func toExtremeJSON(e *stats.Extreme) *extremeJSON {
	if e == nil {
		return nil
	}
	return &extremeJSON{
		Value: e.Value,
		Date:  timeutil.FormatDay(e.Date),
	}
}

func formatInstant(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return timeutil.Ptr(*t)
}
