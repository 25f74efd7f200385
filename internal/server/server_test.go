package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/activitytrack/internal/config"
	"github.com/pulseboard/activitytrack/internal/dataset"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func i64(v int64) *int64 { return &v }

func newTestServer(t *testing.T, points []dataset.Point) *Server {
	t.Helper()
	artifact := filepath.Join(t.TempDir(), "dataset.json")
	if points != nil {
		c := dataset.Encode(points,
			time.Date(2026, 1, 6, 8, 30, 0, 0, time.UTC))
		require.NoError(t, dataset.WriteFile(artifact, c))
	}
	return New(config.Config{ArtifactPath: artifact}, nil)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func testServerPoints() []dataset.Point {
	return []dataset.Point{
		{Date: day("2026-01-01"), Visitors: i64(100), Guests: i64(40)},
		{Date: day("2026-01-02"), Visitors: i64(130)},
		{Date: day("2026-01-03"), Visitors: i64(110), Downloads: i64(12)},
	}
}

func TestHandleStats(t *testing.T) {
	s := newTestServer(t, testServerPoints())

	rec := get(t, s, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Current *int64 `json:"current"`
		Peak    *struct {
			Value int64  `json:"value"`
			Date  string `json:"date"`
		} `json:"peak"`
		LastUpdated *string `json:"lastUpdated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	require.NotNil(t, got.Current)
	assert.Equal(t, int64(110), *got.Current)
	require.NotNil(t, got.Peak)
	assert.Equal(t, int64(130), got.Peak.Value)
	assert.Equal(t, "2026-01-02", got.Peak.Date)
	require.NotNil(t, got.LastUpdated)
	assert.Equal(t, "2026-01-06T08:30:00Z", *got.LastUpdated)
}

func TestHandleTable(t *testing.T) {
	s := newTestServer(t, testServerPoints())

	rec := get(t, s, "/api/v1/table")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []struct {
		Date          string `json:"date"`
		Visitors      *int64 `json:"visitors"`
		VisitorsDelta *int64 `json:"visitorsDelta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 3)

	assert.Nil(t, rows[0].VisitorsDelta)
	require.NotNil(t, rows[1].VisitorsDelta)
	assert.Equal(t, int64(30), *rows[1].VisitorsDelta)
	require.NotNil(t, rows[2].VisitorsDelta)
	assert.Equal(t, int64(-20), *rows[2].VisitorsDelta)
}

func TestHandlePoints(t *testing.T) {
	s := newTestServer(t, testServerPoints())

	rec := get(t, s, "/api/v1/points")
	require.Equal(t, http.StatusOK, rec.Code)

	var points []struct {
		Date      string `json:"date"`
		Guests    *int64 `json:"guests"`
		Downloads *int64 `json:"downloads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 3)
	assert.Equal(t, "2026-01-01", points[0].Date)
	assert.Nil(t, points[1].Guests)
	require.NotNil(t, points[2].Downloads)
}

func TestHandleDataset(t *testing.T) {
	s := newTestServer(t, testServerPoints())

	rec := get(t, s, "/api/v1/dataset")
	require.Equal(t, http.StatusOK, rec.Code)

	c, err := dataset.Unmarshal(rec.Body.Bytes())
	require.NoError(t, err)
	points, err := dataset.Decode(c)
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestMissingDatasetIs404(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{
		"/api/v1/dataset", "/api/v1/points",
		"/api/v1/stats", "/api/v1/table",
	} {
		rec := get(t, s, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
