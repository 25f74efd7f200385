// Package db is the sample archive: raw samples accumulated across
// batch runs in a local SQLite file. The archive is what makes each
// run a full-batch recomputation over all history rather than an
// incremental update.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pulseboard/activitytrack/internal/sample"
	"github.com/pulseboard/activitytrack/internal/timeutil"
)

//go:embed schema.sql
var schemaSQL string

// DB manages a write connection and a read-only pool.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	mu     sync.Mutex // serializes writes
}

// makeDSN builds a SQLite connection string with shared pragmas.
func makeDSN(path string, readOnly bool) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "ON")
	params.Set("_cache_size", "-16000")
	if readOnly {
		params.Set("mode", "ro")
	} else {
		params.Set("_synchronous", "NORMAL")
	}
	return path + "?" + params.Encode()
}

// Open creates or opens the archive at the given path, configuring
// WAL mode and separate writer and reader connections.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	writer, err := sql.Open("sqlite3", makeDSN(path, false))
	if err != nil {
		return nil, fmt.Errorf("opening writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite3", makeDSN(path, true))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	db := &DB{writer: writer, reader: reader}
	if _, err := db.writer.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// Close closes both writer and reader connections.
func (db *DB) Close() error {
	return errors.Join(db.writer.Close(), db.reader.Close())
}

// Update executes fn within a write lock and transaction. The
// transaction is committed if fn returns nil, rolled back
// otherwise.
func (db *DB) Update(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.writer.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ArchiveSamples upserts a batch of samples for one source. An
// exact timestamp collision keeps the larger value, matching the
// interpolator's dedupe rule.
func (db *DB) ArchiveSamples(source string, samples []sample.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	return db.Update(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO samples (source, ts, value) VALUES (?, ?, ?)
			 ON CONFLICT(source, ts) DO UPDATE
			 SET value = MAX(value, excluded.value)`,
		)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()

		for _, s := range samples {
			_, err := stmt.Exec(
				source, timeutil.Format(s.Timestamp), s.Value,
			)
			if err != nil {
				return fmt.Errorf("inserting sample: %w", err)
			}
		}
		return nil
	})
}

// SamplesForSource returns the full accumulated history of one
// source, ascending by timestamp. A source with no rows yields an
// empty slice, not an error.
func (db *DB) SamplesForSource(
	ctx context.Context, source string,
) ([]sample.Sample, error) {
	rows, err := db.reader.QueryContext(ctx,
		`SELECT ts, value FROM samples
		 WHERE source = ? ORDER BY ts ASC`,
		source,
	)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	var samples []sample.Sample
	for rows.Next() {
		var (
			ts string
			v  int64
		)
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			// An unreadable archived timestamp gets the same
			// policy as a malformed input row: dropped.
			continue
		}
		samples = append(samples, sample.Sample{
			Timestamp: t.UTC(), Value: v,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Lexical ts order is not instant order once fractional
	// seconds vary, so sort after parsing.
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	return samples, nil
}

// RecordRun appends one row to the run log.
func (db *DB) RecordRun(
	ranAt time.Time, points, dropped int,
	published bool, contentHash string,
) error {
	return db.Update(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO runs
			 (ran_at, points, dropped_rows, published, content_hash)
			 VALUES (?, ?, ?, ?, ?)`,
			timeutil.Format(ranAt), points, dropped,
			published, contentHash,
		)
		if err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
		return nil
	})
}
