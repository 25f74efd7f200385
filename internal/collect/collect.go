// Package collect gathers raw sample rows from configured sources
// ahead of a batch run. Collection is best-effort and
// order-insensitive: each source either produces samples or is
// skipped with a logged warning, and one failed source never
// blocks the others.
package collect

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/google/shlex"

	"github.com/pulseboard/activitytrack/internal/sample"
)

// Kind distinguishes how a source's values behave over time.
type Kind string

const (
	// KindGauge is a point-in-time metric aggregated to a daily max.
	KindGauge Kind = "gauge"
	// KindCounter is a cumulative counter turned into daily deltas
	// by boundary interpolation. Counter rows must carry a valid
	// clock time.
	KindCounter Kind = "counter"
)

// Format names the row encoding a source emits.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// Source describes one sample producer: either a drop-in file or
// an external command whose stdout is sample rows.
type Source struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Format  Format `json:"format,omitempty"`
	File    string `json:"file,omitempty"`
	Command string `json:"command,omitempty"`
}

func (s Source) options() sample.Options {
	return sample.Options{RequireClock: s.Kind == KindCounter}
}

// Result is the outcome of collecting one source.
type Result struct {
	Samples []sample.Sample
	Stats   sample.Stats
}

// Collector runs source collection with a per-command timeout.
type Collector struct {
	CommandTimeout time.Duration
}

// Collect gathers samples from every source. A source that cannot
// be read contributes nothing and is logged; the returned map has
// an entry per source that produced at least a successful read.
func (c *Collector) Collect(
	ctx context.Context, sources []Source,
) map[string]Result {
	results := make(map[string]Result, len(sources))
	for _, src := range sources {
		res, err := c.collectOne(ctx, src)
		if err != nil {
			log.Printf("collect: source %s skipped: %v", src.Name, err)
			continue
		}
		if res.Stats.Dropped > 0 {
			log.Printf("collect: source %s dropped %d malformed row(s)",
				src.Name, res.Stats.Dropped)
		}
		results[src.Name] = res
	}
	return results
}

func (c *Collector) collectOne(
	ctx context.Context, src Source,
) (Result, error) {
	switch {
	case src.Command != "":
		return c.runCommand(ctx, src)
	case src.File != "":
		return readFile(src)
	default:
		return Result{}, fmt.Errorf("source %s has no file or command", src.Name)
	}
}

func readFile(src Source) (Result, error) {
	f, err := os.Open(src.File)
	if os.IsNotExist(err) {
		// A missing source file is a zero-sample source, not an
		// error worth skipping diagnostics for.
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("opening %s: %w", src.File, err)
	}
	defer f.Close()

	var res Result
	if src.Format == FormatJSONL {
		res.Samples, res.Stats = sample.ParseJSONL(f, src.options())
	} else {
		res.Samples, res.Stats = sample.ParseRows(f, src.options())
	}
	return res, nil
}

// runCommand executes the source's fetch command and parses its
// stdout. The command string is split shell-style.
func (c *Collector) runCommand(
	ctx context.Context, src Source,
) (Result, error) {
	argv, err := shlex.Split(src.Command)
	if err != nil {
		return Result{}, fmt.Errorf("parsing command: %w", err)
	}
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("empty command")
	}

	if c.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.CommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("piping stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("starting command: %w", err)
	}

	var res Result
	if src.Format == FormatJSONL {
		res.Samples, res.Stats = sample.ParseJSONL(stdout, src.options())
	} else {
		res.Samples, res.Stats = sample.ParseRows(stdout, src.options())
	}

	if err := cmd.Wait(); err != nil {
		return Result{}, fmt.Errorf("running command: %w", err)
	}
	return res, nil
}
