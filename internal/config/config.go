// Package config loads application configuration by layering:
// defaults < config.json < environment < explicitly-set flags.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pulseboard/activitytrack/internal/collect"
)

// Config holds all application configuration.
type Config struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	DataDir        string        `json:"data_dir"`
	SamplesDir     string        `json:"samples_dir"`
	ArtifactPath   string        `json:"artifact_path"`
	CutoffDate     string        `json:"cutoff_date"` // YYYY-MM-DD
	Interval       time.Duration `json:"-"`
	CommandTimeout time.Duration `json:"-"`

	DBPath string `json:"-"`

	// Sources from config.json. When empty, default drop-in
	// sample files under SamplesDir are used.
	Sources []collect.Source `json:"sources,omitempty"`
}

// DefaultCutoff is the first day the downloads counter history is
// considered reliable; earlier days are never emitted.
const DefaultCutoff = "2024-01-01"

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	dataDir := filepath.Join(home, ".activitytrack")
	return Config{
		Host:           "127.0.0.1",
		Port:           8080,
		DataDir:        dataDir,
		SamplesDir:     filepath.Join(dataDir, "samples"),
		ArtifactPath:   filepath.Join(dataDir, "dataset.json"),
		CutoffDate:     DefaultCutoff,
		Interval:       1 * time.Hour,
		CommandTimeout: 2 * time.Minute,
	}, nil
}

// Load builds a Config by layering defaults, the config file, env
// vars and explicitly-set flags. The provided FlagSet must already
// be parsed by the caller.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, env and config file,
// without parsing CLI flags. Use this for subcommands that manage
// their own flag sets.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	// Env runs first so the config file is found under an
	// env-specified data dir, and again after so env values win
	// over file values.
	cfg.loadEnv()
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	if len(cfg.Sources) == 0 {
		cfg.Sources = cfg.defaultSources()
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, "samples.db")
	return cfg, nil
}

// Cutoff parses the configured cutoff date.
func (c *Config) Cutoff() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.CutoffDate)
	if err != nil {
		return time.Time{}, fmt.Errorf(
			"invalid cutoff_date %q: %w", c.CutoffDate, err,
		)
	}
	return t, nil
}

// defaultSources wires the three well-known sources to drop-in
// files under SamplesDir.
func (c *Config) defaultSources() []collect.Source {
	return []collect.Source{
		{
			Name: "visitors", Kind: collect.KindGauge,
			File: filepath.Join(c.SamplesDir, "visitors.csv"),
		},
		{
			Name: "guests", Kind: collect.KindGauge,
			File: filepath.Join(c.SamplesDir, "guests.csv"),
		},
		{
			Name: "downloads", Kind: collect.KindCounter,
			File: filepath.Join(c.SamplesDir, "downloads.csv"),
		},
	}
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		Host         string           `json:"host"`
		Port         int              `json:"port"`
		SamplesDir   string           `json:"samples_dir"`
		ArtifactPath string           `json:"artifact_path"`
		CutoffDate   string           `json:"cutoff_date"`
		IntervalMin  int              `json:"interval_minutes"`
		Sources      []collect.Source `json:"sources"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port != 0 {
		c.Port = file.Port
	}
	if file.SamplesDir != "" {
		c.SamplesDir = file.SamplesDir
	}
	if file.ArtifactPath != "" {
		c.ArtifactPath = file.ArtifactPath
	}
	if file.CutoffDate != "" {
		c.CutoffDate = file.CutoffDate
	}
	if file.IntervalMin > 0 {
		c.Interval = time.Duration(file.IntervalMin) * time.Minute
	}
	if len(file.Sources) > 0 {
		c.Sources = file.Sources
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("ACTIVITYTRACK_DATA_DIR"); v != "" {
		c.DataDir = v
		c.SamplesDir = filepath.Join(v, "samples")
		c.ArtifactPath = filepath.Join(v, "dataset.json")
	}
	if v := os.Getenv("ACTIVITYTRACK_SAMPLES_DIR"); v != "" {
		c.SamplesDir = v
	}
	if v := os.Getenv("ACTIVITYTRACK_ARTIFACT"); v != "" {
		c.ArtifactPath = v
	}
}

// RegisterServeFlags registers serve-command flags on fs. The
// caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8080, "Port to listen on")
	fs.String("artifact", "", "Compact dataset artifact path")
	fs.String("cutoff", DefaultCutoff,
		"First day of reliable downloads history (YYYY-MM-DD)")
	fs.Duration("interval", 1*time.Hour,
		"Scheduled recompute interval")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// flag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "artifact":
			cfg.ArtifactPath = f.Value.String()
		case "cutoff":
			cfg.CutoffDate = f.Value.String()
		case "interval":
			if d, err := time.ParseDuration(f.Value.String()); err == nil {
				cfg.Interval = d
			}
		}
	})
}
