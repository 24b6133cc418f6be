// Package config centralises runtime configuration for the promopay engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPhaseTimeout bounds each parallel allocation phase.
	DefaultPhaseTimeout = 10 * time.Second
	// DefaultPointsID is the reserved id of the loyalty points instrument.
	DefaultPointsID = "POINTS"

	envParallelism  = "PROMOPAY_PARALLELISM"
	envPhaseTimeout = "PROMOPAY_PHASE_TIMEOUT"
	envPointsID     = "PROMOPAY_POINTS_ID"
	envLogLevel     = "PROMOPAY_LOG_LEVEL"
)

// Settings contains the promopay configuration tree assembled from defaults,
// an optional YAML file, and environment overrides.
type Settings struct {
	// Parallelism sizes the worker pool for the parallel phases.
	Parallelism int `yaml:"parallelism"`
	// PhaseTimeout is the deadline each parallel phase is joined against.
	PhaseTimeout time.Duration `yaml:"phaseTimeout"`
	// PointsID names the reserved loyalty points instrument.
	PointsID string `yaml:"pointsId"`
	// LogLevel selects the minimum severity emitted by the process logger.
	LogLevel string `yaml:"logLevel"`
}

// Default returns the baseline settings before file and environment overrides.
func Default() Settings {
	return Settings{
		Parallelism:  runtime.GOMAXPROCS(0),
		PhaseTimeout: DefaultPhaseTimeout,
		PointsID:     DefaultPointsID,
		LogLevel:     "info",
	}
}

// LoadOrDefault assembles settings from defaults, the YAML file at path when
// it exists, and environment overrides. The second return reports whether a
// file was read.
func LoadOrDefault(path string) (Settings, bool, error) {
	settings := Default()

	loaded := false
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &settings); err != nil {
				return Settings{}, false, fmt.Errorf("parse config %s: %w", path, err)
			}
			loaded = true
		case errors.Is(err, os.ErrNotExist):
			// Missing file falls back to defaults.
		default:
			return Settings{}, false, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := settings.applyEnv(); err != nil {
		return Settings{}, false, err
	}
	settings.normalize()
	if err := settings.validate(); err != nil {
		return Settings{}, false, err
	}
	return settings, loaded, nil
}

func (s *Settings) applyEnv() error {
	if v, ok := lookup(envParallelism); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", envParallelism, v)
		}
		s.Parallelism = n
	}
	if v, ok := lookup(envPhaseTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", envPhaseTimeout, v)
		}
		s.PhaseTimeout = d
	}
	if v, ok := lookup(envPointsID); ok {
		s.PointsID = v
	}
	if v, ok := lookup(envLogLevel); ok {
		s.LogLevel = v
	}
	return nil
}

func (s *Settings) normalize() {
	if s.Parallelism <= 0 {
		s.Parallelism = runtime.GOMAXPROCS(0)
	}
	if s.PhaseTimeout <= 0 {
		s.PhaseTimeout = DefaultPhaseTimeout
	}
	s.PointsID = strings.TrimSpace(s.PointsID)
	if s.PointsID == "" {
		s.PointsID = DefaultPointsID
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
}

func (s Settings) validate() error {
	switch s.LogLevel {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logLevel: unsupported value %q", s.LogLevel)
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}
