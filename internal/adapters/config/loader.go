// Package config provides the configuration loader for loadstate.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
	FS     FileSystem

	mu   sync.Mutex
	path string
}

// NewLoader creates a Loader reading from the OS filesystem.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, FS: NewOSFS()}
}

// NewLoaderFS creates a Loader reading from the given filesystem.
func NewLoaderFS(logger ports.Logger, fsys FileSystem) *Loader {
	return &Loader{Logger: logger, FS: fsys}
}

var validIDRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// Load searches for loadstate.yaml starting at cwd and walking up to the
// filesystem root, then parses it with defaults applied.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	cfg, err := l.loadFile(configPath)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.path = configPath
	l.mu.Unlock()

	return cfg, nil
}

// Path returns the file resolved by the last successful Load.
func (l *Loader) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

func (l *Loader) findConfiguration(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := l.FS.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(
		zerr.Wrap(domain.ErrConfigNotFound, "locate configuration"),
		"cwd", cwd,
	)
}

func (l *Loader) loadFile(configPath string) (*domain.Config, error) {
	data, err := l.FS.ReadFile(configPath)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "read configuration file"), "path", configPath)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(
			zerr.Wrap(errors.Join(domain.ErrInvalidConfig, err), "parse configuration file"),
			"path", configPath,
		)
	}

	cfg := &domain.Config{
		StaleThreshold: domain.DefaultStaleThreshold,
		SweepInterval:  domain.DefaultSweepInterval,
		Retry: domain.RetryPolicy{
			MaxRetries:   domain.DefaultMaxRetries,
			InitialDelay: domain.DefaultInitialDelay,
		},
		Preload: domain.PreloadConfig{
			Debounce:   domain.DefaultDebounce,
			EagerCount: domain.DefaultEagerPreloads,
		},
	}

	if err := l.applyDurations(&file, cfg); err != nil {
		return nil, err
	}
	if err := applyRetry(file.Retry, cfg); err != nil {
		return nil, err
	}
	if err := applyPreload(file.Preload, cfg); err != nil {
		return nil, err
	}
	if err := applySections(file.Sections, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) applyDurations(file *File, cfg *domain.Config) error {
	var err error
	if cfg.StaleThreshold, err = parseDuration(file.StaleThreshold, cfg.StaleThreshold, "staleThreshold"); err != nil {
		return err
	}
	if cfg.SweepInterval, err = parseDuration(file.SweepInterval, cfg.SweepInterval, "sweepInterval"); err != nil {
		return err
	}
	if cfg.SweepInterval <= 0 {
		return zerr.With(invalid("sweepInterval"), "value", file.SweepInterval)
	}
	if cfg.SweepInterval > cfg.StaleThreshold {
		l.Logger.Warn(fmt.Sprintf("sweepInterval %s exceeds staleThreshold %s, staleness will surface late",
			cfg.SweepInterval, cfg.StaleThreshold))
	}
	return nil
}

func applyRetry(dto *RetryDTO, cfg *domain.Config) error {
	if dto == nil {
		return nil
	}

	if dto.MaxRetries != nil {
		cfg.Retry.MaxRetries = *dto.MaxRetries
	}
	var err error
	if cfg.Retry.InitialDelay, err = parseDuration(dto.InitialDelay, cfg.Retry.InitialDelay, "retry.initialDelay"); err != nil {
		return err
	}
	if err := cfg.Retry.Validate(); err != nil {
		return err
	}
	return nil
}

func applyPreload(dto *PreloadDTO, cfg *domain.Config) error {
	if dto == nil {
		return nil
	}

	var err error
	if cfg.Preload.Debounce, err = parseDuration(dto.Debounce, cfg.Preload.Debounce, "preload.debounce"); err != nil {
		return err
	}
	if dto.EagerCount != nil {
		if *dto.EagerCount < 0 {
			return zerr.With(invalid("preload.eagerCount"), "value", *dto.EagerCount)
		}
		cfg.Preload.EagerCount = *dto.EagerCount
	}

	seen := make(map[string]bool, len(dto.Panels))
	for _, p := range dto.Panels {
		if err := validateID(p.ID, "preload.panels"); err != nil {
			return err
		}
		if seen[p.ID] {
			return zerr.With(invalid("preload.panels"), "duplicate", p.ID)
		}
		if p.Priority < 1 {
			return zerr.With(
				zerr.With(invalid("preload.panels"), "panel", p.ID),
				"priority", p.Priority,
			)
		}
		seen[p.ID] = true
		cfg.Preload.Panels = append(cfg.Preload.Panels, domain.PreloadEntry{ID: p.ID, Priority: p.Priority})
	}
	return nil
}

func applySections(dtos []*SectionDTO, cfg *domain.Config) error {
	seen := make(map[string]bool, len(dtos))
	for _, s := range dtos {
		if err := validateID(s.ID, "sections"); err != nil {
			return err
		}
		if seen[s.ID] {
			return zerr.With(invalid("sections"), "duplicate", s.ID)
		}
		if s.FailureRate < 0 || s.FailureRate > 1 {
			return zerr.With(
				zerr.With(invalid("sections"), "section", s.ID),
				"failureRate", s.FailureRate,
			)
		}
		seen[s.ID] = true

		latency, err := parseDuration(s.Latency, 0, "sections.latency")
		if err != nil {
			return err
		}

		name := s.Name
		if name == "" {
			name = s.ID
		}
		cfg.Sections = append(cfg.Sections, domain.SectionSpec{
			ID:          s.ID,
			Name:        name,
			Latency:     latency,
			FailureRate: s.FailureRate,
			Items:       s.Items,
		})
	}
	return nil
}

// parseDuration parses a duration string, returning fallback when empty.
// Negative durations are rejected.
func parseDuration(raw string, fallback time.Duration, field string) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, zerr.With(
			zerr.With(
				zerr.Wrap(errors.Join(domain.ErrInvalidDuration, err), "parse duration"),
				"field", field,
			),
			"value", raw,
		)
	}
	if d < 0 {
		return 0, zerr.With(
			zerr.With(
				zerr.Wrap(domain.ErrInvalidDuration, "negative duration"),
				"field", field,
			),
			"value", raw,
		)
	}
	return d, nil
}

func validateID(id, field string) error {
	if !validIDRegex.MatchString(id) {
		return zerr.With(invalid(field), "id", id)
	}
	return nil
}

// invalid builds a configuration validation failure for one field so that
// callers can match the invalid-config sentinel through the chain.
func invalid(field string) error {
	return zerr.With(
		zerr.Wrap(domain.ErrInvalidConfig, "validate configuration"),
		"field", field,
	)
}
