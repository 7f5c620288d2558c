// Package config owns the on-disk JSON configuration and the identity
// values (hostname, local root) injected into the engines.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/driveback/driveback/pkg/buildinfo"
	"github.com/driveback/driveback/pkg/util"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "config.json"

const (
	// MinRetention and MaxRetention bound the number of archives kept at
	// the storage root. The count is clamped into this range on every save.
	MinRetention = 1
	MaxRetention = 7

	// MinCompressionLevel and MaxCompressionLevel bound the deflate level.
	MinCompressionLevel = 0
	MaxCompressionLevel = 9
)

// scheduledTimePattern validates "HH:MM" entries. Non-matching entries
// are silently dropped on save.
var scheduledTimePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Config is the persisted sync configuration. The JSON field names are
// a compatibility contract and must not change.
type Config struct {
	// DrivePath is the storage root: the local or mounted path where
	// archives are written and read.
	DrivePath string `json:"drive_path"`
	// TargetFolders are folder names resolved relative to the local root.
	TargetFolders []string `json:"target_folders"`
	// RetentionCount is the maximum number of archives kept, clamped to [1,7].
	RetentionCount int `json:"retention_count"`
	// CompressionLevel is the deflate level (0-9) used when writing archives.
	CompressionLevel int `json:"compression_level"`
	// IgnorePatterns are glob patterns matched against individual path segments.
	IgnorePatterns []string `json:"ignore_patterns"`
	// ScheduledTimes are "HH:MM" times at which the scheduler triggers a silent backup.
	ScheduledTimes []string `json:"scheduled_times"`
}

// Identity carries the per-machine values the engines need: the
// hostname embedded in archive names and the local root under which
// target folders are resolved. It is supplied by the environment, never
// persisted.
type Identity struct {
	Hostname  string
	LocalRoot string
}

// DetectIdentity builds an Identity from the running system, applying
// non-empty overrides.
func DetectIdentity(hostnameOverride, localRootOverride string) (Identity, error) {
	id := Identity{Hostname: hostnameOverride, LocalRoot: localRootOverride}

	if id.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return Identity{}, fmt.Errorf("could not determine hostname: %w", err)
		}
		id.Hostname = hostname
	}

	if id.LocalRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Identity{}, fmt.Errorf("could not determine home directory: %w", err)
		}
		id.LocalRoot = home
	} else {
		expanded, err := util.ExpandPath(id.LocalRoot)
		if err != nil {
			return Identity{}, err
		}
		id.LocalRoot = expanded
	}
	return id, nil
}

// NewDefault returns the built-in default configuration used whenever
// no config file exists or the existing one cannot be parsed.
func NewDefault() Config {
	return Config{
		DrivePath:        "",
		TargetFolders:    []string{},
		RetentionCount:   2,
		CompressionLevel: 5,
		IgnorePatterns:   []string{"__pycache__", ".git", "*.tmp", "*.log", ".tmp.driveupload", "desktop.ini"},
		ScheduledTimes:   []string{},
	}
}

// DefaultPath returns the per-user location of the config file.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config dir: %w", err)
	}
	return filepath.Join(base, buildinfo.Name, ConfigFileName), nil
}

// Load reads the configuration from the given path. A missing or
// unparsable file falls back to the defaults; startup must never fail
// because of a bad config file.
func Load(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Str("path", path).Err(err).Msg("could not read config file, using defaults")
		}
		return NewDefault()
	}

	cfg := NewDefault()
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("config file is not valid JSON, using defaults")
		return NewDefault()
	}
	return cfg.Normalized()
}

// Save persists the configuration atomically (temp file + rename in the
// target directory). The stored form is always normalized: retention
// clamped, compression level clamped, invalid scheduled times dropped.
func (c Config) Save(path string) error {
	normalized := c.Normalized()

	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	tmpF, err := os.CreateTemp(dir, ConfigFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpPath := tmpF.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpF.Write(data); err != nil {
		tmpF.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmpF.Close(); err != nil {
		return fmt.Errorf("failed to close temp config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp config into place: %w", err)
	}
	return nil
}

// Normalized returns a copy of the config with all persistence
// invariants applied.
func (c Config) Normalized() Config {
	out := c

	if out.RetentionCount < MinRetention {
		out.RetentionCount = MinRetention
	}
	if out.RetentionCount > MaxRetention {
		out.RetentionCount = MaxRetention
	}

	if out.CompressionLevel < MinCompressionLevel {
		out.CompressionLevel = MinCompressionLevel
	}
	if out.CompressionLevel > MaxCompressionLevel {
		out.CompressionLevel = MaxCompressionLevel
	}

	out.TargetFolders = util.TrimmedNonEmpty(out.TargetFolders)
	out.IgnorePatterns = util.TrimmedNonEmpty(out.IgnorePatterns)

	times := make([]string, 0, len(out.ScheduledTimes))
	for _, t := range util.TrimmedNonEmpty(out.ScheduledTimes) {
		if scheduledTimePattern.MatchString(t) {
			times = append(times, t)
		}
	}
	out.ScheduledTimes = times

	return out
}
