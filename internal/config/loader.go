package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".banreview"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file layout.
// Every field is optional; unset fields keep the value already in Config.
type File struct {
	Community           string   `yaml:"community,omitempty"`
	PolicyPhrase        string   `yaml:"policy_phrase,omitempty"`
	TargetLanguage      string   `yaml:"target_language,omitempty"`
	CandidateLanguages  []string `yaml:"candidate_languages,omitempty"`
	MinRelativeDistance *float64 `yaml:"min_relative_distance,omitempty"`
	Concurrency         int      `yaml:"concurrency,omitempty"`
	JitterMin           string   `yaml:"jitter_min,omitempty"`
	JitterMax           string   `yaml:"jitter_max,omitempty"`
	RequestsPerSecond   float64  `yaml:"requests_per_second,omitempty"`
	RenderDelay         string   `yaml:"render_delay,omitempty"`
	PageLimit           int      `yaml:"page_limit,omitempty"`
	SessionFile         string   `yaml:"session_file,omitempty"`
	OutputDir           string   `yaml:"output_dir,omitempty"`
	SnapshotDir         string   `yaml:"snapshot_dir,omitempty"`
	DBDir               string   `yaml:"db_dir,omitempty"`
	Headless            *bool    `yaml:"headless,omitempty"`
	UserAgent           string   `yaml:"user_agent,omitempty"`
	ChromePath          string   `yaml:"chrome_path,omitempty"`
}

// LoadConfigFile loads the configuration from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Apply copies the set fields of the file onto cfg.
// Durations use Go syntax ("50ms", "2s"); an unparsable duration is an error.
func (f *File) Apply(cfg *Config) error {
	if f.Community != "" {
		cfg.Community = f.Community
	}
	if f.PolicyPhrase != "" {
		cfg.PolicyPhrase = f.PolicyPhrase
	}
	if f.TargetLanguage != "" {
		cfg.TargetLanguage = f.TargetLanguage
	}
	if len(f.CandidateLanguages) > 0 {
		cfg.CandidateLanguages = append([]string(nil), f.CandidateLanguages...)
	}
	if f.MinRelativeDistance != nil {
		cfg.MinRelativeDistance = *f.MinRelativeDistance
	}
	if f.Concurrency != 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.RequestsPerSecond != 0 {
		cfg.RequestsPerSecond = f.RequestsPerSecond
	}
	if f.PageLimit != 0 {
		cfg.PageLimit = f.PageLimit
	}
	if f.SessionFile != "" {
		cfg.SessionFile = f.SessionFile
	}
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if f.SnapshotDir != "" {
		cfg.SnapshotDir = f.SnapshotDir
	}
	if f.DBDir != "" {
		cfg.DBDir = f.DBDir
	}
	if f.Headless != nil {
		cfg.Headless = *f.Headless
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.ChromePath != "" {
		cfg.ChromePath = f.ChromePath
	}

	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{f.JitterMin, &cfg.JitterMin},
		{f.JitterMax, &cfg.JitterMax},
		{f.RenderDelay, &cfg.RenderDelay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return errors.Join(ErrInvalidDelay, err)
		}
		*d.dst = v
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .banreview in the current directory
// 3. Look for .banreview in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
