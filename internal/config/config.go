package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/runnerr0/rankprep/internal/decay"
)

// Default config file path.
const DefaultConfigPath = "~/.config/rankprep/config.yaml"

// dayLayout matches the YYYY-MM-DD dates accepted on the command line.
const dayLayout = "2006-01-02"

// Config holds all rankprep configuration.
type Config struct {
	Run      RunConfig      `yaml:"run"`
	Input    InputConfig    `yaml:"input"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RunConfig selects the venue and the day window. Empty dates mean today.
type RunConfig struct {
	Vcid      string `yaml:"vcid" env:"RANKPREP_VCID"`
	StartDate string `yaml:"start_date" env:"RANKPREP_START_DATE"`
	EndDate   string `yaml:"end_date" env:"RANKPREP_END_DATE"`
	Timezone  string `yaml:"timezone" env:"RANKPREP_TIMEZONE"`
}

type InputConfig struct {
	SearchFile  string `yaml:"search_file" env:"RANKPREP_SEARCH_FILE"`
	DetailFile  string `yaml:"detail_file" env:"RANKPREP_DETAIL_FILE"`
	BookingFile string `yaml:"booking_file" env:"RANKPREP_BOOKING_FILE"`
}

// PipelineConfig tunes a run. Decay names the algorithm that turns a
// booking's age at the window end into its recency weight.
type PipelineConfig struct {
	Workers int    `yaml:"workers" env:"RANKPREP_WORKERS"`
	Decay   string `yaml:"decay" env:"RANKPREP_DECAY"`
}

type StorageConfig struct {
	Path              string `yaml:"path" env:"RANKPREP_STORAGE_PATH"`
	SQLiteFile        string `yaml:"sqlite_file" env:"RANKPREP_SQLITE_FILE"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode" env:"RANKPREP_SQLITE_JOURNAL_MODE"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"RANKPREP_HOST"`
	Port int    `yaml:"port" env:"RANKPREP_PORT"`
}

// LoggingConfig controls the logrus logger. An empty File logs to stderr;
// otherwise the file is rotated after MaxSize megabytes.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"RANKPREP_LOG_LEVEL"`
	Format     string `yaml:"format" env:"RANKPREP_LOG_FORMAT"`
	File       string `yaml:"file" env:"RANKPREP_LOG_FILE"`
	MaxSize    int    `yaml:"max_size" env:"RANKPREP_LOG_MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"RANKPREP_LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"RANKPREP_LOG_MAX_AGE"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv loads dotenv (when the file exists) into the process environment
// and then overrides every field that has a RANKPREP_* variable set.
func (c *Config) ApplyEnv(dotenv string) error {
	if dotenv != "" {
		if _, err := os.Stat(dotenv); err == nil {
			if err := godotenv.Load(dotenv); err != nil {
				return fmt.Errorf("loading %s: %w", dotenv, err)
			}
		}
	}

	sections := []interface{}{&c.Run, &c.Input, &c.Pipeline, &c.Storage, &c.Server, &c.Logging}
	for _, s := range sections {
		if err := env.Parse(s); err != nil {
			return fmt.Errorf("parsing environment: %w", err)
		}
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}

	var start, end time.Time
	var err error
	if c.Run.StartDate != "" {
		if start, err = time.Parse(dayLayout, c.Run.StartDate); err != nil {
			return fmt.Errorf("run.start_date: %w", err)
		}
	}
	if c.Run.EndDate != "" {
		if end, err = time.Parse(dayLayout, c.Run.EndDate); err != nil {
			return fmt.Errorf("run.end_date: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("run.end_date %s is before run.start_date %s", c.Run.EndDate, c.Run.StartDate)
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if _, err := decay.New(c.Pipeline.Decay); err != nil {
		return fmt.Errorf("pipeline.decay: %w", err)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Location resolves Run.Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Run.Timezone)
	if err != nil {
		return nil, fmt.Errorf("run.timezone: %w", err)
	}
	return loc, nil
}

// DBPath returns the expanded path of the SQLite database file.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LogPath returns the expanded log file path. A relative file is placed under
// the storage directory.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	p, err := ExpandPath(c.Logging.File)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
