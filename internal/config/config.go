package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/vango-dev/reaxar/internal/errors"
)

const (
	// JSONFileName is the name of the JSON configuration file.
	JSONFileName = "reaxar.json"

	// TOMLFileName is the name of the TOML configuration file.
	TOMLFileName = "reaxar.toml"

	// EnvFileName is the dotenv file read for fallback overrides.
	EnvFileName = ".env"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "REAXAR_"

	// DefaultInspectorAddr is the default inspector listen address.
	DefaultInspectorAddr = "127.0.0.1:7070"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "reaxar"

	// DefaultMaxNotifyDepth mirrors rea.DefaultMaxNotifyDepth.
	DefaultMaxNotifyDepth = 64
)

// Config represents the complete reaxar configuration.
type Config struct {
	// Log contains diagnostic logging configuration.
	Log LogConfig `json:"log" toml:"log"`

	// Inspector contains the HTTP inspector configuration.
	Inspector InspectorConfig `json:"inspector" toml:"inspector"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics" toml:"metrics"`

	// Cell contains reactive cell defaults.
	Cell CellConfig `json:"cell" toml:"cell"`

	// Snapshot contains store snapshot export configuration.
	Snapshot SnapshotConfig `json:"snapshot" toml:"snapshot"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" toml:"level"`

	// Format is text or json.
	Format string `json:"format,omitempty" toml:"format"`

	// File, if set, receives a JSON copy of every record.
	File string `json:"file,omitempty" toml:"file"`
}

// InspectorConfig contains inspector server settings.
type InspectorConfig struct {
	Addr string `json:"addr,omitempty" toml:"addr"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" toml:"enabled"`
	Namespace string `json:"namespace,omitempty" toml:"namespace"`
}

// CellConfig contains defaults for cells created through the runtime.
type CellConfig struct {
	MaxNotifyDepth int `json:"maxNotifyDepth,omitempty" toml:"max_notify_depth"`
}

// SnapshotConfig selects where store snapshots are written.
// When Bucket is set snapshots go to S3, otherwise to Dir.
type SnapshotConfig struct {
	Dir      string `json:"dir,omitempty" toml:"dir"`
	Bucket   string `json:"bucket,omitempty" toml:"bucket"`
	Prefix   string `json:"prefix,omitempty" toml:"prefix"`
	Region   string `json:"region,omitempty" toml:"region"`
	Endpoint string `json:"endpoint,omitempty" toml:"endpoint"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Inspector: InspectorConfig{
			Addr: DefaultInspectorAddr,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Cell: CellConfig{
			MaxNotifyDepth: DefaultMaxNotifyDepth,
		},
		Snapshot: SnapshotConfig{
			Dir: "snapshots",
		},
	}
}

// Load loads configuration from dir. A missing config file is not an
// error; defaults are used. Environment overrides are always applied.
func Load(dir string) (*Config, error) {
	var cfg *Config
	for _, name := range []string{TOMLFileName, JSONFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		break
	}
	if cfg == nil {
		cfg = New()
	}

	dotenv, err := readDotenv(filepath.Join(dir, EnvFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookupWithFallback(dotenv)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from a .toml or .json file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigRead).
			WithKey(path).
			Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.New(errors.CodeConfigInvalid).
				WithKey(path).
				WithDetail("Failed to parse TOML: " + err.Error()).
				WithSuggestion("Check that " + filepath.Base(path) + " is valid TOML")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.CodeConfigInvalid).
				WithKey(path).
				WithDetail("Failed to parse JSON: " + err.Error()).
				WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
		}
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as TOML if the extension is
// .toml and JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var buf strings.Builder
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return errors.New(errors.CodeConfigInvalid).Wrap(err)
		}
		data = []byte(buf.String())
	} else {
		out, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return errors.New(errors.CodeConfigInvalid).Wrap(err)
		}
		data = append(out, '\n')
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigRead).WithKey(path).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from, or "".
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills fields left empty by the config file.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Inspector.Addr == "" {
		c.Inspector.Addr = DefaultInspectorAddr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Cell.MaxNotifyDepth == 0 {
		c.Cell.MaxNotifyDepth = DefaultMaxNotifyDepth
	}
}

// ApplyEnv applies REAXAR_* overrides read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
		"LOG_FILE":          &c.Log.File,
		"INSPECTOR_ADDR":    &c.Inspector.Addr,
		"METRICS_NAMESPACE": &c.Metrics.Namespace,
		"SNAPSHOT_DIR":      &c.Snapshot.Dir,
		"SNAPSHOT_BUCKET":   &c.Snapshot.Bucket,
		"SNAPSHOT_PREFIX":   &c.Snapshot.Prefix,
		"SNAPSHOT_REGION":   &c.Snapshot.Region,
		"SNAPSHOT_ENDPOINT": &c.Snapshot.Endpoint,
	}
	for name, field := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup(EnvPrefix + "METRICS_ENABLED"); ok {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.New(errors.CodeConfigInvalid).
				WithKey(EnvPrefix + "METRICS_ENABLED").
				Wrap(err)
		}
		c.Metrics.Enabled = enabled
	}
	if v, ok := lookup(EnvPrefix + "MAX_NOTIFY_DEPTH"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.New(errors.CodeConfigInvalid).
				WithKey(EnvPrefix + "MAX_NOTIFY_DEPTH").
				Wrap(err)
		}
		c.Cell.MaxNotifyDepth = n
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		return errors.New(errors.CodeConfigInvalid).
			WithKey("log.level").
			WithDetail("Log level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.New(errors.CodeConfigInvalid).
			WithKey("log.format").
			WithDetail("Log format must be text or json")
	}
	if c.Cell.MaxNotifyDepth < 1 {
		return errors.New(errors.CodeConfigInvalid).
			WithKey("cell.maxNotifyDepth").
			WithDetail("Max notify depth must be at least 1")
	}
	return nil
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	if l, ok := levels[strings.ToLower(c.Log.Level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// UseS3 reports whether snapshots should be written to S3.
func (c *Config) UseS3() bool {
	return c.Snapshot.Bucket != ""
}

// readDotenv parses path without touching the process environment.
// A missing file yields an empty map.
func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithKey(path).
			WithDetail("Failed to parse dotenv file").
			Wrap(err)
	}
	return vars, nil
}

// lookupWithFallback prefers the process environment over dotenv values.
func lookupWithFallback(dotenv map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := dotenv[name]
		return v, ok
	}
}
