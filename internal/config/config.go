package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/silo/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "silo.json"

	// YAMLFileName is the name of the YAML configuration file.
	YAMLFileName = "silo.yaml"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default log handler format.
	DefaultLogFormat = "text"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "silo"

	// DefaultMetricsAddr is the default address of the metrics endpoint.
	DefaultMetricsAddr = "localhost:9464"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/silo"
)

// Benchmark profiles.
const (
	ProfileFast     = "fast"
	ProfileStandard = "standard"
	ProfileStress   = "stress"
)

// fileNames are the configuration files searched for, in order.
var fileNames = []string{ConfigFileName, YAMLFileName, "silo.yml"}

// Config represents the complete silo configuration.
type Config struct {
	// Log configures the slog handler used by the CLI.
	Log LogConfig `json:"log" yaml:"log"`

	// Metrics configures Prometheus dispatch metrics.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Tracing configures OpenTelemetry dispatch spans.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// Bench configures `silo bench`.
	Bench BenchConfig `json:"bench" yaml:"bench"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled attaches the Prometheus instrument.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Addr is the listen address of the /metrics endpoint.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled attaches the OpenTelemetry instrument.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// TracerName is the tracer name.
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// BenchConfig contains benchmark settings. Zero counts take the profile's
// values.
type BenchConfig struct {
	Profile     string `json:"profile,omitempty" yaml:"profile,omitempty"`
	Dispatches  int    `json:"dispatches,omitempty" yaml:"dispatches,omitempty"`
	Subscribers int    `json:"subscribers,omitempty" yaml:"subscribers,omitempty"`
	Observers   int    `json:"observers,omitempty" yaml:"observers,omitempty"`
	Children    int    `json:"children,omitempty" yaml:"children,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
			Addr:      DefaultMetricsAddr,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
		Bench: BenchConfig{
			Profile: ProfileStandard,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for silo.json, then silo.yaml, then silo.yml.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("S021").
		WithDetail("No silo.json or silo.yaml found in " + dir)
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension.
func LoadFile(path string) (*Config, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("S021").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("S022").Wrap(err)
	}

	cfg := New()
	switch format {
	case "json":
		err = json.Unmarshal(data, cfg)
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("S022").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid " + strings.ToUpper(format))
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// formatOf returns "json" or "yaml" for path.
func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", errors.New("S023").WithDetail("Unsupported file: " + filepath.Base(path))
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as JSON or YAML
// depending on the extension.
func (c *Config) SaveTo(path string) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	if format == "yaml" {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("S022").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("S022").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
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

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
	if c.Bench.Profile == "" {
		c.Bench.Profile = ProfileStandard
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return errors.New("S020").
			WithDetail("log.level must be one of debug, info, warn, error; got " + c.Log.Level)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("S020").
			WithDetail("log.format must be text or json; got " + c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("S020").
			WithDetail("metrics.addr is required when metrics are enabled")
	}

	switch c.Bench.Profile {
	case ProfileFast, ProfileStandard, ProfileStress:
	default:
		return errors.New("S020").
			WithDetail("bench.profile must be fast, standard or stress; got " + c.Bench.Profile)
	}

	b := c.Bench
	if b.Dispatches < 0 || b.Subscribers < 0 || b.Observers < 0 || b.Children < 0 {
		return errors.New("S020").
			WithDetail("bench counts must not be negative")
	}

	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}

// Logger builds a slog.Logger writing to w with the configured level and
// format. An invalid level falls back to info.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a silo config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("S021").
				WithDetail("No silo.json or silo.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest parent holding a config file. Defaults are returned when no
// file exists.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}

	return Load(root)
}
