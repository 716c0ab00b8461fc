package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/assetgrid/internal/watch"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no settings file
// is named.
const DefaultConfigFile = "assetgrid.yaml"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Source is the root every input selector and watch pattern is
	// relative to.
	Source string `yaml:"source"`
	// Output is the root every task writes under. Clean tasks recreate it.
	Output string `yaml:"output"`
	// Pipeline is the .hcl project file, or a directory of them.
	Pipeline string `yaml:"pipeline"`
	Debounce string `yaml:"debounce"`
	// Workers caps concurrent tasks; 0 means one per CPU.
	Workers int          `yaml:"workers"`
	Server  ServerConfig `yaml:"server"`
	Log     LogConfig    `yaml:"log"`
}

// ServerConfig controls the development server.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	// ClientLibrary is the socket.io client script /livereload.js loads.
	ClientLibrary string `yaml:"client_library"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source:   "src",
		Output:   "build",
		Pipeline: "assetgrid.hcl",
		Debounce: watch.DefaultDebounce.String(),
		Server: ServerConfig{
			Enabled: true,
			Addr:    ":3000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFrom reads the settings file at path over the defaults. A missing file
// yields the defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DebounceDuration parses the configured debounce window, or returns the
// watcher default when none is set.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Debounce == "" {
		return watch.DefaultDebounce, nil
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid debounce %q: %w", c.Debounce, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid debounce %q: must be positive", c.Debounce)
	}
	return d, nil
}

// Validate checks the settings before an App is built from them.
func (c *Config) Validate() error {
	if c.Source == "" {
		return errors.New("source is a required configuration field and cannot be empty")
	}
	if c.Output == "" {
		return errors.New("output is a required configuration field and cannot be empty")
	}
	if c.Pipeline == "" {
		return errors.New("pipeline is a required configuration field and cannot be empty")
	}
	if err := separateRoots(c.Source, c.Output); err != nil {
		return err
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers %d: must not be negative", c.Workers)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", c.Log.Format)
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return errors.New("server.addr is required when the server is enabled")
	}
	return nil
}

// separateRoots requires the source and output roots to be disjoint trees.
func separateRoots(source, output string) error {
	src, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("invalid source %q: %w", source, err)
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("invalid output %q: %w", output, err)
	}
	if src == out {
		return fmt.Errorf("output %q must differ from source", output)
	}
	if within(out, src) {
		return fmt.Errorf("output %q must not contain source %q", output, source)
	}
	if within(src, out) {
		return fmt.Errorf("output %q must not be inside source %q", output, source)
	}
	return nil
}

// within reports whether child lies below parent. Both are absolute.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
