package config

import (
	"time"

	"github.com/sambeau/braingoat/pkg/braingoat/machine"
)

// Config represents the complete braingoat configuration
type Config struct {
	BaseDir string        `yaml:"-"` // Directory containing config file, for resolving relative paths
	Build   BuildConfig   `yaml:"build"`
	Machine MachineConfig `yaml:"machine"`
	Watch   WatchConfig   `yaml:"watch"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig holds settings for writing compiled programs
type BuildConfig struct {
	Output    string `yaml:"output"`     // Output path; empty derives <name>.bf from the source
	Compress  string `yaml:"compress"`   // "none", "gzip" or "zstd" (default: "none")
	Level     string `yaml:"level"`      // Compression level: "fastest", "default", "best" (default: "default")
	LineWidth int    `yaml:"line_width"` // Wrap emitted code at this many instructions, 0 for one line (default: 80)
	Stats     bool   `yaml:"stats"`      // Print compile statistics after a build
}

// MachineConfig holds limits for running programs
type MachineConfig struct {
	TapeSize int           `yaml:"tape_size"` // Cells on the tape, 0 for unbounded (default: 30000)
	EOF      string        `yaml:"eof"`       // "zero", "unchanged" or "max" (default: "zero")
	MaxSteps int64         `yaml:"max_steps"` // Abort after this many instructions, 0 for unlimited
	Timeout  time.Duration `yaml:"timeout"`   // Abort after this long, 0 for no timeout
}

// WatchConfig holds settings for the file watcher
type WatchConfig struct {
	Debounce   time.Duration `yaml:"debounce"`   // Quiet period before recompiling (default: 200ms)
	Extensions StringOrSlice `yaml:"extensions"` // Source file extensions to react to (default: .goat)
	Run        bool          `yaml:"run"`        // Run the program after every successful build
}

// CacheConfig holds build cache settings
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`  // Reuse compiled output for unchanged sources
	Driver  string `yaml:"driver"`   // "sqlite", "postgres" or "mysql" (default: "sqlite")
	DSN     string `yaml:"dsn"`      // Driver data source; a relative sqlite path resolves against the config file
	MaxSize string `yaml:"max_size"` // Prune oldest entries beyond this total size, e.g. "50MB"
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Output string `yaml:"output"` // "stderr", "stdout" or a file path (default: stderr)
	Locale string `yaml:"locale"` // Number and date formatting, e.g. "en", "de-DE" (default: en)
	Quiet  bool   `yaml:"quiet"`  // Suppress informational messages
}

// StringOrSlice supports YAML fields that can be either a string or a slice of strings
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler to handle both string and []string
func (s *StringOrSlice) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}

	var slice []string
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// Contains checks if the slice contains the given string
func (s StringOrSlice) Contains(str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}

// Defaults returns a Config with default values
func Defaults() *Config {
	return &Config{
		Build: BuildConfig{
			Compress:  "none",
			Level:     "default",
			LineWidth: 80,
		},
		Machine: MachineConfig{
			TapeSize: 30000,
			EOF:      "zero",
		},
		Watch: WatchConfig{
			Debounce:   200 * time.Millisecond,
			Extensions: StringOrSlice{".goat"},
		},
		Cache: CacheConfig{
			Driver: "sqlite",
			DSN:    ".braingoat/cache.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Locale: "en",
		},
	}
}

// MachineSettings converts the machine section for the interpreter.
func (c *Config) MachineSettings() (machine.Config, error) {
	eof, err := machine.ParseEOFMode(c.Machine.EOF)
	if err != nil {
		return machine.Config{}, err
	}
	return machine.Config{
		TapeSize: c.Machine.TapeSize,
		EOF:      eof,
		MaxSteps: c.Machine.MaxSteps,
	}, nil
}

// Debug reports whether compile traces should be logged.
func (c *Config) Debug() bool {
	return c.Logging.Level == "debug"
}
