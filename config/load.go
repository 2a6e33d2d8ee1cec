package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/sambeau/braingoat/pkg/braingoat/machine"
)

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults when none exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the
// resolved path, which is empty when the defaults were used.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg := Defaults()
		if err := Validate(cfg); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	if cfg.Build.Output != "" && !filepath.IsAbs(cfg.Build.Output) {
		cfg.Build.Output = filepath.Join(baseDir, cfg.Build.Output)
	}
	if cfg.Cache.Driver == "sqlite" && cfg.Cache.DSN != "" && cfg.Cache.DSN != ":memory:" && !filepath.IsAbs(cfg.Cache.DSN) {
		cfg.Cache.DSN = filepath.Join(baseDir, cfg.Cache.DSN)
	}
	if out := cfg.Logging.Output; out != "stderr" && out != "stdout" && out != "" && !filepath.IsAbs(out) {
		cfg.Logging.Output = filepath.Join(baseDir, out)
	}

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, absPath, nil
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	var errs []string

	validCompress := map[string]bool{"none": true, "gzip": true, "zstd": true}
	if !validCompress[cfg.Build.Compress] {
		errs = append(errs, fmt.Sprintf("invalid build.compress: %s (must be none, gzip, or zstd)", cfg.Build.Compress))
	}
	validLevels := map[string]bool{"fastest": true, "default": true, "best": true}
	if !validLevels[cfg.Build.Level] {
		errs = append(errs, fmt.Sprintf("invalid build.level: %s (must be fastest, default, or best)", cfg.Build.Level))
	}
	if cfg.Build.LineWidth < 0 {
		errs = append(errs, fmt.Sprintf("invalid build.line_width: %d (must be 0 or more)", cfg.Build.LineWidth))
	}

	if cfg.Machine.TapeSize < 0 {
		errs = append(errs, fmt.Sprintf("invalid machine.tape_size: %d (must be 0 or more)", cfg.Machine.TapeSize))
	}
	if _, err := machine.ParseEOFMode(cfg.Machine.EOF); err != nil {
		errs = append(errs, "machine.eof: "+err.Error())
	}
	if cfg.Machine.MaxSteps < 0 {
		errs = append(errs, fmt.Sprintf("invalid machine.max_steps: %d (must be 0 or more)", cfg.Machine.MaxSteps))
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Sprintf("invalid watch.debounce: %s", cfg.Watch.Debounce))
	}
	for _, ext := range cfg.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("watch.extensions: %q must start with a dot", ext))
		}
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[cfg.Cache.Driver] {
		errs = append(errs, fmt.Sprintf("invalid cache.driver: %s (must be sqlite, postgres, or mysql)", cfg.Cache.Driver))
	}
	if cfg.Cache.Enabled && cfg.Cache.DSN == "" {
		errs = append(errs, "cache.dsn is required when the cache is enabled")
	}
	if _, err := ParseSize(cfg.Cache.MaxSize); err != nil {
		errs = append(errs, "cache.max_size: "+err.Error())
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	if cfg.Machine.TapeSize == 0 && cfg.Machine.MaxSteps == 0 && cfg.Machine.Timeout == 0 {
		warnings = append(warnings, "machine: no tape size, step or time limit - a runaway program will not stop")
	}
	if cfg.Build.Compress != "none" && cfg.Build.LineWidth > 0 {
		warnings = append(warnings, "build: line_width is ignored for compressed output")
	}
	if !cfg.Cache.Enabled && cfg.Cache.MaxSize != "" {
		warnings = append(warnings, "cache: max_size is set but the cache is disabled")
	}
	if cfg.Cache.Driver == "sqlite" && cfg.Cache.DSN == ":memory:" && cfg.Cache.Enabled {
		warnings = append(warnings, "cache: an in-memory sqlite cache is lost when braingoat exits")
	}

	return warnings
}

// resolveConfigPath picks the config file. An explicit path or
// BRAINGOAT_CONFIG must exist; ./braingoat.yaml and
// ~/.config/braingoat/braingoat.yaml are tried in that order, and an empty
// result means built-in defaults.
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	required := []struct{ path, what string }{
		{explicit, "config file"},
		{getenv("BRAINGOAT_CONFIG"), "BRAINGOAT_CONFIG file"},
	}
	for _, r := range required {
		if r.path == "" {
			continue
		}
		if _, err := os.Stat(r.path); err != nil {
			return "", fmt.Errorf("%s not found: %s", r.what, r.path)
		}
		return r.path, nil
	}

	candidates := []string{"braingoat.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "braingoat", "braingoat.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// ${NAME} or ${NAME:-fallback}
var envRef = regexp.MustCompile(`\$\{([^}:]+)(:-[^}]*)?\}`)

// interpolateEnv substitutes environment references before the YAML is
// parsed. Unset or empty variables use the fallback, if any.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	var out bytes.Buffer
	last := 0
	for _, m := range envRef.FindAllSubmatchIndex(data, -1) {
		out.Write(data[last:m[0]])
		value := getenv(string(data[m[2]:m[3]]))
		if value == "" && m[4] >= 0 {
			value = string(data[m[4]+2 : m[5]])
		}
		out.WriteString(value)
		last = m[1]
	}
	out.Write(data[last:])
	return out.Bytes()
}

// ParseSize reads sizes such as "512", "50MB" or "1.5GiB". SI suffixes are
// decimal and IEC suffixes binary. An empty string means no limit.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q (use a number with an optional B, KB, MB, GB or KiB, MiB, GiB suffix)", s)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int64(n), nil
}
