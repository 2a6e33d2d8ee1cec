package config

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/braingoat/pkg/braingoat/machine"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.Watch.Debounce != 200*time.Millisecond {
		t.Errorf("Debounce = %s", cfg.Watch.Debounce)
	}
	if len(Warnings(cfg)) != 0 {
		t.Errorf("defaults have warnings: %v", Warnings(cfg))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"compress", "build:\n  compress: lzma", "invalid build.compress: lzma"},
		{"level", "build:\n  level: slow", "invalid build.level: slow"},
		{"line width", "build:\n  line_width: -1", "invalid build.line_width: -1"},
		{"tape", "machine:\n  tape_size: -5", "invalid machine.tape_size: -5"},
		{"eof", "machine:\n  eof: sometimes", `unknown eof mode "sometimes"`},
		{"steps", "machine:\n  max_steps: -1", "invalid machine.max_steps: -1"},
		{"extension", "watch:\n  extensions: goat", `"goat" must start with a dot`},
		{"driver", "cache:\n  driver: redis", "invalid cache.driver: redis"},
		{"dsn", "cache:\n  enabled: true\n  dsn: \"\"", "cache.dsn is required"},
		{"size", "cache:\n  max_size: lots", `invalid size "lots"`},
		{"log level", "logging:\n  level: loud", "invalid log level: loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			if err := yaml.Unmarshal([]byte(tt.yaml), cfg); err != nil {
				t.Fatalf("Failed to parse config: %v", err)
			}
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Build.Compress = "rar"
	cfg.Logging.Level = "chatty"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	if strings.Count(err.Error(), "\n  - ") != 2 {
		t.Errorf("error = %q, want two entries", err.Error())
	}
}

func TestWarnings(t *testing.T) {
	cfg := Defaults()
	cfg.Machine.TapeSize = 0
	cfg.Build.Compress = "gzip"
	cfg.Cache.MaxSize = "1MB"
	warnings := Warnings(cfg)
	if len(warnings) != 3 {
		t.Errorf("Warnings() = %v, want 3", warnings)
	}
}

func TestStringOrSlice(t *testing.T) {
	var single struct {
		Ext StringOrSlice `yaml:"ext"`
	}
	if err := yaml.Unmarshal([]byte(`ext: .goat`), &single); err != nil {
		t.Fatal(err)
	}
	if len(single.Ext) != 1 || !single.Ext.Contains(".goat") {
		t.Errorf("Ext = %v", single.Ext)
	}

	var list struct {
		Ext StringOrSlice `yaml:"ext"`
	}
	if err := yaml.Unmarshal([]byte("ext:\n  - .goat\n  - .bg"), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Ext) != 2 || !list.Ext.Contains(".bg") || list.Ext.Contains(".go") {
		t.Errorf("Ext = %v", list.Ext)
	}
}

func TestMachineSettings(t *testing.T) {
	cfg := Defaults()
	cfg.Machine.EOF = "max"
	cfg.Machine.MaxSteps = 1000
	mc, err := cfg.MachineSettings()
	if err != nil {
		t.Fatal(err)
	}
	if mc.EOF != machine.EOFMax || mc.MaxSteps != 1000 || mc.TapeSize != 30000 {
		t.Errorf("MachineSettings() = %+v", mc)
	}

	cfg.Machine.EOF = "bogus"
	if _, err := cfg.MachineSettings(); err == nil {
		t.Error("expected an error for a bad eof mode")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"", 0, false},
		{"512", 512, false},
		{"10B", 10, false},
		{"4kb", 4000, false},
		{"4KiB", 4096, false},
		{"2 MB", 2_000_000, false},
		{"1GiB", 1 << 30, false},
		{"xMB", 0, true},
		{"ten", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}
