package discover

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultProcPathHonoursHostProc(t *testing.T) {
	t.Setenv("HOST_PROC", "/host/proc")
	if got := DefaultProcPath(); got != "/host/proc" {
		t.Errorf("DefaultProcPath() = %q, expected /host/proc", got)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("targets: [rsync, dd]\nmax_processes: 4\ninterval: 250ms\noutput: json\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !reflect.DeepEqual(cfg.Targets, []string{"rsync", "dd"}) {
		t.Errorf("Targets = %v", cfg.Targets)
	}
	if cfg.MaxProcesses != 4 {
		t.Errorf("MaxProcesses = %d, expected 4", cfg.MaxProcesses)
	}
	if cfg.MaxDescriptors != DefaultMaxDescriptors {
		t.Errorf("MaxDescriptors = %d, expected default %d", cfg.MaxDescriptors, DefaultMaxDescriptors)
	}
	if d, _ := cfg.IntervalDuration(); d != 250*time.Millisecond {
		t.Errorf("IntervalDuration = %s", d)
	}
}

func TestLoadExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.yaml")
	if err := os.WriteFile(path, []byte(ExampleConfig), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Targets, DefaultTargets) {
		t.Errorf("Targets = %v, expected %v", cfg.Targets, DefaultTargets)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		desc   string
		mutate func(*Config)
	}{
		{"zero max processes", func(c *Config) { c.MaxProcesses = 0 }},
		{"negative max descriptors", func(c *Config) { c.MaxDescriptors = -1 }},
		{"no targets", func(c *Config) { c.Targets = nil }},
		{"empty target", func(c *Config) { c.Targets = []string{"cp", ""} }},
		{"bad interval", func(c *Config) { c.Interval = "soon" }},
		{"zero interval", func(c *Config) { c.Interval = "0s" }},
		{"unknown output", func(c *Config) { c.Output = "xml" }},
		{"empty proc path", func(c *Config) { c.ProcPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, expected ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
