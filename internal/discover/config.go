package discover

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxProcesses bounds the number of processes reported per pass
	DefaultMaxProcesses = 32
	// DefaultMaxDescriptors bounds the descriptors considered per process
	DefaultMaxDescriptors = 512
)

// DefaultTargets is the watch-list used when none is configured
var DefaultTargets = []string{"cp", "mv", "dd", "cat"}

// Config is the complete runtime configuration
type Config struct {
	ProcPath       string   `yaml:"proc_path" mapstructure:"proc_path"`
	Targets        []string `yaml:"targets" mapstructure:"targets"`
	MaxProcesses   int      `yaml:"max_processes" mapstructure:"max_processes"`
	MaxDescriptors int      `yaml:"max_descriptors" mapstructure:"max_descriptors"`
	Interval       string   `yaml:"interval" mapstructure:"interval"` // e.g., "1s", "500ms"
	Output         string   `yaml:"output" mapstructure:"output"`     // text, table, json, yaml
	LogLevel       string   `yaml:"log_level" mapstructure:"log_level"`
	LogJSON        bool     `yaml:"log_json" mapstructure:"log_json"`
	LogFile        string   `yaml:"log_file,omitempty" mapstructure:"log_file"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	targets := make([]string, len(DefaultTargets))
	copy(targets, DefaultTargets)
	return &Config{
		ProcPath:       DefaultProcPath(),
		Targets:        targets,
		MaxProcesses:   DefaultMaxProcesses,
		MaxDescriptors: DefaultMaxDescriptors,
		Interval:       "1s",
		Output:         "text",
		LogLevel:       "warn",
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks bounds and enumerations
func (c *Config) Validate() error {
	if c.ProcPath == "" {
		return fmt.Errorf("%w: proc_path must not be empty", ErrInvalidConfig)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: targets must list at least one binary name", ErrInvalidConfig)
	}
	for _, t := range c.Targets {
		if t == "" {
			return fmt.Errorf("%w: targets must not contain empty names", ErrInvalidConfig)
		}
	}
	if c.MaxProcesses <= 0 {
		return fmt.Errorf("%w: max_processes must be > 0, got %d", ErrInvalidConfig, c.MaxProcesses)
	}
	if c.MaxDescriptors <= 0 {
		return fmt.Errorf("%w: max_descriptors must be > 0, got %d", ErrInvalidConfig, c.MaxDescriptors)
	}
	if _, err := c.IntervalDuration(); err != nil {
		return err
	}
	switch c.Output {
	case "text", "table", "json", "yaml":
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.Output)
	}
	return nil
}

// IntervalDuration parses Interval
func (c *Config) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid interval: %v", ErrInvalidConfig, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, d)
	}
	return d, nil
}

// ExampleConfig is a commented configuration file
const ExampleConfig = `# cv configuration
# Default location: $HOME/.cv/config.yaml
# Every key can also be set with a CV_ environment variable, e.g. CV_MAX_PROCESSES=64

# Process table root (HOST_PROC is honoured when unset)
proc_path: /proc

# Executable basenames to inspect, matched exactly
targets:
  - cp
  - mv
  - dd
  - cat

# Capacity bounds; extra matches are dropped with a warning
max_processes: 32
max_descriptors: 512

# Delay between passes in watch mode
interval: "1s"

# Report format: text, table, json, yaml
output: text

# Logging (written to stderr)
log_level: warn
log_json: false
`
