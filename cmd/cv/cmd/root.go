package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/psantana5/cv/internal/discover"
	"github.com/psantana5/cv/internal/metrics"
	"github.com/psantana5/cv/pkg/logging"
	"github.com/psantana5/cv/pkg/shutdown"
)

var (
	cfgFile     string
	metricsFile string
)

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"proc":            "proc_path",
	"target":          "targets",
	"max-processes":   "max_processes",
	"max-descriptors": "max_descriptors",
	"output":          "output",
	"log-level":       "log_level",
	"log-json":        "log_json",
	"log-file":        "log_file",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cv",
	Short: "Show progress of running coreutils copies",
	Long: `cv looks for running cp, mv, dd and cat processes and shows how far each
one has got through the largest file it has open.

It only reads the process table; the inspected processes are never touched.

Example:
  cv
  cv -o table
  cv --target rsync --target cp
  cv watch --interval 2s`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
	RunE:              runOnce,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cv/config.yaml)")
	flags.String("proc", "", "process table root (default $HOST_PROC or /proc)")
	flags.StringSlice("target", nil, "executable basename to inspect, repeatable (default cp,mv,dd,cat)")
	flags.Int("max-processes", discover.DefaultMaxProcesses, "maximum number of processes reported per pass")
	flags.Int("max-descriptors", discover.DefaultMaxDescriptors, "maximum number of descriptors inspected per process")
	flags.StringP("output", "o", "text", "output format: text, table, json or yaml")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "write logs as JSON")
	flags.String("log-file", "", "also write logs to this file")

	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write pass metrics to this file in the Prometheus text format")

	configure(viper.GetViper(), flags)
}

// configure wires defaults, CV_* environment variables and flags into v
func configure(v *viper.Viper, flags *pflag.FlagSet) {
	defaults := discover.DefaultConfig()
	v.SetDefault("proc_path", defaults.ProcPath)
	v.SetDefault("targets", defaults.Targets)
	v.SetDefault("max_processes", defaults.MaxProcesses)
	v.SetDefault("max_descriptors", defaults.MaxDescriptors)
	v.SetDefault("interval", defaults.Interval)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_json", defaults.LogJSON)
	v.SetDefault("log_file", defaults.LogFile)

	v.SetEnvPrefix("cv")
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil {
			v.BindPFlag(key, f)
		}
	}
}

// initConfig reads in the config file if there is one
func initConfig(cmd *cobra.Command, args []string) error {
	return readConfigFile(viper.GetViper(), cfgFile)
}

// readConfigFile loads path, or $HOME/.cv/config.yaml when path is empty.
// Only an explicitly named file has to exist.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(filepath.Join(home, ".cv"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", discover.ErrInvalidConfig, err)
	}
	return nil
}

// resolveConfig merges every configuration layer in v and validates the result
func resolveConfig(v *viper.Viper) (*discover.Config, error) {
	cfg := &discover.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", discover.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	var collector *metrics.Collector
	if metricsFile != "" {
		collector = metrics.New()
	}

	pipeline, format, err := newPipeline(cfg, collector, logger)
	if err != nil {
		return err
	}

	mgr := shutdown.New(5 * time.Second)
	ctx, stop := mgr.Context(cmd.Context())
	defer stop()

	report, err := pipeline.Run(ctx)
	if report != nil {
		if err := emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), report, format); err != nil {
			return err
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if collector != nil {
		if err := collector.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
		logger.Debug("Metrics written", logging.Fields{"path": metricsFile})
	}
	return nil
}
