package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/cv/internal/metrics"
	"github.com/psantana5/cv/internal/report"
	"github.com/psantana5/cv/internal/transfer"
	"github.com/psantana5/cv/pkg/logging"
	"github.com/psantana5/cv/pkg/shutdown"
)

// minHealthAge is the shortest time without a completed pass before
// /healthz reports unhealthy
const minHealthAge = 30 * time.Second

var metricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Repeat the inspection until interrupted",
	Long: `Watch mode runs a pass every interval and prints the result, until
SIGINT or SIGTERM. Output already written is kept when it stops.

With --metrics-addr the pass metrics are served for Prometheus at /metrics,
and the loop health at /healthz.

Example:
  cv watch
  cv watch --interval 500ms -o table
  cv watch --metrics-addr :9310`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("interval", "1s", "delay between passes")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9310")
	viper.BindPFlag("interval", watchCmd.Flags().Lookup("interval"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(viper.GetViper())
	if err != nil {
		return err
	}
	interval, err := cfg.IntervalDuration()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	collector := metrics.New()
	pipeline, format, err := newPipeline(cfg, collector, logger)
	if err != nil {
		logger.Close()
		return err
	}

	mgr := shutdown.New(5 * time.Second)
	mgr.SetOutput(cmd.ErrOrStderr())
	mgr.Register(shutdown.CloseResource(logger, "logger"))
	defer mgr.Shutdown()

	ctx, stop := mgr.Context(cmd.Context())
	defer stop()

	healthAge := 3 * interval
	if healthAge < minHealthAge {
		healthAge = minHealthAge
	}
	health := metrics.NewHealth(healthAge)

	if metricsAddr != "" {
		server := &http.Server{
			Addr:              metricsAddr,
			Handler:           collector.Router(health),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Metrics server listening", logging.Fields{"addr": metricsAddr})
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", logging.Fields{"error": err.Error()})
			}
		}()
		mgr.Register(shutdown.StopHTTPServer(server, "metrics"))
	}

	logger.Info("Watching", logging.Fields{
		"interval": interval.String(),
		"targets":  cfg.Targets,
	})

	return watchLoop(ctx, pipeline, health, interval, cmd.OutOrStdout(), cmd.ErrOrStderr(), format, logger)
}

// watchLoop runs passes until ctx is done. It returns nil on cancellation
// and the pass error when the process table fails.
func watchLoop(ctx context.Context, pipeline *transfer.Pipeline, health *metrics.Health, interval time.Duration,
	out, errOut io.Writer, format report.Format, logger *logging.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r, err := pipeline.Run(ctx)
		if r != nil {
			if err := emit(out, errOut, r, format); err != nil {
				return err
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Watch stopped")
				return nil
			}
			health.RecordFailure(err)
			return fmt.Errorf("pass failed: %w", err)
		}
		health.RecordPass(r.Truncated)

		select {
		case <-ctx.Done():
			logger.Info("Watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}
