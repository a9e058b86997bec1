package cmd

import (
	"io"

	"github.com/psantana5/cv/internal/discover"
	"github.com/psantana5/cv/internal/metrics"
	"github.com/psantana5/cv/internal/report"
	"github.com/psantana5/cv/internal/transfer"
	"github.com/psantana5/cv/pkg/logging"
)

func newLogger(cfg *discover.Config) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		return logging.NewFileLogger(cfg.LogFile, level, cfg.LogJSON)
	}
	return logging.NewLogger(level, cfg.LogJSON), nil
}

// newPipeline opens the process table and builds the pass runner for cfg.
// The owner lookup is only wired for the formats that show a user column.
func newPipeline(cfg *discover.Config, collector *metrics.Collector, logger *logging.Logger) (*transfer.Pipeline, report.Format, error) {
	format, err := report.ParseFormat(cfg.Output)
	if err != nil {
		return nil, "", err
	}

	table, err := discover.OpenTable(cfg.ProcPath)
	if err != nil {
		return nil, "", err
	}

	opts := transfer.Options{
		Table:          table,
		Matcher:        discover.NewBasenameMatcher(cfg.Targets),
		MaxProcesses:   cfg.MaxProcesses,
		MaxDescriptors: cfg.MaxDescriptors,
		Metrics:        collector,
		Logger:         logger,
	}
	if format != report.FormatText {
		opts.Owner = discover.OwnerLookup(table.Path)
	}

	logger.Debug("Pipeline ready", logging.Fields{
		"proc_path": table.Path,
		"targets":   cfg.Targets,
		"format":    string(format),
	})
	return transfer.New(opts), format, nil
}

// emit renders r on out. The nothing-running notice goes to errOut.
func emit(out, errOut io.Writer, r *transfer.Report, format report.Format) error {
	if r.Empty() {
		report.NotifyEmpty(errOut)
	}
	return report.Render(out, r, format)
}
