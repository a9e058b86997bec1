package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/psantana5/cv/internal/discover"
	"github.com/psantana5/cv/internal/fdscan"
	"github.com/psantana5/cv/internal/metrics"
	"github.com/psantana5/cv/pkg/logging"
)

// Report is the result of one pass
type Report struct {
	Processes []Selection
	// Truncated is set when matching processes were dropped for capacity.
	Truncated bool
	Warnings  []string
	Duration  time.Duration
}

// Empty reports whether no process matched
func (r *Report) Empty() bool {
	return len(r.Processes) == 0
}

func (r *Report) warn(logger *logging.Logger, msg string, fields logging.Fields) {
	r.Warnings = append(r.Warnings, msg)
	logger.Warn(msg, fields)
}

// Options configures a Pipeline
type Options struct {
	Table          *discover.Table
	Matcher        discover.Matcher
	MaxProcesses   int
	MaxDescriptors int
	// Owner, when set, resolves the user of each reported process.
	Owner   discover.OwnerFunc
	Metrics *metrics.Collector
	Logger  *logging.Logger
}

// Pipeline runs full inspection passes
type Pipeline struct {
	scanner    *discover.Scanner
	enumerator *fdscan.Enumerator
	inspector  *fdscan.Inspector
	owner      discover.OwnerFunc
	metrics    *metrics.Collector
	logger     *logging.Logger
}

// New wires the pipeline components over one process table
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pipeline{
		scanner:    discover.NewScanner(opts.Table, opts.Matcher, opts.MaxProcesses, logger),
		enumerator: fdscan.NewEnumerator(opts.Table, opts.MaxDescriptors, logger),
		inspector:  fdscan.NewInspector(opts.Table, logger),
		owner:      opts.Owner,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// Run performs one pass. Processes are inspected one after another; the
// context is checked before each, and on cancellation the selections made so
// far are returned together with the context error. The report is nil only
// when the scan itself failed or was cancelled.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	p.metrics.BeginPass()

	scan, err := p.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Processes: make([]Selection, 0, len(scan.Processes))}
	if scan.Truncated {
		report.Truncated = true
		report.warn(p.logger, fmt.Sprintf("Found too many processes (max = %d)", p.scanner.MaxProcesses()), nil)
		p.metrics.Truncated("processes")
	}

	for _, proc := range scan.Processes {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		report.Processes = append(report.Processes, p.inspectProcess(ctx, proc, report))
	}

	report.Duration = time.Since(start)
	p.metrics.EndPass(report.Duration, len(report.Processes))
	return report, nil
}

func (p *Pipeline) inspectProcess(ctx context.Context, proc discover.ProcessRecord, report *Report) Selection {
	log := p.logger.WithField("pid", proc.PID).WithField("command", proc.WatchedName)

	listing := p.enumerator.List(proc.PID)
	if listing.Vanished {
		p.metrics.Skipped(discover.ScopeProcess.String(), 1)
	}
	if listing.Truncated {
		report.warn(log, fmt.Sprintf("Process %d has too many open files, only the first %d were inspected", proc.PID, len(listing.FDs)), nil)
		p.metrics.Truncated("descriptors")
	}

	infos := make([]fdscan.DescriptorInfo, 0, len(listing.FDs))
	for _, fd := range listing.FDs {
		info, ok := p.inspector.Inspect(proc.PID, fd)
		if !ok {
			continue
		}
		p.metrics.Inspected()
		infos = append(infos, info)
	}
	p.metrics.Skipped(discover.ScopeDescriptor.String(), listing.Skipped+len(listing.FDs)-len(infos))

	sel := Selection{
		Process:   proc,
		Inspected: len(infos),
		Truncated: listing.Truncated,
	}
	if info, percent, ok := Select(infos); ok {
		sel.Active = true
		sel.Info = info
		sel.Percent = percent
		p.metrics.Progress(proc.PID, proc.WatchedName, info.Path, percent)
	}
	if p.owner != nil {
		sel.User = p.owner(ctx, proc.PID)
	}

	log.Debug("Process inspected", logging.Fields{
		"descriptors": len(listing.FDs),
		"inspected":   len(infos),
		"active":      sel.Active,
	})
	return sel
}
