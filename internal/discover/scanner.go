package discover

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/prometheus/procfs"
	"github.com/psantana5/cv/pkg/logging"
)

// ProcessRecord is a running process whose executable matched the watch-list.
// It is only meaningful for the pass that produced it; pids are reused.
type ProcessRecord struct {
	PID         int    `json:"pid" yaml:"pid"`
	WatchedName string `json:"command" yaml:"command"`
}

// ScanResult holds the matches of one scan
type ScanResult struct {
	Processes []ProcessRecord
	// Truncated is set when more processes matched than the scanner's capacity.
	Truncated bool
}

// Scanner lists running processes whose executable matches a Matcher
type Scanner struct {
	table        *Table
	matcher      Matcher
	maxProcesses int
	ownPID       int
	logger       *logging.Logger
}

// NewScanner creates a process scanner bounded to maxProcesses results
func NewScanner(table *Table, matcher Matcher, maxProcesses int, logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scanner{
		table:        table,
		matcher:      matcher,
		maxProcesses: maxProcesses,
		ownPID:       selfPID(table),
		logger:       logger,
	}
}

// selfPID is our own pid when table is the live host table, 0 otherwise
func selfPID(table *Table) int {
	if table.Path != procfs.DefaultMountPoint {
		return 0
	}
	return os.Getpid()
}

type match struct {
	record ProcessRecord
	rank   int
}

// Scan discovers matching processes.
// Results are grouped by watch-list position, then by pid. Only a failure to
// list the table itself is returned as an error.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	procs, err := s.table.FS.AllProcs()
	if err != nil {
		return nil, &ScanError{
			Scope: ScopeFatal,
			Op:    "list",
			Path:  s.table.Path,
			Err:   fmt.Errorf("%w: %v", ErrProcTableUnavailable, err),
		}
	}

	var matches []match
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.PID == s.ownPID {
			continue
		}

		// Unreadable links are mostly EACCES on other users' processes,
		// or kernel threads with no image at all.
		exe, err := p.Executable()
		if err != nil || exe == "" {
			continue
		}

		name, rank, ok := s.matcher.Match(exe)
		if !ok {
			continue
		}
		matches = append(matches, match{
			record: ProcessRecord{PID: p.PID, WatchedName: name},
			rank:   rank,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].record.PID < matches[j].record.PID
	})

	result := &ScanResult{}
	for _, m := range matches {
		if len(result.Processes) == s.maxProcesses {
			result.Truncated = true
			break
		}
		result.Processes = append(result.Processes, m.record)
	}

	s.logger.Debug("Process scan complete", logging.Fields{
		"candidates": len(procs),
		"matched":    len(matches),
		"kept":       len(result.Processes),
	})

	return result, nil
}

// MaxProcesses returns the scanner's capacity
func (s *Scanner) MaxProcesses() int {
	return s.maxProcesses
}
