// Package fdscan lists and inspects the open file descriptors of a process.
//
// Everything here reads a live table that can change between any two calls:
// descriptors close, get reused, or the whole process exits. Those races are
// absorbed by skipping the affected item; nothing in this package returns an
// error for them.
package fdscan

import (
	"os"
	"sort"
	"strconv"

	"github.com/psantana5/cv/internal/discover"
	"github.com/psantana5/cv/pkg/logging"
)

// ListResult holds the regular-file descriptors of one process
type ListResult struct {
	FDs []int
	// Truncated is set when more descriptors qualified than the capacity allows.
	Truncated bool
	// Vanished is set when the process or its descriptor table was gone.
	Vanished bool
	// Skipped counts descriptors dropped because they closed or their
	// target could not be resolved.
	Skipped int
}

// Enumerator lists descriptors that point at regular files
type Enumerator struct {
	table          *discover.Table
	maxDescriptors int
	logger         *logging.Logger
}

// NewEnumerator creates an enumerator bounded to maxDescriptors per process
func NewEnumerator(table *discover.Table, maxDescriptors int, logger *logging.Logger) *Enumerator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Enumerator{
		table:          table,
		maxDescriptors: maxDescriptors,
		logger:         logger,
	}
}

// List returns the descriptors of pid whose target is a regular file with a
// resolvable, existing target, in ascending descriptor order. A process that
// vanished or cannot be read yields an empty result with Vanished set.
func (e *Enumerator) List(pid int) ListResult {
	log := e.logger.WithField("pid", pid)

	proc, err := e.table.FS.Proc(pid)
	if err != nil {
		log.Debug("Process vanished before descriptor listing", logging.Fields{"error": err.Error()})
		return ListResult{Vanished: true}
	}

	fds, err := proc.FileDescriptors()
	if err != nil {
		log.Debug("Cannot open descriptor table", logging.Fields{"error": err.Error()})
		return ListResult{Vanished: true}
	}
	sort.Slice(fds, func(i, j int) bool { return fds[i] < fds[j] })

	var result ListResult
	for _, raw := range fds {
		fd := int(raw)
		regular, resolved := e.classify(pid, fd, log)
		if !resolved {
			result.Skipped++
			continue
		}
		if !regular {
			continue
		}
		if len(result.FDs) == e.maxDescriptors {
			result.Truncated = true
			break
		}
		result.FDs = append(result.FDs, fd)
	}
	return result
}

// classify checks that the descriptor's target is a regular file that still
// exists. resolved is false when the descriptor closed or its target is
// dangling; the kernel keeps the fd link of a deleted file statable, so the
// readlink result is stat'ed as well.
func (e *Enumerator) classify(pid, fd int, log *logging.Logger) (regular, resolved bool) {
	link := e.table.PIDPath(pid, "fd", strconv.Itoa(fd))

	stat, err := os.Stat(link)
	if err != nil {
		log.Debug("stat failed", logging.Fields{"fd": fd, "error": err.Error()})
		return false, false
	}
	if !stat.Mode().IsRegular() {
		return false, true
	}

	target, err := os.Readlink(link)
	if err != nil {
		log.Debug("readlink failed", logging.Fields{"fd": fd, "error": err.Error()})
		return false, false
	}
	if _, err := os.Stat(target); err != nil {
		log.Debug("target is dangling", logging.Fields{"fd": fd, "path": target, "error": err.Error()})
		return false, false
	}
	return true, true
}
