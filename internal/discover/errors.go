package discover

import (
	"errors"
	"fmt"
)

var (
	// ErrProcTableUnavailable means the process table root could not be opened or listed.
	ErrProcTableUnavailable = errors.New("process table unavailable")

	// ErrInvalidConfig is returned by Config.Validate
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Scope says how far a failure reaches
type Scope int

const (
	// ScopeFatal aborts the whole run
	ScopeFatal Scope = iota
	// ScopeProcess skips one process
	ScopeProcess
	// ScopeDescriptor skips one descriptor
	ScopeDescriptor
	// ScopeCapacity truncates a result and warns
	ScopeCapacity
)

// String returns the label used in logs and metrics
func (s Scope) String() string {
	switch s {
	case ScopeFatal:
		return "fatal"
	case ScopeProcess:
		return "process"
	case ScopeDescriptor:
		return "descriptor"
	case ScopeCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// ScanError wraps a failure with the operation and path involved
type ScanError struct {
	Scope Scope
	Op    string // "open", "list"
	Path  string
	PID   int
	Err   error
}

// Error implements error interface
func (e *ScanError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("%s %s (pid %d): %v", e.Op, e.Path, e.PID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping
func (e *ScanError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the run
func IsFatal(err error) bool {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Scope == ScopeFatal
	}
	return errors.Is(err, ErrProcTableUnavailable)
}
