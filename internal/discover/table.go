package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/procfs"
)

// DefaultProcPath returns the process table root, honouring HOST_PROC
// the same way gopsutil and procfs-based agents do.
func DefaultProcPath() string {
	if p, ok := os.LookupEnv("HOST_PROC"); ok && p != "" {
		return p
	}
	return procfs.DefaultMountPoint
}

// Table is an opened process table root.
type Table struct {
	Path string
	FS   procfs.FS
}

// OpenTable opens the process table at path. Failure here is fatal for a pass.
func OpenTable(path string) (*Table, error) {
	fs, err := procfs.NewFS(path)
	if err != nil {
		return nil, &ScanError{
			Scope: ScopeFatal,
			Op:    "open",
			Path:  path,
			Err:   fmt.Errorf("%w: %v", ErrProcTableUnavailable, err),
		}
	}
	return &Table{Path: path, FS: fs}, nil
}

// PIDPath joins elems under the table entry for pid
func (t *Table) PIDPath(pid int, elems ...string) string {
	parts := append([]string{t.Path, strconv.Itoa(pid)}, elems...)
	return filepath.Join(parts...)
}
