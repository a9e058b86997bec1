package fdscan

import (
	"os"
	"strconv"
	"strings"

	"github.com/psantana5/cv/internal/discover"
	"github.com/psantana5/cv/pkg/logging"
)

// DescriptorInfo is what a descriptor referred to at the instant it was read.
// Position is not guaranteed to be <= Size; a file can shrink between reads.
type DescriptorInfo struct {
	FD       int    `json:"fd" yaml:"fd"`
	Path     string `json:"path" yaml:"path"`
	Size     int64  `json:"size" yaml:"size"`
	Position int64  `json:"position" yaml:"position"`
	// PositionKnown is false when the offset record was missing or malformed
	// and Position fell back to 0.
	PositionKnown bool `json:"position_known" yaml:"position_known"`
}

// Inspector resolves a descriptor to its backing file, size and offset
type Inspector struct {
	table  *discover.Table
	logger *logging.Logger
}

// NewInspector creates an inspector
func NewInspector(table *discover.Table, logger *logging.Logger) *Inspector {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Inspector{table: table, logger: logger}
}

// Inspect resolves fd of pid. ok is false when the descriptor closed, was
// reused for something that is not a regular file, or its target is gone;
// the caller skips it. A missing offset is not a failure.
func (i *Inspector) Inspect(pid, fd int) (DescriptorInfo, bool) {
	log := i.logger.WithField("pid", pid).WithField("fd", fd)

	target, err := os.Readlink(i.table.PIDPath(pid, "fd", strconv.Itoa(fd)))
	if err != nil {
		log.Debug("readlink failed", logging.Fields{"error": err.Error()})
		return DescriptorInfo{}, false
	}

	stat, err := os.Stat(target)
	if err != nil {
		log.Debug("stat of backing file failed", logging.Fields{"path": target, "error": err.Error()})
		return DescriptorInfo{}, false
	}
	if !stat.Mode().IsRegular() {
		return DescriptorInfo{}, false
	}

	pos, known := i.position(pid, fd)
	if !known {
		log.Debug("No usable pos field, assuming offset 0", logging.Fields{"path": target})
	}

	return DescriptorInfo{
		FD:            fd,
		Path:          target,
		Size:          stat.Size(),
		Position:      pos,
		PositionKnown: known,
	}, true
}

// position reads the pos field of the descriptor's fdinfo record
func (i *Inspector) position(pid, fd int) (int64, bool) {
	proc, err := i.table.FS.Proc(pid)
	if err != nil {
		return 0, false
	}
	info, err := proc.FDInfo(strconv.Itoa(fd))
	if err != nil {
		return 0, false
	}
	return parsePosition(info.Pos)
}

// parsePosition converts an fdinfo pos value; an empty value means the key was absent
func parsePosition(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	pos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return pos, true
}
