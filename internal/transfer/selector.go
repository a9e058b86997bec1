// Package transfer picks the descriptor that most likely represents a
// process's in-flight copy and computes how far through it is.
package transfer

import (
	"github.com/psantana5/cv/internal/discover"
	"github.com/psantana5/cv/internal/fdscan"
)

// Selection is the outcome for one process
type Selection struct {
	Process discover.ProcessRecord
	// User owning the process, when it was resolved.
	User string
	// Active is false when no descriptor with a non-zero size was found;
	// the process is between transfers or still flushing.
	Active bool
	Info   fdscan.DescriptorInfo
	// Percent is 100*Position/Size. It is passed through as computed and
	// can exceed 100 when the file shrank or the offset moved past a stale size.
	Percent float64
	// Inspected is the number of descriptors that resolved.
	Inspected int
	// Truncated is set when the process had more descriptors than the capacity.
	Truncated bool
}

// Select returns the largest descriptor and its progress. On equal sizes the
// earliest one in infos wins. A zero-size file is never selected, so the
// division below always has a positive divisor.
func Select(infos []fdscan.DescriptorInfo) (fdscan.DescriptorInfo, float64, bool) {
	best := -1
	var maxSize int64
	for i, info := range infos {
		if info.Size > maxSize {
			best = i
			maxSize = info.Size
		}
	}
	if best < 0 {
		return fdscan.DescriptorInfo{}, 0, false
	}

	chosen := infos[best]
	return chosen, Percent(chosen.Position, chosen.Size), true
}

// Percent computes 100*pos/size without clamping; size must be > 0
func Percent(pos, size int64) float64 {
	return 100 * float64(pos) / float64(size)
}
