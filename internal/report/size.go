package report

import (
	"github.com/docker/go-units"
)

var binaryAbbrs = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatSize renders a byte count with binary units and one decimal, e.g. "1.2 GiB"
func FormatSize(bytes int64) string {
	return units.CustomSize("%.1f %s", float64(bytes), 1024.0, binaryAbbrs)
}
