package discover

import (
	"context"

	"github.com/shirou/gopsutil/v3/common"
	"github.com/shirou/gopsutil/v3/process"
)

// OwnerFunc resolves the user owning pid; "" when unknown
type OwnerFunc func(ctx context.Context, pid int) string

// OwnerLookup returns an OwnerFunc reading process ownership from the table
// at root. Lookups are best-effort.
func OwnerLookup(root string) OwnerFunc {
	return func(ctx context.Context, pid int) string {
		ctx = context.WithValue(ctx, common.EnvKey, common.EnvMap{common.HostProcEnvKey: root})

		p, err := process.NewProcessWithContext(ctx, int32(pid))
		if err != nil {
			return ""
		}
		name, err := p.UsernameWithContext(ctx)
		if err != nil {
			return ""
		}
		return name
	}
}
