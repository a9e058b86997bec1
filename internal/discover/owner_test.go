package discover

import (
	"context"
	"os"
	"os/user"
	"strconv"
	"testing"

	"github.com/psantana5/cv/internal/proctest"
)

func TestOwnerLookupUsesTableRoot(t *testing.T) {
	// The pid is live on the host, but the fake table has no status record
	// for it, so a lookup that honours the root finds nothing.
	tree := proctest.New(t)
	pid := os.Getpid()
	tree.Process(pid, "/bin/cp")

	if got := OwnerLookup(tree.Root)(context.Background(), pid); got != "" {
		t.Errorf("owner = %q, expected empty for a table without status records", got)
	}
}

func TestOwnerLookupLiveTable(t *testing.T) {
	if _, err := os.Stat("/proc/self/status"); err != nil {
		t.Skip("no live /proc")
	}

	want := strconv.Itoa(os.Getuid())
	if u, err := user.Current(); err == nil {
		want = u.Username
	}

	if got := OwnerLookup("/proc")(context.Background(), os.Getpid()); got != want {
		t.Errorf("owner = %q, expected %q", got, want)
	}
}
