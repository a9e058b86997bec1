// Package proctest builds fake process tables on disk for tests.
//
// A Tree mirrors the parts of /proc that cv reads: <pid>/exe, <pid>/fd/<n>
// and <pid>/fdinfo/<n>. Descriptor links point at real files under a
// separate data directory so that stat on the target behaves as on Linux.
package proctest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
)

// Tree is a fake process table rooted at Root
type Tree struct {
	t    testing.TB
	Root string
	Data string
}

// New creates an empty table in a temporary directory
func New(t testing.TB) *Tree {
	t.Helper()
	base := t.TempDir()
	tr := &Tree{
		t:    t,
		Root: filepath.Join(base, "proc"),
		Data: filepath.Join(base, "data"),
	}
	tr.must(os.MkdirAll(tr.Root, 0755))
	tr.must(os.MkdirAll(tr.Data, 0755))
	return tr
}

func (tr *Tree) must(err error) {
	tr.t.Helper()
	if err != nil {
		tr.t.Fatalf("proctest: %v", err)
	}
}

// Proc is one fake process entry
type Proc struct {
	tree *Tree
	PID  int
	Dir  string
}

// Process adds a process whose exe link points at exe.
// An empty exe leaves the link out, like a kernel thread.
func (tr *Tree) Process(pid int, exe string) *Proc {
	tr.t.Helper()
	dir := filepath.Join(tr.Root, strconv.Itoa(pid))
	tr.must(os.MkdirAll(filepath.Join(dir, "fd"), 0755))
	tr.must(os.MkdirAll(filepath.Join(dir, "fdinfo"), 0755))
	if exe != "" {
		tr.must(os.Symlink(exe, filepath.Join(dir, "exe")))
	}
	return &Proc{tree: tr, PID: pid, Dir: dir}
}

// Entry adds a non-process entry such as "self" or "meminfo"
func (tr *Tree) Entry(name string) {
	tr.t.Helper()
	tr.must(os.WriteFile(filepath.Join(tr.Root, name), []byte{}, 0644))
}

// Remove deletes a process entry, as if it exited
func (tr *Tree) Remove(pid int) {
	tr.t.Helper()
	tr.must(os.RemoveAll(filepath.Join(tr.Root, strconv.Itoa(pid))))
}

// File creates a data file of the given size and returns its path
func (tr *Tree) File(name string, size int64) string {
	tr.t.Helper()
	path := filepath.Join(tr.Data, name)
	tr.must(os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	tr.must(err)
	tr.must(f.Truncate(size))
	tr.must(f.Close())
	return path
}

// Open adds descriptor fd backed by a new data file of size bytes at offset pos
func (p *Proc) Open(fd int, name string, size, pos int64) string {
	p.tree.t.Helper()
	path := p.tree.File(name, size)
	p.Link(fd, path)
	p.FDInfo(fd, fmt.Sprintf("pos:\t%d\nflags:\t0100002\nmnt_id:\t25\nino:\t1234\n", pos))
	return path
}

// Link adds descriptor fd pointing at target without creating anything else
func (p *Proc) Link(fd int, target string) {
	p.tree.t.Helper()
	p.tree.must(os.Symlink(target, filepath.Join(p.Dir, "fd", strconv.Itoa(fd))))
}

// FDInfo writes the fdinfo record for fd
func (p *Proc) FDInfo(fd int, contents string) {
	p.tree.t.Helper()
	p.tree.must(os.WriteFile(filepath.Join(p.Dir, "fdinfo", strconv.Itoa(fd)), []byte(contents), 0644))
}

// Pipe adds descriptor fd pointing at a named pipe
func (p *Proc) Pipe(fd int) {
	p.tree.t.Helper()
	path := filepath.Join(p.tree.Data, fmt.Sprintf("fifo-%d-%d", p.PID, fd))
	p.tree.must(syscall.Mkfifo(path, 0644))
	p.Link(fd, path)
	p.FDInfo(fd, "pos:\t0\nflags:\t00\n")
}

// Directory adds descriptor fd pointing at a directory
func (p *Proc) Directory(fd int) {
	p.tree.t.Helper()
	path := filepath.Join(p.tree.Data, fmt.Sprintf("dir-%d-%d", p.PID, fd))
	p.tree.must(os.MkdirAll(path, 0755))
	p.Link(fd, path)
	p.FDInfo(fd, "pos:\t0\nflags:\t0200000\n")
}

// Socket adds descriptor fd with a kernel-style socket link, which never resolves
func (p *Proc) Socket(fd int, inode int) {
	p.tree.t.Helper()
	p.Link(fd, fmt.Sprintf("socket:[%d]", inode))
}

// Close removes descriptor fd
func (p *Proc) Close(fd int) {
	p.tree.t.Helper()
	p.tree.must(os.Remove(filepath.Join(p.Dir, "fd", strconv.Itoa(fd))))
	_ = os.Remove(filepath.Join(p.Dir, "fdinfo", strconv.Itoa(fd)))
}
