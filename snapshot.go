package tlsbench

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
)

// HeapSnapshotter records labeled point-in-time views of heap usage. The
// memory driver calls it between pair constructions so per-connection cost
// can be read off as the delta between consecutive snapshots.
type HeapSnapshotter interface {
	Snapshot(label string) error
}

// PprofHeapSnapshotter writes one pprof heap profile per snapshot into Dir,
// named after the label.
type PprofHeapSnapshotter struct {
	Dir string
}

func NewPprofHeapSnapshotter(dir string) (*PprofHeapSnapshotter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &PprofHeapSnapshotter{Dir: dir}, nil
}

func (s *PprofHeapSnapshotter) Snapshot(label string) error {
	f, err := os.Create(filepath.Join(s.Dir, label+".pb.gz"))
	if err != nil {
		return fmt.Errorf("create snapshot %q: %w", label, err)
	}
	// Collect before profiling so freed pairs don't show up as live.
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot %q: %w", label, err)
	}
	return f.Close()
}
