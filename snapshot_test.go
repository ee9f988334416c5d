package tlsbench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPprofHeapSnapshotter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	snap, err := NewPprofHeapSnapshotter(dir)
	require.NoError(t, err)

	require.NoError(t, snap.Snapshot("0"))
	require.NoError(t, snap.Snapshot("warmup"))

	for _, label := range []string{"0", "warmup"} {
		info, err := os.Stat(filepath.Join(dir, label+".pb.gz"))
		require.NoError(t, err)
		require.NotZero(t, info.Size())
	}
}
