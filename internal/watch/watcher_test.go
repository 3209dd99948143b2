package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExcludedMatchesDoublestarPatterns(t *testing.T) {
	w := &Watcher{exclude: []string{"vendor/**", "**/*.log"}}

	assert.True(t, w.isExcluded("vendor/dep/dep.go"))
	assert.True(t, w.isExcluded("logs/today.log"))
	assert.False(t, w.isExcluded("internal/main.go"))
}

func TestNewWatchesRootAndSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor", "dep"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	w, err := New(root, []string{"vendor/**"}, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.txt"), []byte("hi"), 0o644))

	select {
	case <-w.Changed():
	case <-time.After(time.Second):
		t.Fatal("expected a change notification for a watched directory")
	}
}
