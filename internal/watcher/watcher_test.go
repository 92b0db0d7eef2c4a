package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/harvester/internal/fileset"
)

// Test Plan for Watcher:
// - New fails without a file set or with a missing root
// - a file change fires one callback after the debounce period
// - rapid changes are coalesced and deduplicated into one sorted batch
// - files outside the set and excluded directories are ignored
// - removals are reported as removed
// - files in directories created after Start are reported
// - Stop is idempotent and works without Start

const testDebounce = 100 * time.Millisecond

func newSet(t *testing.T, root string) *fileset.Discovery {
	t.Helper()
	d, err := fileset.NewDiscovery(root, "**.{js,lua}", []string{"node_modules/**"})
	require.NoError(t, err)
	return d
}

func startWatcher(t *testing.T, root string) <-chan []Change {
	t.Helper()
	w, err := New(Options{Set: newSet(t, root), Debounce: testDebounce})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ch := make(chan []Change, 10)
	require.NoError(t, w.Start(context.Background(), func(changes []Change) { ch <- changes }))

	// Let the watcher settle before producing events.
	time.Sleep(100 * time.Millisecond)
	return ch
}

func waitBatch(t *testing.T, ch <-chan []Change) []Change {
	t.Helper()
	select {
	case changes := <-ch:
		return changes
	case <-time.After(3 * time.Second):
		t.Fatal("callback not called after timeout")
		return nil
	}
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Set: newSet(t, filepath.Join(t.TempDir(), "missing"))})
	assert.Error(t, err)
}

func TestWatcher_SingleChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ch := startWatcher(t, root)

	write(t, root, "a.js", "tr.msg('a');")

	assert.Equal(t, []Change{{Path: "a.js"}}, waitBatch(t, ch))
}

func TestWatcher_CoalescesChanges(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ch := startWatcher(t, root)

	write(t, root, "b.lua", "x")
	time.Sleep(20 * time.Millisecond)
	write(t, root, "a.js", "x")
	time.Sleep(20 * time.Millisecond)
	write(t, root, "b.lua", "y")

	assert.Equal(t, []Change{{Path: "a.js"}, {Path: "b.lua"}}, waitBatch(t, ch))

	select {
	case extra := <-ch:
		t.Fatalf("unexpected second batch: %v", extra)
	case <-time.After(3 * testDebounce):
	}
}

func TestWatcher_IgnoresFilesOutsideSet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0755))
	ch := startWatcher(t, root)

	write(t, root, "notes.txt", "x")
	write(t, root, "node_modules/dep.js", "x")
	write(t, root, "c.js", "x")

	assert.Equal(t, []Change{{Path: "c.js"}}, waitBatch(t, ch))
}

func TestWatcher_Removal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write(t, root, "gone.lua", "x")
	ch := startWatcher(t, root)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.lua")))

	assert.Equal(t, []Change{{Path: "gone.lua", Removed: true}}, waitBatch(t, ch))
}

func TestWatcher_NewDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ch := startWatcher(t, root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0755))
	// Give the watcher time to add the new directory.
	time.Sleep(100 * time.Millisecond)
	write(t, root, "lib/d.js", "x")

	got := waitBatch(t, ch)
	assert.Contains(t, got, Change{Path: "lib/d.js"})
}

func TestWatcher_Stop(t *testing.T) {
	t.Parallel()

	w, err := New(Options{Set: newSet(t, t.TempDir())})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	w, err = New(Options{Set: newSet(t, t.TempDir())})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), func([]Change) {}))
	done := make(chan struct{})
	go func() {
		_ = w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
