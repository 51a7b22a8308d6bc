package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepkit/internal/catalog"
	"prepkit/internal/lint"
)

type relintResult struct {
	corpus *catalog.Corpus
	report *lint.Report
}

func newTestWatcher(t *testing.T, root string) (*Watcher, chan relintResult) {
	t.Helper()

	results := make(chan relintResult, 8)
	handler := func(c *catalog.Corpus, r *lint.Report) {
		results <- relintResult{corpus: c, report: r}
	}

	scanner := catalog.NewScanner(catalog.ScanConfig{Roots: []string{root}}, nil)
	runner := lint.NewRunner(nil, nil, nil)

	w, err := New([]string{root}, scanner, runner, handler, 50*time.Millisecond, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w, results
}

func waitRelint(t *testing.T, results chan relintResult) relintResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a relint")
		return relintResult{}
	}
}

func hasNote(c *catalog.Corpus, path string) bool {
	_, ok := c.ByPath[path]
	return ok
}

func TestWatcherRelintsOnWrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "JS-Prep.md"),
		[]byte("# JavaScript Prep\n"), 0o644))

	w, results := newTestWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "JS-Prep.md"),
		[]byte("# JavaScript Prep\n\n## Closures\n"), 0o644))

	got := waitRelint(t, results)
	require.NotNil(t, got.report)
	assert.True(t, hasNote(got.corpus, "JS-Prep.md"))

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Relints, 1)
	assert.GreaterOrEqual(t, stats.Created+stats.Modified, 1)
	assert.Equal(t, "JS-Prep.md", filepath.Base(stats.LastEventPath))
}

func TestWatcherSeesNewNote(t *testing.T) {
	root := t.TempDir()
	_, results := newTestWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "TS-Prep.md"),
		[]byte("# TypeScript Prep\n"), 0o644))

	got := waitRelint(t, results)
	assert.True(t, hasNote(got.corpus, "TS-Prep.md"))
}

func TestWatcherSeesRemovedNote(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "JS-Prep.md")
	require.NoError(t, os.WriteFile(path, []byte("# JavaScript Prep\n"), 0o644))

	w, results := newTestWatcher(t, root)

	require.NoError(t, os.Remove(path))

	got := waitRelint(t, results)
	assert.False(t, hasNote(got.corpus, "JS-Prep.md"))
	assert.GreaterOrEqual(t, w.Stats().Removed, 1)
}

func TestWatcherWatchesNewSubdirectory(t *testing.T) {
	root := t.TempDir()
	_, results := newTestWatcher(t, root)

	sub := filepath.Join(root, "guides")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the new directory a moment to be registered.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "CSS-Prep.md"),
		[]byte("# CSS Prep\n"), 0o644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-results:
			if hasNote(got.corpus, "guides/CSS-Prep.md") {
				return
			}
		case <-deadline:
			t.Fatal("note in new subdirectory never showed up in a relint")
		}
	}
}

func TestWatcherIgnoresNonMarkdown(t *testing.T) {
	root := t.TempDir()
	w, results := newTestWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"),
		[]byte("not a note"), 0o644))

	select {
	case <-results:
		t.Fatal("non-markdown file should not trigger a relint")
	case <-time.After(400 * time.Millisecond):
	}
	assert.Zero(t, w.Stats().Relints)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, _ := newTestWatcher(t, root)

	assert.True(t, w.Running())
	w.Stop()
	assert.False(t, w.Running())
	w.Stop()
}

func TestWatcherManualRelint(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "JS-Prep.md"),
		[]byte("# JavaScript Prep\n"), 0o644))

	w, results := newTestWatcher(t, root)

	w.Relint(context.Background())
	got := waitRelint(t, results)
	assert.True(t, hasNote(got.corpus, "JS-Prep.md"))
	assert.GreaterOrEqual(t, w.Stats().Relints, 1)
}
