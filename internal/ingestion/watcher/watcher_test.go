package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startWatcher(t *testing.T, root string) (<-chan []ingestion.Item, func()) {
	t.Helper()
	dir, err := source.NewDir(root, "**/*.txt", 1)
	require.NoError(t, err)

	batches := make(chan []ingestion.Item, 16)
	w := New(dir, 50*time.Millisecond, func(ctx context.Context, batch *source.Static) error {
		var items []ingestion.Item
		err := batch.Each(ctx, func(item ingestion.Item) error {
			items = append(items, item)
			return nil
		})
		batches <- items
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// fsnotify registration happens inside Run.
	time.Sleep(100 * time.Millisecond)
	return batches, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func nextBatch(t *testing.T, batches <-chan []ingestion.Item) []ingestion.Item {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("no batch received")
		return nil
	}
}

func TestWatcherUpsertAndDelete(t *testing.T) {
	root := t.TempDir()
	batches, stop := startWatcher(t, root)
	defer stop()

	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("prima"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("seconda versione"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.md"), []byte("x"), 0o644))

	items := nextBatch(t, batches)
	require.Len(t, items, 1, "repeated writes collapse into one upsert")
	assert.Equal(t, ingestion.Document{Filename: "a.txt", Content: "seconda versione"}, items[0].Document)
	assert.NoError(t, items[0].Err)

	require.NoError(t, os.Remove(path))
	items = nextBatch(t, batches)
	require.Len(t, items, 1)
	assert.Equal(t, ingestion.Document{Filename: "a.txt", Deleted: true}, items[0].Document)
}

func TestWatcherNewSubdirectory(t *testing.T) {
	root := t.TempDir()
	batches, stop := startWatcher(t, root)
	defer stop()

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.txt"), []byte("nuovo"), 0o644))

	items := nextBatch(t, batches)
	require.Len(t, items, 1)
	assert.Equal(t, "sub/b.txt", items[0].Filename)
	assert.Equal(t, "nuovo", items[0].Content)
}
