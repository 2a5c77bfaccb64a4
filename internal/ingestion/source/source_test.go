package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/kafka"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func collect(t *testing.T, src ingestion.Source) []ingestion.Item {
	t.Helper()
	var items []ingestion.Item
	require.NoError(t, src.Each(context.Background(), func(item ingestion.Item) error {
		items = append(items, item)
		return nil
	}))
	return items
}

func TestDirOrderAndFiltering(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"notes.md":        "skip",
		"sub/deep.txt":    "deep",
		"sub/skip.md":     "skip",
		"sub/inner/z.txt": "zeta",
	}
	for i := 0; i < 25; i++ {
		files[fmt.Sprintf("doc%02d.txt", i)] = fmt.Sprintf("contenuto %d", i)
	}
	writeFiles(t, root, files)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.txt"), 0o755))

	src, err := NewDir(root, "", 3)
	require.NoError(t, err)
	items := collect(t, src)
	require.Len(t, items, 25)
	for i, item := range items {
		assert.Equal(t, fmt.Sprintf("doc%02d.txt", i), item.Filename)
		assert.Equal(t, fmt.Sprintf("contenuto %d", i), item.Content)
		assert.NoError(t, item.Err)
	}

	recursive, err := NewDir(root, "**/*.txt", 2)
	require.NoError(t, err)
	var names []string
	for _, item := range collect(t, recursive) {
		names = append(names, item.Filename)
	}
	assert.Len(t, names, 27)
	assert.Equal(t, "sub/deep.txt", names[25])
	assert.Equal(t, "sub/inner/z.txt", names[26])
	assert.True(t, recursive.Matches("sub/inner/z.txt"))
	assert.False(t, recursive.Matches("sub/skip.md"))
}

func TestDirInvalidUTF8(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.txt": "buono",
		"b.txt": "\xff\xfe rotto",
		"c.txt": "ancora buono",
	})
	src, err := NewDir(root, "*.txt", 2)
	require.NoError(t, err)

	items := collect(t, src)
	require.Len(t, items, 3)
	assert.NoError(t, items[0].Err)
	assert.Error(t, items[1].Err)
	assert.Equal(t, "b.txt", items[1].Filename)
	assert.NoError(t, items[2].Err)
	assert.Equal(t, "ancora buono", items[2].Content)
}

func TestDirErrors(t *testing.T) {
	_, err := NewDir(filepath.Join(t.TempDir(), "missing"), "*.txt", 1)
	assert.Error(t, err)

	_, err = NewDir(t.TempDir(), "[", 1)
	assert.Error(t, err)
}

func TestDirStopsOnCallbackError(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
	src, err := NewDir(root, "*.txt", 4)
	require.NoError(t, err)

	stop := errors.New("stop")
	seen := 0
	err = src.Each(context.Background(), func(ingestion.Item) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, seen)
}

func TestDirCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a"})
	src, err := NewDir(root, "*.txt", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = src.Each(ctx, func(ingestion.Item) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatic(t *testing.T) {
	want := []ingestion.Item{
		{Document: ingestion.Document{Filename: "a.txt", Content: "uno"}},
		{Document: ingestion.Document{Filename: "b.txt", Deleted: true}},
	}
	src := NewStatic("watch", want...)
	assert.Equal(t, "watch", src.Name())
	assert.Equal(t, 2, src.Len())
	if diff := cmp.Diff(want, collect(t, src)); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

type fakeConsumer struct {
	messages  [][2][]byte
	committed int
}

func (f *fakeConsumer) Drain(ctx context.Context, _ time.Duration, handler kafka.MessageHandler) error {
	for _, m := range f.messages {
		if err := handler(ctx, m[0], m[1]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeConsumer) Commit(context.Context) error {
	f.committed++
	return nil
}

func TestKafka(t *testing.T) {
	upsert, err := json.Marshal(ingestion.Document{Filename: "a.txt", Content: "ciao"})
	require.NoError(t, err)
	consumer := &fakeConsumer{messages: [][2][]byte{
		{[]byte("a.txt"), upsert},
		{[]byte("b.txt"), []byte(`{"deleted": true}`)},
		{[]byte("c.txt"), []byte(`not json`)},
	}}
	src := NewKafka(consumer, time.Second)

	items := collect(t, src)
	require.Len(t, items, 3)
	assert.Equal(t, ingestion.Document{Filename: "a.txt", Content: "ciao"}, items[0].Document)
	assert.Equal(t, ingestion.Document{Filename: "b.txt", Deleted: true}, items[1].Document)
	assert.Equal(t, "c.txt", items[2].Filename)
	assert.Error(t, items[2].Err)

	var ack ingestion.Acknowledger = src
	require.NoError(t, ack.Ack(context.Background()))
	assert.Equal(t, 1, consumer.committed)
}
