package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

const (
	ManifestFile = "manifest.json"
	LockFile     = "write.lock"
)

// Manifest is the root of a committed index. Replacing it is the only way a
// commit becomes visible.
type Manifest struct {
	Generation  uint64        `json:"generation"`
	Session     string        `json:"session,omitempty"`
	CommittedAt time.Time     `json:"committed_at"`
	Language    string        `json:"language"`
	NextDocID   index.DocID   `json:"next_doc_id"`
	NextSegment uint64        `json:"next_segment"`
	Segments    []string      `json:"segments"`
	Deleted     []index.DocID `json:"deleted,omitempty"`
}

func readManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, dir)
		}
		return m, fmt.Errorf("reading manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: parsing manifest: %v", apperrors.ErrCorruptSegment, err)
	}
	return m, nil
}

// errDirNotSynced reports a manifest that already replaced the previous one
// but whose directory entry may not be durable yet. The new generation is
// visible once this is returned.
var errDirNotSynced = errors.New("index directory not synced")

// writeManifest replaces the manifest atomically: temp file, fsync, rename,
// then fsync of the directory so the rename itself is durable. Errors other
// than errDirNotSynced leave the previous manifest in place.
func writeManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	finalPath := filepath.Join(dir, ManifestFile)
	tmpPath := finalPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing manifest: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming manifest: %w", err)
	}
	if err := syncDir(dir); err != nil {
		return fmt.Errorf("%w: %v", errDirNotSynced, err)
	}
	return nil
}

var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening index directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("syncing index directory: %w", err)
	}
	return nil
}
