// Package store owns the on-disk index: a directory holding immutable
// segment files, the manifest naming the committed segments, and the writer
// lock. Readers work on immutable snapshots; a single writer publishes new
// generations by atomically replacing the manifest.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/analyzer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

// maxReloads bounds how many newer manifests a reader follows while
// concurrent merging commits remove the segments it was about to open.
const maxReloads = 10

// openSegment is swapped in tests to inject read failures.
var openSegment = segment.OpenReader

type Store struct {
	dir     string
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	refs    map[string]*segmentRef
	writer  *segment.Writer
	locked  bool
	// stale is set when a published generation could not be loaded; the
	// next commit reloads the manifest before building on it.
	stale  bool
	closed atomic.Bool
	logger *slog.Logger
}

// Exists reports whether dir holds a committed index.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ManifestFile))
	return err == nil
}

// Open loads the committed index in dir. It fails with ErrIndexNotFound when
// no index has been created yet.
func Open(dir string) (*Store, error) {
	m, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{
		dir:    dir,
		refs:   make(map[string]*segmentRef),
		writer: segment.NewWriter(dir),
		logger: slog.Default().With("component", "store", "dir", dir),
	}
	snap, err := s.loadCurrent(m)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	s.logger.Debug("index opened",
		"generation", snap.Generation(),
		"segments", len(snap.manifest.Segments),
		"live_docs", snap.LiveDocs(),
	)
	return s, nil
}

// Create initialises an empty index in dir bound to lang.
func Create(dir string, lang analyzer.Language) (*Store, error) {
	if Exists(dir) {
		return nil, fmt.Errorf("index already exists in %s", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	m := Manifest{
		CommittedAt: time.Now().UTC(),
		Language:    string(lang),
		NextDocID:   1,
		NextSegment: 1,
		Segments:    []string{},
	}
	if err := writeManifest(dir, m); err != nil {
		if !errors.Is(err, errDirNotSynced) {
			return nil, err
		}
		slog.Warn("index created but directory sync failed", "dir", dir, "error", err)
	}
	return Open(dir)
}

// OpenOrCreate opens the index in dir, creating it on first run. An existing
// index analyzed with a different language is rejected.
func OpenOrCreate(dir string, lang analyzer.Language) (*Store, error) {
	if !Exists(dir) {
		return Create(dir, lang)
	}
	s, err := Open(dir)
	if err != nil {
		return nil, err
	}
	if existing := s.Language(); existing != lang {
		s.Close()
		return nil, fmt.Errorf("%w: index %s was built with %q, configured %q",
			apperrors.ErrAnalyzerMismatch, dir, existing, lang)
	}
	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Language is the content analyzer language recorded in the manifest.
func (s *Store) Language() analyzer.Language {
	snap := s.current.Load()
	lang, err := analyzer.ParseLanguage(snap.Language())
	if err != nil {
		return analyzer.Italian
	}
	return lang
}

// load opens the segments named by m, reusing readers already open, and
// returns a snapshot over them. Must be called with s.mu held or before the
// store is shared.
func (s *Store) load(m Manifest) (*Snapshot, error) {
	refs := make([]*segmentRef, 0, len(m.Segments))
	var opened []*segmentRef
	for _, name := range m.Segments {
		ref, ok := s.refs[name]
		if !ok || ref.refs.Load() <= 0 {
			r, err := openSegment(filepath.Join(s.dir, name))
			if err != nil {
				for _, o := range opened {
					o.reader.Close()
				}
				return nil, fmt.Errorf("opening segment %s: %w", name, err)
			}
			ref = &segmentRef{reader: r}
			opened = append(opened, ref)
		}
		refs = append(refs, ref)
	}
	snap := newSnapshot(m, refs)
	s.refs = make(map[string]*segmentRef, len(refs))
	for _, ref := range refs {
		s.refs[ref.reader.Name()] = ref
	}
	return snap, nil
}

// loadCurrent loads m. A merging commit in another process may remove the
// segments of m after it was read; while the manifest on disk has moved on,
// the newer one is loaded instead.
func (s *Store) loadCurrent(m Manifest) (*Snapshot, error) {
	for attempt := 1; ; attempt++ {
		snap, err := s.load(m)
		if err == nil || !errors.Is(err, fs.ErrNotExist) || attempt == maxReloads {
			return snap, err
		}
		latest, rerr := readManifest(s.dir)
		if rerr != nil {
			return nil, rerr
		}
		if latest.Generation == m.Generation {
			return nil, err
		}
		s.logger.Debug("segment removed by a newer commit, reloading",
			"generation", m.Generation,
			"latest", latest.Generation,
		)
		m = latest
	}
}

// reload replaces the current snapshot with the manifest on disk. Must be
// called with s.mu held.
func (s *Store) reload() error {
	m, err := readManifest(s.dir)
	if err != nil {
		return err
	}
	snap, err := s.loadCurrent(m)
	if err != nil {
		return err
	}
	s.swap(snap)
	return nil
}

// Snapshot returns the latest committed view. The caller must Release it.
func (s *Store) Snapshot() (*Snapshot, error) {
	for {
		if s.closed.Load() {
			return nil, apperrors.ErrClosed
		}
		snap := s.current.Load()
		if snap.tryIncRef() {
			return snap, nil
		}
	}
}

// swap publishes snap and drops the store's reference to the previous one.
func (s *Store) swap(snap *Snapshot) {
	s.stale = false
	old := s.current.Swap(snap)
	if old != nil {
		old.Release()
	}
}

// Refresh picks up a generation committed by another process. It reports
// whether the view changed.
func (s *Store) Refresh() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false, apperrors.ErrClosed
	}
	m, err := readManifest(s.dir)
	if err != nil {
		return false, err
	}
	if m.Generation == s.current.Load().Generation() && !s.stale {
		return false, nil
	}
	snap, err := s.loadCurrent(m)
	if err != nil {
		return false, err
	}
	s.swap(snap)
	s.logger.Info("index refreshed", "generation", snap.Generation())
	return true, nil
}

// AcquireWriter takes the exclusive writer lock, catches up with the latest
// commit and removes files left behind by an interrupted writer.
func (s *Store) AcquireWriter() error {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return fmt.Errorf("%w: already held by this process", apperrors.ErrWriterLocked)
	}
	lockPath := filepath.Join(s.dir, LockFile)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s exists; remove it if no other build is running",
				apperrors.ErrWriterLocked, lockPath)
		}
		return fmt.Errorf("creating writer lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	s.locked = true
	s.mu.Unlock()

	if _, err := s.Refresh(); err != nil {
		s.ReleaseWriter()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanup()
}

// ReleaseWriter drops the writer lock.
func (s *Store) ReleaseWriter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		return nil
	}
	s.locked = false
	if err := os.Remove(filepath.Join(s.dir, LockFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing writer lock: %w", err)
	}
	return nil
}

// cleanup removes temp files and segments the manifest does not reference.
// Must be called with s.mu held by the lock owner.
func (s *Store) cleanup() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading index directory: %w", err)
	}
	live := make(map[string]bool)
	for _, name := range s.current.Load().manifest.Segments {
		live[name] = true
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		stale := strings.HasSuffix(name, ".tmp") ||
			(strings.HasSuffix(name, segment.Extension) && !live[name])
		if !stale {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("removing stale file %s: %w", name, err)
		}
		s.logger.Info("removed stale index file", "file", name)
	}
	return nil
}

// Close releases the writer lock, if held, and the current snapshot. Readers
// still holding snapshots keep working until they release them.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.ReleaseWriter()
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap := s.current.Load(); snap != nil {
		snap.Release()
	}
	return err
}

// NextDocID returns the first id a writer may assign.
func (s *Store) NextDocID() index.DocID {
	return s.current.Load().manifest.NextDocID
}
