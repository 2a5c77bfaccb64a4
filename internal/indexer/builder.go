// Package indexer builds and updates the persistent index. A Builder holds
// the writer lock for the duration of a build session, buffers upserts and
// deletions in memory and publishes them with Commit.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/analyzer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/metrics"
)

// CacheInvalidator drops cached query results after a commit.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Options struct {
	MaxSegmentsBeforeMerge int
	MaxDocumentSize        int
	Metrics                *metrics.Metrics
	Cache                  CacheInvalidator
}

type Builder struct {
	mu          sync.Mutex
	store       *store.Store
	analyzer    *analyzer.PerField
	memIndex    *index.MemoryIndex
	pendingKeys map[string]index.DocID
	tombstones  map[index.DocID]struct{}
	nextID      index.DocID
	session     string
	opts        Options
	logger      *slog.Logger
	closed      bool
}

// NewBuilder takes the writer lock of s and starts a build session. The
// content analyzer language is the one recorded in the index.
func NewBuilder(s *store.Store, opts Options) (*Builder, error) {
	if err := s.AcquireWriter(); err != nil {
		return nil, err
	}
	a := analyzer.NewPerField(s.Language())
	session := uuid.NewString()
	b := &Builder{
		store:       s,
		analyzer:    a,
		memIndex:    index.NewMemoryIndex(a),
		pendingKeys: make(map[string]index.DocID),
		tombstones:  make(map[index.DocID]struct{}),
		nextID:      s.NextDocID(),
		session:     session,
		opts:        opts,
		logger:      slog.Default().With("component", "builder", "session", session),
	}
	b.logger.Info("build session started", "index", s.Dir(), "language", a.Language())
	return b, nil
}

func (b *Builder) Session() string {
	return b.session
}

// Upsert adds doc, replacing any document with the same filename in the
// pending session or the committed index.
func (b *Builder) Upsert(doc ingestion.Document) error {
	if err := validator.ValidateDocument(doc, b.opts.MaxDocumentSize); err != nil {
		return fmt.Errorf("document %q: %w", doc.Filename, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return apperrors.ErrClosed
	}
	replaced, err := b.removeLocked(doc.Filename)
	if err != nil {
		return err
	}

	id := b.nextID
	b.nextID++
	stored := b.memIndex.AddDocument(id, []index.Field{
		{Name: analyzer.FieldFilename, Value: doc.Filename},
		{Name: analyzer.FieldContent, Value: doc.Content},
	})
	b.pendingKeys[doc.Filename] = id
	b.opts.Metrics.DocIndexed()
	b.logger.Debug("document indexed in memory",
		"filename", doc.Filename,
		"doc_id", id,
		"replaced", replaced,
		"token_count", stored.FieldLengths[analyzer.FieldContent],
		"mem_size", b.memIndex.Size(),
	)
	return nil
}

// Delete removes the document stored under filename. It reports whether a
// document was found.
func (b *Builder) Delete(filename string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, apperrors.ErrClosed
	}
	removed, err := b.removeLocked(filename)
	if err != nil {
		return false, err
	}
	if removed {
		b.opts.Metrics.DocDeleted()
		b.logger.Debug("document deleted", "filename", filename)
	}
	return removed, nil
}

func (b *Builder) removeLocked(filename string) (bool, error) {
	removed := false
	if id, ok := b.pendingKeys[filename]; ok {
		b.memIndex.RemoveDocument(id)
		delete(b.pendingKeys, filename)
		removed = true
	}
	snap, err := b.store.Snapshot()
	if err != nil {
		return false, err
	}
	defer snap.Release()
	if id, ok := snap.KeyID(filename); ok {
		if _, gone := b.tombstones[id]; !gone {
			b.tombstones[id] = struct{}{}
			removed = true
		}
	}
	return removed, nil
}

// Pending reports the number of buffered upserts and deletions.
func (b *Builder) Pending() (docs int, deletes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.memIndex.DocCount(), len(b.tombstones)
}

// Commit publishes the pending session as a new generation. On failure the
// previous generation stays visible and the pending changes are kept so the
// caller may retry, unless the returned info reports them Published.
func (b *Builder) Commit(ctx context.Context) (store.CommitInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return store.CommitInfo{}, apperrors.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return store.CommitInfo{}, fmt.Errorf("commit skipped: %w", err)
	}
	if b.memIndex.DocCount() == 0 && len(b.tombstones) == 0 {
		snap, err := b.store.Snapshot()
		if err != nil {
			return store.CommitInfo{}, err
		}
		defer snap.Release()
		b.logger.Debug("nothing to commit")
		return store.CommitInfo{
			Generation: snap.Generation(),
			Segments:   len(snap.Segments()),
			LiveDocs:   snap.LiveDocs(),
		}, nil
	}

	deleted := make([]index.DocID, 0, len(b.tombstones))
	for id := range b.tombstones {
		deleted = append(deleted, id)
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i] < deleted[j] })

	start := time.Now()
	info, err := b.store.Commit(store.Changes{
		Session:     b.session,
		Entries:     b.memIndex.Snapshot(),
		Docs:        b.memIndex.Documents(),
		Deleted:     deleted,
		NextDocID:   b.nextID,
		MaxSegments: b.opts.MaxSegmentsBeforeMerge,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		b.opts.Metrics.Commit("failure", elapsed, 0, 0)
		if info.Published {
			// Durable on disk: committing the same changes again would
			// duplicate their document ids.
			b.logger.Error("commit published but not loaded, dropping pending changes",
				"generation", info.Generation,
				"error", err,
			)
			b.resetLocked()
			return info, fmt.Errorf("committing index: %w", err)
		}
		b.logger.Error("commit failed", "error", err)
		return store.CommitInfo{}, fmt.Errorf("committing index: %w", err)
	}
	b.opts.Metrics.Commit("success", elapsed, info.Segments, info.LiveDocs)
	b.logger.Info("commit succeeded",
		"generation", info.Generation,
		"docs", b.memIndex.DocCount(),
		"deleted", len(deleted),
		"merged", info.Merged,
		"duration_ms", time.Duration(elapsed*float64(time.Second)).Milliseconds(),
	)
	b.resetLocked()

	if b.opts.Cache != nil {
		if err := b.opts.Cache.Invalidate(ctx); err != nil {
			b.logger.Warn("query cache invalidation failed", "error", err)
		}
	}
	return info, nil
}

// Rollback discards every pending change. Document ids handed out in the
// session are not reused.
func (b *Builder) Rollback() {
	b.mu.Lock()
	defer b.mu.Unlock()
	docs, deletes := b.memIndex.DocCount(), len(b.tombstones)
	b.resetLocked()
	b.logger.Info("pending changes rolled back", "docs", docs, "deletes", deletes)
}

func (b *Builder) resetLocked() {
	b.memIndex.Reset()
	b.pendingKeys = make(map[string]index.DocID)
	b.tombstones = make(map[index.DocID]struct{})
}

// Close ends the session without committing and releases the writer lock.
func (b *Builder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if n := b.memIndex.DocCount() + len(b.tombstones); n > 0 {
		b.logger.Warn("closing build session with uncommitted changes", "pending", n)
	}
	b.resetLocked()
	return b.store.ReleaseWriter()
}
