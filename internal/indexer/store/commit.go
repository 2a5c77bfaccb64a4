package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

// Changes is the pending work of one build session.
type Changes struct {
	Session   string
	Entries   []index.TermEntry
	Docs      []index.StoredDocument
	Deleted   []index.DocID
	NextDocID index.DocID
	// MaxSegments triggers a full merge when the segment count exceeds it.
	// Zero disables merging.
	MaxSegments int
}

// CommitInfo summarises a published generation. Published is also set
// alongside an error when the manifest was replaced but the new generation
// could not be loaded: the changes are durable and must not be committed
// again.
type CommitInfo struct {
	Generation uint64
	Segments   int
	LiveDocs   int
	Merged     bool
	Published  bool
}

func segmentName(n uint64) string {
	return fmt.Sprintf("seg_%010d%s", n, segment.Extension)
}

// Commit writes the pending changes as a new segment and publishes them by
// replacing the manifest. A failure before the manifest is replaced leaves
// nothing visible and removes every file written by this call. The caller
// must hold the writer lock.
func (s *Store) Commit(c Changes) (CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return CommitInfo{}, apperrors.ErrClosed
	}
	if !s.locked {
		return CommitInfo{}, fmt.Errorf("commit without holding the writer lock")
	}
	if s.stale {
		if err := s.reload(); err != nil {
			return CommitInfo{}, fmt.Errorf("reloading published generation: %w", err)
		}
	}

	prev := s.current.Load().manifest
	next := Manifest{
		Generation:  prev.Generation + 1,
		Session:     c.Session,
		CommittedAt: time.Now().UTC(),
		Language:    prev.Language,
		NextDocID:   max(prev.NextDocID, c.NextDocID),
		NextSegment: prev.NextSegment,
		Segments:    append([]string(nil), prev.Segments...),
		Deleted:     mergeDeleted(prev.Deleted, c.Deleted),
	}

	var written []string
	var opened []*segmentRef
	fail := func(err error) (CommitInfo, error) {
		for _, ref := range opened {
			ref.reader.Close()
		}
		for _, name := range written {
			os.Remove(filepath.Join(s.dir, name))
		}
		return CommitInfo{}, err
	}

	if len(c.Docs) > 0 {
		name := segmentName(next.NextSegment)
		next.NextSegment++
		if err := s.writer.Write(name, c.Entries, c.Docs); err != nil {
			return fail(fmt.Errorf("writing segment: %w", err))
		}
		written = append(written, name)
		next.Segments = append(next.Segments, name)
	}

	merged := false
	var retired []string
	if c.MaxSegments > 0 && len(next.Segments) > c.MaxSegments {
		readers := make([]*segment.Reader, 0, len(next.Segments))
		for _, name := range next.Segments {
			if ref, ok := s.refs[name]; ok {
				readers = append(readers, ref.reader)
				continue
			}
			r, err := openSegment(filepath.Join(s.dir, name))
			if err != nil {
				return fail(fmt.Errorf("opening segment %s for merge: %w", name, err))
			}
			opened = append(opened, &segmentRef{reader: r})
			readers = append(readers, r)
		}
		entries, docs, err := mergeSegments(readers, next.Deleted)
		if err != nil {
			return fail(fmt.Errorf("merging segments: %w", err))
		}
		retired = next.Segments
		next.Segments = []string{}
		next.Deleted = nil
		if len(docs) > 0 {
			name := segmentName(next.NextSegment)
			next.NextSegment++
			if err := s.writer.Write(name, entries, docs); err != nil {
				return fail(fmt.Errorf("writing merged segment: %w", err))
			}
			written = append(written, name)
			next.Segments = []string{name}
		}
		merged = true
	}

	if err := writeManifest(s.dir, next); err != nil {
		if !errors.Is(err, errDirNotSynced) {
			return fail(err)
		}
		s.logger.Warn("manifest replaced but directory sync failed",
			"generation", next.Generation,
			"error", err,
		)
	}
	for _, ref := range opened {
		ref.reader.Close()
	}

	snap, err := s.load(next)
	if err != nil {
		s.stale = true
		return CommitInfo{Generation: next.Generation, Published: true},
			fmt.Errorf("loading committed generation %d: %w", next.Generation, err)
	}
	s.swap(snap)

	for _, name := range retired {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn("removing merged segment", "segment", name, "error", err)
		}
	}
	info := CommitInfo{
		Generation: next.Generation,
		Segments:   len(next.Segments),
		LiveDocs:   snap.LiveDocs(),
		Merged:     merged,
		Published:  true,
	}
	s.logger.Info("commit published",
		"generation", info.Generation,
		"segments", info.Segments,
		"live_docs", info.LiveDocs,
		"merged", merged,
	)
	return info, nil
}

func mergeDeleted(a, b []index.DocID) []index.DocID {
	if len(b) == 0 {
		return a
	}
	seen := make(map[index.DocID]struct{}, len(a)+len(b))
	out := make([]index.DocID, 0, len(a)+len(b))
	for _, list := range [][]index.DocID{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// mergeSegments folds the live content of readers into one sorted set of term
// entries and stored documents. Readers are in commit order, so their ids
// are already ascending across segments.
func mergeSegments(readers []*segment.Reader, deleted []index.DocID) ([]index.TermEntry, []index.StoredDocument, error) {
	gone := make(map[index.DocID]struct{}, len(deleted))
	for _, id := range deleted {
		gone[id] = struct{}{}
	}

	type key struct{ field, term string }
	postings := make(map[key]index.PostingList)
	var docs []index.StoredDocument
	for _, r := range readers {
		err := r.Entries(func(e index.TermEntry) error {
			k := key{e.Field, e.Term}
			for _, p := range e.Postings {
				if _, ok := gone[p.DocID]; !ok {
					postings[k] = append(postings[k], p)
				}
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		for _, d := range r.Docs() {
			if _, ok := gone[d.ID]; ok {
				continue
			}
			doc, found, err := r.Document(d.ID)
			if err != nil {
				return nil, nil, err
			}
			if found {
				docs = append(docs, doc)
			}
		}
	}

	entries := make([]index.TermEntry, 0, len(postings))
	for k, pl := range postings {
		sort.Slice(pl, func(i, j int) bool { return pl[i].DocID < pl[j].DocID })
		entries = append(entries, index.TermEntry{Field: k.field, Term: k.term, Postings: pl})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return entries, docs, nil
}
