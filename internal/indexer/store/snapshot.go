package store

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

// segmentRef shares one open segment reader between snapshots. The reader is
// closed when the last snapshot referencing it is released.
type segmentRef struct {
	reader *segment.Reader
	refs   atomic.Int64
}

func (r *segmentRef) incRef() {
	r.refs.Add(1)
}

func (r *segmentRef) decRef() {
	if r.refs.Add(-1) == 0 {
		r.reader.Close()
	}
}

// Snapshot is an immutable view of one committed generation. Obtain it with
// Store.Snapshot and give it back with Release.
type Snapshot struct {
	manifest  Manifest
	segments  []*segmentRef
	deleted   map[index.DocID]struct{}
	keys      map[string]index.DocID
	locations map[index.DocID]int
	fieldDocs map[string]int
	refs      atomic.Int64
}

// SegmentInfo describes one segment of a snapshot.
type SegmentInfo struct {
	Name  string `json:"name"`
	Docs  int    `json:"docs"`
	Terms int    `json:"terms"`
}

// TermStat is a term of one field with its live document frequency.
type TermStat struct {
	Term    string
	DocFreq int
}

func newSnapshot(m Manifest, segments []*segmentRef) *Snapshot {
	snap := &Snapshot{
		manifest:  m,
		segments:  segments,
		deleted:   make(map[index.DocID]struct{}, len(m.Deleted)),
		keys:      make(map[string]index.DocID),
		locations: make(map[index.DocID]int),
		fieldDocs: make(map[string]int),
	}
	for _, id := range m.Deleted {
		snap.deleted[id] = struct{}{}
	}
	for i, ref := range segments {
		ref.incRef()
		for _, d := range ref.reader.Docs() {
			if _, gone := snap.deleted[d.ID]; gone {
				continue
			}
			snap.keys[d.Key] = d.ID
			snap.locations[d.ID] = i
			for field, n := range d.Lengths {
				if n > 0 {
					snap.fieldDocs[field]++
				}
			}
		}
	}
	snap.refs.Store(1)
	return snap
}

func (s *Snapshot) tryIncRef() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release gives the snapshot back. Segment files stay readable until every
// holder has released.
func (s *Snapshot) Release() {
	if s.refs.Add(-1) == 0 {
		for _, ref := range s.segments {
			ref.decRef()
		}
	}
}

func (s *Snapshot) Generation() uint64 {
	return s.manifest.Generation
}

func (s *Snapshot) Language() string {
	return s.manifest.Language
}

func (s *Snapshot) CommittedAt() time.Time {
	return s.manifest.CommittedAt
}

// LiveDocs is the number of live documents.
func (s *Snapshot) LiveDocs() int {
	return len(s.locations)
}

// DocCount is the number of live documents with at least one token in field.
func (s *Snapshot) DocCount(field string) int {
	return s.fieldDocs[field]
}

// KeyID returns the live document id stored under filename.
func (s *Snapshot) KeyID(filename string) (index.DocID, bool) {
	id, ok := s.keys[filename]
	return id, ok
}

func (s *Snapshot) isLive(id index.DocID) bool {
	_, ok := s.locations[id]
	return ok
}

// Lookup returns the live postings of (field, term) in ascending id order.
// An unknown term yields an empty list.
func (s *Snapshot) Lookup(field, term string) (index.PostingList, error) {
	var result index.PostingList
	for _, ref := range s.segments {
		postings, err := ref.reader.Search(field, term)
		if err != nil {
			return nil, fmt.Errorf("looking up %s:%q in %s: %w", field, term, ref.reader.Name(), err)
		}
		for _, p := range postings {
			if s.isLive(p.DocID) {
				result = append(result, p)
			}
		}
	}
	if !sort.SliceIsSorted(result, func(i, j int) bool { return result[i].DocID < result[j].DocID }) {
		sort.Slice(result, func(i, j int) bool { return result[i].DocID < result[j].DocID })
	}
	return result, nil
}

// FetchStored returns the stored fields of a live document.
func (s *Snapshot) FetchStored(id index.DocID) (index.StoredDocument, error) {
	i, ok := s.locations[id]
	if !ok {
		return index.StoredDocument{}, fmt.Errorf("%w: id %d", apperrors.ErrDocumentNotFound, id)
	}
	doc, found, err := s.segments[i].reader.Document(id)
	if err != nil {
		return index.StoredDocument{}, err
	}
	if !found {
		return index.StoredDocument{}, fmt.Errorf("%w: id %d missing from %s", apperrors.ErrCorruptSegment, id, s.segments[i].reader.Name())
	}
	return doc, nil
}

// Fields returns the indexed field names in sorted order.
func (s *Snapshot) Fields() []string {
	seen := make(map[string]struct{})
	var fields []string
	for _, ref := range s.segments {
		for _, f := range ref.reader.Fields() {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				fields = append(fields, f)
			}
		}
	}
	sort.Strings(fields)
	return fields
}

// Terms lists every term of field that still occurs in a live document,
// with its live document frequency, sorted by term.
func (s *Snapshot) Terms(field string) ([]TermStat, error) {
	freq := make(map[string]int)
	for _, ref := range s.segments {
		for _, e := range ref.reader.Dictionary(field) {
			if len(s.deleted) == 0 {
				freq[e.Term] += e.DocFreq
				continue
			}
			postings, err := ref.reader.Search(field, e.Term)
			if err != nil {
				return nil, err
			}
			for _, p := range postings {
				if s.isLive(p.DocID) {
					freq[e.Term]++
				}
			}
		}
	}
	stats := make([]TermStat, 0, len(freq))
	for term, df := range freq {
		if df > 0 {
			stats = append(stats, TermStat{Term: term, DocFreq: df})
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Term < stats[j].Term })
	return stats, nil
}

// Segments describes the segments of the snapshot in commit order.
func (s *Snapshot) Segments() []SegmentInfo {
	infos := make([]SegmentInfo, 0, len(s.segments))
	for _, ref := range s.segments {
		infos = append(infos, SegmentInfo{
			Name:  ref.reader.Name(),
			Docs:  int(ref.reader.DocCount()),
			Terms: ref.reader.Terms(),
		})
	}
	return infos
}

// Tombstones is the number of deleted documents still present in segments.
func (s *Snapshot) Tombstones() int {
	return len(s.deleted)
}
