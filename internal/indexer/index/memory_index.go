package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/analyzer"
)

type termKey struct {
	field string
	term  string
}

// MemoryIndex is the mutable inverted index of an uncommitted build session.
type MemoryIndex struct {
	mu       sync.RWMutex
	analyzer *analyzer.PerField
	index    map[termKey]map[DocID]*Posting
	docs     map[DocID]StoredDocument
	docTerms map[DocID][]termKey
	size     int64
}

func NewMemoryIndex(a *analyzer.PerField) *MemoryIndex {
	return &MemoryIndex{
		analyzer: a,
		index:    make(map[termKey]map[DocID]*Posting),
		docs:     make(map[DocID]StoredDocument),
		docTerms: make(map[DocID][]termKey),
	}
}

// AddDocument analyzes every field and adds one posting per (field, term).
// The caller guarantees docID is fresh.
func (m *MemoryIndex) AddDocument(docID DocID, fields []Field) StoredDocument {
	termData := make(map[termKey]*Posting)
	stored := StoredDocument{
		ID:           docID,
		Fields:       make(map[string]string, len(fields)),
		FieldLengths: make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		stored.Fields[f.Name] = f.Value
		tokens := m.analyzer.Analyze(f.Name, f.Value)
		stored.FieldLengths[f.Name] += len(tokens)
		for _, token := range tokens {
			key := termKey{field: f.Name, term: token.Term}
			p, exists := termData[key]
			if !exists {
				p = &Posting{
					DocID:     docID,
					Frequency: 0,
					Positions: make([]int, 0, 4),
				}
				termData[key] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]termKey, 0, len(termData))
	for key, posting := range termData {
		if _, exists := m.index[key]; !exists {
			m.index[key] = make(map[DocID]*Posting)
		}
		m.index[key][docID] = posting
		keys = append(keys, key)
		m.size += int64(len(key.field) + len(key.term) + len(posting.Positions)*8 + 64)
	}
	m.docs[docID] = stored
	m.docTerms[docID] = keys
	for _, v := range stored.Fields {
		m.size += int64(len(v))
	}
	return stored
}

// RemoveDocument drops every posting and the stored entry of docID.
func (m *MemoryIndex) RemoveDocument(docID DocID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys, ok := m.docTerms[docID]
	if !ok {
		return false
	}
	for _, key := range keys {
		docs := m.index[key]
		if p, exists := docs[docID]; exists {
			m.size -= int64(len(key.field) + len(key.term) + len(p.Positions)*8 + 64)
			delete(docs, docID)
		}
		if len(docs) == 0 {
			delete(m.index, key)
		}
	}
	for _, v := range m.docs[docID].Fields {
		m.size -= int64(len(v))
	}
	delete(m.docTerms, docID)
	delete(m.docs, docID)
	return true
}

func (m *MemoryIndex) Search(field string, term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[termKey{field: field, term: term}]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Snapshot returns all term entries sorted by field, then term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for key, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Field:    key.field,
			Term:     key.term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Documents returns the stored documents sorted by ID.
func (m *MemoryIndex) Documents() []StoredDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]StoredDocument, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs
}

func (m *MemoryIndex) Document(docID DocID) (StoredDocument, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[docID]
	return d, ok
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[termKey]map[DocID]*Posting)
	m.docs = make(map[DocID]StoredDocument)
	m.docTerms = make(map[DocID][]termKey)
	m.size = 0
}
