package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

// Reader serves lookups from one immutable segment file. The dictionary and
// document directory are held in memory; postings and stored fields are read
// on demand. Safe for concurrent use.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	docs     []DocEntry
}

func corrupt(path string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", apperrors.ErrCorruptSegment, filepath.Base(path), fmt.Sprintf(format, args...))
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := load(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func load(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	if info.Size() < int64(HeaderSize+FooterSize) {
		return nil, corrupt(path, "file too small (%d bytes)", info.Size())
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, corrupt(path, "bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, corrupt(path, "unsupported format version %d", header.Version)
	}
	if header.DocDirOffset+header.DocDirSize+int64(FooterSize) != info.Size() {
		return nil, corrupt(path, "section sizes do not match file size")
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, info.Size()-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading segment footer: %w", err)
	}
	if binary.LittleEndian.Uint32(footer[8:12]) != MagicBytes {
		return nil, corrupt(path, "bad footer magic")
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	docDirBytes := make([]byte, header.DocDirSize)
	if _, err := f.ReadAt(docDirBytes, header.DocDirOffset); err != nil {
		return nil, fmt.Errorf("reading document directory: %w", err)
	}
	if sum := checksum(dictBytes, docDirBytes); sum != binary.LittleEndian.Uint64(footer[0:8]) {
		return nil, corrupt(path, "checksum mismatch")
	}

	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, corrupt(path, "parsing dictionary: %v", err)
	}
	var docs []DocEntry
	if err := json.Unmarshal(docDirBytes, &docs); err != nil {
		return nil, corrupt(path, "parsing document directory: %v", err)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		docs:     docs,
	}, nil
}

func (r *Reader) Name() string {
	return filepath.Base(r.filePath)
}

func (r *Reader) find(field, term string) (DictEntry, bool) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		e := r.dict[i]
		if e.Field != field {
			return e.Field >= field
		}
		return e.Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Field != field || r.dict[idx].Term != term {
		return DictEntry{}, false
	}
	return r.dict[idx], true
}

// Search returns the postings of (field, term), or nil when absent.
func (r *Reader) Search(field, term string) (index.PostingList, error) {
	entry, ok := r.find(field, term)
	if !ok {
		return nil, nil
	}
	return r.postings(entry)
}

func (r *Reader) postings(entry DictEntry) (index.PostingList, error) {
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, corrupt(r.filePath, "parsing postings of %s:%q: %v", entry.Field, entry.Term, err)
	}
	return postings, nil
}

// Entries calls fn for every term entry in (field, term) order.
func (r *Reader) Entries(fn func(index.TermEntry) error) error {
	for _, entry := range r.dict {
		postings, err := r.postings(entry)
		if err != nil {
			return err
		}
		if err := fn(index.TermEntry{Field: entry.Field, Term: entry.Term, Postings: postings}); err != nil {
			return err
		}
	}
	return nil
}

// Dictionary returns the dictionary entries of field in term order.
func (r *Reader) Dictionary(field string) []DictEntry {
	lo := sort.Search(len(r.dict), func(i int) bool { return r.dict[i].Field >= field })
	hi := sort.Search(len(r.dict), func(i int) bool { return r.dict[i].Field > field })
	return r.dict[lo:hi]
}

// Fields returns the distinct field names present in the dictionary.
func (r *Reader) Fields() []string {
	var fields []string
	for _, e := range r.dict {
		if len(fields) == 0 || fields[len(fields)-1] != e.Field {
			fields = append(fields, e.Field)
		}
	}
	return fields
}

// Docs returns the document directory sorted by ID.
func (r *Reader) Docs() []DocEntry {
	return r.docs
}

// Document reads the stored fields of id.
func (r *Reader) Document(id index.DocID) (index.StoredDocument, bool, error) {
	i := sort.Search(len(r.docs), func(i int) bool { return r.docs[i].ID >= id })
	if i >= len(r.docs) || r.docs[i].ID != id {
		return index.StoredDocument{}, false, nil
	}
	entry := r.docs[i]
	data := make([]byte, entry.Len)
	if _, err := r.file.ReadAt(data, r.header.StoredOffset+entry.Offset); err != nil {
		return index.StoredDocument{}, false, fmt.Errorf("reading stored fields of doc %d: %w", id, err)
	}
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return index.StoredDocument{}, false, corrupt(r.filePath, "parsing stored fields of doc %d: %v", id, err)
	}
	return index.StoredDocument{ID: id, Fields: fields, FieldLengths: entry.Lengths}, true, nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Close() error {
	return r.file.Close()
}
