package segment

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/analyzer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
)

// MagicBytes identifies a valid .spdx segment file.
const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 96
	FooterSize    int    = 16
	Extension            = ".spdx"
)

// SegmentHeader is the 96-byte header written at the start of every segment.
// Layout: postings blobs, stored-document blobs, term dictionary (JSON),
// document directory (JSON), footer.
type SegmentHeader struct {
	Magic        uint32
	Version      uint32
	TermCount    uint32
	DocCount     uint32
	CreatedAt    int64
	PostOffset   int64
	PostSize     int64
	StoredOffset int64
	StoredSize   int64
	DictOffset   int64
	DictSize     int64
	DocDirOffset int64
	DocDirSize   int64
}

func (h SegmentHeader) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.StoredOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.StoredSize))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[64:72], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[72:80], uint64(h.DocDirOffset))
	binary.LittleEndian.PutUint64(b[80:88], uint64(h.DocDirSize))
	return b
}

func decodeHeader(b []byte) SegmentHeader {
	return SegmentHeader{
		Magic:        binary.LittleEndian.Uint32(b[0:4]),
		Version:      binary.LittleEndian.Uint32(b[4:8]),
		TermCount:    binary.LittleEndian.Uint32(b[8:12]),
		DocCount:     binary.LittleEndian.Uint32(b[12:16]),
		CreatedAt:    int64(binary.LittleEndian.Uint64(b[16:24])),
		PostOffset:   int64(binary.LittleEndian.Uint64(b[24:32])),
		PostSize:     int64(binary.LittleEndian.Uint64(b[32:40])),
		StoredOffset: int64(binary.LittleEndian.Uint64(b[40:48])),
		StoredSize:   int64(binary.LittleEndian.Uint64(b[48:56])),
		DictOffset:   int64(binary.LittleEndian.Uint64(b[56:64])),
		DictSize:     int64(binary.LittleEndian.Uint64(b[64:72])),
		DocDirOffset: int64(binary.LittleEndian.Uint64(b[72:80])),
		DocDirSize:   int64(binary.LittleEndian.Uint64(b[80:88])),
	}
}

// DictEntry maps a (field, term) to its postings offset, length, and
// document frequency in the segment file.
type DictEntry struct {
	Field      string `json:"f"`
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// DocEntry locates the stored fields of one document, carries its unique
// key (the filename) and records how many tokens each field produced.
type DocEntry struct {
	ID      index.DocID    `json:"i"`
	Key     string         `json:"k"`
	Offset  int64          `json:"o"`
	Len     int            `json:"l"`
	Lengths map[string]int `json:"n"`
}

// Writer serialises a memory index snapshot into new .spdx segment files.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// offsetWriter counts bytes written through a buffered file writer.
type offsetWriter struct {
	w   *bufio.Writer
	off int64
}

func (o *offsetWriter) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	o.off += int64(n)
	return n, err
}

// Write atomically creates segment name containing the given term entries
// (sorted by field, then term) and stored documents (sorted by ID). It
// writes to a .tmp file first, fsyncs, and renames on success.
func (w *Writer) Write(name string, entries []index.TermEntry, docs []index.StoredDocument) error {
	if len(docs) == 0 {
		return fmt.Errorf("cannot write empty segment")
	}
	finalPath := filepath.Join(w.dataDir, name)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp segment file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	header := SegmentHeader{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(len(entries)),
		DocCount:  uint32(len(docs)),
		CreatedAt: time.Now().Unix(),
	}
	out := &offsetWriter{w: bufio.NewWriterSize(f, 64*1024)}
	if _, err := out.Write(header.encode()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	header.PostOffset = out.off
	dict := make([]DictEntry, 0, len(entries))
	for _, entry := range entries {
		relativeOffset := out.off - header.PostOffset
		postingsData, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for %s:%q: %w", entry.Field, entry.Term, err)
		}
		if _, err := out.Write(postingsData); err != nil {
			return fmt.Errorf("writing postings for %s:%q: %w", entry.Field, entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Field:      entry.Field,
			Term:       entry.Term,
			PostOffset: relativeOffset,
			PostLen:    len(postingsData),
			DocFreq:    len(entry.Postings),
		})
	}
	header.PostSize = out.off - header.PostOffset

	header.StoredOffset = out.off
	docDir := make([]DocEntry, 0, len(docs))
	for _, doc := range docs {
		relativeOffset := out.off - header.StoredOffset
		storedData, err := json.Marshal(doc.Fields)
		if err != nil {
			return fmt.Errorf("marshaling stored fields of doc %d: %w", doc.ID, err)
		}
		if _, err := out.Write(storedData); err != nil {
			return fmt.Errorf("writing stored fields of doc %d: %w", doc.ID, err)
		}
		docDir = append(docDir, DocEntry{
			ID:      doc.ID,
			Key:     doc.Get(analyzer.FieldFilename),
			Offset:  relativeOffset,
			Len:     len(storedData),
			Lengths: doc.FieldLengths,
		})
	}
	header.StoredSize = out.off - header.StoredOffset

	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	header.DictOffset = out.off
	header.DictSize = int64(len(dictData))
	if _, err := out.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}

	docDirData, err := json.Marshal(docDir)
	if err != nil {
		return fmt.Errorf("marshaling document directory: %w", err)
	}
	header.DocDirOffset = out.off
	header.DocDirSize = int64(len(docDirData))
	if _, err := out.Write(docDirData); err != nil {
		return fmt.Errorf("writing document directory: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint64(footer[0:8], checksum(dictData, docDirData))
	binary.LittleEndian.PutUint32(footer[8:12], MagicBytes)
	binary.LittleEndian.PutUint32(footer[12:16], uint32(len(docs)))
	if _, err := out.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	if err := out.w.Flush(); err != nil {
		return fmt.Errorf("flushing segment file: %w", err)
	}
	if _, err := f.WriteAt(header.encode(), 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing segment file: %w", err)
	}
	committed = true
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming segment file: %w", err)
	}
	return nil
}

func checksum(dictData, docDirData []byte) uint64 {
	d := xxhash.New()
	d.Write(dictData)
	d.Write(docDirData)
	return d.Sum64()
}
