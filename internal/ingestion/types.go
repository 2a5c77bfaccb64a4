// Package ingestion defines the document and event types exchanged between
// ingestion sources and the index builder.
package ingestion

import "context"

// Document is one unit of indexing, keyed by its filename. Deleted marks a
// removal event; Content is ignored then.
type Document struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// Item is one element of a source stream. A non-nil Err reports a document
// that could not be read; the stream continues after it.
type Item struct {
	Document
	Err error
}

// Source produces an ordered stream of documents. Each calls fn for every
// item until the stream ends, fn returns an error, or ctx is cancelled.
type Source interface {
	Name() string
	Each(ctx context.Context, fn func(Item) error) error
}

// Acknowledger is implemented by sources that must confirm consumption once
// the items they produced are durably committed.
type Acknowledger interface {
	Ack(ctx context.Context) error
}
