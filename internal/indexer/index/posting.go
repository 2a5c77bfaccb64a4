package index

// DocID is a stable document handle. IDs grow monotonically and are never
// reused, so a stale ID can only ever mean "not live".
type DocID uint64

type Posting struct {
	DocID     DocID `json:"d"`
	Frequency int   `json:"f"`
	Positions []int `json:"p"`
}

// PostingList holds the postings of one (field, term) in ascending DocID
// order.
type PostingList []Posting

// Find returns the posting for id using binary search.
func (pl PostingList) Find(id DocID) (Posting, bool) {
	lo, hi := 0, len(pl)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if pl[mid].DocID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(pl) && pl[lo].DocID == id {
		return pl[lo], true
	}
	return Posting{}, false
}

type TermEntry struct {
	Field    string
	Term     string
	Postings PostingList
}

// Field is one named value of a document.
type Field struct {
	Name  string
	Value string
}

// StoredDocument is what the document store keeps per document: the original
// field values and the number of tokens each field produced.
type StoredDocument struct {
	ID           DocID             `json:"id"`
	Fields       map[string]string `json:"fields"`
	FieldLengths map[string]int    `json:"lengths"`
}

// Get returns a stored field value.
func (d StoredDocument) Get(field string) string {
	return d.Fields[field]
}
