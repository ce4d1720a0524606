package search

import (
	"context"
	"encoding/json"
	"errors"
)

// ExplorationIndex is the index explorations are written to.
const ExplorationIndex = "explorations"

var (
	// ErrDocumentNotFound is returned when an index holds no document with the id.
	ErrDocumentNotFound = errors.New("search document not found")
)

// Document is a search document. Every document carries its id under "id".
type Document map[string]any

func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Int reads a numeric field. Documents read back from storage carry numbers
// as json.Number.
func (d Document) Int(key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	}
	return 0
}

// Query selects a page of search results. Sort names a field, with a leading
// "-" for descending order; the default is "-rank".
type Query struct {
	Text   string
	Limit  int
	Sort   string
	Cursor string
}

// Result is a page of matching document ids. Cursor is empty on the last page.
type Result struct {
	IDs    []string
	Cursor string
}

// Index stores and searches documents.
type Index interface {
	// AddDocuments creates or replaces documents.
	AddDocuments(ctx context.Context, index string, docs []Document) error
	// GetDocument retrieves a document by id.
	GetDocument(ctx context.Context, index, id string) (Document, error)
	// DeleteDocuments removes documents; missing ids are ignored.
	DeleteDocuments(ctx context.Context, index string, ids []string) error
	// Search returns the ids of matching documents.
	Search(ctx context.Context, index string, query Query) (*Result, error)
}
