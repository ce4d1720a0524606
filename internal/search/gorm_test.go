package search

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/emrgen/exploration/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormIndex(t *testing.T) {
	ctx := context.TODO()
	index := NewGormIndex(tester.NewDB(t))

	require.NoError(t, index.AddDocuments(ctx, ExplorationIndex, []Document{
		{"id": "a", "title": "Fractions", "category": "Math", "tags": []string{"numbers"}, "rank": 20},
		{"id": "b", "title": "Verbs", "category": "Language", "rank": 50},
		{"id": "c", "title": "Decimal numbers", "category": "Math", "rank": 35},
	}))

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "all by rank", query: Query{}, want: []string{"b", "c", "a"}},
		{name: "category", query: Query{Text: "math"}, want: []string{"c", "a"}},
		{name: "tags and title", query: Query{Text: "Numbers"}, want: []string{"c", "a"}},
		{name: "ascending", query: Query{Text: "math", Sort: "rank"}, want: []string{"a", "c"}},
		{name: "no match", query: Query{Text: "history"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := index.Search(ctx, ExplorationIndex, tt.query)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, res.IDs)
				return
			}
			assert.Equal(t, tt.want, res.IDs)
		})
	}

	_, err := index.Search(ctx, ExplorationIndex, Query{Sort: "author"})
	assert.Error(t, err)
}

func TestGormIndex_ReaddKeepsRank(t *testing.T) {
	ctx := context.TODO()
	index := NewGormIndex(tester.NewDB(t))

	require.NoError(t, index.AddDocuments(ctx, ExplorationIndex, []Document{
		{"id": "a", "title": "Fractions", "rank": 20},
		{"id": "b", "title": "Verbs", "rank": 10},
	}))

	doc, err := index.GetDocument(ctx, ExplorationIndex, "a")
	require.NoError(t, err)
	assert.Equal(t, 20, doc.Int("rank"))

	doc["title"] = "Renamed"
	require.NoError(t, index.AddDocuments(ctx, ExplorationIndex, []Document{doc}))

	res, err := index.Search(ctx, ExplorationIndex, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.IDs)
}

func TestDocument_Int(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{name: "int", value: 7, want: 7},
		{name: "int64", value: int64(7), want: 7},
		{name: "float", value: float64(7), want: 7},
		{name: "json number", value: json.Number("7"), want: 7},
		{name: "json float", value: json.Number("7.0"), want: 7},
		{name: "missing", value: nil, want: 0},
		{name: "string", value: "7", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Document{"rank": tt.value}.Int("rank"))
		})
	}
}

func TestGormIndex_Paging(t *testing.T) {
	ctx := context.TODO()
	index := NewGormIndex(tester.NewDB(t))

	var docs []Document
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		docs = append(docs, Document{"id": id, "title": id, "rank": 0})
	}
	require.NoError(t, index.AddDocuments(ctx, ExplorationIndex, docs))

	var ids []string
	query := Query{Limit: 2}
	for {
		res, err := index.Search(ctx, ExplorationIndex, query)
		require.NoError(t, err)
		ids = append(ids, res.IDs...)
		if res.Cursor == "" {
			break
		}
		query.Cursor = res.Cursor
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestGormIndex_GetAndDelete(t *testing.T) {
	ctx := context.TODO()
	index := NewGormIndex(tester.NewDB(t))

	require.NoError(t, index.AddDocuments(ctx, ExplorationIndex, []Document{{"id": "a", "title": "First", "rank": 1}}))
	require.NoError(t, index.AddDocuments(ctx, ExplorationIndex, []Document{{"id": "a", "title": "Second", "rank": 2, "is": "featured"}}))

	doc, err := index.GetDocument(ctx, ExplorationIndex, "a")
	require.NoError(t, err)
	assert.Equal(t, "Second", doc["title"])
	assert.Equal(t, "featured", doc["is"])

	require.NoError(t, index.DeleteDocuments(ctx, ExplorationIndex, []string{"a", "missing"}))
	_, err = index.GetDocument(ctx, ExplorationIndex, "a")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
