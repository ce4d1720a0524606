package service

import (
	"context"
	"errors"

	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/search"
	"github.com/emrgen/exploration/internal/store"
	"github.com/sirupsen/logrus"
)

const featured = "featured"

// SearchIndexer keeps the exploration search index in step with summaries.
type SearchIndexer struct {
	store     store.SummaryStore
	index     search.Index
	projector *SummaryProjector
}

func NewSearchIndexer(store store.SummaryStore, index search.Index, projector *SummaryProjector) *SearchIndexer {
	return &SearchIndexer{
		store:     store,
		index:     index,
		projector: projector,
	}
}

func (s *SearchIndexer) document(summary *model.ExplorationSummary) search.Document {
	is := ""
	if rights.Status(summary.Status) == rights.StatusPublicized {
		is = featured
	}
	return search.Document{
		"id":            summary.ID,
		"language_code": summary.LanguageCode,
		"title":         summary.Title,
		"category":      summary.Category,
		"tags":          []string(summary.Tags),
		"objective":     summary.Objective,
		"rank":          s.projector.Rank(summary),
		"is":            is,
	}
}

// IndexExplorations adds the non-private explorations among ids to the
// index with a single call.
func (s *SearchIndexer) IndexExplorations(ctx context.Context, ids []string) error {
	summaries, err := s.store.GetSummaries(ctx, ids)
	if err != nil {
		return err
	}

	docs := make([]search.Document, 0, len(summaries))
	for _, summary := range summaries {
		if rights.Status(summary.Status) == rights.StatusPrivate {
			continue
		}
		docs = append(docs, s.document(summary))
	}
	if len(docs) == 0 {
		return nil
	}

	return s.index.AddDocuments(ctx, search.ExplorationIndex, docs)
}

// PatchSearchDocument merges patch into the indexed document of id.
func (s *SearchIndexer) PatchSearchDocument(ctx context.Context, id string, patch map[string]any) error {
	doc, err := s.index.GetDocument(ctx, search.ExplorationIndex, id)
	if err != nil {
		return err
	}
	for k, v := range patch {
		doc[k] = v
	}
	return s.index.AddDocuments(ctx, search.ExplorationIndex, []search.Document{doc})
}

// UpdateStatusInSearch drops private explorations from the index and
// refreshes the featured flag and rank of the others.
func (s *SearchIndexer) UpdateStatusInSearch(ctx context.Context, id string) error {
	summary, err := s.store.GetSummary(ctx, id)
	if err != nil {
		return notFound(err, "exploration summary", id, 0)
	}

	switch rights.Status(summary.Status) {
	case rights.StatusPrivate:
		return s.index.DeleteDocuments(ctx, search.ExplorationIndex, []string{id})
	case rights.StatusPublicized:
		return s.PatchSearchDocument(ctx, id, map[string]any{"is": featured, "rank": s.projector.Rank(summary)})
	default:
		return s.PatchSearchDocument(ctx, id, map[string]any{"is": "", "rank": s.projector.Rank(summary)})
	}
}

// Refresh writes the current summary of id to the index, or removes it when
// the exploration is private or gone.
func (s *SearchIndexer) Refresh(ctx context.Context, id string) error {
	summary, err := s.store.GetSummary(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return s.Delete(ctx, []string{id})
	}
	if err != nil {
		return err
	}
	if rights.Status(summary.Status) == rights.StatusPrivate {
		return s.Delete(ctx, []string{id})
	}
	return s.index.AddDocuments(ctx, search.ExplorationIndex, []search.Document{s.document(summary)})
}

// StatusChanged applies a rights transition to the index, indexing the
// exploration when it was not indexed yet.
func (s *SearchIndexer) StatusChanged(ctx context.Context, id string) error {
	err := s.UpdateStatusInSearch(ctx, id)
	if errors.Is(err, search.ErrDocumentNotFound) {
		logrus.Debugf("exploration %s not indexed yet", id)
		return s.IndexExplorations(ctx, []string{id})
	}
	return err
}

func (s *SearchIndexer) Delete(ctx context.Context, ids []string) error {
	return s.index.DeleteDocuments(ctx, search.ExplorationIndex, ids)
}

func (s *SearchIndexer) Search(ctx context.Context, query search.Query) (*search.Result, error) {
	return s.index.Search(ctx, search.ExplorationIndex, query)
}
