package jobs

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/search"
	"github.com/emrgen/exploration/internal/service"
	"github.com/emrgen/exploration/internal/store"
	"github.com/sirupsen/logrus"
)

const reconcileBatch = 200

// SearchReconciler rewrites the search index from the summaries. Search
// updates after a commit are best effort; this job repairs what they missed.
type SearchReconciler struct {
	store    store.SummaryStore
	searcher *service.SearchIndexer
	schedule string
}

func NewSearchReconciler(schedule string, store store.SummaryStore, searcher *service.SearchIndexer) *SearchReconciler {
	return &SearchReconciler{
		store:    store,
		searcher: searcher,
		schedule: schedule,
	}
}

func (r *SearchReconciler) Name() string {
	return "search_reconciler"
}

func (r *SearchReconciler) Schedule() string {
	return r.schedule
}

func (r *SearchReconciler) Run() {
	if err := r.RunOnce(context.Background()); err != nil {
		logrus.WithError(err).Error("search reconciliation failed")
	}
}

// RunOnce indexes every non-private exploration with a fresh rank and drops
// documents of explorations that are private or gone.
func (r *SearchReconciler) RunOnce(ctx context.Context) error {
	live := mapset.NewSet[string]()

	after := ""
	for {
		summaries, err := r.store.ListSummaries(ctx, store.SummaryFilter{
			ExcludeStatus: string(rights.StatusPrivate),
			AfterID:       after,
			Limit:         reconcileBatch,
		})
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			break
		}

		ids := make([]string, 0, len(summaries))
		for _, summary := range summaries {
			ids = append(ids, summary.ID)
		}
		if err := r.searcher.IndexExplorations(ctx, ids); err != nil {
			return err
		}
		live.Append(ids...)
		after = ids[len(ids)-1]
	}

	indexed := mapset.NewSet[string]()
	query := search.Query{Limit: reconcileBatch, Sort: "title"}
	for {
		res, err := r.searcher.Search(ctx, query)
		if err != nil {
			return err
		}
		indexed.Append(res.IDs...)
		if res.Cursor == "" {
			break
		}
		query.Cursor = res.Cursor
	}

	stale := indexed.Difference(live).ToSlice()
	if len(stale) != 0 {
		if err := r.searcher.Delete(ctx, stale); err != nil {
			return err
		}
	}

	logrus.Infof("reconciled search index: %d indexed, %d removed", live.Cardinality(), len(stale))

	return nil
}
