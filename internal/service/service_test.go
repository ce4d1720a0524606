package service

import (
	"context"
	"sync"
	"testing"

	"github.com/emrgen/exploration/internal/cache"
	"github.com/emrgen/exploration/internal/compress"
	"github.com/emrgen/exploration/internal/exploration"
	"github.com/emrgen/exploration/internal/queue"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/search"
	"github.com/emrgen/exploration/internal/store"
	"github.com/emrgen/exploration/internal/tester"
	"github.com/stretchr/testify/require"
)

const (
	ownerID = "owner"
	adminID = "admin"
	otherID = "other"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recordingNotifier) Notify(ctx context.Context, event queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) kinds() []queue.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type testEnv struct {
	store        *store.GormStore
	index        *search.GormIndex
	notifier     *recordingNotifier
	explorations *ExplorationService
	revisions    *RevisionService
	queries      *QueryService
	ratings      *RatingService
	assets       *AssetService
	stats        *StatsService
	rights       *rights.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := tester.NewDB(t)
	s := store.NewGormStore(db)
	auth := rights.NewStoreAuthorizer(s, adminID)
	projector := NewSummaryProjector(DefaultRankConfig())
	index := search.NewGormIndex(db)
	searcher := NewSearchIndexer(s, index, projector)
	notifier := &recordingNotifier{}

	explorations := NewExplorationService(s, auth, searcher, notifier, cache.NewNopExplorationCache(), compress.NewGZip(), projector)

	return &testEnv{
		store:        s,
		index:        index,
		notifier:     notifier,
		explorations: explorations,
		revisions:    NewRevisionService(s, auth, explorations),
		queries:      NewQueryService(s, searcher),
		ratings:      NewRatingService(s, projector, searcher),
		assets:       NewAssetService(s, auth),
		stats:        NewStatsService(s),
		rights:       rights.NewManager(s, auth, explorations, explorations),
	}
}

// create commits version 1 of a valid exploration owned by ownerID.
func (e *testEnv) create(t *testing.T, id string) *exploration.Exploration {
	t.Helper()

	exp := exploration.New(id, "A title", "A category")
	exp.Objective = "An objective"
	out, err := e.explorations.CreateExploration(context.TODO(), ownerID, exp)
	require.NoError(t, err)

	return out
}
