package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/queue"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/search"
	"github.com/emrgen/exploration/internal/service"
	"github.com/emrgen/exploration/internal/store"
	"github.com/emrgen/exploration/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func summary(id string, status rights.Status) *model.ExplorationSummary {
	return &model.ExplorationSummary{
		ID:       id,
		Title:    "Title " + id,
		Category: "Category",
		Status:   string(status),
		Tags:     datatypes.NewJSONSlice([]string{}),
		Ratings:  datatypes.NewJSONType(map[string]int{"5": 1}),
		Version:  1,
	}
}

func TestSearchReconciler_RunOnce(t *testing.T) {
	ctx := context.TODO()
	db := tester.NewDB(t)
	s := store.NewGormStore(db)
	index := search.NewGormIndex(db)
	searcher := service.NewSearchIndexer(s, index, service.NewSummaryProjector(service.DefaultRankConfig()))

	require.NoError(t, s.SaveSummary(ctx, summary("exp-1", rights.StatusPublic)))
	require.NoError(t, s.SaveSummary(ctx, summary("exp-2", rights.StatusPublicized)))
	require.NoError(t, s.SaveSummary(ctx, summary("exp-3", rights.StatusPrivate)))
	require.NoError(t, index.AddDocuments(ctx, search.ExplorationIndex, []search.Document{
		{"id": "exp-3", "title": "Title exp-3", "rank": 1},
		{"id": "gone", "title": "Gone", "rank": 1},
		{"id": "exp-1", "title": "Title exp-1", "rank": 1},
	}))

	r := NewSearchReconciler("@every 1m", s, searcher)
	require.NoError(t, r.RunOnce(ctx))

	res, err := index.Search(ctx, search.ExplorationIndex, search.Query{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"exp-2", "exp-1"}, res.IDs)

	doc, err := index.GetDocument(ctx, search.ExplorationIndex, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, 30, doc.Int("rank"))
}

type fakeSubscriber struct {
	events []queue.Event
}

func (f fakeSubscriber) Subscribe(ctx context.Context) (<-chan queue.Event, error) {
	ch := make(chan queue.Event, len(f.events))
	for _, e := range f.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func TestEventWatcher_DrainsSubscription(t *testing.T) {
	w := NewEventWatcher(fakeSubscriber{events: []queue.Event{
		{Kind: queue.EventContentChange, ExplorationID: "exp-1", Version: 2},
		{Kind: queue.EventStatusChange, ExplorationID: "exp-1"},
	}})
	defer w.Stop()

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not return after the subscription closed")
	}
}

type countingJob struct {
	mu    sync.Mutex
	runs  int
	block chan struct{}
}

func (c *countingJob) Name() string     { return "counting" }
func (c *countingJob) Schedule() string { return "@every 1s" }

func (c *countingJob) Run() {
	c.mu.Lock()
	c.runs++
	c.mu.Unlock()
	<-c.block
}

func (c *countingJob) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

func TestTaskExecutor_SkipsOverlappingRuns(t *testing.T) {
	job := &countingJob{block: make(chan struct{})}
	executor := NewTaskExecutor(nil, []CronJob{job})
	require.NoError(t, executor.Run())
	defer executor.Stop()

	time.Sleep(2500 * time.Millisecond)
	// the first run is still blocked, later ticks are skipped
	assert.Equal(t, 1, job.count())
	close(job.block)
}

func TestTaskExecutor_InvalidSchedule(t *testing.T) {
	r := NewSearchReconciler("not a schedule", nil, nil)
	executor := NewTaskExecutor(nil, []CronJob{r})
	assert.Error(t, executor.Run())
}
