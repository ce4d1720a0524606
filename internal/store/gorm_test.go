package store

import (
	"context"
	"testing"
	"time"

	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/tester"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExploration(id string) *model.Exploration {
	return &model.Exploration{
		ID:          id,
		Version:     1,
		Title:       "A title",
		Category:    "A category",
		Content:     []byte(`{}`),
		Compression: "nop",
	}
}

func TestGormStore_Exploration(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.NewDB(t))

	require.NoError(t, s.CreateExploration(ctx, newExploration("exp-1")))
	assert.ErrorIs(t, s.CreateExploration(ctx, newExploration("exp-1")), ErrAlreadyExists)

	got, err := s.GetExploration(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	_, err = s.GetExploration(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	exps, err := s.GetExplorations(ctx, []string{"exp-1", "missing"})
	require.NoError(t, err)
	assert.Len(t, exps, 1)

	// a deleted id cannot be reused
	require.NoError(t, s.DeleteExploration(ctx, "exp-1"))
	_, err = s.GetExploration(ctx, "exp-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.CreateExploration(ctx, newExploration("exp-1")), ErrAlreadyExists)

	count, err := s.CountExplorations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestGormStore_UpdateExplorationIfVersion(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.NewDB(t))
	require.NoError(t, s.CreateExploration(ctx, newExploration("exp-1")))

	next := newExploration("exp-1")
	next.Version = 2
	next.Title = "Second"
	require.NoError(t, s.UpdateExplorationIfVersion(ctx, next, 1))

	// the same expected version loses once the row moved on
	assert.ErrorIs(t, s.UpdateExplorationIfVersion(ctx, next, 1), ErrVersionConflict)

	got, err := s.GetExploration(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "Second", got.Title)
}

func TestGormStore_Snapshots(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.NewDB(t))

	for _, v := range []int64{2, 1, 3} {
		require.NoError(t, s.CreateSnapshot(ctx, &model.ExplorationSnapshot{
			ExplorationID: "exp-1",
			Version:       v,
			Content:       []byte("content"),
			Compression:   "nop",
			CommitterID:   "user",
			CommitType:    model.CommitTypeEdit,
		}))
	}

	err := s.CreateSnapshot(ctx, &model.ExplorationSnapshot{ExplorationID: "exp-1", Version: 1, Content: []byte("content"), Compression: "nop", CommitterID: "u", CommitType: model.CommitTypeEdit})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	versions, err := s.ListSnapshotVersions(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, versions)

	metas, err := s.ListSnapshots(ctx, "exp-1")
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Empty(t, metas[0].Content)

	snapshot, err := s.GetSnapshot(ctx, "exp-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), snapshot.Content)

	_, err = s.GetSnapshot(ctx, "exp-1", 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_CommitLog(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.NewDB(t))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateCommitLogEntry(ctx, &model.CommitLogEntry{
			EntryID:             uuid.NewString(),
			ExplorationID:       "exp-1",
			UserID:              "user",
			CommitType:          model.CommitTypeEdit,
			CommitMessage:       string(rune('a' + i)),
			PostCommitStatus:    "private",
			PostCommitIsPrivate: i%2 == 0,
		}))
	}

	page, err := s.ListCommitLogEntries(ctx, CommitLogQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].CommitMessage)
	assert.Equal(t, "d", page[1].CommitMessage)

	page, err = s.ListCommitLogEntries(ctx, CommitLogQuery{BeforeSeq: page[1].Seq})
	require.NoError(t, err)
	assert.Len(t, page, 3)

	public, err := s.ListCommitLogEntries(ctx, CommitLogQuery{NonPrivate: true})
	require.NoError(t, err)
	assert.Len(t, public, 2)
}

func TestGormStore_Summaries(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.NewDB(t))

	for _, summary := range []*model.ExplorationSummary{
		{ID: "a", Title: "A", Category: "C", Status: "private"},
		{ID: "b", Title: "B", Category: "C", Status: "public"},
		{ID: "c", Title: "C", Category: "C", Status: "publicized", CommunityOwned: true},
	} {
		require.NoError(t, s.SaveSummary(ctx, summary))
	}
	require.NoError(t, s.SaveRole(ctx, &model.ExplorationRole{ExplorationID: "a", UserID: "u1", Role: "viewer"}))
	require.NoError(t, s.SaveRole(ctx, &model.ExplorationRole{ExplorationID: "a", UserID: "u1", Role: "editor"}))
	require.NoError(t, s.SaveRole(ctx, &model.ExplorationRole{ExplorationID: "b", UserID: "u1", Role: "viewer"}))

	roles, err := s.ListRoles(ctx, "a")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "editor", roles[0].Role)

	tests := []struct {
		name   string
		filter SummaryFilter
		want   []string
	}{
		{name: "all", filter: SummaryFilter{}, want: []string{"a", "b", "c"}},
		{name: "non private", filter: SummaryFilter{ExcludeStatus: "private"}, want: []string{"b", "c"}},
		{name: "private member", filter: SummaryFilter{Status: "private", MemberID: "u1"}, want: []string{"a"}},
		{
			name:   "editable",
			filter: SummaryFilter{MemberID: "u1", MemberRoles: []string{"owner", "editor"}, CommunityOwned: true},
			want:   []string{"a", "c"},
		},
		{name: "page", filter: SummaryFilter{AfterID: "a", Limit: 1}, want: []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summaries, err := s.ListSummaries(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(summaries))
			for _, summary := range summaries {
				ids = append(ids, summary.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGormStore_Ratings(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.NewDB(t))

	require.NoError(t, s.SaveRating(ctx, &model.UserRating{ExplorationID: "exp-1", UserID: "u1", Rating: 2}))
	require.NoError(t, s.SaveRating(ctx, &model.UserRating{ExplorationID: "exp-1", UserID: "u1", Rating: 5}))
	require.NoError(t, s.SaveRating(ctx, &model.UserRating{ExplorationID: "exp-1", UserID: "u2", Rating: 1}))

	ratings, err := s.ListRatings(ctx, "exp-1")
	require.NoError(t, err)
	require.Len(t, ratings, 2)

	byUser := map[string]int{}
	for _, r := range ratings {
		byUser[r.UserID] = r.Rating
	}
	assert.Equal(t, map[string]int{"u1": 5, "u2": 1}, byUser)
}

func TestGormStore_ListAssetsAsOf(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.NewDB(t))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assets := []*model.AssetFile{
		{ExplorationID: "exp-1", Filename: "a.png", Revision: 1, Content: []byte("a1"), CommitterID: "u", CreatedAt: base},
		{ExplorationID: "exp-1", Filename: "b.png", Revision: 1, Content: []byte("b1"), CommitterID: "u", CreatedAt: base.Add(time.Hour)},
		{ExplorationID: "exp-1", Filename: "a.png", Revision: 2, Content: []byte("a2"), CommitterID: "u", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, a := range assets {
		require.NoError(t, s.CreateAsset(ctx, a))
	}

	early, err := s.ListAssets(ctx, "exp-1", base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, early, 1)
	assert.Equal(t, []byte("a1"), early[0].Content)

	all, err := s.ListAssets(ctx, "exp-1", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []byte("a2"), all[0].Content)
	assert.Equal(t, "b.png", all[1].Filename)

	latest, err := s.GetAsset(ctx, "exp-1", "a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Revision)
}

func TestGormStore_EraseExploration(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.NewDB(t))

	require.NoError(t, s.Transaction(ctx, func(tx Store) error {
		if err := tx.CreateExploration(ctx, newExploration("exp-1")); err != nil {
			return err
		}
		return tx.CreateSnapshot(ctx, &model.ExplorationSnapshot{ExplorationID: "exp-1", Version: 1, Content: []byte("content"), Compression: "nop", CommitterID: "u", CommitType: model.CommitTypeCreate})
	}))
	require.NoError(t, s.SaveRights(ctx, &model.ExplorationRights{ID: "exp-1", Status: "private"}))

	require.NoError(t, s.EraseExploration(ctx, "exp-1"))

	versions, err := s.ListSnapshotVersions(ctx, "exp-1")
	require.NoError(t, err)
	assert.Empty(t, versions)
	_, err = s.GetRights(ctx, "exp-1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.CreateExploration(ctx, newExploration("exp-1")))
}
