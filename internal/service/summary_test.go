package service

import (
	"context"
	"testing"

	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSearchRank(t *testing.T) {
	tests := []struct {
		name    string
		status  rights.Status
		ratings map[string]int
		want    int
	}{
		{name: "new", status: rights.StatusPrivate, ratings: emptyRatings(), want: 20},
		{name: "public", status: rights.StatusPublic, ratings: emptyRatings(), want: 20},
		{name: "publicized", status: rights.StatusPublicized, ratings: emptyRatings(), want: 50},
		{name: "one five star", status: rights.StatusPublicized, ratings: map[string]int{"5": 1}, want: 60},
		{name: "five and two stars", status: rights.StatusPublicized, ratings: map[string]int{"5": 1, "2": 1}, want: 58},
		{name: "floored at zero", status: rights.StatusPrivate, ratings: map[string]int{"1": 10}, want: 0},
		{name: "unknown keys ignored", status: rights.StatusPrivate, ratings: map[string]int{"x": 3}, want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchRank(tt.status, tt.ratings, DefaultRankConfig()))
		})
	}

	cfg := DefaultRankConfig()
	cfg.Baseline = 0
	cfg.PublicBonus = 7
	assert.Equal(t, 7, SearchRank(rights.StatusPublic, nil, cfg))
}

func TestIsSummaryEditable(t *testing.T) {
	summary := &model.ExplorationSummary{
		OwnerIDs:  datatypes.NewJSONSlice([]string{ownerID}),
		EditorIDs: datatypes.NewJSONSlice([]string{"editor"}),
		ViewerIDs: datatypes.NewJSONSlice([]string{"viewer"}),
	}

	assert.True(t, IsSummaryEditable(summary, ownerID))
	assert.True(t, IsSummaryEditable(summary, "editor"))
	assert.False(t, IsSummaryEditable(summary, "viewer"))

	summary.CommunityOwned = true
	assert.True(t, IsSummaryEditable(summary, "viewer"))
}

func TestRatingService_AssignRating(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)
	env.create(t, "exp-1")

	_, err := env.rights.Publish(ctx, ownerID, "exp-1")
	require.NoError(t, err)
	_, err = env.rights.Publicize(ctx, adminID, "exp-1")
	require.NoError(t, err)

	rank := func() int {
		doc, err := env.index.GetDocument(ctx, search.ExplorationIndex, "exp-1")
		require.NoError(t, err)
		return doc.Int("rank")
	}
	assert.Equal(t, 50, rank())

	summary, err := env.ratings.AssignRating(ctx, "reader", "exp-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Ratings.Data()["5"])
	assert.Equal(t, 60, rank())

	// rating again replaces the earlier rating
	summary, err = env.ratings.AssignRating(ctx, "reader", "exp-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Ratings.Data()["5"])
	assert.Equal(t, 60, rank())

	summary, err = env.ratings.AssignRating(ctx, "reader", "exp-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Ratings.Data()["5"])
	assert.Equal(t, 1, summary.Ratings.Data()["2"])
	assert.Equal(t, 48, rank())

	_, err = env.ratings.AssignRating(ctx, "reader", "exp-1", 6)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = env.ratings.AssignRating(ctx, "reader", "missing", 3)
	assert.Error(t, err)
}
