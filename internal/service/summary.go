package service

import (
	"context"
	"slices"
	"strconv"

	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/store"
	"gorm.io/datatypes"
)

// RankConfig holds the constants of the search rank.
type RankConfig struct {
	Baseline        int         `mapstructure:"baseline"`
	PublicBonus     int         `mapstructure:"public_bonus"`
	PublicizedBonus int         `mapstructure:"publicized_bonus"`
	Weights         map[int]int `mapstructure:"weights"`
}

func DefaultRankConfig() RankConfig {
	return RankConfig{
		Baseline:        20,
		PublicBonus:     0,
		PublicizedBonus: 30,
		Weights:         map[int]int{1: -5, 2: -2, 3: 2, 4: 5, 5: 10},
	}
}

// SearchRank scores an exploration from its status and its rating counts,
// keyed "1" to "5". The rank is never negative.
func SearchRank(status rights.Status, ratings map[string]int, cfg RankConfig) int {
	rank := cfg.Baseline
	switch status {
	case rights.StatusPublicized:
		rank += cfg.PublicizedBonus
	case rights.StatusPublic:
		rank += cfg.PublicBonus
	}

	for key, count := range ratings {
		rating, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		rank += count * cfg.Weights[rating]
	}

	return max(rank, 0)
}

// emptyRatings returns the rating counts of an unrated exploration.
func emptyRatings() map[string]int {
	return map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}
}

// SummaryProjector is the only writer of exploration summaries.
type SummaryProjector struct {
	rank RankConfig
}

func NewSummaryProjector(rank RankConfig) *SummaryProjector {
	return &SummaryProjector{rank: rank}
}

// Refresh rebuilds the summary of an exploration from its live row, rights
// and ratings. It is meant to run inside the commit transaction.
func (p *SummaryProjector) Refresh(ctx context.Context, tx store.Store, id string) (*model.ExplorationSummary, error) {
	row, err := tx.GetExploration(ctx, id)
	if err != nil {
		return nil, notFound(err, "exploration", id, 0)
	}
	doc, err := decodeExploration(row)
	if err != nil {
		return nil, err
	}
	r, err := rights.Load(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	ratings, err := ratingCounts(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	createdAt := row.CreatedAt
	if existing, err := tx.GetSummary(ctx, id); err == nil {
		createdAt = existing.ExplorationCreatedAt
	}

	summary := &model.ExplorationSummary{
		ID:                   id,
		Title:                doc.Title,
		Category:             doc.Category,
		Objective:            doc.Objective,
		LanguageCode:         doc.LanguageCode,
		Tags:                 datatypes.NewJSONSlice(doc.Tags),
		Ratings:              datatypes.NewJSONType(ratings),
		Status:               string(r.Status),
		CommunityOwned:       r.CommunityOwned,
		OwnerIDs:             datatypes.NewJSONSlice(r.OwnerIDs),
		EditorIDs:            datatypes.NewJSONSlice(r.EditorIDs),
		ViewerIDs:            datatypes.NewJSONSlice(r.ViewerIDs),
		Version:              row.Version,
		ExplorationCreatedAt: createdAt,
		ExplorationUpdatedAt: row.UpdatedAt,
	}
	if err := tx.SaveSummary(ctx, summary); err != nil {
		return nil, err
	}

	return summary, nil
}

// Delete removes the summary of an exploration.
func (p *SummaryProjector) Delete(ctx context.Context, tx store.Store, id string) error {
	return tx.DeleteSummary(ctx, id)
}

// Rank computes the search rank of a summary.
func (p *SummaryProjector) Rank(summary *model.ExplorationSummary) int {
	return SearchRank(rights.Status(summary.Status), summary.Ratings.Data(), p.rank)
}

// IsSummaryEditable reports whether userID may edit the summarized exploration.
func IsSummaryEditable(summary *model.ExplorationSummary, userID string) bool {
	if summary.CommunityOwned {
		return true
	}
	return slices.Contains(summary.OwnerIDs, userID) || slices.Contains(summary.EditorIDs, userID)
}

func ratingCounts(ctx context.Context, s store.RatingStore, id string) (map[string]int, error) {
	ratings, err := s.ListRatings(ctx, id)
	if err != nil {
		return nil, err
	}

	counts := emptyRatings()
	for _, r := range ratings {
		counts[strconv.Itoa(r.Rating)]++
	}
	return counts, nil
}
