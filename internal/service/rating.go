package service

import (
	"context"

	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/store"
	"github.com/sirupsen/logrus"
)

// RatingService records reader ratings. Each user holds at most one rating
// per exploration; rating again replaces it.
type RatingService struct {
	store     store.Store
	projector *SummaryProjector
	searcher  *SearchIndexer
}

func NewRatingService(store store.Store, projector *SummaryProjector, searcher *SearchIndexer) *RatingService {
	return &RatingService{
		store:     store,
		projector: projector,
		searcher:  searcher,
	}
}

// AssignRating stores the rating of userID and returns the refreshed summary.
func (s *RatingService) AssignRating(ctx context.Context, userID, id string, rating int) (*model.ExplorationSummary, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var summary *model.ExplorationSummary
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetExploration(ctx, id); err != nil {
			return notFound(err, "exploration", id, 0)
		}
		err := tx.SaveRating(ctx, &model.UserRating{
			ExplorationID: id,
			UserID:        userID,
			Rating:        rating,
		})
		if err != nil {
			return err
		}

		summary, err = s.projector.Refresh(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.searcher.StatusChanged(context.WithoutCancel(ctx), id); err != nil {
		sinkFailuresTotal.WithLabelValues("search").Inc()
		logrus.WithError(err).WithField("exploration", id).Error("search rank update failed")
	}

	return summary, nil
}
