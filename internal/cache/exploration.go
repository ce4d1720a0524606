package cache

import (
	"context"

	"github.com/emrgen/exploration/internal/model"
)

// ExplorationCache is a cache for live explorations.
type ExplorationCache interface {
	// GetExploration gets an exploration from the cache. A miss returns nil and no error.
	GetExploration(ctx context.Context, id string) (*model.Exploration, error)
	// SetExploration caches an exploration unless a newer version is already cached.
	SetExploration(ctx context.Context, exp *model.Exploration) error
	// DeleteExploration removes an exploration from the cache.
	DeleteExploration(ctx context.Context, id string) error
}

var _ ExplorationCache = (*NopExplorationCache)(nil)

// NopExplorationCache never holds anything.
type NopExplorationCache struct{}

func NewNopExplorationCache() *NopExplorationCache {
	return &NopExplorationCache{}
}

func (NopExplorationCache) GetExploration(ctx context.Context, id string) (*model.Exploration, error) {
	return nil, nil
}

func (NopExplorationCache) SetExploration(ctx context.Context, exp *model.Exploration) error {
	return nil
}

func (NopExplorationCache) DeleteExploration(ctx context.Context, id string) error {
	return nil
}
