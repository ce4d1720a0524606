package server

import (
	"github.com/emrgen/exploration/internal/cache"
	"github.com/emrgen/exploration/internal/compress"
	"github.com/emrgen/exploration/internal/queue"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/search"
	"github.com/emrgen/exploration/internal/service"
	"github.com/emrgen/exploration/internal/store"
	"gorm.io/gorm"
)

// Options selects the collaborators of the services. Nil collaborators fall
// back to no-op implementations.
type Options struct {
	Admins   []string
	Rank     service.RankConfig
	Compress compress.Compress
	Cache    cache.ExplorationCache
	Notifier queue.Notifier
	Index    search.Index
}

// Services holds the wired exploration services.
type Services struct {
	Store        store.Store
	Auth         rights.Authorizer
	Searcher     *service.SearchIndexer
	Explorations *service.ExplorationService
	Revisions    *service.RevisionService
	Queries      *service.QueryService
	Ratings      *service.RatingService
	Assets       *service.AssetService
	Stats        *service.StatsService
	Rights       *rights.Manager
}

func NewServices(db *gorm.DB, opts Options) *Services {
	if opts.Compress == nil {
		opts.Compress = compress.NewNop()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNopExplorationCache()
	}
	if opts.Notifier == nil {
		opts.Notifier = queue.NopNotifier{}
	}
	if opts.Index == nil {
		opts.Index = search.NewGormIndex(db)
	}
	if opts.Rank.Weights == nil {
		opts.Rank = service.DefaultRankConfig()
	}

	s := store.NewGormStore(db)
	auth := rights.NewStoreAuthorizer(s, opts.Admins...)
	projector := service.NewSummaryProjector(opts.Rank)
	searcher := service.NewSearchIndexer(s, opts.Index, projector)
	explorations := service.NewExplorationService(s, auth, searcher, opts.Notifier, opts.Cache, opts.Compress, projector)

	return &Services{
		Store:        s,
		Auth:         auth,
		Searcher:     searcher,
		Explorations: explorations,
		Revisions:    service.NewRevisionService(s, auth, explorations),
		Queries:      service.NewQueryService(s, searcher),
		Ratings:      service.NewRatingService(s, projector, searcher),
		Assets:       service.NewAssetService(s, auth),
		Stats:        service.NewStatsService(s),
		Rights:       rights.NewManager(s, auth, explorations, explorations),
	}
}
