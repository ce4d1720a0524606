package store

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/exploration/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a conditional update finds a different version.
	ErrVersionConflict = errors.New("version conflict")
	// ErrAlreadyExists is returned when creating a record whose key is taken.
	ErrAlreadyExists = errors.New("record already exists")
)

type Store interface {
	ExplorationStore
	SnapshotStore
	CommitLogStore
	SummaryStore
	RightsStore
	RatingStore
	AssetStore
	AnswerLogStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type ExplorationStore interface {
	// CreateExploration inserts the live row of a new exploration.
	CreateExploration(ctx context.Context, exp *model.Exploration) error
	// GetExploration retrieves the live row of an exploration.
	GetExploration(ctx context.Context, id string) (*model.Exploration, error)
	// GetExplorations retrieves the live rows of the given ids, skipping missing ones.
	GetExplorations(ctx context.Context, ids []string) ([]*model.Exploration, error)
	// CountExplorations counts the explorations that are not deleted.
	CountExplorations(ctx context.Context) (int64, error)
	// UpdateExplorationIfVersion writes exp only if the stored version equals expected.
	UpdateExplorationIfVersion(ctx context.Context, exp *model.Exploration, expected int64) error
	// DeleteExploration soft deletes the live row.
	DeleteExploration(ctx context.Context, id string) error
	// EraseExploration removes every record of an exploration except its commit log entries.
	EraseExploration(ctx context.Context, id string) error
}

type SnapshotStore interface {
	// CreateSnapshot inserts a snapshot, failing if the version already exists.
	CreateSnapshot(ctx context.Context, snapshot *model.ExplorationSnapshot) error
	// GetSnapshot retrieves the snapshot of a version.
	GetSnapshot(ctx context.Context, id string, version int64) (*model.ExplorationSnapshot, error)
	// ListSnapshots retrieves snapshot metadata, without content, oldest first.
	ListSnapshots(ctx context.Context, id string) ([]*model.ExplorationSnapshot, error)
	// ListSnapshotVersions retrieves the stored versions, oldest first.
	ListSnapshotVersions(ctx context.Context, id string) ([]int64, error)
}

// CommitLogQuery selects a page of the commit log. Entries are returned newest
// first; BeforeSeq of zero starts at the newest entry.
type CommitLogQuery struct {
	BeforeSeq     uint64
	Limit         int
	NonPrivate    bool
	ExplorationID string
}

type CommitLogStore interface {
	// CreateCommitLogEntry appends an entry to the commit log.
	CreateCommitLogEntry(ctx context.Context, entry *model.CommitLogEntry) error
	// ListCommitLogEntries retrieves a page of the commit log.
	ListCommitLogEntries(ctx context.Context, query CommitLogQuery) ([]*model.CommitLogEntry, error)
}

// SummaryFilter selects summaries. Empty fields do not filter. A summary
// matches MemberID when the member holds one of MemberRoles, or when
// CommunityOwned is set and the summary is community owned.
type SummaryFilter struct {
	Status         string
	ExcludeStatus  string
	MemberID       string
	MemberRoles    []string
	CommunityOwned bool
	AfterID        string
	Limit          int
}

type SummaryStore interface {
	// SaveSummary creates or replaces a summary.
	SaveSummary(ctx context.Context, summary *model.ExplorationSummary) error
	// GetSummary retrieves the summary of an exploration.
	GetSummary(ctx context.Context, id string) (*model.ExplorationSummary, error)
	// GetSummaries retrieves the summaries of the given ids, skipping missing ones.
	GetSummaries(ctx context.Context, ids []string) ([]*model.ExplorationSummary, error)
	// ListSummaries retrieves summaries ordered by id.
	ListSummaries(ctx context.Context, filter SummaryFilter) ([]*model.ExplorationSummary, error)
	// DeleteSummary removes the summary of an exploration.
	DeleteSummary(ctx context.Context, id string) error
}

type RightsStore interface {
	// SaveRights creates or replaces the rights of an exploration.
	SaveRights(ctx context.Context, rights *model.ExplorationRights) error
	// GetRights retrieves the rights of an exploration.
	GetRights(ctx context.Context, id string) (*model.ExplorationRights, error)
	// SaveRole assigns a role, replacing any previous role of the user.
	SaveRole(ctx context.Context, role *model.ExplorationRole) error
	// ListRoles retrieves the roles of an exploration.
	ListRoles(ctx context.Context, id string) ([]*model.ExplorationRole, error)
}

type RatingStore interface {
	// SaveRating creates or replaces the rating of a user.
	SaveRating(ctx context.Context, rating *model.UserRating) error
	// ListRatings retrieves all ratings of an exploration.
	ListRatings(ctx context.Context, id string) ([]*model.UserRating, error)
}

type AssetStore interface {
	// CreateAsset inserts a new asset revision.
	CreateAsset(ctx context.Context, asset *model.AssetFile) error
	// GetAsset retrieves the latest revision of an asset.
	GetAsset(ctx context.Context, id, filename string) (*model.AssetFile, error)
	// ListAssets retrieves the latest revision of each asset created at or
	// before asOf. A zero asOf lists the current assets.
	ListAssets(ctx context.Context, id string, asOf time.Time) ([]*model.AssetFile, error)
}

type AnswerLogStore interface {
	// GetAnswerLog retrieves an answer log by id.
	GetAnswerLog(ctx context.Context, id string) (*model.AnswerLog, error)
	// SaveAnswerLog creates or replaces an answer log.
	SaveAnswerLog(ctx context.Context, log *model.AnswerLog) error
	// ListAnswerLogs retrieves the answer logs of a state.
	ListAnswerLogs(ctx context.Context, id, stateName string) ([]*model.AnswerLog, error)
}
