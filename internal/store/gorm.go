package store

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/exploration/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrAlreadyExists
	}
	return err
}

func (g *GormStore) CreateExploration(ctx context.Context, exp *model.Exploration) error {
	var count int64
	err := g.db.WithContext(ctx).Unscoped().Model(&model.Exploration{}).Where("id = ?", exp.ID).Count(&count).Error
	if err != nil {
		return err
	}
	if count != 0 {
		return ErrAlreadyExists
	}

	return translate(g.db.WithContext(ctx).Create(exp).Error)
}

func (g *GormStore) GetExploration(ctx context.Context, id string) (*model.Exploration, error) {
	var exp model.Exploration
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&exp).Error
	if err != nil {
		return nil, translate(err)
	}
	return &exp, nil
}

func (g *GormStore) GetExplorations(ctx context.Context, ids []string) ([]*model.Exploration, error) {
	var exps []*model.Exploration
	if len(ids) == 0 {
		return exps, nil
	}
	err := g.db.WithContext(ctx).Where("id in (?)", ids).Find(&exps).Error
	return exps, err
}

func (g *GormStore) CountExplorations(ctx context.Context) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&model.Exploration{}).Count(&count).Error
	return count, err
}

// UpdateExplorationIfVersion is the only way the live row changes after
// creation. Zero affected rows means another commit won the race.
func (g *GormStore) UpdateExplorationIfVersion(ctx context.Context, exp *model.Exploration, expected int64) error {
	res := g.db.WithContext(ctx).Model(&model.Exploration{}).
		Where("id = ? AND version = ?", exp.ID, expected).
		Updates(map[string]interface{}{
			"version":     exp.Version,
			"title":       exp.Title,
			"category":    exp.Category,
			"content":     exp.Content,
			"compression": exp.Compression,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		logrus.Debugf("exploration %s is not at version %d", exp.ID, expected)
		return ErrVersionConflict
	}

	return nil
}

func (g *GormStore) DeleteExploration(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Exploration{}).Error
}

func (g *GormStore) EraseExploration(ctx context.Context, id string) error {
	records := []struct {
		value  interface{}
		column string
	}{
		{&model.Exploration{}, "id"},
		{&model.ExplorationSnapshot{}, "exploration_id"},
		{&model.ExplorationSummary{}, "id"},
		{&model.ExplorationRights{}, "id"},
		{&model.ExplorationRole{}, "exploration_id"},
		{&model.UserRating{}, "exploration_id"},
		{&model.AssetFile{}, "exploration_id"},
		{&model.AnswerLog{}, "exploration_id"},
	}
	for _, r := range records {
		// each delete needs a fresh statement, chained conditions would leak across tables
		db := g.db.WithContext(ctx).Unscoped()
		if err := db.Where(r.column+" = ?", id).Delete(r.value).Error; err != nil {
			return err
		}
	}

	return nil
}

func (g *GormStore) CreateSnapshot(ctx context.Context, snapshot *model.ExplorationSnapshot) error {
	return translate(g.db.WithContext(ctx).Create(snapshot).Error)
}

func (g *GormStore) GetSnapshot(ctx context.Context, id string, version int64) (*model.ExplorationSnapshot, error) {
	var snapshot model.ExplorationSnapshot
	err := g.db.WithContext(ctx).Where("exploration_id = ? AND version = ?", id, version).First(&snapshot).Error
	if err != nil {
		return nil, translate(err)
	}
	return &snapshot, nil
}

func (g *GormStore) ListSnapshots(ctx context.Context, id string) ([]*model.ExplorationSnapshot, error) {
	var snapshots []*model.ExplorationSnapshot
	err := g.db.WithContext(ctx).Omit("content").Where("exploration_id = ?", id).Order("version asc").Find(&snapshots).Error
	return snapshots, err
}

func (g *GormStore) ListSnapshotVersions(ctx context.Context, id string) ([]int64, error) {
	var versions []int64
	err := g.db.WithContext(ctx).Model(&model.ExplorationSnapshot{}).
		Where("exploration_id = ?", id).Order("version asc").Pluck("version", &versions).Error
	return versions, err
}

func (g *GormStore) CreateCommitLogEntry(ctx context.Context, entry *model.CommitLogEntry) error {
	return translate(g.db.WithContext(ctx).Create(entry).Error)
}

func (g *GormStore) ListCommitLogEntries(ctx context.Context, query CommitLogQuery) ([]*model.CommitLogEntry, error) {
	db := g.db.WithContext(ctx).Order("seq desc")
	if query.BeforeSeq != 0 {
		db = db.Where("seq < ?", query.BeforeSeq)
	}
	if query.NonPrivate {
		db = db.Where("post_commit_is_private = ?", false)
	}
	if query.ExplorationID != "" {
		db = db.Where("exploration_id = ?", query.ExplorationID)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	var entries []*model.CommitLogEntry
	err := db.Find(&entries).Error
	return entries, err
}

func (g *GormStore) SaveSummary(ctx context.Context, summary *model.ExplorationSummary) error {
	return g.db.WithContext(ctx).Save(summary).Error
}

func (g *GormStore) GetSummary(ctx context.Context, id string) (*model.ExplorationSummary, error) {
	var summary model.ExplorationSummary
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&summary).Error
	if err != nil {
		return nil, translate(err)
	}
	return &summary, nil
}

func (g *GormStore) GetSummaries(ctx context.Context, ids []string) ([]*model.ExplorationSummary, error) {
	var summaries []*model.ExplorationSummary
	if len(ids) == 0 {
		return summaries, nil
	}
	err := g.db.WithContext(ctx).Where("id in (?)", ids).Find(&summaries).Error
	return summaries, err
}

func (g *GormStore) ListSummaries(ctx context.Context, filter SummaryFilter) ([]*model.ExplorationSummary, error) {
	db := g.db.WithContext(ctx).Order("id asc")
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.ExcludeStatus != "" {
		db = db.Where("status <> ?", filter.ExcludeStatus)
	}
	if filter.MemberID != "" {
		members := g.db.Model(&model.ExplorationRole{}).Select("exploration_id").Where("user_id = ?", filter.MemberID)
		if len(filter.MemberRoles) != 0 {
			members = members.Where("role in (?)", filter.MemberRoles)
		}
		if filter.CommunityOwned {
			db = db.Where("community_owned = ? OR id in (?)", true, members)
		} else {
			db = db.Where("id in (?)", members)
		}
	}
	if filter.AfterID != "" {
		db = db.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}

	var summaries []*model.ExplorationSummary
	err := db.Find(&summaries).Error
	return summaries, err
}

func (g *GormStore) DeleteSummary(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ExplorationSummary{}).Error
}

func (g *GormStore) SaveRights(ctx context.Context, rights *model.ExplorationRights) error {
	return g.db.WithContext(ctx).Save(rights).Error
}

func (g *GormStore) GetRights(ctx context.Context, id string) (*model.ExplorationRights, error) {
	var rights model.ExplorationRights
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&rights).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rights, nil
}

func (g *GormStore) SaveRole(ctx context.Context, role *model.ExplorationRole) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exploration_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(role).Error
}

func (g *GormStore) ListRoles(ctx context.Context, id string) ([]*model.ExplorationRole, error) {
	var roles []*model.ExplorationRole
	err := g.db.WithContext(ctx).Where("exploration_id = ?", id).Order("created_at asc, user_id asc").Find(&roles).Error
	return roles, err
}

func (g *GormStore) SaveRating(ctx context.Context, rating *model.UserRating) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exploration_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(rating).Error
}

func (g *GormStore) ListRatings(ctx context.Context, id string) ([]*model.UserRating, error) {
	var ratings []*model.UserRating
	err := g.db.WithContext(ctx).Where("exploration_id = ?", id).Find(&ratings).Error
	return ratings, err
}

func (g *GormStore) CreateAsset(ctx context.Context, asset *model.AssetFile) error {
	return translate(g.db.WithContext(ctx).Create(asset).Error)
}

func (g *GormStore) GetAsset(ctx context.Context, id, filename string) (*model.AssetFile, error) {
	var asset model.AssetFile
	err := g.db.WithContext(ctx).Where("exploration_id = ? AND filename = ?", id, filename).Order("revision desc").First(&asset).Error
	if err != nil {
		return nil, translate(err)
	}
	return &asset, nil
}

func (g *GormStore) ListAssets(ctx context.Context, id string, asOf time.Time) ([]*model.AssetFile, error) {
	db := g.db.WithContext(ctx).Where("exploration_id = ?", id)
	if !asOf.IsZero() {
		db = db.Where("created_at <= ?", asOf)
	}

	var revisions []*model.AssetFile
	if err := db.Order("filename asc, revision asc").Find(&revisions).Error; err != nil {
		return nil, err
	}

	// keep the last revision of every filename
	assets := make([]*model.AssetFile, 0, len(revisions))
	for _, asset := range revisions {
		if n := len(assets); n != 0 && assets[n-1].Filename == asset.Filename {
			assets[n-1] = asset
			continue
		}
		assets = append(assets, asset)
	}

	return assets, nil
}

func (g *GormStore) GetAnswerLog(ctx context.Context, id string) (*model.AnswerLog, error) {
	var log model.AnswerLog
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

func (g *GormStore) SaveAnswerLog(ctx context.Context, log *model.AnswerLog) error {
	return g.db.WithContext(ctx).Save(log).Error
}

func (g *GormStore) ListAnswerLogs(ctx context.Context, id, stateName string) ([]*model.AnswerLog, error) {
	var logs []*model.AnswerLog
	err := g.db.WithContext(ctx).Where("exploration_id = ? AND state_name = ?", id, stateName).Order("id asc").Find(&logs).Error
	return logs, err
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
