package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Exploration{},
		&ExplorationSnapshot{},
		&CommitLogEntry{},
		&ExplorationSummary{},
		&ExplorationRights{},
		&ExplorationRole{},
		&UserRating{},
		&AssetFile{},
		&SearchDocument{},
		&AnswerLog{},
	)
}
