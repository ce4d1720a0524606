package model

import (
	"time"

	"gorm.io/datatypes"
)

// ExplorationSummary is the denormalized projection used for listings and
// search. It is rebuilt from the exploration, its rights and its ratings.
type ExplorationSummary struct {
	ID                   string                             `gorm:"primaryKey;not null"`
	Title                string                             `gorm:"not null"`
	Category             string                             `gorm:"not null"`
	Objective            string                             `gorm:""`
	LanguageCode         string                             `gorm:""`
	Tags                 datatypes.JSONSlice[string]        `gorm:""`
	Ratings              datatypes.JSONType[map[string]int] `gorm:""`
	Status               string                             `gorm:"index;not null"`
	CommunityOwned       bool                               `gorm:""`
	OwnerIDs             datatypes.JSONSlice[string]        `gorm:""`
	EditorIDs            datatypes.JSONSlice[string]        `gorm:""`
	ViewerIDs            datatypes.JSONSlice[string]        `gorm:""`
	Version              int64                              `gorm:"not null"`
	ExplorationCreatedAt time.Time
	ExplorationUpdatedAt time.Time
	UpdatedAt            time.Time
}

func (ExplorationSummary) TableName() string {
	return "exploration_summaries"
}
