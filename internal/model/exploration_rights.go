package model

import "time"

// ExplorationRights holds the publication state of an exploration.
type ExplorationRights struct {
	ID                string `gorm:"primaryKey;not null"`
	Status            string `gorm:"not null;default:private"`
	CommunityOwned    bool
	ViewableIfPrivate bool
	ClonedFrom        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (ExplorationRights) TableName() string {
	return "exploration_rights"
}

// ExplorationRole grants a single user a role on an exploration.
type ExplorationRole struct {
	ExplorationID string `gorm:"primaryKey;not null"`
	UserID        string `gorm:"primaryKey;not null"`
	Role          string `gorm:"index;not null"`
	CreatedAt     time.Time
}

func (ExplorationRole) TableName() string {
	return "exploration_roles"
}
