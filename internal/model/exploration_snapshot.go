package model

import (
	"time"

	"gorm.io/datatypes"
)

// Commit types recorded on snapshots and commit log entries.
const (
	CommitTypeCreate = "create"
	CommitTypeEdit   = "edit"
	CommitTypeRevert = "revert"
	CommitTypeDelete = "delete"
)

// ExplorationSnapshot is the immutable copy of an exploration at one version.
// snapshots are never updated; they survive soft deletion of the exploration
type ExplorationSnapshot struct {
	ExplorationID string         `gorm:"primaryKey;not null"`
	Version       int64          `gorm:"primaryKey;autoIncrement:false"`
	Content       []byte         `gorm:"not null"`
	Compression   string         `gorm:"not null"`
	CommitterID   string         `gorm:"not null"`
	CommitType    string         `gorm:"not null"`
	CommitMessage string         `gorm:""`
	CommitCmds    datatypes.JSON `gorm:""`
	CreatedAt     time.Time
}

func (ExplorationSnapshot) TableName() string {
	return "exploration_snapshots"
}
