package model

import (
	"time"

	"gorm.io/datatypes"
)

// CommitLogEntry is one record of the global commit log. Seq grows with every
// insert and orders the log. Version is nil for rights changes that do not
// create a new version.
type CommitLogEntry struct {
	Seq                      uint64         `gorm:"primaryKey;autoIncrement"`
	EntryID                  string         `gorm:"uniqueIndex;not null"`
	ExplorationID            string         `gorm:"index;not null"`
	Version                  *int64         `gorm:""`
	UserID                   string         `gorm:"not null"`
	Username                 string         `gorm:""`
	CommitType               string         `gorm:"not null"`
	CommitMessage            string         `gorm:""`
	CommitCmds               datatypes.JSON `gorm:""`
	PostCommitStatus         string         `gorm:"not null"`
	PostCommitIsPrivate      bool           `gorm:"index"`
	PostCommitCommunityOwned bool
	CreatedAt                time.Time `gorm:"index"`
}

func (CommitLogEntry) TableName() string {
	return "commit_log_entries"
}
