package model

import "time"

// AssetFile is one revision of a binary asset of an exploration.
type AssetFile struct {
	ExplorationID string    `gorm:"primaryKey;not null"`
	Filename      string    `gorm:"primaryKey;not null"`
	Revision      int64     `gorm:"primaryKey;autoIncrement:false"`
	Content       []byte    `gorm:"not null"`
	CommitterID   string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"index"`
}

func (AssetFile) TableName() string {
	return "asset_files"
}
