package model

import (
	"time"

	"gorm.io/gorm"
)

// Exploration is the live version of an exploration. Content holds the
// encoded document as written by the configured compression.
type Exploration struct {
	ID          string `gorm:"primaryKey;not null"`
	Version     int64  `gorm:"not null"`
	Title       string `gorm:"not null"`
	Category    string `gorm:"not null"`
	Content     []byte `gorm:"not null"`
	Compression string `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Exploration) TableName() string {
	return "explorations"
}
