package model

import "time"

// UserRating is the latest rating a user gave an exploration.
type UserRating struct {
	ExplorationID string `gorm:"primaryKey;not null"`
	UserID        string `gorm:"primaryKey;not null"`
	Rating        int    `gorm:"not null"`
	UpdatedAt     time.Time
}

func (UserRating) TableName() string {
	return "user_ratings"
}
