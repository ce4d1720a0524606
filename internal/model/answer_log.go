package model

import (
	"time"

	"gorm.io/datatypes"
)

// AnswerLog counts the answers submitted to one rule of one state.
type AnswerLog struct {
	ID            string                             `gorm:"primaryKey;not null"`
	ExplorationID string                             `gorm:"index;not null"`
	StateName     string                             `gorm:"not null"`
	HandlerName   string                             `gorm:"not null"`
	RuleStr       string                             `gorm:"not null"`
	Answers       datatypes.JSONType[map[string]int] `gorm:""`
	UpdatedAt     time.Time
}

func (AnswerLog) TableName() string {
	return "answer_logs"
}
