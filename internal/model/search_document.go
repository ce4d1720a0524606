package model

import (
	"time"

	"gorm.io/datatypes"
)

// SearchDocument is a document of a search index. The searchable columns are
// copied out of Fields when the document is written.
type SearchDocument struct {
	IndexName string            `gorm:"primaryKey;not null"`
	ID        string            `gorm:"primaryKey;not null"`
	Title     string            `gorm:"index"`
	Category  string            `gorm:""`
	Objective string            `gorm:""`
	Tags      string            `gorm:""`
	Rank      int               `gorm:"index"`
	Fields    datatypes.JSONMap `gorm:""`
	UpdatedAt time.Time
}

func (SearchDocument) TableName() string {
	return "search_documents"
}
