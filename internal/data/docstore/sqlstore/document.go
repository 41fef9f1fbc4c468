package sqlstore

import (
	"time"

	"gorm.io/datatypes"
)

// Document is the single table backing every kind.
type Document struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	Kind      string         `gorm:"type:varchar(64);not null;index:idx_documents_kind_id,priority:1"`
	Data      datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (Document) TableName() string { return "documents" }
