package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentTypeCV            DocumentType = "cv"
	DocumentTypeProjectReport DocumentType = "project_report"
)

// Document is immutable once created. ExtractedText is populated at upload
// time; a document whose text was never extracted fails evaluation later.
type Document struct {
	ID            uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Type          DocumentType `gorm:"type:text;not null;index" json:"type"`
	Filename      string       `gorm:"type:text" json:"filename"`
	OriginalName  string       `gorm:"type:text" json:"original_name"`
	FilePath      string       `gorm:"type:text" json:"file_path"`
	MimeType      string       `gorm:"type:text" json:"mime_type"`
	FileSize      int64        `gorm:"type:bigint" json:"file_size"`
	ExtractedText string       `gorm:"type:text" json:"-"`
	CreatedAt     time.Time    `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (d *Document) TableName() string {
	return "documents"
}
