package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type ChunkCategory string

const (
	CategoryJobDescription ChunkCategory = "job_description"
	CategoryCaseStudy      ChunkCategory = "case_study"
	CategoryCVRubric       ChunkCategory = "cv_rubric"
	CategoryProjectRubric  ChunkCategory = "project_rubric"
)

// AllChunkCategories lists every reference corpus category, in ingestion order.
var AllChunkCategories = []ChunkCategory{
	CategoryJobDescription,
	CategoryCaseStudy,
	CategoryCVRubric,
	CategoryProjectRubric,
}

// JSONMap stores arbitrary chunk metadata as a JSONB column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}

	return json.Unmarshal(data, m)
}

// Vector stores a fixed-dimension embedding as a JSON array column.
type Vector []float32

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}

	var data []byte
	switch raw := value.(type) {
	case []byte:
		data = raw
	case string:
		data = []byte(raw)
	default:
		return fmt.Errorf("unsupported embedding column type %T", value)
	}

	return json.Unmarshal(data, v)
}

// ReferenceChunk is one retrieval unit: a bounded excerpt of a reference
// document with its embedding. Immutable once stored; deleted in bulk by
// category for re-ingestion. Chunks have no relation to evaluations, they
// are found by content similarity only.
type ReferenceChunk struct {
	ID           uint          `gorm:"primary_key;autoIncrement" json:"id"`
	Category     ChunkCategory `gorm:"type:text;not null;index" json:"category"`
	DocumentName string        `gorm:"type:text;not null" json:"document_name"`
	Content      string        `gorm:"type:text;not null" json:"content"`
	Metadata     JSONMap       `gorm:"type:jsonb" json:"metadata,omitempty"`
	Embedding    Vector        `gorm:"type:jsonb" json:"-"`
	CreatedAt    time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ReferenceChunk) TableName() string {
	return "reference_chunks"
}
