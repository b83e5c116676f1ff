package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
)

// postgresChunkStore keeps reference chunks in the main database, embeddings
// serialized as JSONB. A category holds at most a few hundred chunks, so
// similarity ranking loads the category and scores in memory.
type postgresChunkStore struct {
	db *gorm.DB
}

func NewPostgresChunkStore(db *gorm.DB) ChunkStore {
	return &postgresChunkStore{db: db}
}

// Save implements ChunkStore.
func (s *postgresChunkStore) Save(ctx context.Context, chunk *models.ReferenceChunk) error {
	if err := s.db.WithContext(ctx).Create(chunk).Error; err != nil {
		return fmt.Errorf("failed to save chunk: %w", err)
	}

	return nil
}

// Search implements ChunkStore.
func (s *postgresChunkStore) Search(ctx context.Context, embedding []float32, category models.ChunkCategory, limit int) ([]ScoredChunk, error) {
	var chunks []models.ReferenceChunk
	err := s.db.WithContext(ctx).
		Where("category = ?", category).
		Find(&chunks).Error

	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	return rankBySimilarity(embedding, chunks, limit), nil
}

// DeleteByCategory implements ChunkStore.
func (s *postgresChunkStore) DeleteByCategory(ctx context.Context, category models.ChunkCategory) error {
	err := s.db.WithContext(ctx).
		Where("category = ?", category).
		Delete(&models.ReferenceChunk{}).Error

	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	return nil
}

// CountByCategory implements ChunkStore.
func (s *postgresChunkStore) CountByCategory(ctx context.Context) (map[models.ChunkCategory]int64, error) {
	var rows []struct {
		Category models.ChunkCategory
		Total    int64
	}

	err := s.db.WithContext(ctx).
		Model(&models.ReferenceChunk{}).
		Select("category, count(*) as total").
		Group("category").
		Scan(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	stats := make(map[models.ChunkCategory]int64, len(rows))
	for _, row := range rows {
		stats[row.Category] = row.Total
	}

	return stats, nil
}
