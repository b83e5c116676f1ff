package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
)

// ScoredChunk is one similarity-search hit.
type ScoredChunk struct {
	Content  string
	Score    float32
	Metadata models.JSONMap
}

// ChunkStore persists embedded reference chunks and answers similarity
// queries. Concurrent readers and writers are allowed; ingestion and
// deletion are not mutually isolated, a reader racing a re-ingestion may
// transiently observe zero chunks.
type ChunkStore interface {
	Save(ctx context.Context, chunk *models.ReferenceChunk) error
	Search(ctx context.Context, embedding []float32, category models.ChunkCategory, limit int) ([]ScoredChunk, error)
	DeleteByCategory(ctx context.Context, category models.ChunkCategory) error
	CountByCategory(ctx context.Context) (map[models.ChunkCategory]int64, error)
}

type VectorService interface {
	IngestDocument(ctx context.Context, category models.ChunkCategory, documentName, content string, metadata models.JSONMap) error
	RetrieveRelevant(ctx context.Context, query string, category models.ChunkCategory, topK int) ([]string, error)
	DeleteByCategory(ctx context.Context, category models.ChunkCategory) error
	GetStats(ctx context.Context) (map[models.ChunkCategory]int64, error)
}

type vectorService struct {
	gemini   GeminiService
	store    ChunkStore
	maxWords int
}

func NewVectorService(gemini GeminiService, store ChunkStore, chunkMaxWords int) VectorService {
	return &vectorService{
		gemini:   gemini,
		store:    store,
		maxWords: chunkMaxWords,
	}
}

// IngestDocument implements VectorService. Chunks are processed in order; a
// failure aborts the remaining chunks of this call and propagates, chunks
// already persisted are kept (no rollback).
func (v *vectorService) IngestDocument(ctx context.Context, category models.ChunkCategory, documentName, content string, metadata models.JSONMap) error {
	log.Printf("📚 Ingesting document: %s (%s)", documentName, category)

	chunks := SplitIntoChunks(content, v.maxWords)
	log.Printf("✂️  Document split into %d chunks", len(chunks))

	for i, chunk := range chunks {
		embedding, err := v.gemini.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d/%d of %s: %w", i+1, len(chunks), documentName, err)
		}

		merged := models.JSONMap{
			"chunk_index":  i,
			"total_chunks": len(chunks),
		}
		for key, value := range metadata {
			merged[key] = value
		}

		record := &models.ReferenceChunk{
			Category:     category,
			DocumentName: documentName,
			Content:      SanitizeContent(chunk),
			Metadata:     merged,
			Embedding:    models.Vector(embedding),
		}

		if err := v.store.Save(ctx, record); err != nil {
			return fmt.Errorf("failed to store chunk %d/%d of %s: %w", i+1, len(chunks), documentName, err)
		}
	}

	log.Printf("✅ Document ingestion completed: %s", documentName)
	return nil
}

// RetrieveRelevant implements VectorService. Results come back in
// similarity-descending order; fewer than topK chunks means all of them,
// never an error.
func (v *vectorService) RetrieveRelevant(ctx context.Context, query string, category models.ChunkCategory, topK int) ([]string, error) {
	queryEmbedding, err := v.gemini.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	results, err := v.store.Search(ctx, queryEmbedding, category, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s chunks: %w", category, err)
	}

	texts := make([]string, 0, len(results))
	for _, result := range results {
		texts = append(texts, result.Content)
	}

	return texts, nil
}

// DeleteByCategory implements VectorService. Not transactionally paired with
// re-ingestion.
func (v *vectorService) DeleteByCategory(ctx context.Context, category models.ChunkCategory) error {
	log.Printf("🗑️  Deleting all chunks for category: %s", category)
	return v.store.DeleteByCategory(ctx, category)
}

// GetStats implements VectorService.
func (v *vectorService) GetStats(ctx context.Context) (map[models.ChunkCategory]int64, error) {
	return v.store.CountByCategory(ctx)
}

// CosineSimilarity returns the cosine of the angle between two embedding
// vectors. A zero-norm vector compares as 0 with everything.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// rankBySimilarity orders chunks by descending cosine similarity against the
// query embedding and clamps to limit. Ties keep stored order.
func rankBySimilarity(queryEmbedding []float32, chunks []models.ReferenceChunk, limit int) []ScoredChunk {
	scored := make([]ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		scored = append(scored, ScoredChunk{
			Content:  chunk.Content,
			Score:    CosineSimilarity(queryEmbedding, chunk.Embedding),
			Metadata: chunk.Metadata,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	return scored
}
