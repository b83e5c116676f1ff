package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
)

// QdrantChunkStore is the dedicated vector-database backend, selected with
// VECTOR_BACKEND=qdrant. Similarity ranking happens server side with the
// same cosine metric the postgres backend computes in process.
type QdrantChunkStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewQdrantChunkStore(urlStr, apiKey, collectionName string, vectorSize uint64) (*QdrantChunkStore, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// The gRPC client listens on 6334 by default.
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantChunkStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
	}, nil
}

// InitCollection creates the chunk collection if it does not exist yet.
func (q *QdrantChunkStore) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		log.Println("✅ Qdrant collection already exists")
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant collection '%s' created successfully", q.collectionName)
	return nil
}

// Save implements ChunkStore.
func (q *QdrantChunkStore) Save(ctx context.Context, chunk *models.ReferenceChunk) error {
	payload := map[string]interface{}{
		"category":      string(chunk.Category),
		"document_name": chunk.DocumentName,
		"content":       chunk.Content,
	}
	for key, value := range chunk.Metadata {
		payload[key] = value
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(uuid.New().String()),
		Vectors: qdrant.NewVectors(chunk.Embedding...),
		Payload: qdrant.NewValueMap(payload),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// Search implements ChunkStore.
func (q *QdrantChunkStore) Search(ctx context.Context, embedding []float32, category models.ChunkCategory, limit int) ([]ScoredChunk, error) {
	searchResult, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         q.categoryFilter(category),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]ScoredChunk, 0, len(searchResult))
	for _, point := range searchResult {
		result := ScoredChunk{
			Score:    point.Score,
			Metadata: make(models.JSONMap),
		}

		for key, value := range point.Payload {
			switch key {
			case "content":
				if val, ok := value.GetKind().(*qdrant.Value_StringValue); ok {
					result.Content = val.StringValue
				}
			case "category", "document_name":
				// identifying payload, not chunk metadata
			default:
				result.Metadata[key] = value
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// DeleteByCategory implements ChunkStore.
func (q *QdrantChunkStore) DeleteByCategory(ctx context.Context, category models.ChunkCategory) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: q.categoryFilter(category),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	return nil
}

// CountByCategory implements ChunkStore.
func (q *QdrantChunkStore) CountByCategory(ctx context.Context) (map[models.ChunkCategory]int64, error) {
	stats := make(map[models.ChunkCategory]int64, len(models.AllChunkCategories))

	for _, category := range models.AllChunkCategories {
		count, err := q.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: q.collectionName,
			Filter:         q.categoryFilter(category),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s chunks: %w", category, err)
		}

		if count > 0 {
			stats[category] = int64(count)
		}
	}

	return stats, nil
}

func (q *QdrantChunkStore) categoryFilter(category models.ChunkCategory) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("category", string(category)),
		},
	}
}
