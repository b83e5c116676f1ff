package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
)

// stubEmbedder hands out deterministic embeddings and can fail on a chosen
// call number (1-based).
type stubEmbedder struct {
	calls      int
	failOnCall int
}

func (s *stubEmbedder) GenerateText(_ context.Context, _ string, _ GenerateOptions) (string, error) {
	return "", errors.New("not used")
}

func (s *stubEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.failOnCall > 0 && s.calls == s.failOnCall {
		return nil, errors.New("embedding backend down")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

// memoryChunkStore keeps saved chunks in a slice.
type memoryChunkStore struct {
	saved   []models.ReferenceChunk
	saveErr error
}

func (m *memoryChunkStore) Save(_ context.Context, chunk *models.ReferenceChunk) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, *chunk)
	return nil
}

func (m *memoryChunkStore) Search(_ context.Context, embedding []float32, category models.ChunkCategory, limit int) ([]ScoredChunk, error) {
	var matching []models.ReferenceChunk
	for _, chunk := range m.saved {
		if chunk.Category == category {
			matching = append(matching, chunk)
		}
	}
	return rankBySimilarity(embedding, matching, limit), nil
}

func (m *memoryChunkStore) DeleteByCategory(_ context.Context, category models.ChunkCategory) error {
	kept := m.saved[:0]
	for _, chunk := range m.saved {
		if chunk.Category != category {
			kept = append(kept, chunk)
		}
	}
	m.saved = kept
	return nil
}

func (m *memoryChunkStore) CountByCategory(_ context.Context) (map[models.ChunkCategory]int64, error) {
	counts := make(map[models.ChunkCategory]int64)
	for _, chunk := range m.saved {
		counts[chunk.Category]++
	}
	return counts, nil
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankBySimilarityOrdersDescending(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []models.ReferenceChunk{
		{Content: "far", Embedding: models.Vector{0, 1, 0}},
		{Content: "near", Embedding: models.Vector{1, 0.1, 0}},
		{Content: "middle", Embedding: models.Vector{1, 1, 0}},
	}

	ranked := rankBySimilarity(query, chunks, 0)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	wantOrder := []string{"near", "middle", "far"}
	for i, want := range wantOrder {
		if ranked[i].Content != want {
			t.Errorf("rank %d = %q, want %q", i, ranked[i].Content, want)
		}
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
}

func TestRankBySimilarityClampsToLimit(t *testing.T) {
	query := []float32{1, 0}
	chunks := []models.ReferenceChunk{
		{Content: "a", Embedding: models.Vector{1, 0}},
		{Content: "b", Embedding: models.Vector{0.9, 0.1}},
		{Content: "c", Embedding: models.Vector{0.5, 0.5}},
	}

	if got := rankBySimilarity(query, chunks, 2); len(got) != 2 {
		t.Errorf("limit 2: got %d results", len(got))
	}
	if got := rankBySimilarity(query, chunks, 10); len(got) != 3 {
		t.Errorf("limit beyond size: got %d results, want all 3", len(got))
	}
}

func TestIngestDocumentStoresAllChunksWithMetadata(t *testing.T) {
	embedder := &stubEmbedder{}
	store := &memoryChunkStore{}
	svc := NewVectorService(embedder, store, 500)

	content := paragraphOfWords(300, "a") + "\n\n" + paragraphOfWords(300, "b")
	err := svc.IngestDocument(context.Background(), models.CategoryCVRubric, "rubric.pdf", content, models.JSONMap{
		"source_file": "rubric.pdf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.saved) != 2 {
		t.Fatalf("expected 2 chunks saved, got %d", len(store.saved))
	}

	for i, chunk := range store.saved {
		if chunk.Category != models.CategoryCVRubric {
			t.Errorf("chunk %d category = %s", i, chunk.Category)
		}
		if chunk.DocumentName != "rubric.pdf" {
			t.Errorf("chunk %d document name = %s", i, chunk.DocumentName)
		}
		if chunk.Metadata["chunk_index"] != i {
			t.Errorf("chunk %d metadata chunk_index = %v", i, chunk.Metadata["chunk_index"])
		}
		if chunk.Metadata["total_chunks"] != 2 {
			t.Errorf("chunk %d metadata total_chunks = %v", i, chunk.Metadata["total_chunks"])
		}
		if chunk.Metadata["source_file"] != "rubric.pdf" {
			t.Errorf("chunk %d lost caller metadata", i)
		}
		if len(chunk.Embedding) == 0 {
			t.Errorf("chunk %d has no embedding", i)
		}
	}
}

func TestIngestDocumentAbortsOnEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{failOnCall: 2}
	store := &memoryChunkStore{}
	svc := NewVectorService(embedder, store, 500)

	content := strings.Join([]string{
		paragraphOfWords(400, "a"),
		paragraphOfWords(400, "b"),
		paragraphOfWords(400, "c"),
	}, "\n\n")

	err := svc.IngestDocument(context.Background(), models.CategoryCaseStudy, "brief.pdf", content, nil)
	if err == nil {
		t.Fatal("expected error when an embedding call fails")
	}

	// Chunk 1 is already persisted, chunks 2 and 3 never are.
	if len(store.saved) != 1 {
		t.Errorf("expected 1 chunk persisted before the failure, got %d", len(store.saved))
	}
	if embedder.calls != 2 {
		t.Errorf("expected ingestion to stop at the failing call, got %d embed calls", embedder.calls)
	}
}

func TestRetrieveRelevantReturnsRankedContents(t *testing.T) {
	embedder := &stubEmbedder{}
	store := &memoryChunkStore{
		saved: []models.ReferenceChunk{
			{Category: models.CategoryJobDescription, Content: "exact", Embedding: models.Vector{5, 1, 0}},
			{Category: models.CategoryJobDescription, Content: "close", Embedding: models.Vector{5, 0, 1}},
			{Category: models.CategoryCVRubric, Content: "other category", Embedding: models.Vector{5, 1, 0}},
		},
	}
	svc := NewVectorService(embedder, store, 500)

	texts, err := svc.RetrieveRelevant(context.Background(), "query", models.CategoryJobDescription, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(texts) != 2 {
		t.Fatalf("expected 2 results from the requested category, got %d", len(texts))
	}
	for _, text := range texts {
		if text == "other category" {
			t.Error("result leaked from another category")
		}
	}
}
