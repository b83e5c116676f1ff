package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/akbaraffaruk/cv-analysis/internal/config"
	"github.com/akbaraffaruk/cv-analysis/internal/models"
	"github.com/akbaraffaruk/cv-analysis/internal/services"
)

// Folder layout under the system docs path:
//
//	job-descriptions/  -> job_description
//	case-study/        -> case_study
//	rubrics/           -> cv_rubric or project_rubric, by filename
func main() {
	clear := flag.Bool("clear", false, "delete previously ingested chunks before ingesting")
	flag.Parse()

	log.Println("🚀 Starting document ingestion...")

	cfg := config.Load()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	rateGate := services.NewRateGate(cfg.Gemini.MinRequestInterval)
	geminiService, err := services.NewGeminiService(cfg.Gemini, cfg.Vector.EmbeddingDims, rateGate)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	chunkStore, err := initChunkStore(cfg, db)
	if err != nil {
		log.Fatalf("❌ Failed to initialize chunk store: %v", err)
	}

	vectorService := services.NewVectorService(geminiService, chunkStore, cfg.Vector.ChunkMaxWords)
	pdfParser := services.NewPDFParserService()

	ctx := context.Background()

	if *clear {
		log.Println("🗑️  Clearing previously ingested chunks...")
		for _, category := range models.AllChunkCategories {
			if err := vectorService.DeleteByCategory(ctx, category); err != nil {
				log.Fatalf("❌ Failed to clear %s chunks: %v", category, err)
			}
		}
	}

	basePath := cfg.Worker.SystemDocsPath
	folders := []struct {
		Dir      string
		Category models.ChunkCategory
	}{
		{"job-descriptions", models.CategoryJobDescription},
		{"case-study", models.CategoryCaseStudy},
		{"rubrics", ""}, // category resolved per file below
	}

	successCount := 0
	failCount := 0

	for _, folder := range folders {
		dirPath := filepath.Join(basePath, folder.Dir)

		entries, err := os.ReadDir(dirPath)
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", dirPath, err)
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
				continue
			}

			category := folder.Category
			if folder.Dir == "rubrics" {
				category = rubricCategory(entry.Name())
				if category == "" {
					log.Printf("⚠️  Skipping rubric %s: filename must contain 'cv' or 'project'", entry.Name())
					continue
				}
			}

			filePath := filepath.Join(dirPath, entry.Name())
			log.Printf("\n📄 Processing: %s", entry.Name())
			log.Printf("   Type: %s", category)

			content, err := pdfParser.ExtractText(filePath)
			if err != nil {
				log.Printf("   ❌ Failed to extract text: %v", err)
				failCount++
				continue
			}
			log.Printf("   📖 Extracted %d characters", len(content))

			metadata := models.JSONMap{
				"source_file": entry.Name(),
			}

			if err := vectorService.IngestDocument(ctx, category, entry.Name(), content, metadata); err != nil {
				log.Printf("   ❌ Failed to ingest: %v", err)
				failCount++
				continue
			}

			successCount++
		}
	}

	// Summary
	log.Println("\n" + strings.Repeat("=", 60))
	log.Printf("📊 Ingestion Summary:")
	log.Printf("   ✅ Successful: %d documents", successCount)
	log.Printf("   ❌ Failed: %d documents", failCount)

	stats, err := vectorService.GetStats(ctx)
	if err != nil {
		log.Printf("   ⚠️  Failed to fetch chunk stats: %v", err)
	} else {
		for _, category := range models.AllChunkCategories {
			log.Printf("   📦 %s: %d chunks", category, stats[category])
		}
	}
	log.Println(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Println("⚠️  Some documents failed to ingest. Please check the logs above.")
		os.Exit(1)
	}

	log.Println("✅ All documents ingested successfully!")
}

func rubricCategory(filename string) models.ChunkCategory {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "cv"):
		return models.CategoryCVRubric
	case strings.Contains(name, "project"):
		return models.CategoryProjectRubric
	default:
		return ""
	}
}

func initChunkStore(cfg *config.Config, db *gorm.DB) (services.ChunkStore, error) {
	if cfg.Vector.Backend != "qdrant" {
		return services.NewPostgresChunkStore(db), nil
	}

	store, err := services.NewQdrantChunkStore(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		uint64(cfg.Vector.EmbeddingDims),
	)
	if err != nil {
		return nil, err
	}

	if err := store.InitCollection(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}
