package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/akbaraffaruk/cv-analysis/internal/config"
	"github.com/akbaraffaruk/cv-analysis/internal/handlers"
	"github.com/akbaraffaruk/cv-analysis/internal/repositories"
	"github.com/akbaraffaruk/cv-analysis/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	docRepo := repositories.NewDocumentRepository(db)
	evalRepo := repositories.NewEvaluationRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize storage and PDF extraction
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDirs(); err != nil {
		log.Fatalf("❌ Failed to create upload directories: %v", err)
	}

	pdfParser := services.NewPDFParserService()
	log.Println("✅ Services initialized successfully")

	// Initialize Gemini behind the shared rate gate
	rateGate := services.NewRateGate(cfg.Gemini.MinRequestInterval)
	geminiService, err := services.NewGeminiService(cfg.Gemini, cfg.Vector.EmbeddingDims, rateGate)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	log.Println("✅ Gemini AI initialized successfully")

	// Initialize the reference chunk store
	chunkStore, err := initChunkStore(cfg, db)
	if err != nil {
		log.Fatalf("❌ Failed to initialize chunk store: %v", err)
	}

	vectorService := services.NewVectorService(geminiService, chunkStore, cfg.Vector.ChunkMaxWords)
	log.Println("✅ Vector service initialized successfully")

	// Initialize the evaluation pipeline and its dispatcher
	pipeline := services.NewPipelineService(evalRepo, docRepo, geminiService, vectorService)
	dispatcher := services.NewDispatcher(
		evalRepo,
		pipeline,
		cfg.Worker.Concurrency,
		cfg.Worker.RetryMaxAttempts,
		cfg.Worker.PollInterval,
	)

	ctx := context.Background()
	dispatcher.Start(ctx)
	log.Println("✅ Dispatcher started successfully")

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(docRepo, storageService, pdfParser, cfg.Storage.MaxFileSize)
	documentHandler := handlers.NewDocumentHandler(docRepo, storageService)
	evaluateHandler := handlers.NewEvaluationHandler(evalRepo, docRepo, dispatcher)
	resultHandler := handlers.NewResultHandler(evalRepo)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CV Analysis API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/upload", uploadHandler.HandleUpload)
	api.Get("/documents/:id", documentHandler.HandleGetDocument)
	api.Delete("/documents/:id", documentHandler.HandleDeleteDocument)
	api.Post("/evaluate", evaluateHandler.HandleEvaluate)
	api.Get("/result/:id", resultHandler.HandleGetResult)
	api.Get("/evaluations", evaluateHandler.HandleList)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Analysis API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/upload",
				"POST /api/v1/evaluate",
				"GET /api/v1/result/:id",
				"GET /api/v1/evaluations",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		dispatcher.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
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

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
