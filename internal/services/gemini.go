package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/akbaraffaruk/cv-analysis/internal/config"
)

// GenerateOptions controls a single generation call. JSONMode constrains the
// provider to emit application/json.
type GenerateOptions struct {
	Temperature     float32
	MaxOutputTokens int32
	JSONMode        bool
}

type GeminiService interface {
	GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// modelAPI is the raw provider surface, kept narrow so tests can stub it.
type modelAPI interface {
	generateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	embedContent(ctx context.Context, text string) ([]float32, error)
}

type geminiService struct {
	api        modelAPI
	gate       *RateGate
	maxRetries int

	retryBaseDelay    time.Duration
	overloadBaseDelay time.Duration
	sleep             func(time.Duration)
}

func NewGeminiService(cfg config.GeminiConfig, dims int32, gate *RateGate) (GeminiService, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		api: &genaiModelAPI{
			client:     client,
			modelName:  cfg.Model,
			embedModel: cfg.EmbedModel,
			dims:       dims,
		},
		gate:              gate,
		maxRetries:        cfg.MaxRetries,
		retryBaseDelay:    cfg.RetryBaseDelay,
		overloadBaseDelay: cfg.OverloadBaseDelay,
		sleep:             time.Sleep,
	}, nil
}

// GenerateText implements GeminiService. An empty completion is treated as a
// retryable failure, not success.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var text string

	err := g.withRetry(ctx, "generation", func() error {
		result, err := g.api.generateContent(ctx, prompt, opts)
		if err != nil {
			return err
		}
		if strings.TrimSpace(result) == "" {
			return ErrEmptyResponse
		}

		text = result
		return nil
	})
	if err != nil {
		return "", err
	}

	return text, nil
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Truncate overly long input, the embedding model caps around 10k tokens.
	if len(text) > 40000 {
		text = text[:40000]
	}

	var embedding []float32

	err := g.withRetry(ctx, "embedding", func() error {
		values, err := g.api.embedContent(ctx, text)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return ErrEmptyEmbedding
		}

		embedding = values
		return nil
	})
	if err != nil {
		return nil, err
	}

	return embedding, nil
}

// withRetry runs call up to maxRetries times. Every attempt passes the
// shared rate gate. Backoff doubles per attempt; an upstream overload
// signature switches to the longer base delay.
func (g *geminiService) withRetry(ctx context.Context, kind string, call func() error) error {
	var lastErr error

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		g.gate.Wait()

		if err := call(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		log.Printf("⚠️ %s attempt %d/%d failed: %v", kind, attempt, g.maxRetries, lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if attempt < g.maxRetries {
			base := g.retryBaseDelay
			if isOverloaded(lastErr) {
				base = g.overloadBaseDelay
			}
			delay := base << (attempt - 1)
			log.Printf("🔁 Retrying %s in %s...", kind, delay)
			g.sleep(delay)
		}
	}

	return &ModelUnavailableError{Attempts: g.maxRetries, Err: lastErr}
}

// isOverloaded reports whether the error carries the provider's temporarily
// unavailable signal.
func isOverloaded(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "503") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "UNAVAILABLE")
}

type genaiModelAPI struct {
	client     *genai.Client
	modelName  string
	embedModel string
	dims       int32
}

func (a *genaiModelAPI) generateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	temperature := opts.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 2048
	}
	if opts.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	return resp.Text(), nil
}

func (a *genaiModelAPI) embedContent(ctx context.Context, text string) ([]float32, error) {
	dims := a.dims
	cfg := &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	}

	result, err := a.client.Models.EmbedContent(ctx, a.embedModel, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return result.Embeddings[0].Values, nil
}
