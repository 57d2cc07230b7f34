// Package googleai wraps the Gemini API as the embedding and generation
// provider. It is the only package that talks to the model service.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"google.golang.org/genai"

	"github.com/vitaai/vita/internal/knowledge"
)

// ErrEmptyResponse indicates the provider returned no usable output.
var ErrEmptyResponse = errors.New("empty provider response")

// Config contains all required parameters for the client.
type Config struct {
	APIKey          string
	GenerationModel string
	EmbedderModel   string
	Logger          *slog.Logger

	// Retry controls backoff on transient provider errors. The zero
	// value uses DefaultRetryConfig.
	Retry RetryConfig
}

func (cfg Config) validate() error {
	if cfg.APIKey == "" {
		return errors.New("api key is required")
	}
	if cfg.GenerationModel == "" {
		return errors.New("generation model is required")
	}
	if cfg.EmbedderModel == "" {
		return errors.New("embedder model is required")
	}
	return nil
}

// Client provides embeddings and text generation backed by the Gemini
// API. It satisfies knowledge.Embedder and the chat pipeline's Generator.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	models          *genai.Models
	generationModel string
	embedderModel   string
	retry           RetryConfig
	logger          *slog.Logger
}

// New creates a Client against the Gemini API backend.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.InitialInterval == 0 {
		retry = DefaultRetryConfig()
	}

	logger.Info("google ai client initialized",
		"generation_model", cfg.GenerationModel,
		"embedder_model", cfg.EmbedderModel)

	return &Client{
		models:          genaiClient.Models,
		generationModel: cfg.GenerationModel,
		embedderModel:   cfg.EmbedderModel,
		retry:           retry,
		logger:          logger,
	}, nil
}

// Embed returns the embedding vector for the text, truncated server-side
// to the knowledge store's dimensionality.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := withRetry(ctx, c.retry, func() (*genai.EmbedContentResponse, error) {
		return c.models.EmbedContent(ctx, c.embedderModel, genai.Text(text),
			&genai.EmbedContentConfig{
				OutputDimensionality: genai.Ptr(knowledge.VectorDimension),
			})
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embedding text: %w", ErrEmptyResponse)
	}
	return resp.Embeddings[0].Values, nil
}

// Generate produces the complete model output for a prompt.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	return c.generate(ctx, prompt, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	})
}

// GenerateCapped is Generate with a server-side cap on output tokens,
// for callers that only want a short completion.
func (c *Client) GenerateCapped(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	return c.generate(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: maxTokens,
	})
}

func (c *Client) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := withRetry(ctx, c.retry, func() (*genai.GenerateContentResponse, error) {
		return c.models.GenerateContent(ctx, c.generationModel, genai.Text(prompt), cfg)
	})
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generating content: %w", ErrEmptyResponse)
	}
	return text, nil
}

// Stream yields model output fragments in order. Iteration ends when the
// provider finishes, fails, or the consumer stops early.
func (c *Client) Stream(ctx context.Context, prompt string, temperature float32) iter.Seq2[string, error] {
	responses := c.models.GenerateContentStream(ctx, c.generationModel, genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(temperature),
		})

	return func(yield func(string, error) bool) {
		for resp, err := range responses {
			if err != nil {
				yield("", fmt.Errorf("streaming content: %w", err))
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}
