// Package chat implements the grounded question answering pipeline:
// retrieve similar knowledge entries, build a context-bound prompt, and
// generate an answer either synchronously or as a frame stream.
package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/vitaai/vita/internal/knowledge"
)

// Default generation parameters applied when an Options field is unset.
const (
	DefaultLimit       = 3
	DefaultThreshold   = 0.6
	DefaultTemperature = float32(0.5)
)

// Sentinel errors for pipeline operations.
var (
	// ErrInvalidInput indicates a malformed question or out-of-range option.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGenerationUnavailable indicates the generation provider failed.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// Retriever finds knowledge entries similar to a query.
// knowledge.Repository is the production implementation.
type Retriever interface {
	Search(ctx context.Context, query string, limit int, threshold float64) ([]knowledge.SimilarityResult, error)
}

// Generator produces model output for a prompt. Stream yields text
// fragments in order; iteration stops when the consumer breaks out or
// the provider finishes.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
	Stream(ctx context.Context, prompt string, temperature float32) iter.Seq2[string, error]
}

// Options tunes a single pipeline run. A zero Limit and nil pointers
// fall back to the pipeline's configured defaults; a non-nil pointer is
// honored even when it carries zero, which is a valid boundary value
// for both threshold and temperature.
type Options struct {
	Limit       int
	Threshold   *float64
	Temperature *float32
}

// settings is a fully resolved Options: defaults merged in and every
// field validated.
type settings struct {
	limit       int
	threshold   float64
	temperature float32
}

// ResultRef identifies a retrieved entry in a response without carrying
// its full content.
type ResultRef struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Similarity float64   `json:"similarity"`
	SourceURL  string    `json:"sourceUrl"`
}

// Response is the complete result of a synchronous pipeline run.
type Response struct {
	Text         string      `json:"response"`
	Results      []ResultRef `json:"ragResults"`
	Threshold    float64     `json:"threshold"`
	TotalResults int         `json:"totalResults"`
	Temperature  float32     `json:"temperature"`
	HasResults   bool        `json:"hasResults"`
}

// Config contains all required parameters for the pipeline.
type Config struct {
	Retriever Retriever
	Generator Generator
	Logger    *slog.Logger

	// Defaults applied when a run's Options leave a field unset.
	// Zero values fall back to the package defaults.
	Limit       int
	Threshold   float64
	Temperature float32
}

func (cfg Config) validate() error {
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	return nil
}

// Pipeline answers questions grounded in retrieved knowledge.
//
// Pipeline is stateless and safe for concurrent use.
type Pipeline struct {
	retriever Retriever
	generator Generator
	logger    *slog.Logger

	limit       int
	threshold   float64
	temperature float32
}

// New creates a Pipeline from required configuration.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	return &Pipeline{
		retriever:   cfg.Retriever,
		generator:   cfg.Generator,
		logger:      logger,
		limit:       limit,
		threshold:   threshold,
		temperature: temperature,
	}, nil
}

// resolve merges run options with the pipeline defaults and validates
// the result.
func (p *Pipeline) resolve(question string, opts Options) (settings, error) {
	if strings.TrimSpace(question) == "" {
		return settings{}, fmt.Errorf("%w: question must not be empty", ErrInvalidInput)
	}

	run := settings{
		limit:       p.limit,
		threshold:   p.threshold,
		temperature: p.temperature,
	}
	if opts.Limit != 0 {
		run.limit = opts.Limit
	}
	if opts.Threshold != nil {
		run.threshold = *opts.Threshold
	}
	if opts.Temperature != nil {
		run.temperature = *opts.Temperature
	}

	if run.limit < 1 {
		return settings{}, fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidInput, run.limit)
	}
	if math.IsNaN(run.threshold) || run.threshold < 0 || run.threshold > 1 {
		return settings{}, fmt.Errorf("%w: threshold must be in [0,1], got %v", ErrInvalidInput, run.threshold)
	}
	if math.IsNaN(float64(run.temperature)) || run.temperature < 0 || run.temperature > 2 {
		return settings{}, fmt.Errorf("%w: temperature must be in [0,2], got %v", ErrInvalidInput, run.temperature)
	}
	return run, nil
}

// retrieve runs the similarity search and maps results to refs.
func (p *Pipeline) retrieve(ctx context.Context, question string, run settings) ([]knowledge.SimilarityResult, []ResultRef, error) {
	results, err := p.retriever.Search(ctx, question, run.limit, run.threshold)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieving context: %w", err)
	}

	refs := make([]ResultRef, len(results))
	for i, r := range results {
		refs[i] = ResultRef{ID: r.ID, Title: r.Title, Similarity: r.Similarity, SourceURL: r.SourceURL}
	}
	return results, refs, nil
}

// Answer runs the full pipeline synchronously. When retrieval comes back
// empty the generator is never called and the response carries the
// fallback message with HasResults false.
func (p *Pipeline) Answer(ctx context.Context, question string, opts Options) (*Response, error) {
	run, err := p.resolve(question, opts)
	if err != nil {
		return nil, err
	}

	results, refs, err := p.retrieve(ctx, question, run)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		p.logger.Debug("no knowledge above threshold", "threshold", run.threshold)
		return &Response{
			Text:        FallbackMessage,
			Results:     []ResultRef{},
			Threshold:   run.threshold,
			Temperature: run.temperature,
		}, nil
	}

	prompt := BuildPrompt(question, results)
	text, err := p.generator.Generate(ctx, prompt, run.temperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}

	p.logger.Debug("answered question",
		"results", len(results),
		"threshold", run.threshold,
		"temperature", run.temperature)

	return &Response{
		Text:         text,
		Results:      refs,
		Threshold:    run.threshold,
		TotalResults: len(results),
		Temperature:  run.temperature,
		HasResults:   true,
	}, nil
}
