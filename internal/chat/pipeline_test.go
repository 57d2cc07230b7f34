package chat

import (
	"context"
	"errors"
	"iter"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/vitaai/vita/internal/knowledge"
)

func ptr[T any](v T) *T { return &v }

// mockRetriever implements Retriever for testing.
type mockRetriever struct {
	searchErr error
	results   []knowledge.SimilarityResult

	searchCalls   int
	lastLimit     int
	lastThreshold float64
	lastQuery     string
}

func (m *mockRetriever) Search(ctx context.Context, query string, limit int, threshold float64) ([]knowledge.SimilarityResult, error) {
	m.searchCalls++
	m.lastQuery = query
	m.lastLimit = limit
	m.lastThreshold = threshold
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	generateErr error
	text        string

	fragments []string // streamed in order
	streamErr error    // yielded after fragments

	generateCalls int
	streamCalls   int
	lastPrompt    string
	lastTemp      float32
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	m.generateCalls++
	m.lastPrompt = prompt
	m.lastTemp = temperature
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.text, nil
}

func (m *mockGenerator) Stream(ctx context.Context, prompt string, temperature float32) iter.Seq2[string, error] {
	m.streamCalls++
	m.lastPrompt = prompt
	m.lastTemp = temperature
	return func(yield func(string, error) bool) {
		for _, f := range m.fragments {
			if ctx.Err() != nil {
				return
			}
			if !yield(f, nil) {
				return
			}
		}
		if m.streamErr != nil {
			yield("", m.streamErr)
		}
	}
}

func fluResults() []knowledge.SimilarityResult {
	return []knowledge.SimilarityResult{
		{
			ID:         uuid.New(),
			Title:      "Influenza",
			Content:    "Flu is a contagious respiratory illness caused by influenza viruses.",
			SourceURL:  "https://example.org/flu",
			Similarity: 0.91,
		},
		{
			ID:         uuid.New(),
			Title:      "Common cold",
			Content:    "Colds are milder respiratory illnesses than the flu.",
			SourceURL:  "https://example.org/cold",
			Similarity: 0.72,
		},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{}
	ret := &mockRetriever{}

	tests := []struct {
		name        string
		cfg         Config
		errContains string
	}{
		{
			name:        "nil retriever",
			cfg:         Config{Generator: gen},
			errContains: "retriever is required",
		},
		{
			name:        "nil generator",
			cfg:         Config{Retriever: ret},
			errContains: "generator is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}

	t.Run("defaults applied", func(t *testing.T) {
		p, err := New(Config{Retriever: ret, Generator: gen})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if p.limit != DefaultLimit || p.threshold != DefaultThreshold || p.temperature != DefaultTemperature {
			t.Errorf("defaults not applied: limit=%d threshold=%v temperature=%v",
				p.limit, p.threshold, p.temperature)
		}
	})
}

func TestPipeline_Answer_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		question string
		opts     Options
	}{
		{"empty question", "", Options{}},
		{"whitespace question", "   ", Options{}},
		{"negative limit", "flu?", Options{Limit: -1}},
		{"threshold above range", "flu?", Options{Threshold: ptr(1.5)}},
		{"threshold NaN", "flu?", Options{Threshold: ptr(math.NaN())}},
		{"temperature above range", "flu?", Options{Temperature: ptr(float32(3))}},
		{"temperature NaN", "flu?", Options{Temperature: ptr(float32(math.NaN()))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ret := &mockRetriever{}
			gen := &mockGenerator{}
			p, _ := New(Config{Retriever: ret, Generator: gen})

			_, err := p.Answer(context.Background(), tt.question, tt.opts)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if ret.searchCalls != 0 {
				t.Errorf("retriever must not be called, got %d calls", ret.searchCalls)
			}
			if gen.generateCalls != 0 {
				t.Errorf("generator must not be called, got %d calls", gen.generateCalls)
			}
		})
	}
}

func TestPipeline_Answer_Hit(t *testing.T) {
	t.Parallel()

	ret := &mockRetriever{results: fluResults()}
	gen := &mockGenerator{text: "Influenza adalah infeksi virus."}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	resp, err := p.Answer(context.Background(), "Apa itu flu?", Options{})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if !resp.HasResults {
		t.Error("HasResults should be true")
	}
	if resp.Text != "Influenza adalah infeksi virus." {
		t.Errorf("unexpected response text: %q", resp.Text)
	}
	if resp.TotalResults != 2 || len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got total=%d refs=%d", resp.TotalResults, len(resp.Results))
	}
	if resp.Results[0].Title != "Influenza" {
		t.Errorf("result order not preserved: %q", resp.Results[0].Title)
	}
	if resp.Threshold != DefaultThreshold || resp.Temperature != DefaultTemperature {
		t.Errorf("defaults not echoed: threshold=%v temperature=%v", resp.Threshold, resp.Temperature)
	}

	// The prompt must carry the retrieved entries and the question.
	if !strings.Contains(gen.lastPrompt, "Title: Influenza") {
		t.Error("prompt missing retrieved entry title")
	}
	if !strings.Contains(gen.lastPrompt, "Apa itu flu?") {
		t.Error("prompt missing user question")
	}
	if !strings.Contains(gen.lastPrompt, "\n\n---\n\n") {
		t.Error("prompt entries not separated")
	}
}

func TestPipeline_Answer_Miss(t *testing.T) {
	t.Parallel()

	ret := &mockRetriever{results: nil}
	gen := &mockGenerator{text: "should never be used"}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	resp, err := p.Answer(context.Background(), "obscure question", Options{})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if resp.HasResults {
		t.Error("HasResults should be false")
	}
	if resp.Text != FallbackMessage {
		t.Errorf("expected fallback message, got %q", resp.Text)
	}
	if resp.TotalResults != 0 {
		t.Errorf("expected zero results, got %d", resp.TotalResults)
	}
	if resp.Results == nil {
		t.Error("Results should be an empty slice, not nil")
	}
	if gen.generateCalls != 0 {
		t.Errorf("generator must not be called on a miss, got %d calls", gen.generateCalls)
	}
}

func TestPipeline_Answer_OptionsOverrideDefaults(t *testing.T) {
	t.Parallel()

	ret := &mockRetriever{results: fluResults()}
	gen := &mockGenerator{text: "ok"}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	_, err := p.Answer(context.Background(), "flu?", Options{Limit: 5, Threshold: ptr(0.8), Temperature: ptr(float32(1.2))})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if ret.lastLimit != 5 || ret.lastThreshold != 0.8 {
		t.Errorf("retriever got limit=%d threshold=%v", ret.lastLimit, ret.lastThreshold)
	}
	if gen.lastTemp != 1.2 {
		t.Errorf("generator got temperature=%v", gen.lastTemp)
	}
}

func TestPipeline_Answer_ExplicitZeroHonored(t *testing.T) {
	t.Parallel()

	// Zero is a valid boundary for both knobs and must not be swallowed
	// by the defaults.
	ret := &mockRetriever{results: fluResults()}
	gen := &mockGenerator{text: "ok"}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	resp, err := p.Answer(context.Background(), "flu?", Options{Threshold: ptr(0.0), Temperature: ptr(float32(0))})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if ret.lastThreshold != 0 {
		t.Errorf("explicit zero threshold replaced by default: %v", ret.lastThreshold)
	}
	if gen.lastTemp != 0 {
		t.Errorf("explicit zero temperature replaced by default: %v", gen.lastTemp)
	}
	if resp.Threshold != 0 || resp.Temperature != 0 {
		t.Errorf("response must echo the explicit values: threshold=%v temperature=%v",
			resp.Threshold, resp.Temperature)
	}
}

func TestPipeline_Answer_RetrieverFailure(t *testing.T) {
	t.Parallel()

	ret := &mockRetriever{searchErr: knowledge.ErrEmbeddingUnavailable}
	gen := &mockGenerator{}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	_, err := p.Answer(context.Background(), "flu?", Options{})
	if !errors.Is(err, knowledge.ErrEmbeddingUnavailable) {
		t.Fatalf("retrieval errors must pass through, got %v", err)
	}
	if gen.generateCalls != 0 {
		t.Error("generator must not be called when retrieval fails")
	}
}

func TestPipeline_Answer_GeneratorFailure(t *testing.T) {
	t.Parallel()

	ret := &mockRetriever{results: fluResults()}
	gen := &mockGenerator{generateErr: errors.New("model overloaded")}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	_, err := p.Answer(context.Background(), "flu?", Options{})
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestBuildTitlePrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildTitlePrompt("Apa itu diabetes?")
	if !strings.Contains(prompt, "Apa itu diabetes?") {
		t.Error("title prompt missing question")
	}
	if !strings.Contains(prompt, "judul") {
		t.Error("title prompt missing instruction")
	}
}
