package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// collect drains a frame channel into a slice.
func collect(t *testing.T, frames <-chan Frame) []Frame {
	t.Helper()

	var out []Frame
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return out
			}
			out = append(out, f)
		case <-timeout:
			t.Fatalf("timed out draining frames, got %d so far", len(out))
		}
	}
}

func TestPipeline_AnswerStream_Hit(t *testing.T) {
	t.Parallel()

	ret := &mockRetriever{results: fluResults()}
	gen := &mockGenerator{fragments: []string{"Influenza ", "adalah ", "infeksi virus."}}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	frames, err := p.AnswerStream(context.Background(), "Apa itu flu?", Options{})
	if err != nil {
		t.Fatalf("AnswerStream failed: %v", err)
	}

	got := collect(t, frames)
	if len(got) != 5 {
		t.Fatalf("expected metadata + 3 content + end, got %d frames", len(got))
	}

	meta := got[0]
	if meta.Type != FrameMetadata {
		t.Fatalf("first frame must be metadata, got %q", meta.Type)
	}
	if meta.TotalResults != 2 || len(meta.Results) != 2 {
		t.Errorf("metadata results wrong: total=%d refs=%d", meta.TotalResults, len(meta.Results))
	}
	if meta.Threshold != DefaultThreshold || meta.Temperature != DefaultTemperature {
		t.Errorf("metadata defaults wrong: threshold=%v temperature=%v", meta.Threshold, meta.Temperature)
	}

	var text strings.Builder
	for _, f := range got[1:4] {
		if f.Type != FrameContent {
			t.Fatalf("expected content frame, got %q", f.Type)
		}
		text.WriteString(f.Text)
	}
	if text.String() != "Influenza adalah infeksi virus." {
		t.Errorf("fragments out of order or lost: %q", text.String())
	}

	if got[4].Type != FrameEnd {
		t.Errorf("last frame must be end, got %q", got[4].Type)
	}
}

func TestPipeline_AnswerStream_Miss(t *testing.T) {
	t.Parallel()

	ret := &mockRetriever{results: nil}
	gen := &mockGenerator{fragments: []string{"never"}}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	frames, err := p.AnswerStream(context.Background(), "obscure question", Options{})
	if err != nil {
		t.Fatalf("AnswerStream failed: %v", err)
	}

	got := collect(t, frames)
	if len(got) != 3 {
		t.Fatalf("expected metadata + fallback content + end, got %d frames", len(got))
	}
	if got[0].Type != FrameMetadata || got[0].TotalResults != 0 {
		t.Errorf("bad metadata frame: %+v", got[0])
	}
	if got[0].Results == nil {
		t.Error("metadata Results should be an empty slice, not nil")
	}
	if got[1].Type != FrameContent || got[1].Text != FallbackMessage {
		t.Errorf("expected fallback content frame, got %+v", got[1])
	}
	if got[2].Type != FrameEnd {
		t.Errorf("last frame must be end, got %q", got[2].Type)
	}
	if gen.streamCalls != 0 {
		t.Errorf("generator must not be called on a miss, got %d calls", gen.streamCalls)
	}
}

func TestPipeline_AnswerStream_MidStreamError(t *testing.T) {
	t.Parallel()

	ret := &mockRetriever{results: fluResults()}
	gen := &mockGenerator{
		fragments: []string{"partial "},
		streamErr: errors.New("model overloaded"),
	}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	frames, err := p.AnswerStream(context.Background(), "flu?", Options{})
	if err != nil {
		t.Fatalf("AnswerStream failed: %v", err)
	}

	got := collect(t, frames)
	last := got[len(got)-1]
	if last.Type != FrameError {
		t.Fatalf("expected terminating error frame, got %q", last.Type)
	}
	if !strings.Contains(last.Error, "model overloaded") {
		t.Errorf("error frame missing cause: %q", last.Error)
	}
	for _, f := range got {
		if f.Type == FrameEnd {
			t.Error("end frame must not follow an error frame")
		}
	}
}

func TestPipeline_AnswerStream_RetrievalFailsBeforeFrames(t *testing.T) {
	t.Parallel()

	ret := &mockRetriever{searchErr: errors.New("connection refused")}
	p, _ := New(Config{Retriever: ret, Generator: &mockGenerator{}})

	frames, err := p.AnswerStream(context.Background(), "flu?", Options{})
	if err == nil {
		t.Fatal("expected retrieval error before any frame")
	}
	if frames != nil {
		t.Error("no channel should be returned on retrieval failure")
	}
}

func TestPipeline_AnswerStream_ConsumerCancel(t *testing.T) {
	t.Parallel()

	// Enough fragments that the producer is still running when the
	// consumer walks away.
	fragments := make([]string, 100)
	for i := range fragments {
		fragments[i] = "chunk "
	}

	ret := &mockRetriever{results: fluResults()}
	gen := &mockGenerator{fragments: fragments}
	p, _ := New(Config{Retriever: ret, Generator: gen})

	ctx, cancel := context.WithCancel(context.Background())
	frames, err := p.AnswerStream(ctx, "flu?", Options{})
	if err != nil {
		t.Fatalf("AnswerStream failed: %v", err)
	}

	// Read a couple of frames, then abandon the stream.
	<-frames
	<-frames
	cancel()

	// The producer must close the channel instead of blocking forever.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("producer did not shut down after cancellation")
		}
	}
}
