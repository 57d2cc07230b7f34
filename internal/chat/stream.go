package chat

import (
	"context"
)

// Frame types emitted by AnswerStream, in order: one metadata frame,
// zero or more content frames, and a terminating end or error frame.
const (
	FrameMetadata = "metadata"
	FrameContent  = "content"
	FrameEnd      = "end"
	FrameError    = "error"
)

// Frame is one unit of a streamed answer. Only the fields for its Type
// are populated; the JSON field names match what streaming clients
// consume off the wire.
type Frame struct {
	Type string `json:"type"`

	// Metadata frame fields.
	Results      []ResultRef `json:"ragResults,omitempty"`
	Threshold    float64     `json:"threshold,omitempty"`
	TotalResults int         `json:"totalResults,omitempty"`
	Temperature  float32     `json:"temperature,omitempty"`

	// Content frame field.
	Text string `json:"text,omitempty"`

	// Error frame field.
	Error string `json:"error,omitempty"`
}

// AnswerStream runs the pipeline with incremental output. Validation and
// retrieval happen before the first frame: those failures return an
// error and no channel. On success the returned channel yields a
// metadata frame, then content frames as the provider produces text,
// then a terminating end frame. A provider failure mid-stream yields an
// error frame instead of end.
//
// When retrieval comes back empty the stream is metadata (zero results),
// one content frame carrying the fallback message, and end. The
// generator is never called.
//
// The producer stops pulling provider fragments when ctx is canceled,
// and always closes the channel.
func (p *Pipeline) AnswerStream(ctx context.Context, question string, opts Options) (<-chan Frame, error) {
	run, err := p.resolve(question, opts)
	if err != nil {
		return nil, err
	}

	results, refs, err := p.retrieve(ctx, question, run)
	if err != nil {
		return nil, err
	}

	frames := make(chan Frame)
	metadata := Frame{
		Type:         FrameMetadata,
		Results:      refs,
		Threshold:    run.threshold,
		TotalResults: len(results),
		Temperature:  run.temperature,
	}

	if len(results) == 0 {
		p.logger.Debug("no knowledge above threshold", "threshold", run.threshold)
		go func() {
			defer close(frames)
			metadata.Results = []ResultRef{}
			if !p.send(ctx, frames, metadata) {
				return
			}
			if !p.send(ctx, frames, Frame{Type: FrameContent, Text: FallbackMessage}) {
				return
			}
			p.send(ctx, frames, Frame{Type: FrameEnd})
		}()
		return frames, nil
	}

	prompt := BuildPrompt(question, results)

	go func() {
		defer close(frames)

		if !p.send(ctx, frames, metadata) {
			return
		}

		for text, err := range p.generator.Stream(ctx, prompt, run.temperature) {
			if err != nil {
				p.logger.Warn("generation stream failed", "error", err)
				p.send(ctx, frames, Frame{Type: FrameError, Error: err.Error()})
				return
			}
			if text == "" {
				continue
			}
			if !p.send(ctx, frames, Frame{Type: FrameContent, Text: text}) {
				return
			}
		}

		p.send(ctx, frames, Frame{Type: FrameEnd})
	}()

	return frames, nil
}

// send delivers a frame unless the context is canceled first. Returns
// false when the consumer is gone and the producer should stop.
func (p *Pipeline) send(ctx context.Context, frames chan<- Frame, f Frame) bool {
	select {
	case frames <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
