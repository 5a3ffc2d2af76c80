package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voicegen/internal/domain/speech"
	"voicegen/internal/speech/chunker"
	"voicegen/internal/speech/tts"
)

// Config controls how a Pipeline splits and synthesizes text.
type Config struct {
	MaxChunkSize int
	Retry        RetryPolicy
}

func DefaultConfig() Config {
	return Config{
		MaxChunkSize: chunker.DefaultMaxSize,
		Retry:        DefaultRetryPolicy(),
	}
}

func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive, got %d", c.MaxChunkSize)
	}
	return c.Retry.Validate()
}

// Pipeline synthesizes full texts: it chunks the text, synthesizes chunks one
// at a time in order, and concatenates the audio. A job either returns the
// complete artifact or an error; partial audio is never returned.
type Pipeline struct {
	cfg    Config
	synth  *Synthesizer
	events EventLogger
	newID  func() string
}

type Option func(*Pipeline)

// WithEventLogger sets where attempt and job events go.
func WithEventLogger(events EventLogger) Option {
	return func(p *Pipeline) {
		p.events = events
	}
}

func NewPipeline(service tts.Service, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	p := &Pipeline{
		cfg:    cfg,
		events: NopLogger(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	synth, err := NewSynthesizer(service, cfg.Retry, p.events)
	if err != nil {
		return nil, err
	}
	p.synth = synth
	return p, nil
}

// Synthesize converts text to a single audio artifact using settings for
// every chunk. On failure the error is a *ChunkError naming the chunk, unless
// the text itself was rejected (speech.ErrInvalidInput).
func (p *Pipeline) Synthesize(ctx context.Context, text string, settings speech.VoiceSettings) (*speech.AudioArtifact, error) {
	chunks, err := chunker.Split(text, p.cfg.MaxChunkSize)
	if err != nil {
		return nil, err
	}

	job := jobInfo{id: p.newID(), total: len(chunks)}
	p.events.LogJob(JobEvent{JobID: job.id, Outcome: OutcomeStarted, TotalChunks: job.total, ChunkIndex: -1, Time: time.Now()})

	segments := make([]speech.AudioSegment, 0, len(chunks))
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(job, chunk.Index, 0, cancelled(err))
		}

		seg, attempts, err := p.synth.synthesize(ctx, job, chunk, settings)
		if err != nil {
			return nil, p.fail(job, chunk.Index, attempts, err)
		}
		segments = append(segments, seg)
	}

	artifact := &speech.AudioArtifact{
		JobID:  job.id,
		Chunks: len(segments),
		Data:   concat(segments),
	}
	p.events.LogJob(JobEvent{
		JobID:       job.id,
		Outcome:     OutcomeSuccess,
		TotalChunks: job.total,
		ChunkIndex:  -1,
		Bytes:       artifact.Len(),
		Time:        time.Now(),
	})
	return artifact, nil
}

// Chunks returns how text would be split, without synthesizing it.
func (p *Pipeline) Chunks(text string) ([]speech.Chunk, error) {
	return chunker.Split(text, p.cfg.MaxChunkSize)
}

func (p *Pipeline) fail(job jobInfo, index, attempts int, cause error) error {
	outcome := OutcomeFatal
	switch {
	case errors.Is(cause, ErrCancelled):
		outcome = OutcomeCancelled
	case errors.Is(cause, ErrRetriesExhausted):
		outcome = OutcomeExhausted
	}

	err := &ChunkError{
		JobID:       job.id,
		ChunkIndex:  index,
		TotalChunks: job.total,
		Attempts:    attempts,
		Cause:       cause,
	}
	p.events.LogJob(JobEvent{
		JobID:       job.id,
		Outcome:     outcome,
		TotalChunks: job.total,
		ChunkIndex:  index,
		Err:         err,
		Time:        time.Now(),
	})
	return err
}

func concat(segments []speech.AudioSegment) []byte {
	size := 0
	for _, seg := range segments {
		size += len(seg.Data)
	}
	out := make([]byte, 0, size)
	for _, seg := range segments {
		out = append(out, seg.Data...)
	}
	return out
}
