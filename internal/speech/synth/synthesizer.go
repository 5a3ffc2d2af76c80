package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicegen/internal/domain/speech"
	"voicegen/internal/speech/tts"
)

// DefaultBackoff is the wait before the 2nd, 3rd, ... attempt.
func DefaultBackoff() []time.Duration {
	return []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}
}

const (
	DefaultMaxRetries     = 5
	DefaultRequestTimeout = 30 * time.Second
)

// RetryPolicy bounds the attempts made for a single chunk.
type RetryPolicy struct {
	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int
	// Backoff[n] is the wait after failed attempt n+1. The last entry
	// repeats when there are more attempts than entries.
	Backoff []time.Duration
	// RequestTimeout bounds each attempt; expiry counts as a network failure.
	RequestTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		Backoff:        DefaultBackoff(),
		RequestTimeout: DefaultRequestTimeout,
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", p.MaxRetries)
	}
	if p.MaxRetries > 1 && len(p.Backoff) == 0 {
		return errors.New("backoff schedule must not be empty")
	}
	for i, d := range p.Backoff {
		if d < 0 {
			return fmt.Errorf("backoff[%d] is negative: %s", i, d)
		}
	}
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", p.RequestTimeout)
	}
	return nil
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if attempt < len(p.Backoff) {
		return p.Backoff[attempt]
	}
	return p.Backoff[len(p.Backoff)-1]
}

// Synthesizer turns one chunk into audio, retrying transient failures.
type Synthesizer struct {
	service tts.Service
	policy  RetryPolicy
	events  EventLogger

	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

// NewSynthesizer returns a Synthesizer; events may be nil.
func NewSynthesizer(service tts.Service, policy RetryPolicy, events EventLogger) (*Synthesizer, error) {
	if service == nil {
		return nil, errors.New("tts service must not be nil")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if events == nil {
		events = NopLogger()
	}
	return &Synthesizer{
		service: service,
		policy:  policy,
		events:  events,
		wait:    sleep,
		now:     time.Now,
	}, nil
}

// SynthesizeChunk synthesizes chunk, retrying retryable failures per the
// policy. Fatal failures are returned after a single attempt as
// *tts.ServiceError; exhausted retries as *RetriesExhaustedError.
func (s *Synthesizer) SynthesizeChunk(ctx context.Context, chunk speech.Chunk, settings speech.VoiceSettings) (speech.AudioSegment, error) {
	seg, _, err := s.synthesize(ctx, jobInfo{total: 1}, chunk, settings)
	return seg, err
}

type jobInfo struct {
	id    string
	total int
}

// synthesize runs the attempt loop and also reports how many attempts were made.
func (s *Synthesizer) synthesize(ctx context.Context, job jobInfo, chunk speech.Chunk, settings speech.VoiceSettings) (speech.AudioSegment, int, error) {
	event := func(attempt int, outcome Outcome) AttemptEvent {
		return AttemptEvent{
			JobID:       job.id,
			ChunkIndex:  chunk.Index,
			TotalChunks: job.total,
			Attempt:     attempt,
			Outcome:     outcome,
			Time:        s.now(),
		}
	}

	for n := 0; n < s.policy.MaxRetries; n++ {
		attempt := n + 1
		if err := ctx.Err(); err != nil {
			ev := event(attempt, OutcomeCancelled)
			ev.Err = err
			s.events.LogAttempt(ev)
			return speech.AudioSegment{}, n, cancelled(err)
		}

		data, err := s.call(ctx, chunk.Content, settings)
		if err == nil {
			s.events.LogAttempt(event(attempt, OutcomeSuccess))
			return speech.AudioSegment{ChunkIndex: chunk.Index, Data: data}, attempt, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			ev := event(attempt, OutcomeCancelled)
			ev.Err = err
			s.events.LogAttempt(ev)
			return speech.AudioSegment{}, attempt, cancelled(ctxErr)
		}
		if errors.Is(err, speech.ErrInvalidInput) {
			ev := event(attempt, OutcomeFatal)
			ev.Err = err
			s.events.LogAttempt(ev)
			return speech.AudioSegment{}, attempt, err
		}

		svcErr := tts.AsServiceError(err)
		if !svcErr.Retryable() {
			ev := event(attempt, OutcomeFatal)
			ev.Kind, ev.Err = svcErr.Kind, svcErr
			s.events.LogAttempt(ev)
			return speech.AudioSegment{}, attempt, svcErr
		}

		if attempt >= s.policy.MaxRetries {
			ev := event(attempt, OutcomeExhausted)
			ev.Kind, ev.Err = svcErr.Kind, svcErr
			s.events.LogAttempt(ev)
			return speech.AudioSegment{}, attempt, &RetriesExhaustedError{Attempts: attempt, Last: svcErr}
		}

		delay := s.policy.delay(n)
		ev := event(attempt, OutcomeRetry)
		ev.Kind, ev.Err, ev.Delay = svcErr.Kind, svcErr, delay
		s.events.LogAttempt(ev)

		if err := s.wait(ctx, delay); err != nil {
			ev := event(attempt+1, OutcomeCancelled)
			ev.Err = err
			s.events.LogAttempt(ev)
			return speech.AudioSegment{}, attempt, cancelled(err)
		}
	}

	// unreachable while MaxRetries >= 1
	return speech.AudioSegment{}, 0, fmt.Errorf("no attempts made for chunk %d", chunk.Index)
}

func (s *Synthesizer) call(ctx context.Context, text string, settings speech.VoiceSettings) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.policy.RequestTimeout)
	defer cancel()
	return s.service.Synthesize(ctx, text, settings)
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
