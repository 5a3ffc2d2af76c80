package synth

import (
	"context"
	"sync"
	"time"

	"voicegen/internal/domain/speech"
	"voicegen/internal/speech/tts"
)

// scriptedService replays one response per call; the last one repeats.
type scriptedService struct {
	mu        sync.Mutex
	responses []response
	texts     []string
	active    int
	maxActive int
}

type response struct {
	data  []byte
	err   error
	delay time.Duration
}

func succeed(data string) response { return response{data: []byte(data)} }

func failStatus(code int) response { return response{err: tts.NewServiceError(code, nil, nil)} }

func failBody(code int, body string) response {
	return response{err: tts.NewServiceError(code, []byte(body), nil)}
}

func failWith(err error) response { return response{err: err} }

func hang(d time.Duration) response { return response{delay: d, data: []byte("late")} }

func (s *scriptedService) Name() string { return "scripted" }

func (s *scriptedService) Synthesize(ctx context.Context, text string, _ speech.VoiceSettings) ([]byte, error) {
	s.mu.Lock()
	i := len(s.texts)
	s.texts = append(s.texts, text)
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	r := s.responses[min(i, len(s.responses)-1)]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.data, r.err
}

func (s *scriptedService) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

// recordingLogger keeps every event for assertions.
type recordingLogger struct {
	mu       sync.Mutex
	attempts []AttemptEvent
	jobs     []JobEvent
}

func (r *recordingLogger) LogAttempt(ev AttemptEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, ev)
}

func (r *recordingLogger) LogJob(ev JobEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, ev)
}

func (r *recordingLogger) outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.attempts))
	for i, ev := range r.attempts {
		out[i] = ev.Outcome
	}
	return out
}

// recordWaits replaces the backoff sleep with one that only records delays.
func recordWaits(s *Synthesizer) *[]time.Duration {
	waits := []time.Duration{}
	s.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return &waits
}

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     5,
		Backoff:        DefaultBackoff(),
		RequestTimeout: time.Second,
	}
}
