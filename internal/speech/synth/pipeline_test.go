package synth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicegen/internal/domain/speech"
	"voicegen/internal/speech/tts"
)

func newTestPipeline(t *testing.T, svc tts.Service, maxChunk int) (*Pipeline, *recordingLogger) {
	t.Helper()
	events := &recordingLogger{}
	p, err := NewPipeline(svc, Config{MaxChunkSize: maxChunk, Retry: testPolicy()}, WithEventLogger(events))
	require.NoError(t, err)
	p.newID = func() string { return "job-1" }
	recordWaits(p.synth)
	return p, events
}

func TestPipeline_ConcatenatesChunksInOrder(t *testing.T) {
	svc := &scriptedService{responses: []response{succeed("AAA"), succeed("BBB")}}
	p, events := newTestPipeline(t, svc, 20)

	artifact, err := p.Synthesize(context.Background(), "First sentence here. Second one here.", speech.DefaultVoiceSettings())
	require.NoError(t, err)

	assert.Equal(t, []byte("AAABBB"), artifact.Data)
	assert.Equal(t, 2, artifact.Chunks)
	assert.Equal(t, "job-1", artifact.JobID)
	assert.Equal(t, []string{"First sentence here.", "Second one here."}, svc.texts)
	assert.Equal(t, 1, svc.maxActive, "chunks must never be in flight together")

	require.Len(t, events.jobs, 2)
	assert.Equal(t, OutcomeStarted, events.jobs[0].Outcome)
	assert.Equal(t, OutcomeSuccess, events.jobs[1].Outcome)
	assert.Equal(t, 6, events.jobs[1].Bytes)
}

func TestPipeline_RejectsInvalidTextWithoutCalls(t *testing.T) {
	svc := &scriptedService{responses: []response{succeed("x")}}
	p, events := newTestPipeline(t, svc, 20)

	for _, text := range []string{"", "   ", string([]byte{0xc3, 0x28})} {
		artifact, err := p.Synthesize(context.Background(), text, speech.DefaultVoiceSettings())
		assert.Nil(t, artifact)
		assert.ErrorIs(t, err, speech.ErrInvalidInput)
	}
	assert.Zero(t, svc.calls())
	assert.Empty(t, events.jobs)
}

func TestPipeline_FatalChunkFailsWholeJob(t *testing.T) {
	svc := &scriptedService{responses: []response{succeed("AAA"), failBody(401, `{"detail":{"status":"quota_exceeded"}}`), succeed("CCC")}}
	p, events := newTestPipeline(t, svc, 12)

	artifact, err := p.Synthesize(context.Background(), "One. Two two. Three.", speech.DefaultVoiceSettings())
	assert.Nil(t, artifact)
	assert.ErrorIs(t, err, tts.ErrQuotaExceeded)

	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, 1, chunkErr.ChunkIndex)
	assert.Equal(t, 3, chunkErr.TotalChunks)
	assert.Equal(t, 1, chunkErr.Attempts)
	assert.Equal(t, "job-1", chunkErr.JobID)
	assert.Equal(t, 2, svc.calls(), "later chunks must not be attempted")

	last := events.jobs[len(events.jobs)-1]
	assert.Equal(t, OutcomeFatal, last.Outcome)
	assert.Equal(t, 1, last.ChunkIndex)
}

func TestPipeline_ExhaustedChunkReportsAttempts(t *testing.T) {
	svc := &scriptedService{responses: []response{failStatus(502)}}
	p, events := newTestPipeline(t, svc, 100)

	_, err := p.Synthesize(context.Background(), "Short text.", speech.DefaultVoiceSettings())

	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, 5, chunkErr.Attempts)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, tts.ErrServerFault)
	assert.Contains(t, err.Error(), "chunk 1/1")
	assert.Equal(t, OutcomeExhausted, events.jobs[len(events.jobs)-1].Outcome)
}

func TestPipeline_CancelledBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &cancelAfterFirst{cancel: cancel}
	p, events := newTestPipeline(t, svc, 12)

	artifact, err := p.Synthesize(ctx, "One. Two two. Three.", speech.DefaultVoiceSettings())
	assert.Nil(t, artifact)
	assert.ErrorIs(t, err, ErrCancelled)

	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, 1, chunkErr.ChunkIndex)
	assert.Equal(t, int32(1), svc.calls.Load())
	assert.Equal(t, OutcomeCancelled, events.jobs[len(events.jobs)-1].Outcome)
}

type cancelAfterFirst struct {
	cancel context.CancelFunc
	calls  atomic.Int32
}

func (c *cancelAfterFirst) Name() string { return "cancel" }

func (c *cancelAfterFirst) Synthesize(context.Context, string, speech.VoiceSettings) ([]byte, error) {
	c.calls.Add(1)
	c.cancel()
	return []byte("a"), nil
}

func TestPipeline_EndToEndOverHTTP(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"detail":{"status":"too_many_concurrent_requests"}}`))
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		if n == 2 {
			_, _ = w.Write([]byte("part-one|"))
			return
		}
		_, _ = w.Write([]byte("part-two"))
	}))
	defer server.Close()

	svc, err := tts.NewElevenLabs(tts.ElevenLabsConfig{APIKey: "k", VoiceID: "v", ModelID: "m"}, tts.WithElevenLabsBaseURL(server.URL))
	require.NoError(t, err)

	p, err := NewPipeline(svc, Config{
		MaxChunkSize: 30,
		Retry:        RetryPolicy{MaxRetries: 3, Backoff: []time.Duration{time.Millisecond}, RequestTimeout: time.Second},
	})
	require.NoError(t, err)

	text := strings.Repeat("a", 20) + ". " + strings.Repeat("b", 20) + "."
	artifact, err := p.Synthesize(context.Background(), text, speech.DefaultVoiceSettings())
	require.NoError(t, err)
	assert.Equal(t, "part-one|part-two", string(artifact.Data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNewPipeline_ValidatesConfig(t *testing.T) {
	svc := &scriptedService{responses: []response{succeed("x")}}

	_, err := NewPipeline(svc, Config{MaxChunkSize: 0, Retry: DefaultRetryPolicy()})
	assert.ErrorContains(t, err, "max chunk size")

	_, err = NewPipeline(svc, Config{MaxChunkSize: 10, Retry: RetryPolicy{}})
	assert.Error(t, err)

	_, err = NewPipeline(nil, DefaultConfig())
	assert.Error(t, err)
}

func TestPipeline_Chunks(t *testing.T) {
	p, _ := newTestPipeline(t, &scriptedService{responses: []response{succeed("x")}}, 10)
	chunks, err := p.Chunks("Aaaa bbbb. Cccc dddd.")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}
