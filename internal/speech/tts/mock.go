package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"voicegen/internal/domain/speech"
)

// MockService returns placeholder audio without calling any API. It is meant
// for trying the pipeline offline.
type MockService struct {
	latency time.Duration
}

func NewMock(latency time.Duration) *MockService {
	return &MockService{latency: latency}
}

func (m *MockService) Name() string {
	return "mock"
}

func (m *MockService) Synthesize(ctx context.Context, text string, settings speech.VoiceSettings) ([]byte, error) {
	if text == "" {
		return nil, ErrInvalidInput
	}

	select {
	case <-time.After(m.latency):
	case <-ctx.Done():
		return nil, NewServiceError(NoStatus, nil, ctx.Err())
	}

	logrus.WithFields(logrus.Fields{
		"service":    "mock",
		"characters": len([]rune(text)),
	}).Debug("mock synthesis")
	return []byte(fmt.Sprintf("[mock-audio stability=%.2f len=%d]", settings.Stability, len(text))), nil
}

func (m *MockService) ListVoices(context.Context) ([]Voice, error) {
	return []Voice{{ID: "mock-voice", Name: "Mock", Category: "generated"}}, nil
}
