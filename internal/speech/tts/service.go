package tts

import (
	"context"
	"fmt"
	"time"

	"voicegen/internal/domain/speech"
)

// Service performs a single synthesis call for one chunk of text. Failures are
// returned as *ServiceError so callers can classify them.
type Service interface {
	Name() string
	Synthesize(ctx context.Context, text string, settings speech.VoiceSettings) ([]byte, error)
}

// VoiceLister is implemented by services that can enumerate their voices.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Voice describes a voice offered by a service.
type Voice struct {
	ID          string            `json:"voice_id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

type ServiceType string

const (
	ServiceTypeElevenLabs ServiceType = "elevenlabs"
	ServiceTypeGoogle     ServiceType = "google"
	ServiceTypeMock       ServiceType = "mock"
)

func (s ServiceType) String() string {
	return string(s)
}

// Config selects and configures a Service.
type Config struct {
	Type ServiceType

	APIKey    string
	VoiceID   string
	ModelID   string
	BaseURL   string
	RateLimit float64
	RateBurst int

	GoogleVoice    string
	GoogleLanguage string
}

// NewService creates the configured Service. Missing credentials fail here,
// before any job starts.
func NewService(ctx context.Context, config Config) (Service, error) {
	switch config.Type {
	case ServiceTypeElevenLabs, "":
		opts := []ElevenLabsOption{}
		if config.BaseURL != "" {
			opts = append(opts, WithElevenLabsBaseURL(config.BaseURL))
		}
		if config.RateLimit > 0 {
			opts = append(opts, WithElevenLabsRateLimit(config.RateLimit, config.RateBurst))
		}
		return NewElevenLabs(ElevenLabsConfig{
			APIKey:  config.APIKey,
			VoiceID: config.VoiceID,
			ModelID: config.ModelID,
		}, opts...)

	case ServiceTypeGoogle:
		return NewGoogle(ctx, config.GoogleVoice, config.GoogleLanguage)

	case ServiceTypeMock:
		return NewMock(10 * time.Millisecond), nil

	default:
		return nil, fmt.Errorf("unsupported TTS service type: %s, available: %v", config.Type, AvailableServices())
	}
}

// AvailableServices lists the service types NewService accepts.
func AvailableServices() []ServiceType {
	return []ServiceType{ServiceTypeElevenLabs, ServiceTypeGoogle, ServiceTypeMock}
}
