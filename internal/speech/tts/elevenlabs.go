package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"voicegen/internal/domain/speech"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	// ElevenLabsModelMultilingual is the multilingual v2 model.
	ElevenLabsModelMultilingual = "eleven_multilingual_v2"
	// ElevenLabsModelTurbo is the fast turbo v2.5 model.
	ElevenLabsModelTurbo = "eleven_turbo_v2_5"

	// error bodies are small JSON documents; anything past this is noise
	maxErrorBody = 64 << 10
)

// ElevenLabsConfig holds the process-wide credentials for the ElevenLabs API.
type ElevenLabsConfig struct {
	APIKey  string
	VoiceID string
	ModelID string
}

// Validate reports the first missing required value.
func (c ElevenLabsConfig) Validate() error {
	switch {
	case c.APIKey == "":
		return errors.New("elevenlabs API key must be set")
	case c.VoiceID == "":
		return errors.New("elevenlabs voice id must be set")
	case c.ModelID == "":
		return errors.New("elevenlabs model id must be set")
	}
	return nil
}

// ElevenLabsService calls the ElevenLabs text-to-speech endpoint. It is
// immutable after construction and safe for concurrent use.
type ElevenLabsService struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// ElevenLabsOption configures the ElevenLabs service.
type ElevenLabsOption func(*ElevenLabsService)

// WithElevenLabsBaseURL sets a custom base URL.
func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.baseURL = url
	}
}

// WithElevenLabsClient sets a custom HTTP client.
func WithElevenLabsClient(client *http.Client) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.client = client
	}
}

// WithElevenLabsRateLimit paces outgoing requests to perSecond with the given burst.
func WithElevenLabsRateLimit(perSecond float64, burst int) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewElevenLabs creates an ElevenLabs service. The per-request deadline is
// applied by the caller's context, so the default client has no timeout.
func NewElevenLabs(config ElevenLabsConfig, opts ...ElevenLabsOption) (*ElevenLabsService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &ElevenLabsService{
		apiKey:  config.APIKey,
		voiceID: config.VoiceID,
		modelID: config.ModelID,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ElevenLabsService) Name() string {
	return "elevenlabs"
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize converts one chunk of text to audio.
func (s *ElevenLabsService) Synthesize(ctx context.Context, text string, settings speech.VoiceSettings) ([]byte, error) {
	if text == "" {
		return nil, ErrInvalidInput
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       settings.Stability,
			SimilarityBoost: settings.SimilarityBoost,
			Style:           settings.Style,
			UseSpeakerBoost: settings.UseSpeakerBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", s.baseURL, url.PathEscape(s.voiceID))
	req, err := s.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	return s.do(ctx, req)
}

type elevenLabsVoicesResponse struct {
	Voices []Voice `json:"voices"`
}

// ListVoices returns the voices available to the configured account.
func (s *ElevenLabsService) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.baseURL+"/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	data, err := s.do(ctx, req)
	if err != nil {
		return nil, err
	}
	var resp elevenLabsVoicesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}
	return resp.Voices, nil
}

func (s *ElevenLabsService) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	return req, nil
}

func (s *ElevenLabsService) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, NewServiceError(NoStatus, nil, err)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewServiceError(NoStatus, nil, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, NewServiceError(resp.StatusCode, body, nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewServiceError(NoStatus, nil, fmt.Errorf("failed to read audio: %w", err))
	}
	return data, nil
}
