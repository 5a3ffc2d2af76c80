package tts

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voicegen/internal/domain/speech"
)

const (
	defaultGoogleVoice    = "en-US-Chirp3-HD-Charon"
	defaultGoogleLanguage = "en-US"
)

// GoogleService synthesizes through Google Cloud Text-to-Speech using
// application default credentials.
type GoogleService struct {
	client   *texttospeech.Client
	voice    string
	language string
}

func NewGoogle(ctx context.Context, voice, language string) (*GoogleService, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	if voice == "" {
		voice = defaultGoogleVoice
	}
	if language == "" {
		language = defaultGoogleLanguage
	}
	return &GoogleService{client: client, voice: voice, language: language}, nil
}

func (g *GoogleService) Name() string {
	return "google"
}

// Synthesize returns MP3 audio for text. Google voices have no stability or
// similarity controls; speaker boost maps to the headphone effects profile.
func (g *GoogleService) Synthesize(ctx context.Context, text string, settings speech.VoiceSettings) ([]byte, error) {
	if text == "" {
		return nil, ErrInvalidInput
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	if settings.UseSpeakerBoost {
		audioCfg.EffectsProfileId = []string{"headphone-class-device"}
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.language,
			Name:         g.voice,
		},
		AudioConfig: audioCfg,
	})
	if err != nil {
		return nil, googleError(err)
	}
	return resp.AudioContent, nil
}

// ListVoices returns the voices for the configured language.
func (g *GoogleService) ListVoices(ctx context.Context) ([]Voice, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: g.language})
	if err != nil {
		return nil, googleError(err)
	}
	voices := make([]Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voices = append(voices, Voice{
			ID:       v.Name,
			Name:     v.Name,
			Category: v.SsmlGender.String(),
			Labels:   map[string]string{"languages": strings.Join(v.LanguageCodes, ",")},
		})
	}
	return voices, nil
}

func (g *GoogleService) Close() error {
	return g.client.Close()
}

// googleError maps a gRPC failure onto the HTTP status the classifier understands.
func googleError(err error) *ServiceError {
	st, ok := status.FromError(err)
	if !ok {
		return NewServiceError(NoStatus, nil, err)
	}
	return NewServiceError(httpStatusFromCode(st.Code()), nil, err)
}

func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return http.StatusUnauthorized
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusUnprocessableEntity
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return NoStatus
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Aborted:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
