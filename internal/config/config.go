// Package config loads voicegen settings from file, environment and .env.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"voicegen/internal/domain/speech"
	"voicegen/internal/speech/chunker"
	"voicegen/internal/speech/synth"
	"voicegen/internal/speech/tts"
)

// Config is the effective configuration. It is read once at startup and not
// modified afterwards.
type Config struct {
	TTS     tts.Config
	Voice   speech.VoiceSettings
	Synth   synth.Config
	Voices  VoicesConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type VoicesConfig struct {
	CacheDir string
	MaxAge   time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	File string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tts.type", tts.ServiceTypeElevenLabs.String())

	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io/v1")
	v.SetDefault("elevenlabs.model_id", tts.ElevenLabsModelMultilingual)
	v.SetDefault("elevenlabs.rate_limit", 0.0)
	v.SetDefault("elevenlabs.rate_burst", 1)

	def := speech.DefaultVoiceSettings()
	v.SetDefault("voice.stability", def.Stability)
	v.SetDefault("voice.similarity_boost", def.SimilarityBoost)
	v.SetDefault("voice.style", def.Style)
	v.SetDefault("voice.use_speaker_boost", def.UseSpeakerBoost)

	v.SetDefault("synth.max_chunk_size", chunker.DefaultMaxSize)
	v.SetDefault("synth.max_retries", synth.DefaultMaxRetries)
	v.SetDefault("synth.backoff", []string{"500ms", "1s", "2s", "4s", "8s"})
	v.SetDefault("synth.request_timeout", synth.DefaultRequestTimeout.String())

	v.SetDefault("google.language", "en-US")

	v.SetDefault("voices.cache_dir", defaultCacheDir())
	v.SetDefault("voices.max_age", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance with defaults, config search paths and
// environment bindings in place. Call ReadInConfig before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("voicegen")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.voicegen")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VOICEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("elevenlabs.api_key", "VOICEGEN_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY")
	_ = v.BindEnv("elevenlabs.voice_id", "VOICEGEN_ELEVENLABS_VOICE_ID", "ELEVENLABS_VOICE_ID")

	setDefaults(v)
	return v
}

// ReadInConfig loads .env files and the config file. A missing file of either
// kind is not an error.
func ReadInConfig(v *viper.Viper, envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	backoff, err := parseDurations(v.GetStringSlice("synth.backoff"))
	if err != nil {
		return Config{}, fmt.Errorf("synth.backoff: %w", err)
	}
	timeout, err := time.ParseDuration(v.GetString("synth.request_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("synth.request_timeout: %w", err)
	}
	maxAge, err := time.ParseDuration(v.GetString("voices.max_age"))
	if err != nil {
		return Config{}, fmt.Errorf("voices.max_age: %w", err)
	}

	cfg := Config{
		TTS: tts.Config{
			Type:           tts.ServiceType(strings.ToLower(v.GetString("tts.type"))),
			APIKey:         v.GetString("elevenlabs.api_key"),
			VoiceID:        v.GetString("elevenlabs.voice_id"),
			ModelID:        v.GetString("elevenlabs.model_id"),
			BaseURL:        v.GetString("elevenlabs.base_url"),
			RateLimit:      v.GetFloat64("elevenlabs.rate_limit"),
			RateBurst:      v.GetInt("elevenlabs.rate_burst"),
			GoogleVoice:    v.GetString("google.voice"),
			GoogleLanguage: v.GetString("google.language"),
		},
		Voice: speech.VoiceSettings{
			Stability:       v.GetFloat64("voice.stability"),
			SimilarityBoost: v.GetFloat64("voice.similarity_boost"),
			Style:           v.GetFloat64("voice.style"),
			UseSpeakerBoost: v.GetBool("voice.use_speaker_boost"),
		},
		Synth: synth.Config{
			MaxChunkSize: v.GetInt("synth.max_chunk_size"),
			Retry: synth.RetryPolicy{
				MaxRetries:     v.GetInt("synth.max_retries"),
				Backoff:        backoff,
				RequestTimeout: timeout,
			},
		},
		Voices: VoicesConfig{
			CacheDir: v.GetString("voices.cache_dir"),
			MaxAge:   maxAge,
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Metrics: MetricsConfig{
			File: v.GetString("metrics.file"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails fast on settings that would only break mid-job. Service
// credentials are checked by tts.NewService, so commands that never call the
// service work without them.
func (c Config) Validate() error {
	if !slices.Contains(tts.AvailableServices(), c.TTS.Type) {
		return fmt.Errorf("unsupported tts.type %q, available: %v", c.TTS.Type, tts.AvailableServices())
	}

	if err := validUnit("voice.stability", c.Voice.Stability); err != nil {
		return err
	}
	if err := validUnit("voice.similarity_boost", c.Voice.SimilarityBoost); err != nil {
		return err
	}
	if err := validUnit("voice.style", c.Voice.Style); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return c.Synth.Validate()
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.TTS.APIKey != "" {
		c.TTS.APIKey = "****"
	}
	return c
}

func validUnit(key string, f float64) error {
	if f < 0 || f > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", key, f)
	}
	return nil
}

// parseDurations accepts a YAML list or a comma separated env value.
func parseDurations(values []string) ([]time.Duration, error) {
	var out []time.Duration
	for _, v := range values {
		for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	return out, nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "voicegen")
	}
	return "cache"
}
