// Package app holds the voicegen command handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"voicegen/internal/cli/scheme/colours"
	"voicegen/internal/config"
	"voicegen/internal/speech/chunker"
	"voicegen/internal/speech/player"
	"voicegen/internal/speech/synth"
	"voicegen/internal/speech/tts"
)

// App wires configuration, the voice service and the pipeline for the CLI.
type App struct {
	cfg config.Config
	log *logrus.Logger
	out io.Writer

	newService func(context.Context, tts.Config) (tts.Service, error)
	player     *player.Player

	ctx    context.Context
	Cancel context.CancelFunc
}

func New(cfg config.Config, log *logrus.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:        cfg,
		log:        log,
		out:        os.Stdout,
		newService: tts.NewService,
		player:     player.New(),
		ctx:        ctx,
		Cancel:     cancel,
	}
}

func (a *App) ShowWelcome() {
	fmt.Fprintln(a.out)
	colours.Title.Fprintln(a.out, "🎙️  voicegen")
	fmt.Fprintln(a.out)
	colours.Info.Fprintln(a.out, "Available commands:")
	fmt.Fprintln(a.out, "  • voicegen synth   - Convert text to a single audio file")
	fmt.Fprintln(a.out, "  • voicegen chunk   - Show how text will be split")
	fmt.Fprintln(a.out, "  • voicegen voices  - List voices for the configured service")
	fmt.Fprintln(a.out, "  • voicegen play    - Play an audio file")
	fmt.Fprintln(a.out, "  • voicegen config  - Print the effective configuration")
	fmt.Fprintln(a.out)
	colours.Info.Fprint(a.out, "Voice services: ")
	for i, st := range tts.AvailableServices() {
		if i > 0 {
			fmt.Fprint(a.out, ", ")
		}
		if st == a.cfg.TTS.Type {
			colours.Success.Fprintf(a.out, "%s (configured)", st)
		} else {
			fmt.Fprint(a.out, st)
		}
	}
	fmt.Fprintln(a.out)
}

// Synthesize runs one full synthesis job and writes the artifact.
func (a *App) Synthesize(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd, args)
	if err != nil {
		return err
	}
	outPath, _ := cmd.Flags().GetString("out")
	play, _ := cmd.Flags().GetBool("play")
	metricsFile := a.cfg.Metrics.File
	if f, _ := cmd.Flags().GetString("metrics-file"); f != "" {
		metricsFile = f
	}

	service, err := a.newService(a.ctx, a.cfg.TTS)
	if err != nil {
		return fmt.Errorf("failed to create %s service: %w", a.cfg.TTS.Type, err)
	}
	defer a.closeService(service)

	registry := prometheus.NewRegistry()
	metrics, err := synth.NewMetrics(registry)
	if err != nil {
		return err
	}
	events := synth.MultiLogger(synth.NewLogrusLogger(a.log), metrics)

	pipeline, err := synth.NewPipeline(service, a.cfg.Synth, synth.WithEventLogger(events))
	if err != nil {
		return err
	}

	colours.Info.Fprintf(a.out, "🎵 Synthesizing %d characters with %s...\n", len([]rune(text)), service.Name())
	start := time.Now()
	artifact, jobErr := pipeline.Synthesize(a.ctx, text, a.cfg.Voice)

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
			a.log.WithError(err).Warn("failed to write metrics file")
		}
	}
	if jobErr != nil {
		return describe(jobErr)
	}

	if err := os.WriteFile(outPath, artifact.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	colours.Success.Fprintf(a.out, "✅ Wrote %d bytes from %d chunk(s) to %s in %s\n",
		artifact.Len(), artifact.Chunks, outPath, time.Since(start).Round(time.Millisecond))

	if play {
		return a.playData(artifact.Data)
	}
	return nil
}

// PreviewChunks prints the chunks text would be split into.
func (a *App) PreviewChunks(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd, args)
	if err != nil {
		return err
	}
	maxSize, _ := cmd.Flags().GetInt("max")
	if maxSize == 0 {
		maxSize = a.cfg.Synth.MaxChunkSize
	}

	chunks, err := chunker.Split(text, maxSize)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		colours.Label.Fprintf(a.out, "[%d] ", c.Index)
		colours.Info.Fprintf(a.out, "(%d chars) ", len([]rune(c.Content)))
		fmt.Fprintln(a.out, c.Content)
	}
	colours.Success.Fprintf(a.out, "✨ %d chunk(s), max %d characters\n", len(chunks), maxSize)
	return nil
}

// ListVoices prints the voices of the configured service, using the on-disk cache.
func (a *App) ListVoices(cmd *cobra.Command, args []string) error {
	refresh, _ := cmd.Flags().GetBool("refresh")
	clearCache, _ := cmd.Flags().GetBool("clear-cache")

	service, err := a.newService(a.ctx, a.cfg.TTS)
	if err != nil {
		return fmt.Errorf("failed to create %s service: %w", a.cfg.TTS.Type, err)
	}
	defer a.closeService(service)
	lister, ok := service.(tts.VoiceLister)
	if !ok {
		return fmt.Errorf("%s service cannot list voices", service.Name())
	}

	catalog, err := tts.NewVoiceCatalog(service.Name(), lister, a.cfg.Voices.CacheDir, a.cfg.Voices.MaxAge)
	if err != nil {
		return err
	}
	if clearCache {
		if err := catalog.ClearCache(); err != nil {
			return err
		}
		colours.Success.Fprintf(a.out, "🧹 Cleared cached voices for %s\n", service.Name())
		return nil
	}

	voices, err := catalog.Voices(a.ctx, refresh)
	if err != nil {
		return describe(err)
	}

	for i, v := range voices {
		fmt.Fprintf(a.out, "  %d. ", i+1)
		colours.Title.Fprint(a.out, v.Name)
		colours.Info.Fprintf(a.out, "  ID: %s", v.ID)
		if v.Category != "" {
			fmt.Fprintf(a.out, "  (%s)", v.Category)
		}
		if v.ID == a.cfg.TTS.VoiceID {
			colours.Success.Fprint(a.out, "  ← configured")
		}
		fmt.Fprintln(a.out)
	}
	colours.Success.Fprintf(a.out, "✨ %d voice(s)\n", len(voices))
	return nil
}

// Play plays an audio file from disk.
func (a *App) Play(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return a.playData(data)
}

func (a *App) playData(data []byte) error {
	length, err := player.Decode(data)
	if err != nil {
		return err
	}
	colours.Info.Fprintf(a.out, "▶️  Playing %s (Ctrl+C to stop)\n", length.Round(time.Second))
	if err := a.player.Play(a.ctx, data); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ShowConfig prints the effective configuration with secrets redacted.
func (a *App) ShowConfig(cmd *cobra.Command, args []string) error {
	c := a.cfg.Redacted()
	colours.Title.Fprintln(a.out, "⚙️  Effective configuration")
	rows := [][2]string{
		{"tts.type", c.TTS.Type.String()},
		{"elevenlabs.api_key", c.TTS.APIKey},
		{"elevenlabs.voice_id", c.TTS.VoiceID},
		{"elevenlabs.model_id", c.TTS.ModelID},
		{"elevenlabs.base_url", c.TTS.BaseURL},
		{"voice", fmt.Sprintf("%+v", c.Voice)},
		{"synth.max_chunk_size", fmt.Sprint(c.Synth.MaxChunkSize)},
		{"synth.max_retries", fmt.Sprint(c.Synth.Retry.MaxRetries)},
		{"synth.backoff", fmt.Sprint(c.Synth.Retry.Backoff)},
		{"synth.request_timeout", c.Synth.Retry.RequestTimeout.String()},
		{"voices.cache_dir", c.Voices.CacheDir},
	}
	for _, r := range rows {
		colours.Label.Fprintf(a.out, "  %-22s", r[0])
		fmt.Fprintln(a.out, r[1])
	}
	return nil
}

// AddCommands registers every subcommand on root.
func (a *App) AddCommands(root *cobra.Command) {
	synthCmd := &cobra.Command{
		Use:   "synth [text]",
		Short: "🎵 Synthesize text to an audio file",
		Long:  "Split text into chunks, synthesize them in order and write one audio file",
		RunE:  a.Synthesize,
	}
	synthCmd.Flags().StringP("file", "f", "", "Read text from a file ('-' for stdin)")
	synthCmd.Flags().StringP("out", "o", "out.mp3", "Output audio file")
	synthCmd.Flags().BoolP("play", "p", false, "Play the result when done")
	synthCmd.Flags().String("metrics-file", "", "Write synthesis counters in textfile collector format")

	chunkCmd := &cobra.Command{
		Use:   "chunk [text]",
		Short: "✂️ Preview how text is split",
		RunE:  a.PreviewChunks,
	}
	chunkCmd.Flags().StringP("file", "f", "", "Read text from a file ('-' for stdin)")
	chunkCmd.Flags().IntP("max", "m", 0, "Maximum chunk size (defaults to synth.max_chunk_size)")

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🗣️ List available voices",
		RunE:  a.ListVoices,
	}
	voicesCmd.Flags().BoolP("refresh", "r", false, "Ignore the cached voice list")
	voicesCmd.Flags().Bool("clear-cache", false, "Remove the cached voice list and exit")

	playCmd := &cobra.Command{
		Use:   "play <file>",
		Short: "▶️ Play an audio file",
		Args:  cobra.ExactArgs(1),
		RunE:  a.Play,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "⚙️ Show effective configuration",
		RunE:  a.ShowConfig,
	}

	root.AddCommand(synthCmd, chunkCmd, voicesCmd, playCmd, configCmd)
}

// closeService releases services that hold a connection, like the Google gRPC client.
func (a *App) closeService(service tts.Service) {
	closer, ok := service.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close tts service")
	}
}

func readText(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	default:
		return strings.Join(args, " "), nil
	}
}

// describe adds a user-facing hint to pipeline errors.
func describe(err error) error {
	var hint string
	switch {
	case errors.Is(err, tts.ErrInvalidInput):
		hint = "nothing to synthesize; pass text as arguments or with --file"
	case errors.Is(err, tts.ErrAuthentication):
		hint = "check elevenlabs.api_key"
	case errors.Is(err, tts.ErrQuotaExceeded):
		hint = "the account has no characters left"
	case errors.Is(err, tts.ErrValidation):
		hint = "the service rejected the request; check voice and model ids"
	case errors.Is(err, synth.ErrRetriesExhausted):
		hint = "the service kept failing; try again later"
	case errors.Is(err, synth.ErrCancelled):
		hint = "cancelled, no audio written"
	default:
		return err
	}
	return fmt.Errorf("%w (%s)", err, hint)
}
