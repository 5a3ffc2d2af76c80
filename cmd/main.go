package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"voicegen/internal/cli/app"
	"voicegen/internal/cli/scheme/colours"
	"voicegen/internal/config"
)

func main() {
	v := config.New()
	if err := config.ReadInConfig(v, ".env"); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(v)
	if err != nil {
		colours.Error.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	voicegen := app.New(cfg, log)

	// Setup signal handling: cancel the running job, no partial output is written
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n" + colours.Warning.Sprint("👋 Stopping..."))
		voicegen.Cancel()
	}()

	rootCmd := &cobra.Command{
		Use:   "voicegen",
		Short: "🎙️ Turn long text into a single audio file",
		Long: `
┌─────────────────────────────────────┐
│  🎙️  voicegen                       │
│  Long text in, one audio file out   │
└─────────────────────────────────────┘

voicegen splits text into service-sized chunks, synthesizes them in order
with retries and writes a single audio file. Any chunk failure fails the job.
		`,
		Run: func(cmd *cobra.Command, args []string) {
			voicegen.ShowWelcome()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	voicegen.AddCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, _ := logrus.ParseLevel(cfg.Level)
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
