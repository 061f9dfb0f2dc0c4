package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/app/runtime"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/config"
)

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Chat bot that reads Twitch and Kick chat aloud",
	Long: `bot connects to Twitch and Kick chat, runs chat commands and reads
messages aloud through TikTok, Google, Speechify or ElevenLabs voices.

Configuration comes from the environment or a .env file in the working
directory. The dashboard API and overlay websocket listen on CHAT_WS_ADDR.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.Level())
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := runtime.Start(ctx, runtime.Options{Config: cfg, Logger: log.Default()})
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	<-ctx.Done()
	log.Info("shutting down")

	if err := run.Stop(); err != nil && err != context.Canceled {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}
