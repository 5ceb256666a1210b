package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"companion/internal/bot"
	"companion/internal/config"
	"companion/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Load .env file (optional - won't error if missing)
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Setup(level, cfg.Logging.File, cfg.Logging.LogToFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logging setup error: %v\n", err)
		os.Exit(1)
	}

	logging.Info("main", "Starting LLM companion bot...")
	logging.Info("main", "Config file: %s", *configPath)
	logging.Info("main", "Model: %s", cfg.LLM.Model)
	logging.Info("main", "Reply probability: %v", cfg.Behavior.ReplyProbability)
	logging.Info("main", "Reaction probability: %v", cfg.Behavior.ReactionProbability)
	logging.Info("main", "Always reply on mention: %v", cfg.Behavior.AlwaysReplyOnMention)
	logging.Info("main", "Message window size: %d", cfg.Behavior.MessageWindowSize)

	b, err := bot.New(cfg)
	if err != nil {
		logging.Error("main", "Failed to create bot: %v", err)
		os.Exit(1)
	}
	if err := b.Start(); err != nil {
		logging.Error("main", "Failed to start bot: %v", err)
		os.Exit(1)
	}

	logging.Info("main", "Bot running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logging.Info("main", "Shutting down...")
	if err := b.Stop(); err != nil {
		logging.Error("main", "Error during shutdown: %v", err)
	}
}
