package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/YusenFan/Ollama-Transcriber/internal/config"
	"github.com/YusenFan/Ollama-Transcriber/internal/runtime"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		inputPath   string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&inputPath, "input", "", "Audio file or directory of wav files (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if inputPath != "" {
		cfg.Paths.Input = inputPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := runtime.New(cfg, logger)
	if err := rt.Run(ctx); err != nil {
		logger.Error("transcriber exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("done")
}
