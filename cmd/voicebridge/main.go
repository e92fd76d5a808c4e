package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaelos-ai/voicebridge/pkg/logging"
	"github.com/kaelos-ai/voicebridge/pkg/runner"
	"github.com/kaelos-ai/voicebridge/pkg/voicebridge"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := voicebridge.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)

	engine, err := voicebridge.NewEngine(cfg, logger)
	if err != nil {
		logger.Error("engine_init_failed", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		logger.Error("engine_start_failed", "error", err.Error())
		os.Exit(1)
	}

	life := runner.New(engine, 10*time.Second)
	if err := life.Run(ctx); err != nil {
		logger.Error("shutdown_error", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("voicebridge_stopped")
}
