// Package voicebridge assembles the relay, the telephony transport and the
// realtime AI configuration into one runnable engine.
package voicebridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kaelos-ai/voicebridge/pkg/configutil"
	"github.com/kaelos-ai/voicebridge/pkg/kb"
	"github.com/kaelos-ai/voicebridge/pkg/logging"
	"github.com/kaelos-ai/voicebridge/pkg/openai"
	"github.com/kaelos-ai/voicebridge/pkg/relay"
	"github.com/kaelos-ai/voicebridge/pkg/transcripts"
	"github.com/kaelos-ai/voicebridge/pkg/twilio"
)

const defaultGreetingPrompt = "Greet the user with a short welcome and ask how you can help."

type Engine struct {
	cfg       Config
	transport *twilio.Transport
	store     *transcripts.Store
	logger    *slog.Logger
}

// NewEngine wires up everything the process needs. All configuration
// problems surface here, at startup; a call never fails on missing config.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.NewComponentLogger(logger, "engine")

	var aiCfg openai.Config
	if err := configutil.DecodeSettings(cfg.AI.Settings, &aiCfg); err != nil {
		return nil, fmt.Errorf("decode ai settings: %w", err)
	}
	if err := configutil.RequireString(aiCfg.APIKey, "ai.settings.api_key"); err != nil {
		return nil, err
	}

	instructions := cfg.BasePrompt
	if cfg.KnowledgeBasePath != "" {
		k, err := kb.Load(cfg.KnowledgeBasePath)
		if err != nil {
			return nil, err
		}
		instructions = kb.BuildInstructions(cfg.BasePrompt, k)
	}
	aiCfg.Instructions = instructions

	dial := func(ctx context.Context) (relay.AIConn, error) {
		conn, err := openai.Dial(ctx, aiCfg)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	opts := relay.CoordinatorOptions{}
	if cfg.Greeting.Enabled {
		opts.Greeting = cfg.Greeting.Prompt
		if opts.Greeting == "" {
			opts.Greeting = defaultGreetingPrompt
		}
	}
	coord := relay.NewCoordinator(dial, opts, logger)

	store, err := transcripts.Open(cfg.TranscriptLogPath)
	if err != nil {
		return nil, fmt.Errorf("open transcript log: %w", err)
	}

	return &Engine{
		cfg:       cfg,
		transport: twilio.New(cfg.Twilio, coord, store, logger),
		store:     store,
		logger:    logger,
	}, nil
}

// Start brings the HTTP surface up. It returns immediately; the transport
// serves until ctx is canceled.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.transport.Start(ctx); err != nil {
		return err
	}
	e.logger.Info("voicebridge_ready",
		"environment", e.cfg.Environment,
		"voice_webhook_url", e.transport.VoiceWebhookURL())
	return nil
}

// Drain closes active streams and the transcript store.
func (e *Engine) Drain() error {
	if err := e.transport.Drain(); err != nil {
		return err
	}
	return e.store.Close()
}
