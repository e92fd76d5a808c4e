package voicebridge

import (
	"fmt"
	"os"
	"strings"

	"github.com/kaelos-ai/voicebridge/pkg/twilio"
	"github.com/spf13/viper"
)

// AIConfig selects the realtime AI vendor. Settings is a free-form map
// decoded into the vendor's own config struct.
type AIConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type GreetingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prompt  string `mapstructure:"prompt"`
}

type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	BasePrompt        string `mapstructure:"base_prompt"`
	KnowledgeBasePath string `mapstructure:"knowledge_base_path"`
	TranscriptLogPath string `mapstructure:"transcript_log_path"`

	Greeting GreetingConfig `mapstructure:"greeting"`
	AI       AIConfig       `mapstructure:"ai"`
	Twilio   twilio.Config  `mapstructure:"twilio"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("knowledge_base_path", "knowledge_base.json")
	v.SetDefault("transcript_log_path", "transcription.jsonl")
	v.SetDefault("greeting.enabled", false)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("twilio.server_addr", ":5050")

	v.SetEnvPrefix("VOICEBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.AI.Provider != "openai" {
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}
	if cfg.AI.Settings == nil {
		cfg.AI.Settings = map[string]any{}
	}
	// The conventional env var wins over nothing, never over the file.
	if _, ok := cfg.AI.Settings["api_key"]; !ok {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.AI.Settings["api_key"] = key
		}
	}
	return cfg, nil
}
