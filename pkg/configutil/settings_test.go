package configutil

import (
	"testing"

	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
)

type sampleSettings struct {
	APIKey      string   `mapstructure:"api_key"`
	Model       string   `mapstructure:"model"`
	Temperature *float64 `mapstructure:"temperature"`
}

func TestDecodeSettingsNormalizesKeys(t *testing.T) {
	var out sampleSettings
	err := DecodeSettings(map[string]any{
		"apiKey":      "sk-test",
		"MODEL":       "gpt",
		"temperature": "0.8",
	}, &out)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if out.APIKey != "sk-test" || out.Model != "gpt" {
		t.Fatalf("unexpected decode result: %+v", out)
	}
	if Float64Value(out.Temperature, 0) != 0.8 {
		t.Fatalf("expected weakly typed temperature 0.8, got %v", out.Temperature)
	}
}

func TestRequireString(t *testing.T) {
	err := RequireString("  ", "openai.api_key")
	if err == nil {
		t.Fatalf("expected error for blank value")
	}
	if !errorsx.HasReason(err, errorsx.ReasonConfigMissing) {
		t.Fatalf("expected config_missing reason, got %v", err)
	}
	if err := RequireString("value", "openai.api_key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
