package openai

import (
	"os"

	"github.com/chriscow/speechstack-go/pkg/plugin"
)

// newOpenAISTT is the factory function for OpenAI STT.
func newOpenAISTT(cfg map[string]any) (any, error) {
	return NewWhisperSTT(Config{
		APIKey:   plugin.String(cfg, "api_key", os.Getenv("OPENAI_API_KEY")),
		Model:    plugin.String(cfg, "model", ""),
		Language: plugin.String(cfg, "language", ""),
		BaseURL:  plugin.String(cfg, "base_url", ""),
	})
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "openai",
		Factory:     newOpenAISTT,
		Description: "OpenAI Whisper speech-to-text service (batch, per utterance)",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key":  "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":    "whisper-1",
			"language": "stream language when empty",
			"base_url": "",
		},
	})
}
