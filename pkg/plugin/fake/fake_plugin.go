// Package fake registers the fake VAD and STT providers used for tests and
// offline runs.
package fake

import (
	"fmt"

	sttfake "github.com/chriscow/speechstack-go/pkg/ai/stt/fake"
	vadfake "github.com/chriscow/speechstack-go/pkg/ai/vad/fake"
	"github.com/chriscow/speechstack-go/pkg/plugin"
)

// newFakeSTT creates a new fake STT provider from configuration.
func newFakeSTT(cfg map[string]any) (any, error) {
	return sttfake.NewFakeSTT(plugin.String(cfg, "transcript", "")), nil
}

// newFakeVAD creates a fake classifier. A "script" list of booleans takes
// precedence over the random "probability".
func newFakeVAD(cfg map[string]any) (any, error) {
	if raw, ok := cfg["script"].([]any); ok {
		script := make([]bool, len(raw))
		for i, v := range raw {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("script[%d]: expected bool, got %T", i, v)
			}
			script[i] = b
		}
		return vadfake.NewScripted(script...), nil
	}

	p := plugin.Float(cfg, "probability", 0.5)
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("probability must be in [0, 1], got %v", p)
	}
	if _, ok := cfg["seed"]; ok {
		return vadfake.NewFakeVADWithSeed(float32(p), int64(plugin.Int(cfg, "seed", 0))), nil
	}
	return vadfake.NewFakeVAD(float32(p)), nil
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "fake",
		Factory:     newFakeSTT,
		Description: "Fake STT provider for testing and development",
		Version:     "1.0.0",
		Config: map[string]any{
			"transcript": sttfake.DefaultTranscript,
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindVAD,
		Name:        "fake",
		Factory:     newFakeVAD,
		Description: "Fake VAD classifier, scripted or random",
		Version:     "1.0.0",
		Config: map[string]any{
			"probability": 0.5,
			"seed":        "optional, makes the random sequence reproducible",
			"script":      "optional list of booleans, last entry repeats",
		},
	})
}
