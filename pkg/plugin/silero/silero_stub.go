//go:build !silero

package silero

import (
	"fmt"

	"github.com/chriscow/speechstack-go/pkg/ai/vad"
	"github.com/chriscow/speechstack-go/pkg/plugin"
)

// Stub factory that returns an error when silero tag is not used.
func newSileroVAD(map[string]any) (any, error) {
	return nil, fmt.Errorf("%w: silero VAD plugin not available (build with -tags=silero)", vad.ErrFatal)
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindVAD,
		Name:        "silero",
		Factory:     newSileroVAD,
		Description: "Silero VAD (disabled - build with -tags=silero to enable)",
		Version:     "1.0.0",
		Config: map[string]any{
			"note": "This plugin requires -tags=silero build flag",
		},
		Downloader: &Downloader{},
	})
}
