// Package spokestack registers the Spokestack cloud recognizer as an STT
// plugin.
package spokestack

import (
	"os"

	"github.com/chriscow/speechstack-go/pkg/asr/cloud"
	"github.com/chriscow/speechstack-go/pkg/plugin"
)

func newSpokestackSTT(cfg map[string]any) (any, error) {
	return cloud.New(cloud.Config{
		SocketURL:        plugin.String(cfg, "socket_url", cloud.DefaultSocketURL),
		KeyID:            plugin.String(cfg, "key_id", os.Getenv("SPOKESTACK_KEY_ID")),
		KeySecret:        plugin.String(cfg, "key_secret", os.Getenv("SPOKESTACK_KEY_SECRET")),
		HandshakeTimeout: plugin.Duration(cfg, "handshake_timeout", 0),
	})
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "spokestack",
		Factory:     newSpokestackSTT,
		Description: "Spokestack cloud streaming speech recognition",
		Version:     "1.0.0",
		Config: map[string]any{
			"socket_url":        cloud.DefaultSocketURL,
			"key_id":            "API key id (or set SPOKESTACK_KEY_ID env var)",
			"key_secret":        "API key secret (or set SPOKESTACK_KEY_SECRET env var)",
			"handshake_timeout": 10000,
		},
	})
}
