package vad

import "github.com/chriscow/speechstack-go/pkg/plugin"

func newEnergyPlugin(cfg map[string]any) (any, error) {
	return NewEnergy(plugin.String(cfg, "mode", ModeVeryAggressive))
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindVAD,
		Name:        "energy",
		Factory:     newEnergyPlugin,
		Description: "Adaptive noise floor energy classifier",
		Version:     "1.0.0",
		Config: map[string]any{
			"mode": ModeVeryAggressive,
		},
	})
}
