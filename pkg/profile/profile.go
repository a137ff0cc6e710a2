// Package profile assembles named stage orderings into a ready pipeline
// stage list.
package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/chriscow/speechstack-go/pkg/agc"
	"github.com/chriscow/speechstack-go/pkg/ai/stt"
	aivad "github.com/chriscow/speechstack-go/pkg/ai/vad"
	"github.com/chriscow/speechstack-go/pkg/asr"
	"github.com/chriscow/speechstack-go/pkg/keyword"
	"github.com/chriscow/speechstack-go/pkg/model"
	"github.com/chriscow/speechstack-go/pkg/nsx"
	"github.com/chriscow/speechstack-go/pkg/plugin"
	"github.com/chriscow/speechstack-go/pkg/speech"
	"github.com/chriscow/speechstack-go/pkg/timeout"
	"github.com/chriscow/speechstack-go/pkg/vad"
	"github.com/chriscow/speechstack-go/pkg/wakeword"
)

// Profile names.
const (
	Wakeword      = "wakeword"
	WakewordASR   = "wakeword-asr"
	VADTriggerASR = "vad-trigger-asr"
	Keyword       = "keyword"
)

// Stage names, in the order they may appear.
const (
	StageAGC        = "agc"
	StageNSX        = "nsx"
	StageVAD        = "vad"
	StageVADTrigger = "vad-trigger"
	StageWakeword   = "wakeword"
	StageKeyword    = "keyword"
	StageTimeout    = "timeout"
	StageASR        = "asr"
)

var orderings = map[string][]string{
	Wakeword:      {StageVAD, StageWakeword, StageTimeout},
	WakewordASR:   {StageVAD, StageWakeword, StageTimeout, StageASR},
	VADTriggerASR: {StageVAD, StageVADTrigger, StageTimeout, StageASR},
	Keyword:       {StageAGC, StageNSX, StageVAD, StageVADTrigger, StageKeyword, StageTimeout},
}

// Names returns the known profile names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(orderings))
}

// Stages returns the stage ordering of a profile.
func Stages(name string) ([]string, error) {
	order, ok := orderings[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown profile %q (known: %v)", speech.ErrInvalidConfig, name, Names())
	}
	return slices.Clone(order), nil
}

// Config carries the configuration of every stage a profile may use.
// VADOptions and STTOptions are passed to the selected plugin factories.
type Config struct {
	Name       string
	AGC        agc.Config
	NSX        nsx.Config
	VAD        vad.Config
	Wakeword   wakeword.Config
	Keyword    keyword.Config
	Timeout    timeout.Config
	ASR        asr.Config
	VADOptions map[string]any
	STTOptions map[string]any
}

// DefaultConfig returns every stage's defaults under the wakeword profile.
func DefaultConfig() Config {
	return Config{
		Name:     Wakeword,
		AGC:      agc.DefaultConfig(),
		NSX:      nsx.DefaultConfig(),
		VAD:      vad.DefaultConfig(),
		Wakeword: wakeword.DefaultConfig(),
		Keyword:  keyword.DefaultConfig(),
		Timeout:  timeout.DefaultConfig(),
		ASR:      asr.DefaultConfig(),
	}
}

// Deps are the collaborators stages are built with.
type Deps struct {
	Models   model.Loader
	Recorder model.InferenceRecorder
	Registry *plugin.Registry
	Logger   *slog.Logger
}

// Build constructs the stages of cfg.Name. On failure every stage built so
// far is closed.
func Build(cfg Config, deps Deps) (stages []speech.Stage, err error) {
	order, err := Stages(cfg.Name)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Registry == nil {
		deps.Registry = plugin.Global()
	}

	defer func() {
		if err != nil {
			for _, s := range stages {
				err = errors.Join(err, s.Close())
			}
			stages = nil
		}
	}()

	for _, name := range order {
		s, err := build(name, cfg, deps)
		if err != nil {
			return stages, fmt.Errorf("build %s stage: %w", name, err)
		}
		stages = append(stages, s)
	}
	deps.Logger.Info("profile ready", slog.String("profile", cfg.Name), slog.Any("stages", order))
	return stages, nil
}

func build(name string, cfg Config, deps Deps) (speech.Stage, error) {
	logger := deps.Logger.With(slog.String("stage", name))
	switch name {
	case StageAGC:
		return agc.New(cfg.AGC, logger)
	case StageNSX:
		return nsx.New(cfg.NSX)
	case StageVAD:
		opts := map[string]any{"mode": cfg.VAD.Mode}
		maps.Copy(opts, cfg.VADOptions)
		c, err := plugin.BuildFrom[aivad.Classifier](deps.Registry, plugin.KindVAD, cfg.VAD.Provider, opts)
		if err != nil {
			return nil, err
		}
		d, err := vad.NewDetector(cfg.VAD, c, logger)
		if err != nil {
			return nil, errors.Join(err, c.Close())
		}
		return d, nil
	case StageVADTrigger:
		return vad.NewTrigger(), nil
	case StageWakeword:
		if deps.Models == nil {
			return nil, fmt.Errorf("%w: wakeword requires a model loader", speech.ErrInvalidConfig)
		}
		return wakeword.Load(cfg.Wakeword, deps.Models, deps.Recorder, wakeword.WithLogger(logger))
	case StageKeyword:
		if deps.Models == nil {
			return nil, fmt.Errorf("%w: keyword requires a model loader", speech.ErrInvalidConfig)
		}
		return keyword.Load(cfg.Keyword, deps.Models, deps.Recorder, keyword.WithLogger(logger))
	case StageTimeout:
		return timeout.New(cfg.Timeout, logger)
	case StageASR:
		provider, err := plugin.BuildFrom[stt.STT](deps.Registry, plugin.KindSTT, cfg.ASR.Provider, cfg.STTOptions)
		if err != nil {
			return nil, err
		}
		return asr.New(cfg.ASR, provider, asr.WithLogger(logger))
	}
	return nil, fmt.Errorf("unknown stage %q", name)
}
