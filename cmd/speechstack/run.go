package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chriscow/speechstack-go/internal/config"
	"github.com/chriscow/speechstack-go/internal/observe"
	"github.com/chriscow/speechstack-go/pkg/audio/wav"
	"github.com/chriscow/speechstack-go/pkg/model"
	"github.com/chriscow/speechstack-go/pkg/model/onnx"
	"github.com/chriscow/speechstack-go/pkg/plugin"
	"github.com/chriscow/speechstack-go/pkg/profile"
	"github.com/chriscow/speechstack-go/pkg/speech"
	"github.com/chriscow/speechstack-go/pkg/version"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run audio through a pipeline profile and print speech events",
	Long: `Read a WAV file (or raw 16-bit little-endian mono PCM from stdin with
--input -) and drive it through the profile named in the config. Events are
printed to stdout one per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts runOptions
		opts.configPath, _ = cmd.Flags().GetString("config")
		opts.profile, _ = cmd.Flags().GetString("profile")
		opts.input, _ = cmd.Flags().GetString("input")
		opts.metricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		opts.saveDir, _ = cmd.Flags().GetString("save-dir")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runPipeline(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

type runOptions struct {
	configPath  string
	profile     string
	input       string
	metricsAddr string
	saveDir     string

	// models replaces the ONNX loader; tests use it to inject fakes.
	models model.Loader
}

// loadConfig reads the config file (or the defaults) and applies flag
// overrides before validating.
func loadConfig(opts runOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		f, err := os.Open(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", opts.configPath, err)
		}
		defer f.Close()
		if cfg, err = config.Decode(f); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", opts.configPath, err)
		}
	}
	if opts.profile != "" {
		cfg.Profile = opts.profile
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.ListenAddr = opts.metricsAddr
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPipeline(ctx context.Context, opts runOptions, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Log)
	logger.Info("Starting pipeline",
		slog.String("service", "speechstack"),
		slog.String("version", version.Version),
		slog.String("profile", cfg.Profile),
		slog.String("input", opts.input))

	var metrics *observe.Metrics
	if cfg.Metrics.ListenAddr != "" {
		stop, m, err := serveMetrics(cfg.Metrics.ListenAddr, logger)
		if err != nil {
			return err
		}
		defer stop()
		metrics = m
	}

	deps := profile.Deps{
		Models:   opts.models,
		Registry: plugin.Global(),
		Logger:   logger,
	}
	if deps.Models == nil {
		deps.Models = &onnx.Loader{
			LibraryPath:    cfg.Models.LibPath,
			IntraOpThreads: cfg.Models.IntraOpThreads,
		}
	}
	if metrics != nil {
		deps.Recorder = metrics
	}

	stages, err := profile.Build(cfg.ProfileConfig(), deps)
	if err != nil {
		return err
	}
	if opts.saveDir != "" {
		stages = append(stages, newCaptureStage(opts.saveDir, cfg.Audio.SampleRate, logger))
	}

	input, err := openInput(opts.input, stdin, cfg.Audio)
	if err != nil {
		closeStages(stages, logger)
		return err
	}

	pipeOpts := []speech.Option{speech.WithLogger(logger)}
	if metrics != nil {
		pipeOpts = append(pipeOpts, speech.WithObserver(metrics))
	}
	p := speech.NewPipeline(input, stages, pipeOpts...)
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("pipeline close failed", slog.String("error", err.Error()))
		}
	}()

	printEvents(p, stdout)
	if metrics != nil {
		p.On(speech.EventActivate, func(*speech.Context) {
			metrics.RecordActivation(ctx, cfg.Profile)
		})
	}

	start := time.Now()
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Pipeline finished", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// openInput returns a WAV source for a path, or a raw PCM source for "-".
func openInput(path string, stdin io.Reader, audio config.AudioConfig) (speech.InputSource, error) {
	if path == "-" {
		return speech.NewPCMInput(stdin, audio.SampleRate*audio.FrameWidth/1000), nil
	}
	r, err := wav.Open(path)
	if err != nil {
		return nil, err
	}
	in, err := wav.NewInput(r, audio.SampleRate, audio.FrameWidth)
	if err != nil {
		r.Close()
		return nil, err
	}
	return in, nil
}

// printEvents writes one line per speech event to w.
func printEvents(p *speech.Pipeline, w io.Writer) {
	p.On(speech.EventActivate, func(*speech.Context) {
		fmt.Fprintln(w, "activate")
	})
	p.On(speech.EventDeactivate, func(*speech.Context) {
		fmt.Fprintln(w, "deactivate")
	})
	p.On(speech.EventPartialRecognize, func(ctx *speech.Context) {
		fmt.Fprintf(w, "partial_recognize %q\n", ctx.Transcript())
	})
	p.On(speech.EventRecognize, func(ctx *speech.Context) {
		fmt.Fprintf(w, "recognize %q confidence=%.2f\n", ctx.Transcript(), ctx.Confidence())
	})
	p.On(speech.EventTimeout, func(*speech.Context) {
		fmt.Fprintln(w, "timeout")
	})
	p.On(speech.EventError, func(ctx *speech.Context) {
		fmt.Fprintf(w, "error %v\n", ctx.Err())
	})
}

// serveMetrics installs the Prometheus meter provider and serves /metrics
// on addr until the returned stop function is called.
func serveMetrics(addr string, logger *slog.Logger) (func(), *observe.Metrics, error) {
	provider, err := observe.InitProvider(observe.ProviderConfig{ServiceVersion: version.Version})
	if err != nil {
		return nil, nil, fmt.Errorf("init metrics: %w", err)
	}
	metrics, err := observe.NewMetrics(provider.MeterProvider())
	if err != nil {
		return nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.Handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = provider.Shutdown(ctx)
	}
	return stop, metrics, nil
}

func closeStages(stages []speech.Stage, logger *slog.Logger) {
	for _, s := range stages {
		if err := s.Close(); err != nil {
			logger.Warn("stage close failed", slog.String("error", err.Error()))
		}
	}
}
