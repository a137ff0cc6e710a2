package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chriscow/speechstack-go/pkg/audio/wav"
	"github.com/chriscow/speechstack-go/pkg/speech"
)

// captureStage writes the frames of every activation to its own WAV file.
// It runs last so it sees the activation state the other stages settled on.
type captureStage struct {
	dir        string
	sampleRate int
	logger     *slog.Logger

	w     *wav.Writer
	path  string
	count int
}

var _ speech.Stage = (*captureStage)(nil)

func newCaptureStage(dir string, sampleRate int, logger *slog.Logger) *captureStage {
	return &captureStage{dir: dir, sampleRate: sampleRate, logger: logger}
}

func (c *captureStage) Name() string { return "capture" }

func (c *captureStage) Process(ctx *speech.Context, frame []int16) error {
	if !ctx.IsActive() {
		return c.finish()
	}
	if c.w == nil {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return fmt.Errorf("create capture dir: %w", err)
		}
		c.count++
		c.path = filepath.Join(c.dir, fmt.Sprintf("utterance-%04d.wav", c.count))
		w, err := wav.Create(c.path, c.sampleRate)
		if err != nil {
			return err
		}
		c.w = w
	}
	return c.w.WriteSamples(frame)
}

// finish closes the open capture, if any.
func (c *captureStage) finish() error {
	if c.w == nil {
		return nil
	}
	samples := c.w.Samples()
	err := c.w.Close()
	c.w = nil
	c.logger.Info("Saved utterance",
		slog.String("path", c.path),
		slog.Int("samples", samples))
	return err
}

func (c *captureStage) Reset() error { return c.finish() }
func (c *captureStage) Close() error { return c.finish() }
