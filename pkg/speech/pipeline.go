package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// InputSource produces fixed-size PCM-16 frames for a Pipeline.
type InputSource interface {
	// Start begins audio capture.
	Start() error
	// Stop halts audio capture; Start may be called again later.
	Stop() error
	// Read returns the next frame. io.EOF ends the stream.
	Read() ([]int16, error)
	// Close releases the source.
	Close() error
}

// FrameObserver is notified about every processed frame and every stage
// failure. internal/observe.Metrics satisfies it.
type FrameObserver interface {
	RecordFrame(ctx context.Context)
	RecordStageError(ctx context.Context, stage string)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger, which is shared with the Context.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithObserver attaches frame and error accounting.
func WithObserver(o FrameObserver) Option {
	return func(p *Pipeline) { p.observer = o }
}

// Pipeline pulls frames from an InputSource and drives them through an
// ordered list of stages sharing one Context.
type Pipeline struct {
	input    InputSource
	stages   []Stage
	ctx      *Context
	logger   *slog.Logger
	observer FrameObserver

	running bool
	paused  bool
	closed  bool
}

// NewPipeline creates a pipeline. Stages receive each frame in the order given.
func NewPipeline(input InputSource, stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		input:  input,
		stages: stages,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx = NewContext(p.logger)
	return p
}

// Context returns the shared speech context.
func (p *Pipeline) Context() *Context { return p.ctx }

// On registers a handler on the shared context.
func (p *Pipeline) On(k EventKind, h Handler) *Pipeline {
	p.ctx.On(k, h)
	return p
}

// Activate sets the context active, bypassing any trigger stage.
func (p *Pipeline) Activate() { p.ctx.SetActive(true) }

// Deactivate clears the active flag.
func (p *Pipeline) Deactivate() { p.ctx.SetActive(false) }

// Start begins capture on the input source.
func (p *Pipeline) Start() error {
	if p.closed {
		return errors.New("pipeline closed")
	}
	if p.running {
		return nil
	}
	if err := p.input.Start(); err != nil {
		return fmt.Errorf("start input: %w", err)
	}
	p.running = true
	p.paused = false
	p.logger.Info("pipeline started", slog.Int("stages", len(p.stages)))
	return nil
}

// Stop halts capture, resets every stage, and resets the context.
func (p *Pipeline) Stop() error {
	if !p.running {
		return nil
	}
	p.running = false
	var errs []error
	if err := p.input.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop input: %w", err))
	}
	for i, s := range p.stages {
		if err := s.Reset(); err != nil {
			errs = append(errs, fmt.Errorf("reset stage %d: %w", i, err))
		}
	}
	p.ctx.Reset()
	p.logger.Info("pipeline stopped")
	return errors.Join(errs...)
}

// Pause stops capture while keeping stage state intact.
func (p *Pipeline) Pause() error {
	if !p.running || p.paused {
		return nil
	}
	if err := p.input.Stop(); err != nil {
		return fmt.Errorf("pause input: %w", err)
	}
	p.paused = true
	return nil
}

// Resume restarts capture after Pause.
func (p *Pipeline) Resume() error {
	if !p.running || !p.paused {
		return nil
	}
	if err := p.input.Start(); err != nil {
		return fmt.Errorf("resume input: %w", err)
	}
	p.paused = false
	return nil
}

// Step reads one frame and dispatches it to every stage. EventStep fires
// before the stages run. A stage failure fires EventError and aborts the
// remaining stages for this frame; the error is returned as a *StageError.
// io.EOF from the input is returned unwrapped. While paused, Step fires
// EventStep and returns without reading a frame.
func (p *Pipeline) Step() error {
	if p.paused {
		p.ctx.Event(EventStep)
		return nil
	}
	frame, err := p.input.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("read input: %w", err)
	}
	return p.Dispatch(frame)
}

// Dispatch runs frame through the stages without reading from the input.
func (p *Pipeline) Dispatch(frame []int16) error {
	p.ctx.Event(EventStep)
	if p.observer != nil {
		p.observer.RecordFrame(context.Background())
	}
	for i, s := range p.stages {
		if err := s.Process(p.ctx, frame); err != nil {
			name := stageName(s)
			p.logger.Error("stage failed",
				slog.Int("stage", i),
				slog.String("name", name),
				slog.String("error", err.Error()))
			if p.observer != nil {
				p.observer.RecordStageError(context.Background(), name)
			}
			p.ctx.SetErr(err)
			p.ctx.Event(EventError)
			return &StageError{Index: i, Name: name, Err: err}
		}
	}
	return nil
}

// Run starts the pipeline and steps until the input is exhausted or ctx is
// cancelled. Stage errors are reported through EventError and do not stop
// the loop. Run stops the pipeline before it returns.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}
	defer func() {
		if err := p.Stop(); err != nil {
			p.logger.Warn("pipeline stop failed", slog.String("error", err.Error()))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		err := p.Step()
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		var se *StageError
		if !errors.As(err, &se) {
			return err
		}
	}
}

// Close stops the pipeline and closes the input and every stage.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	errs := []error{p.Stop()}
	p.closed = true
	if err := p.input.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close input: %w", err))
	}
	for i, s := range p.stages {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stage %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// StageError reports which stage failed to process a frame.
type StageError struct {
	Index int
	Name  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageName(s Stage) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
