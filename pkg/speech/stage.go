package speech

// Stage is one frame transformer in a Pipeline. Implementations include gain
// control, noise suppression, voice activity detection and triggering,
// wakeword and keyword detection, speech recognition, and activation timeout.
type Stage interface {
	// Process handles a single PCM-16 frame. Stages may mutate any field of
	// ctx and may modify frame in place for later stages.
	Process(ctx *Context, frame []int16) error

	// Reset clears per-utterance state without releasing resources.
	Reset() error

	// Close releases the stage's resources.
	Close() error
}

// StageFunc adapts a function to the Stage interface. Reset and Close are no-ops.
type StageFunc func(ctx *Context, frame []int16) error

// Process calls f(ctx, frame).
func (f StageFunc) Process(ctx *Context, frame []int16) error { return f(ctx, frame) }

// Reset does nothing.
func (f StageFunc) Reset() error { return nil }

// Close does nothing.
func (f StageFunc) Close() error { return nil }
