// Package speech provides the shared state, stage contract, and frame-driven
// pipeline that connect the speech processing stages.
//
// A Pipeline reads one PCM-16 frame per tick from its InputSource and hands it,
// together with a single shared *Context, to every Stage in registration order.
// Everything runs on the calling goroutine; stages never see overlapping frames.
package speech

import "log/slog"

// EventKind identifies a pipeline event.
type EventKind int

const (
	// EventActivate fires when IsActive goes from false to true.
	EventActivate EventKind = iota
	// EventDeactivate fires when IsActive goes from true to false.
	EventDeactivate
	// EventTimeout fires when an activation or recognition times out.
	EventTimeout
	// EventRecognize fires when a final transcript is available.
	EventRecognize
	// EventPartialRecognize fires when an interim transcript is available.
	EventPartialRecognize
	// EventStep fires at the start of every pipeline tick.
	EventStep
	// EventError fires when a stage fails to process a frame.
	EventError
)

var eventNames = map[EventKind]string{
	EventActivate:         "activate",
	EventDeactivate:       "deactivate",
	EventTimeout:          "timeout",
	EventRecognize:        "recognize",
	EventPartialRecognize: "partial_recognize",
	EventStep:             "step",
	EventError:            "error",
}

// String returns the event's wire name.
func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEventKind maps a wire name back to its EventKind.
func ParseEventKind(name string) (EventKind, bool) {
	for k, n := range eventNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Handler receives the context that raised an event.
type Handler func(ctx *Context)

// Context is the mutable state shared by every stage of a pipeline.
//
// Activation changes made through SetActive fire EventActivate or
// EventDeactivate synchronously, once per edge. Context is not safe for
// concurrent use; it belongs to the goroutine driving the pipeline.
type Context struct {
	isSpeech   bool
	isActive   bool
	transcript string
	confidence float64
	err        error

	handlers map[EventKind][]Handler
	logger   *slog.Logger
}

// NewContext creates an idle context. A nil logger uses slog.Default().
func NewContext(logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		handlers: make(map[EventKind][]Handler),
		logger:   logger,
	}
}

// IsSpeech reports the debounced voice-activity flag.
func (c *Context) IsSpeech() bool { return c.isSpeech }

// SetSpeech sets the voice-activity flag.
func (c *Context) SetSpeech(v bool) { c.isSpeech = v }

// IsActive reports whether the pipeline is activated.
func (c *Context) IsActive() bool { return c.isActive }

// SetActive sets the activation flag, firing EventActivate or EventDeactivate
// when the value changes. Setting the current value is a no-op.
func (c *Context) SetActive(v bool) {
	if c.isActive == v {
		return
	}
	c.isActive = v
	if v {
		c.logger.Debug("pipeline activated")
		c.Event(EventActivate)
	} else {
		c.logger.Debug("pipeline deactivated")
		c.Event(EventDeactivate)
	}
}

// Transcript returns the most recent recognition result.
func (c *Context) Transcript() string { return c.transcript }

// SetTranscript sets the recognition result.
func (c *Context) SetTranscript(s string) { c.transcript = s }

// Confidence returns the confidence of the current transcript.
func (c *Context) Confidence() float64 { return c.confidence }

// SetConfidence sets the confidence of the current transcript.
func (c *Context) SetConfidence(v float64) { c.confidence = v }

// Err returns the error attached by the last EventError, if any.
func (c *Context) Err() error { return c.err }

// SetErr attaches err to the context before an EventError is fired.
func (c *Context) SetErr(err error) { c.err = err }

// Logger returns the logger stages should use.
func (c *Context) Logger() *slog.Logger { return c.logger }

// On registers h for events of kind k. Handlers run in registration order.
func (c *Context) On(k EventKind, h Handler) {
	c.handlers[k] = append(c.handlers[k], h)
}

// Event dispatches k to every registered handler.
func (c *Context) Event(k EventKind) {
	for _, h := range c.handlers[k] {
		h(c)
	}
}

// Reset returns the context to its idle state. An active context is
// deactivated through SetActive so the deactivate handlers still fire.
func (c *Context) Reset() {
	c.SetActive(false)
	c.isSpeech = false
	c.transcript = ""
	c.confidence = 0
	c.err = nil
}
