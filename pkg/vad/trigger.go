package vad

import "github.com/chriscow/speechstack-go/pkg/speech"

// Trigger activates the pipeline on every rising edge of Context.IsSpeech.
type Trigger struct {
	wasSpeech bool
}

var _ speech.Stage = (*Trigger)(nil)

// NewTrigger returns an idle trigger.
func NewTrigger() *Trigger { return &Trigger{} }

// Name identifies the stage in logs and metrics.
func (t *Trigger) Name() string { return "vad-trigger" }

func (t *Trigger) Process(ctx *speech.Context, _ []int16) error {
	if ctx.IsSpeech() != t.wasSpeech {
		if ctx.IsSpeech() {
			ctx.SetActive(true)
		}
		t.wasSpeech = ctx.IsSpeech()
	}
	return nil
}

func (t *Trigger) Reset() error {
	t.wasSpeech = false
	return nil
}

func (t *Trigger) Close() error { return nil }
