package model

import (
	"context"
	"time"
)

// InferenceRecorder receives the latency of each model call.
type InferenceRecorder interface {
	RecordInference(ctx context.Context, model string, d time.Duration)
}

// Instrument wraps m so every Run reports its latency under name. A nil
// recorder returns m unchanged.
func Instrument(m Model, name string, rec InferenceRecorder) Model {
	if rec == nil {
		return m
	}
	return &instrumented{Model: m, name: name, rec: rec}
}

type instrumented struct {
	Model
	name string
	rec  InferenceRecorder
}

func (m *instrumented) Run(inputs ...Tensor) ([]Tensor, error) {
	start := time.Now()
	out, err := m.Model.Run(inputs...)
	m.rec.RecordInference(context.Background(), m.name, time.Since(start))
	return out, err
}
