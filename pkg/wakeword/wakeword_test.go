package wakeword

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/require"

	"github.com/chriscow/speechstack-go/pkg/model"
	"github.com/chriscow/speechstack-go/pkg/model/fake"
	"github.com/chriscow/speechstack-go/pkg/speech"
)

type models struct {
	filter, encode, detect *fake.Model
}

func newModels(posterior float32) models {
	filter := fake.New(model.Descriptor{
		Inputs:  []model.TensorInfo{{Name: "spec", Shape: []int64{1, 257}}},
		Outputs: []model.TensorInfo{{Name: "mel", Shape: []int64{1, 40}}},
	}, nil)
	encode := fake.New(model.Descriptor{
		Inputs: []model.TensorInfo{
			{Name: "mel", Shape: []int64{1, 1, 40}},
			{Name: "state", Shape: []int64{1, 128}},
		},
		Outputs: []model.TensorInfo{
			{Name: "encoded", Shape: []int64{1, 128}},
			{Name: "state_out", Shape: []int64{1, 128}},
		},
	}, func([]model.Tensor) ([]model.Tensor, error) {
		state := model.NewTensor(1, 128)
		for i := range state.Data {
			state.Data[i] = 0.5
		}
		return []model.Tensor{model.NewTensor(1, 128), state}, nil
	})
	detect := fake.Constant(model.Descriptor{
		Inputs:  []model.TensorInfo{{Name: "encoded", Shape: []int64{1, 100, 128}}},
		Outputs: []model.TensorInfo{{Name: "posterior", Shape: []int64{1, 1}}},
	}, posterior)
	return models{filter, encode, detect}
}

func newTrigger(t *testing.T, m models) *Trigger {
	t.Helper()
	trig, err := New(DefaultConfig(), m.filter, m.encode, m.detect)
	require.NoError(t, err)
	return trig
}

func frame(value int16) []int16 {
	f := make([]int16, 320)
	for i := range f {
		f[i] = value
	}
	return f
}

func TestSilenceNeverActivates(t *testing.T) {
	is := is.New(t)
	m := newModels(0.6)
	trig := newTrigger(t, m)
	ctx := speech.NewContext(nil)

	for i := 0; i < 50; i++ {
		is.NoErr(trig.Process(ctx, frame(1000)))
	}
	is.True(!ctx.IsActive())
	is.Equal(m.detect.Calls(), 0)
}

func TestActivatesAboveThreshold(t *testing.T) {
	is := is.New(t)
	m := newModels(0.6)
	trig := newTrigger(t, m)
	ctx := speech.NewContext(nil)

	activations := 0
	ctx.On(speech.EventActivate, func(*speech.Context) { activations++ })

	ctx.SetSpeech(true)
	is.NoErr(trig.Process(ctx, frame(1000)))
	is.True(!ctx.IsActive()) // 320 of 512 samples

	is.NoErr(trig.Process(ctx, frame(1000)))
	is.True(ctx.IsActive())
	is.Equal(activations, 1)
	is.Equal(m.detect.Calls(), 1)
	is.Equal(len(m.detect.LastInputs()[0].Data), 100*128)
	is.True(trig.PosteriorMax() > 0.59)

	// once active the trigger stops sampling
	calls := m.filter.Calls()
	for i := 0; i < 10; i++ {
		is.NoErr(trig.Process(ctx, frame(1000)))
	}
	is.Equal(m.filter.Calls(), calls)
	is.Equal(activations, 1)
}

func TestBelowThresholdStaysIdle(t *testing.T) {
	is := is.New(t)
	m := newModels(0.4)
	trig := newTrigger(t, m)
	ctx := speech.NewContext(nil)

	ctx.SetSpeech(true)
	for i := 0; i < 20; i++ {
		is.NoErr(trig.Process(ctx, frame(1000)))
	}
	is.True(!ctx.IsActive())
	is.True(m.detect.Calls() > 1)
}

func TestResetOnVADFall(t *testing.T) {
	is := is.New(t)
	m := newModels(0.1)
	trig := newTrigger(t, m)
	ctx := speech.NewContext(nil)

	ctx.SetSpeech(true)
	for i := 0; i < 5; i++ {
		is.NoErr(trig.Process(ctx, frame(1000)))
	}
	is.Equal(trig.Frontend().State().Data[0], float32(0.5))

	ctx.SetSpeech(false)
	is.NoErr(trig.Process(ctx, frame(0)))

	front := trig.Frontend()
	is.True(front.Samples().IsEmpty())
	is.True(front.Frames().IsEmpty())
	is.True(front.Encodings().IsEmpty())
	for _, v := range front.State().Data {
		is.Equal(v, float32(0))
	}
	is.Equal(trig.PosteriorMax(), float32(0))
}

func TestCloseResets(t *testing.T) {
	is := is.New(t)
	m := newModels(0.1)
	trig := newTrigger(t, m)
	ctx := speech.NewContext(nil)

	ctx.SetSpeech(true)
	for i := 0; i < 120; i++ {
		is.NoErr(trig.Process(ctx, frame(1000)))
	}
	is.True(trig.PosteriorMax() > 0)

	is.NoErr(trig.Close())
	front := trig.Frontend()
	is.True(front.Samples().IsEmpty())
	is.True(front.Encodings().IsEmpty())
	is.Equal(front.State().Data[0], float32(0))
	is.Equal(trig.PosteriorMax(), float32(0))
	is.True(m.detect.Closed())
}

func TestRejectsWrongFrameLength(t *testing.T) {
	trig := newTrigger(t, newModels(0.6))
	err := trig.Process(speech.NewContext(nil), make([]int16, 100))
	if !errors.Is(err, speech.ErrInvalidFrame) {
		t.Fatalf("Process() error = %v, want ErrInvalidFrame", err)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample rate", func(c *Config) { c.SampleRate = 44100 }},
		{"frame width", func(c *Config) { c.FrameWidth = 30 }},
		{"window type", func(c *Config) { c.FFTWindowType = "hamming" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModels(0.6)
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, m.filter, m.encode, m.detect)
			if !errors.Is(err, speech.ErrInvalidConfig) {
				t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadAndClose(t *testing.T) {
	is := is.New(t)
	m := newModels(0.6)
	dir := "models/wake"
	loader := fake.Loader{
		filepath.Join(dir, FilterFile): m.filter,
		filepath.Join(dir, EncodeFile): m.encode,
		filepath.Join(dir, DetectFile): m.detect,
	}

	cfg := DefaultConfig()
	cfg.ModelDir = dir
	trig, err := Load(cfg, loader, nil)
	is.NoErr(err)
	is.NoErr(trig.Close())
	is.True(m.filter.Closed())
	is.True(m.encode.Closed())
	is.True(m.detect.Closed())
}

func TestLoadClosesOnFailure(t *testing.T) {
	is := is.New(t)
	m := newModels(0.6)
	dir := "models/wake"
	loader := fake.Loader{
		filepath.Join(dir, FilterFile): m.filter,
		filepath.Join(dir, EncodeFile): m.encode,
	}

	cfg := DefaultConfig()
	cfg.ModelDir = dir
	_, err := Load(cfg, loader, nil)
	is.True(err != nil)
	is.True(m.filter.Closed())
	is.True(m.encode.Closed())
}
