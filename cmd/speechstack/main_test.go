package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscow/speechstack-go/pkg/audio/wav"
	"github.com/chriscow/speechstack-go/pkg/model"
	"github.com/chriscow/speechstack-go/pkg/speech"
)

const frames = 120

func writeConfig(t *testing.T) string {
	t.Helper()
	script := strings.TrimSuffix(strings.Repeat("true, ", 40), ", ")
	cfg := `
profile: vad-trigger-asr
log:
  level: error
vad:
  provider: fake
  options:
    script: [` + script + `, false]
asr:
  provider: fake
  options:
    transcript: lights on
`
	path := filepath.Join(t.TempDir(), "speechstack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func writeWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.wav")
	w, err := wav.Create(path, 16000)
	require.NoError(t, err)
	require.NoError(t, w.WriteSamples(make([]int16, frames*320)))
	require.NoError(t, w.Close())
	return path
}

func TestRunPipeline(t *testing.T) {
	tests := []struct {
		name  string
		input func(t *testing.T) string
		stdin []byte
	}{
		{"wav", writeWAV, nil},
		{"stdin", func(*testing.T) string { return "-" }, make([]byte, frames*640)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saveDir := filepath.Join(t.TempDir(), "captures")
			opts := runOptions{
				configPath: writeConfig(t),
				input:      tt.input(t),
				saveDir:    saveDir,
			}
			var out bytes.Buffer
			err := runPipeline(context.Background(), opts, bytes.NewReader(tt.stdin), &out)
			require.NoError(t, err)

			got := out.String()
			assert.Contains(t, got, "activate\n")
			assert.Contains(t, got, "deactivate\n")
			assert.Contains(t, got, `recognize "lights on" confidence=0.90`)
			assert.Less(t, strings.Index(got, "deactivate\n"), strings.Index(got, "\nrecognize "))

			r, err := wav.Open(filepath.Join(saveDir, "utterance-0001.wav"))
			require.NoError(t, err)
			defer r.Close()
			samples, err := r.ReadAll()
			require.NoError(t, err)
			assert.NotEmpty(t, samples)
			assert.Zero(t, len(samples)%320)
		})
	}
}

func TestRunPipelineProfileOverride(t *testing.T) {
	opts := runOptions{
		configPath: writeConfig(t),
		profile:    "wakeword",
		input:      "-",
	}
	// wakeword needs a model directory the test config does not set
	err := runPipeline(context.Background(), opts, bytes.NewReader(nil), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model_dir")
}

func TestRunPipelineMissingInput(t *testing.T) {
	opts := runOptions{
		configPath: writeConfig(t),
		input:      filepath.Join(t.TempDir(), "missing.wav"),
	}
	err := runPipeline(context.Background(), opts, nil, &bytes.Buffer{})
	require.Error(t, err)
}

func TestCaptureStage(t *testing.T) {
	dir := t.TempDir()
	c := newCaptureStage(dir, 16000, discardLogger())
	ctx := speech.NewContext(discardLogger())
	frame := make([]int16, 160)

	require.NoError(t, c.Process(ctx, frame))
	ctx.SetActive(true)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Process(ctx, frame))
	}
	ctx.SetActive(false)
	require.NoError(t, c.Process(ctx, frame))

	ctx.SetActive(true)
	require.NoError(t, c.Process(ctx, frame))
	require.NoError(t, c.Close())

	for name, want := range map[string]int{"utterance-0001.wav": 480, "utterance-0002.wav": 160} {
		r, err := wav.Open(filepath.Join(dir, name))
		require.NoError(t, err, name)
		samples, err := r.ReadAll()
		require.NoError(t, err)
		assert.Len(t, samples, want, name)
		r.Close()
	}
}

func TestFormatDescriptor(t *testing.T) {
	got := formatDescriptor(model.Descriptor{
		Inputs:  []model.TensorInfo{{Name: "spec", Shape: []int64{1, 257}}},
		Outputs: []model.TensorInfo{{Name: "mel", Shape: []int64{1, 40}}},
	})
	assert.Equal(t, "  in  spec         [1 257]\n  out mel          [1 40]\n", got)
}
