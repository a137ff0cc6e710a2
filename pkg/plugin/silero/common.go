// Package silero registers a voice activity classifier backed by the Silero
// VAD ONNX model. The classifier itself is only built with -tags=silero.
package silero

import (
	"os"
	"path/filepath"
)

const (
	// ModelFileName is the expected ONNX model file name
	ModelFileName = "silero_vad.onnx"
	// ModelURL is where Download fetches the model from.
	ModelURL = "https://github.com/snakers4/silero-vad/raw/master/src/silero_vad/data/silero_vad.onnx"
	// DefaultThreshold is the default speech probability threshold
	DefaultThreshold = 0.5
)

// DefaultModelPath returns the model location under SPEECHSTACK_MODEL_PATH,
// or ~/.speechstack/models when unset.
func DefaultModelPath() string {
	modelPath := os.Getenv("SPEECHSTACK_MODEL_PATH")
	if modelPath == "" {
		homeDir, _ := os.UserHomeDir()
		modelPath = filepath.Join(homeDir, ".speechstack", "models")
	}
	return filepath.Join(modelPath, ModelFileName)
}
