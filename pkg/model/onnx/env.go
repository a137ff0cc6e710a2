// Package onnx loads model.Model implementations backed by ONNX Runtime.
package onnx

import (
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce    sync.Once
	ortInitErr error
)

// EnsureEnvironment initializes the ONNX runtime environment once per process.
// libPath overrides the shared library location; when empty the
// ONNXRUNTIME_LIB environment variable is used, then the Homebrew path on macOS.
// Only the first call's libPath has any effect.
func EnsureEnvironment(libPath string) error {
	ortOnce.Do(func() {
		if libPath == "" {
			libPath = os.Getenv("ONNXRUNTIME_LIB")
		}
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		} else if runtime.GOOS == "darwin" {
			ort.SetSharedLibraryPath("/opt/homebrew/lib/libonnxruntime.dylib")
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}
