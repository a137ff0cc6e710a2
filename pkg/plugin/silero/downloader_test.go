package silero

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscow/speechstack-go/pkg/plugin"
)

func TestDownload(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("onnx-bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "models", ModelFileName)
	d := &Downloader{URL: srv.URL, Path: path}
	require.NoError(t, d.Download())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "onnx-bytes", string(data))

	// present models are not fetched again
	require.NoError(t, d.Download())
	assert.Equal(t, 1, hits)
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	path := filepath.Join(t.TempDir(), ModelFileName)
	err := (&Downloader{URL: srv.URL, Path: path}).Download()
	assert.ErrorContains(t, err, "HTTP 404")
	assert.NoFileExists(t, path)
}

func TestDefaultModelPath(t *testing.T) {
	t.Setenv("SPEECHSTACK_MODEL_PATH", "/opt/models")
	assert.Equal(t, "/opt/models/"+ModelFileName, DefaultModelPath())
}

func TestRegistered(t *testing.T) {
	p, ok := plugin.Lookup(plugin.KindVAD, "silero")
	require.True(t, ok)
	assert.NotNil(t, p.Downloader)
}
