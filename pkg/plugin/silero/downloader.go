package silero

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// Downloader fetches the Silero VAD model when it is missing.
type Downloader struct {
	URL    string
	Path   string
	Client *http.Client
}

// Download implements plugin.Downloader.
func (d *Downloader) Download() error {
	return d.DownloadContext(context.Background())
}

// DownloadContext downloads the model unless it already exists. The file is
// written to a temporary name and renamed once complete.
func (d *Downloader) DownloadContext(ctx context.Context) error {
	url, modelPath, client := d.URL, d.Path, d.Client
	if url == "" {
		url = ModelURL
	}
	if modelPath == "" {
		modelPath = DefaultModelPath()
	}
	if client == nil {
		client = http.DefaultClient
	}

	if _, err := os.Stat(modelPath); err == nil {
		slog.Info("Silero VAD model already exists", slog.String("model_path", modelPath))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(modelPath), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	slog.Info("Downloading Silero VAD model", slog.String("url", url), slog.String("model_path", modelPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download from %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download from %s: HTTP %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(modelPath), ModelFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), modelPath); err != nil {
		return fmt.Errorf("failed to install model: %w", err)
	}

	slog.Info("Silero VAD model downloaded", slog.String("model_path", modelPath), slog.Int64("bytes", n))
	return nil
}
