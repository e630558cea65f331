package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// Downloader performs plain GET requests against the update endpoints.
// It never retries; a failed call is reported and the caller decides.
type Downloader struct {
	HTTPClient *http.Client
	UserAgent  string
}

// NewDownloader creates a Downloader without a client-wide timeout,
// callers bound individual requests through their context
func NewDownloader(userAgent string) *Downloader {
	return &Downloader{
		HTTPClient: &http.Client{},
		UserAgent:  userAgent,
	}
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, updates_api.ConfigError("create request", url, err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, updates_api.NetworkError("connect", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, updates_api.NetworkError("download", url, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	return resp, nil
}

// Fetch reads a small response body into memory, at most limit bytes
func (d *Downloader) Fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, updates_api.NetworkError("read response", url, err)
	}
	return data, nil
}

// Download streams the body of url into destPath and returns the number
// of bytes written. Any file already at destPath is removed first, the
// transfer always starts from zero. On failure destPath does not exist.
func (d *Downloader) Download(ctx context.Context, url, destPath string) (int64, error) {
	if err := os.Remove(destPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, updates_api.IOError("remove previous download", destPath, err)
	}

	resp, err := d.get(ctx, url)
	if err != nil {
		return 0, err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer resp.Body.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, updates_api.IOError("create download file", destPath, err)
	}

	written, err := saveResponse(out, resp.Body, url, destPath)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)
		return 0, err
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(destPath)
		return 0, updates_api.IOError("close download file", destPath, err)
	}
	return written, nil
}

func saveResponse(out *os.File, body io.Reader, url, destPath string) (int64, error) {
	source := &trackingReader{r: body}

	// *os.File implements io.ReaderFrom, so io.Copy lets the runtime pick the fastest path
	written, err := io.Copy(out, source)
	if err != nil {
		if source.err != nil {
			return written, updates_api.NetworkError("read response", url, source.err)
		}
		return written, updates_api.IOError("write download file", destPath, err)
	}

	if err := out.Sync(); err != nil {
		return written, updates_api.IOError("sync download file", destPath, err)
	}
	return written, nil
}

// trackingReader remembers read failures so they can be told apart from write failures
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
