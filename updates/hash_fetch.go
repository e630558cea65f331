package updates

import (
	"context"
	"fmt"
	"time"

	"github.com/ProReality/ClassiCubeLauncher/config"
	"github.com/ProReality/ClassiCubeLauncher/digest"
	"github.com/ProReality/ClassiCubeLauncher/download"
	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// maxHashBody caps what is read from the hash and signature endpoints
const maxHashBody = 64 * 1024

// HashFetcher retrieves the published checksum of the remote artifact.
// It never retries.
type HashFetcher struct {
	downloader   *download.Downloader
	algorithm    digest.Algorithm
	envelope     string
	signatureURL string
	trustedKeys  []string
	timeout      time.Duration
}

func NewHashFetcher(downloader *download.Downloader, cfg config.Config) *HashFetcher {
	client := cfg.Client()
	return &HashFetcher{
		downloader:   downloader,
		algorithm:    client.Digest(),
		envelope:     client.HashEnvelope(),
		signatureURL: client.HashSignatureURL(),
		trustedKeys:  cfg.TrustedKeys(),
		timeout:      cfg.HTTP().Timeout(),
	}
}

// FetchRemoteDigest returns the first HexLen characters of the body at url.
// Every failure, including a short or non-hex body, is a network error.
func (f *HashFetcher) FetchRemoteDigest(ctx context.Context, url string) (digest.Value, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	body, err := f.downloader.Fetch(ctx, url, maxHashBody)
	if err != nil {
		return "", err
	}

	if f.signatureURL != "" {
		signature, err := f.downloader.Fetch(ctx, f.signatureURL, maxHashBody)
		if err != nil {
			return "", err
		}
		if err := VerifySignature(body, signature, f.trustedKeys); err != nil {
			return "", updates_api.NetworkError("verify hash signature", url, err)
		}
	}

	if f.envelope == config.EnvelopePKCS7 {
		body, err = unwrapPKCS7(body)
		if err != nil {
			return "", updates_api.NetworkError("unwrap hash envelope", url, err)
		}
	}

	return parseDigestPrefix(f.algorithm, body, url)
}

func parseDigestPrefix(alg digest.Algorithm, body []byte, url string) (digest.Value, error) {
	width := alg.HexLen()
	if len(body) < width {
		return "", updates_api.NetworkError("read hash", url,
			fmt.Errorf("response has %d bytes, expected at least %d for %s", len(body), width, alg))
	}

	value, err := digest.Parse(alg, string(body[:width]))
	if err != nil {
		return "", updates_api.NetworkError("read hash", url, err)
	}
	return value, nil
}
