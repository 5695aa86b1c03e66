// Package blob provides the scan endpoint's storage collaborators:
// fetching uploaded receipts from allow-listed blob hosts and holding
// temporary page renders on local disk.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// ErrHostNotAllowed means the blob URL's host does not match any
// allow-listed storage host pattern.
var ErrHostNotAllowed = errors.New("blob URL host is not an allowed storage host")

// maxBlobSize caps fetched uploads at 50MB, enough for high-resolution
// phone photos.
const maxBlobSize = 50 << 20

// Fetcher retrieves uploaded receipts by URL.
type Fetcher interface {
	// Fetch downloads the blob and reports its content type.
	Fetch(ctx context.Context, blobURL string) (data []byte, contentType string, err error)
}

// HTTPFetcher implements Fetcher over HTTP(S) with a host allow-list.
// Patterns use path.Match syntax against the hostname, e.g.
// "*.blob.example.com" or "uploads.wayve.app".
type HTTPFetcher struct {
	client       *http.Client
	hostPatterns []string
}

// NewHTTPFetcher creates an HTTPFetcher for the given host patterns.
func NewHTTPFetcher(hostPatterns []string) *HTTPFetcher {
	return &HTTPFetcher{
		client:       &http.Client{Timeout: 30 * time.Second},
		hostPatterns: hostPatterns,
	}
}

// HostAllowed reports whether the hostname matches an allow-listed
// pattern.
func (f *HTTPFetcher) HostAllowed(hostname string) bool {
	hostname = strings.ToLower(hostname)
	for _, pattern := range f.hostPatterns {
		if ok, err := path.Match(strings.ToLower(pattern), hostname); err == nil && ok {
			return true
		}
	}
	return false
}

// Fetch downloads the blob after validating scheme and host.
func (f *HTTPFetcher) Fetch(ctx context.Context, blobURL string) ([]byte, string, error) {
	parsed, err := url.Parse(blobURL)
	if err != nil {
		return nil, "", fmt.Errorf("parsing blob URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported blob URL scheme %q", parsed.Scheme)
	}
	if !f.HostAllowed(parsed.Hostname()) {
		return nil, "", fmt.Errorf("%w: %s", ErrHostNotAllowed, parsed.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, "GET", blobURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating blob request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching blob: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading blob: %w", err)
	}
	if len(data) > maxBlobSize {
		return nil, "", fmt.Errorf("blob exceeds maximum size of %d bytes", maxBlobSize)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
