package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/go-resty/resty/v2"
)

// MediaFetcher downloads a remote file to local disk so it can be re-uploaded
// as a message attachment. cleanup removes the local copy and is always
// non-nil when err is nil.
type MediaFetcher interface {
	Fetch(ctx context.Context, mediaURL string) (localPath string, cleanup func(), err error)
}

const mediaTimeout = 60 * time.Second

// HTTPMediaFetcher fetches media over HTTP(S) into temp files.
type HTTPMediaFetcher struct {
	http *resty.Client
}

// NewHTTPMediaFetcher creates a fetcher with its own HTTP client; media
// downloads get a longer timeout than API calls.
func NewHTTPMediaFetcher() *HTTPMediaFetcher {
	return &HTTPMediaFetcher{
		http: resty.New().
			SetTimeout(mediaTimeout).
			SetDoNotParseResponse(true),
	}
}

// Fetch streams the URL into a temp file.
func (f *HTTPMediaFetcher) Fetch(ctx context.Context, mediaURL string) (string, func(), error) {
	resp, err := f.http.R().SetContext(ctx).Get(mediaURL)
	if err != nil {
		return "", nil, fmt.Errorf("downloading media: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", nil, fmt.Errorf("downloading media: %s returned %d", mediaURL, resp.StatusCode())
	}

	tmp, err := os.CreateTemp("", "allway_attachment_*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("writing media to disk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}

	name := tmp.Name()
	return name, func() { os.Remove(name) }, nil
}

// filenameFromURL derives the upload filename from the media URL's path,
// falling back to a generic name for opaque URLs.
func filenameFromURL(mediaURL, fallback string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return fallback
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return fallback
	}
	return base
}
