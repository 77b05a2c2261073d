// Package fetch retrieves untrusted source images into local staging under
// strict size, time and redirect caps. It supports a buffered strategy
// (payload held in memory before writing) and a streamed strategy (payload
// piped to disk through a byte-counting reader that aborts the transfer the
// instant the cap is exceeded). Both strategies satisfy the same contract:
// produce a validated StagedInput or fail with a classified error, leaving
// no partial file behind.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

// StagedInput is a local file holding validated image bytes. It is owned
// exclusively by the request that created it and never outlives it.
type StagedInput struct {
	// Path is the absolute path of the staged file.
	Path string
	// Ext is the normalized extension (".jpg" or ".png").
	Ext string
	// Size is the number of bytes staged.
	Size int64
}

// Fetcher acquires a source image into local staging.
type Fetcher interface {
	// Fetch downloads a remote image and stages it locally.
	Fetch(ctx context.Context, rawURL string) (*StagedInput, error)

	// StageUpload stages an already-received upload. Only the declared
	// filename extension is validated; size limits are the upload layer's
	// responsibility.
	StageUpload(ctx context.Context, filename string, data io.Reader) (*StagedInput, error)
}

// Stager is the staging capability the fetcher needs from storage.
type Stager interface {
	SaveTemp(ctx context.Context, name string, data io.Reader) (string, error)
}

// Strategy selects how remote payload bytes reach local storage.
type Strategy string

const (
	// StrategyStreamed pipes bytes to disk and aborts mid-flight on cap
	// breach. Preferred under memory pressure.
	StrategyStreamed Strategy = "streamed"
	// StrategyBuffered reads the whole payload into memory first.
	StrategyBuffered Strategy = "buffered"
)

// ParseStrategy converts a configuration string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyStreamed:
		return StrategyStreamed, nil
	case StrategyBuffered:
		return StrategyBuffered, nil
	default:
		return "", fmt.Errorf("fetch: unknown strategy %q", s)
	}
}

// contentTypeExt maps allowed response content types to extensions.
var contentTypeExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
}

// pathExt maps allowed source path extensions to normalized extensions.
var pathExt = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
}

// HTTPFetcher is the HTTP implementation of the Fetcher interface.
type HTTPFetcher struct {
	stager       Stager
	httpClient   *http.Client
	maxBytes     int64
	timeout      time.Duration
	maxRedirects int
	strategy     Strategy
}

// Option is a function that configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithMaxBytes sets the hard byte ceiling for downloads.
func WithMaxBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBytes = n
	}
}

// WithTimeout sets the total download timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithMaxRedirects sets the redirect-follow limit.
func WithMaxRedirects(n int) Option {
	return func(f *HTTPFetcher) {
		f.maxRedirects = n
	}
}

// WithStrategy selects the acquisition strategy.
func WithStrategy(s Strategy) Option {
	return func(f *HTTPFetcher) {
		f.strategy = s
	}
}

// WithHTTPClient sets a custom HTTP client. The caller then owns timeout and
// redirect policy.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.httpClient = c
	}
}

// NewHTTPFetcher creates an HTTPFetcher staging into stager.
func NewHTTPFetcher(stager Stager, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		stager:       stager,
		maxBytes:     10 << 20,
		timeout:      30 * time.Second,
		maxRedirects: 3,
		strategy:     StrategyStreamed,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.httpClient == nil {
		maxRedirects := f.maxRedirects
		f.httpClient = &http.Client{
			Timeout: f.timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("%w: limit %d", ErrTooManyRedirects, maxRedirects)
				}
				return nil
			},
		}
	}

	return f
}

// Fetch downloads a remote image and stages it locally, enforcing the
// configured byte cap against both the declared Content-Length and the
// actual bytes received.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*StagedInput, error) {
	if rawURL == "" {
		return nil, ErrSourceURLRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		// url.Error wraps the CheckRedirect error, so ErrTooManyRedirects
		// remains matchable through this wrap.
		return nil, fmt.Errorf("%w: %w", ErrTransfer, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	// Validate the media type before any bytes land on disk. The final URL
	// after redirects supplies the extension fallback.
	ext, err := resolveExtension(resp.Header.Get("Content-Type"), resp.Request.URL.Path)
	if err != nil {
		return nil, err
	}

	// Fail fast on a declared size over the cap.
	if resp.ContentLength > f.maxBytes {
		return nil, &TooLargeError{Size: resp.ContentLength, Limit: f.maxBytes}
	}

	switch f.strategy {
	case StrategyBuffered:
		return f.fetchBuffered(ctx, resp.Body, ext)
	default:
		return f.fetchStreamed(ctx, resp.Body, ext)
	}
}

// fetchBuffered reads the entire payload into memory before staging it.
func (f *HTTPFetcher) fetchBuffered(ctx context.Context, body io.Reader, ext string) (*StagedInput, error) {
	buf, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read payload: %w", ErrTransfer, err)
	}
	if int64(len(buf)) > f.maxBytes {
		// The declared length was absent or misreported; all we know is the
		// payload crossed the cap.
		return nil, &TooLargeError{Size: int64(len(buf)), Limit: f.maxBytes}
	}

	path, err := f.stager.SaveTemp(ctx, "input_*"+ext, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("fetch: stage payload: %w", err)
	}

	return &StagedInput{Path: path, Ext: ext, Size: int64(len(buf))}, nil
}

// fetchStreamed pipes the payload to disk through a byte-counting reader.
// Crossing the cap surfaces a TooLargeError from the reader, which aborts
// the copy; the stager removes the partial file and the deferred body close
// tears down the transfer.
func (f *HTTPFetcher) fetchStreamed(ctx context.Context, body io.Reader, ext string) (*StagedInput, error) {
	cr := &capReader{r: body, limit: f.maxBytes}

	path, err := f.stager.SaveTemp(ctx, "input_*"+ext, cr)
	if err != nil {
		if IsTooLarge(err) {
			return nil, &TooLargeError{Size: cr.n, Limit: f.maxBytes}
		}
		return nil, fmt.Errorf("fetch: stage payload: %w", err)
	}

	return &StagedInput{Path: path, Ext: ext, Size: cr.n}, nil
}

// StageUpload stages an already-received upload after validating its
// declared filename extension against the image allow-list.
func (f *HTTPFetcher) StageUpload(ctx context.Context, filename string, data io.Reader) (*StagedInput, error) {
	ext, ok := pathExt[strings.ToLower(path.Ext(filename))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDisallowedType, filename)
	}

	cr := &capReader{r: data, limit: maxInt64}
	p, err := f.stager.SaveTemp(ctx, "upload_*"+ext, cr)
	if err != nil {
		return nil, fmt.Errorf("fetch: stage upload: %w", err)
	}

	return &StagedInput{Path: p, Ext: ext, Size: cr.n}, nil
}

// resolveExtension applies the validation policy: a recognized allowed
// content type wins; a recognized disallowed content type rejects regardless
// of extension; an absent or unrecognizable content type falls back to the
// source path extension; no match on either rejects.
func resolveExtension(contentType, urlPath string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if contentType != "" && err == nil && mediaType != "application/octet-stream" {
		if ext, ok := contentTypeExt[mediaType]; ok {
			return ext, nil
		}
		return "", fmt.Errorf("%w: content type %q", ErrDisallowedType, mediaType)
	}

	if ext, ok := pathExt[strings.ToLower(path.Ext(urlPath))]; ok {
		return ext, nil
	}
	return "", fmt.Errorf("%w: no recognizable content type or extension", ErrDisallowedType)
}

const maxInt64 = int64(^uint64(0) >> 1)

// capReader counts bytes read and fails the read that crosses the limit.
type capReader struct {
	r     io.Reader
	limit int64
	n     int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > c.limit {
		return n, &TooLargeError{Size: c.n, Limit: c.limit}
	}
	return n, err
}
