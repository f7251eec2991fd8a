package notecompiler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
)

// ImageFetcher downloads and decodes remote images.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}

// Defaults for HTTPFetcher.
const (
	DefaultImageTimeout  = 30 * time.Second
	DefaultMaxImageBytes = 10 << 20
	DefaultCacheTTL      = time.Hour
)

// HTTPFetcher fetches images over HTTP(S) and caches decoded results by URL.
// It never retries.
type HTTPFetcher struct {
	client   *http.Client
	cache    *cache.Cache
	maxBytes int64
	logger   *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the underlying client. Its timeout is left as is.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithCacheTTL sets how long decoded images are kept. Zero disables caching.
func WithCacheTTL(ttl time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if ttl <= 0 {
			f.cache = nil
			return
		}
		f.cache = cache.New(ttl, 2*ttl)
	}
}

// WithMaxBytes caps the accepted response size.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithFetchLogger sets the logger used for fetch diagnostics.
func WithFetchLogger(logger *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration, opts ...FetcherOption) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	f := &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		cache:    cache.New(DefaultCacheTTL, 2*DefaultCacheTTL),
		maxBytes: DefaultMaxImageBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL and decodes it. Every failure, including a decoder
// panic, comes back as an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (img *Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("fetching %s: panic: %v", rawURL, p)
		}
	}()

	if f.cache != nil {
		if cached, ok := f.cache.Get(rawURL); ok {
			f.logger.Debug("image cache hit", "url", rawURL)
			return cached.(*Image), nil
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing image URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported image URL scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}

	img, err = DecodeImage(rawURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		f.cache.Set(rawURL, img, cache.DefaultExpiration)
	}
	f.logger.Debug("image fetched", "url", rawURL, "bytes", len(data))
	return img, nil
}
