package pipeline

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/ppiankov/peoplefinder/internal/cache"
	"github.com/ppiankov/peoplefinder/internal/model"
	"github.com/ppiankov/peoplefinder/internal/util"
	"go.uber.org/zap"
)

// ErrBodyTooLarge is returned when a response body exceeds the configured cap
var ErrBodyTooLarge = errors.New("response body too large")

// RateLimiter paces outgoing requests
type RateLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// FetcherOptions configures a Fetcher
type FetcherOptions struct {
	Timeout     time.Duration
	UserAgent   string
	MaxBytes    int64
	HTTPProxy   string
	HTTPSProxy  string
	NoProxy     string
	InsecureTLS bool
	Cache       cache.Cache   // optional, stores 200 responses
	CacheTTL    time.Duration // 0 uses the cache default
	Limiter     RateLimiter   // optional
	Logger      *zap.Logger
}

// Fetcher performs blocking HTTP GETs for units. It is safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    RateLimiter
	logger     *zap.Logger
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 2_000_000
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
	}
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in flag
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
	}
}

// Fetch performs a GET on rawURL with the given headers.
// An error means the server was not reached or the body could not be read;
// non-2xx answers are returned as responses for the caller to judge.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string) (*model.FetchResponse, error) {
	key := cacheKey(rawURL, headers)
	if f.cache != nil {
		if body, found := f.cache.Get(key); found {
			f.logger.Debug("cache hit", zap.String("url", rawURL))
			return &model.FetchResponse{
				URL:         rawURL,
				StatusCode:  http.StatusOK,
				ContentType: "application/json",
				Body:        body,
				FromCache:   true,
			}, nil
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	// A cut-off body is never handed out or cached
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes from %s", ErrBodyTooLarge, f.maxBytes, rawURL)
	}

	result := &model.FetchResponse{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}

	f.logger.Debug("fetched",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)))

	if f.cache != nil && resp.StatusCode == http.StatusOK {
		if err := f.cache.Set(key, body, f.cacheTTL); err != nil {
			f.logger.Warn("cache store failed", zap.String("url", rawURL), zap.Error(err))
		}
	}

	return result, nil
}

// cacheKey scopes cached bodies to the URL and the credentials sent with it
func cacheKey(rawURL string, headers map[string]string) string {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, k := range names {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(headers[k]))
		h.Write([]byte{0})
	}
	return cache.Key(rawURL, hex.EncodeToString(h.Sum(nil)))
}
