// Package httpclient performs outbound GET requests for playlists and panel
// APIs and classifies every outcome into a FetchResult.
//
// The client adds:
//   - A browser-like User-Agent on every request
//   - Transparent decompression (gzip, deflate, brotli)
//   - A response size cap applied after decompression
//   - Per-call timeouts
//
// There is no retry and no caching. Callers receive exactly one classified
// result per call and never see a raw transport error.
package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// ErrResponseTooLarge is reported when a decoded body exceeds MaxResponseSize.
var ErrResponseTooLarge = errors.New("response body exceeds maximum size limit")

// Default configuration values.
const (
	DefaultTimeout              = 60 * time.Second
	DefaultMaxResponseSize      = 0 // 0 means no limit
	DefaultAcceptEncodingHeader = "gzip, deflate, br"
	DefaultUserAgentHeader      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// HTTP header constants.
const (
	HeaderAccept          = "Accept"
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderUserAgent       = "User-Agent"

	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
	EncodingBrotli  = "br"
)

// excerptReadLimit bounds how much of an error body is read. Four bytes per
// character covers any UTF-8 text.
const excerptReadLimit = ExcerptLength * 4

// Config holds the configuration for the HTTP client.
type Config struct {
	// Timeout applies when a call passes a zero timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// Logger is the structured logger for request/response logging.
	Logger *slog.Logger

	// MaxResponseSize is the maximum allowed response body size in bytes.
	// This limit is applied after decompression. Zero disables it.
	MaxResponseSize int64

	// OnResult, when set, is called once per fetch with the classified kind
	// and elapsed time.
	OnResult func(kind ResultKind, elapsed time.Duration)

	// BaseClient is the underlying http.Client to use.
	// If nil, a default client is created.
	BaseClient *http.Client
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgentHeader,
		Logger:          slog.Default(),
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

// Client fetches URLs and classifies the outcome.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new client with the given configuration.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgentHeader
	}

	baseClient := cfg.BaseClient
	if baseClient == nil {
		baseClient = &http.Client{}
	}

	return &Client{
		config: cfg,
		client: baseClient,
		logger: cfg.Logger,
	}
}

// NewWithDefaults creates a new client with default configuration.
func NewWithDefaults() *Client {
	return New(DefaultConfig())
}

// Fetch performs a GET of rawURL with query merged into its existing query
// string. headers are applied after the default User-Agent. A zero timeout
// uses the configured default.
func (c *Client) Fetch(ctx context.Context, rawURL string, query url.Values, headers http.Header, timeout time.Duration) FetchResult {
	start := time.Now()
	result := c.fetch(ctx, rawURL, query, headers, timeout)
	elapsed := time.Since(start)

	if c.config.OnResult != nil {
		c.config.OnResult(result.Kind, elapsed)
	}

	attrs := []any{
		slog.String("url", rawURL),
		slog.String("result", result.Kind.String()),
		slog.Duration("duration", elapsed),
	}
	switch result.Kind {
	case ResultSuccess:
		c.logger.DebugContext(ctx, "request completed", append(attrs,
			slog.Int("status", result.Status),
			slog.Int("bytes", len(result.Body)),
		)...)
	case ResultHTTPError:
		c.logger.WarnContext(ctx, "request returned error status", append(attrs,
			slog.Int("status", result.Status),
			slog.String("body_excerpt", result.BodyExcerpt),
		)...)
	default:
		c.logger.WarnContext(ctx, "request failed", append(attrs,
			slog.String("error", result.Message),
		)...)
	}

	return result
}

func (c *Client) fetch(ctx context.Context, rawURL string, query url.Values, headers http.Header, timeout time.Duration) FetchResult {
	req, err := c.newRequest(ctx, rawURL, query, headers)
	if err != nil {
		return FetchResult{Kind: ResultTransportError, Message: err.Error()}
	}

	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()

	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return httpError(resp.StatusCode, c.errorExcerpt(resp))
	}

	body, err := c.decode(resp)
	if err != nil {
		return FetchResult{Kind: ResultTransportError, Message: err.Error()}
	}
	defer body.Close()

	data, err := readCapped(body, c.config.MaxResponseSize)
	if err != nil {
		return classifyError(err)
	}
	return success(resp.StatusCode, string(data))
}

// newRequest builds the GET request. Caller headers replace the defaults.
func (c *Client) newRequest(ctx context.Context, rawURL string, query url.Values, headers http.Header) (*http.Request, error) {
	target, err := buildURL(rawURL, query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(HeaderUserAgent, c.config.UserAgent)
	req.Header.Set(HeaderAcceptEncoding, DefaultAcceptEncodingHeader)
	for name, values := range headers {
		req.Header[http.CanonicalHeaderKey(name)] = slices.Clone(values)
	}
	return req, nil
}

// buildURL validates rawURL as absolute and merges query into it.
func buildURL(rawURL string, query url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: must be absolute", rawURL)
	}
	if len(query) > 0 {
		q := u.Query()
		maps.Copy(q, query)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// errorExcerpt reads a bounded prefix of a non-2xx body. The status is what
// callers act on, so a body that fails to decode is excerpted raw.
func (c *Client) errorExcerpt(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, excerptReadLimit))

	text := raw
	if body, err := c.decode(&http.Response{Header: resp.Header, Body: io.NopCloser(bytes.NewReader(raw))}); err == nil {
		decoded, readErr := io.ReadAll(io.LimitReader(body, excerptReadLimit))
		_ = body.Close()
		if readErr == nil || len(decoded) > 0 {
			text = decoded
		}
	}
	return Excerpt(string(text), ExcerptLength)
}

// decoders wrap a response body for each supported Content-Encoding.
var decoders = map[string]func(io.Reader) (io.ReadCloser, error){
	EncodingGzip: func(r io.Reader) (io.ReadCloser, error) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		return zr, nil
	},
	EncodingDeflate: func(r io.Reader) (io.ReadCloser, error) {
		return flate.NewReader(r), nil
	},
	EncodingBrotli: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
}

// decode returns the response body with its Content-Encoding removed. An
// unknown encoding passes the body through untouched.
func (c *Client) decode(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get(HeaderContentEncoding)))
	if encoding == "" || encoding == "identity" {
		return io.NopCloser(resp.Body), nil
	}
	open, ok := decoders[encoding]
	if !ok {
		c.logger.Debug("unknown content encoding, passing body through", slog.String("encoding", encoding))
		return io.NopCloser(resp.Body), nil
	}
	return open(resp.Body)
}

// readCapped reads r fully. With a positive limit it fails with
// ErrResponseTooLarge once more than limit bytes arrive.
func readCapped(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}
