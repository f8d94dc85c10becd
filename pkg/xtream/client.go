package xtream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/m3udash/pkg/httpclient"
)

// Default configuration values.
const (
	DefaultCategoriesTimeout = 30 * time.Second
	DefaultStreamsTimeout    = 60 * time.Second

	// API endpoint paths.
	pathPlayerAPI = "/player_api.php"
	pathLive      = "/live"

	// API actions.
	actionGetLiveCategories = "get_live_categories"
	actionGetLiveStreams    = "get_live_streams"

	// Query parameter names.
	paramUsername = "username"
	paramPassword = "password"
	paramAction   = "action"

	// DefaultExtension is the live stream container used when none is given.
	DefaultExtension = "ts"
)

// Fetcher performs classified GET requests.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, query url.Values, headers http.Header, timeout time.Duration) httpclient.FetchResult
}

// FetchError reports a panel request that did not succeed.
type FetchError struct {
	Action string
	Result httpclient.FetchResult
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Result.Kind {
	case httpclient.ResultHTTPError:
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Action, e.Result.Status, e.Result.BodyExcerpt)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Action, e.Result.Kind, e.Result.Message)
	}
}

// Client is an Xtream Codes API client for live stream listings.
type Client struct {
	// BaseURL is the normalized panel base URL (e.g., "http://example.com:8080").
	BaseURL string

	// Username is the API username.
	Username string

	// Password is the API password.
	Password string

	fetcher           Fetcher
	categoriesTimeout time.Duration
	streamsTimeout    time.Duration
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Xtream Codes API client. panelURL is normalized
// with NormalizeBaseURL.
func NewClient(fetcher Fetcher, panelURL, username, password string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:           NormalizeBaseURL(panelURL),
		Username:          username,
		Password:          password,
		fetcher:           fetcher,
		categoriesTimeout: DefaultCategoriesTimeout,
		streamsTimeout:    DefaultStreamsTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithCategoriesTimeout sets the timeout of the categories call.
func WithCategoriesTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.categoriesTimeout = timeout
		}
	}
}

// WithStreamsTimeout sets the timeout of the streams call.
func WithStreamsTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.streamsTimeout = timeout
		}
	}
}

// NormalizeBaseURL prefixes http:// when the URL has no http(s) scheme and
// strips trailing slashes.
func NormalizeBaseURL(panelURL string) string {
	base := strings.TrimRight(panelURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base
}

// APIEndpoint returns the player_api.php URL.
func (c *Client) APIEndpoint() string {
	return c.BaseURL + pathPlayerAPI
}

// fetchAction calls player_api.php with the credentials and action.
func (c *Client) fetchAction(ctx context.Context, action string, timeout time.Duration) ([]byte, error) {
	query := url.Values{
		paramUsername: {c.Username},
		paramPassword: {c.Password},
		paramAction:   {action},
	}
	headers := http.Header{}
	headers.Set(httpclient.HeaderAccept, "application/json")

	result := c.fetcher.Fetch(ctx, c.APIEndpoint(), query, headers, timeout)
	if !result.OK() {
		return nil, &FetchError{Action: action, Result: result}
	}
	return []byte(result.Body), nil
}

// GetLiveCategories retrieves the live categories as an id to name map.
// Errors are *FetchError for request failures, or wrap ErrInvalidJSON,
// ErrNullResponse or ErrUnexpectedShape. The map is never nil.
func (c *Client) GetLiveCategories(ctx context.Context) (CategoryMap, error) {
	body, err := c.fetchAction(ctx, actionGetLiveCategories, c.categoriesTimeout)
	if err != nil {
		return CategoryMap{}, err
	}
	return DecodeCategories(body)
}

// GetLiveStreams retrieves all live streams in panel order, along with
// excerpts of list entries that were not objects.
func (c *Client) GetLiveStreams(ctx context.Context) ([]Stream, []string, error) {
	body, err := c.fetchAction(ctx, actionGetLiveStreams, c.streamsTimeout)
	if err != nil {
		return nil, nil, err
	}
	return DecodeStreams(body)
}

// LiveStreamURL returns the playback URL of a live stream. Credentials are
// embedded verbatim in the path.
func (c *Client) LiveStreamURL(streamID, extension string) string {
	if extension == "" {
		extension = DefaultExtension
	}
	return fmt.Sprintf("%s%s/%s/%s/%s.%s",
		c.BaseURL, pathLive, c.Username, c.Password, streamID, extension)
}
