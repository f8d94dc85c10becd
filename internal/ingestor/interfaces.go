// Package ingestor acquires playlists from upstream sources: remote M3U
// files that are relayed as-is and Xtream Codes panels that are translated
// into M3U.
package ingestor

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jmylchreest/m3udash/internal/metrics"
	"github.com/jmylchreest/m3udash/pkg/httpclient"
)

// Fetcher retrieves upstream content and classifies the outcome.
// *httpclient.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, query url.Values, headers http.Header, timeout time.Duration) httpclient.FetchResult
}

// URL scheme prefixes.
const (
	httpPrefix  = "http://"
	httpsPrefix = "https://"
)

// handlerBase carries what every handler shares.
type handlerBase struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func (b *handlerBase) log() *slog.Logger {
	if b.logger == nil {
		return slog.Default()
	}
	return b.logger
}
