package ingestor

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmylchreest/m3udash/internal/metrics"
	"github.com/jmylchreest/m3udash/internal/models"
	"github.com/jmylchreest/m3udash/pkg/httpclient"
	"github.com/jmylchreest/m3udash/pkg/m3u"
)

// M3U handler configuration defaults.
const (
	defaultRelayTimeout = 60 * time.Second
)

// M3UHandler relays remote M3U playlists.
type M3UHandler struct {
	handlerBase
	timeout time.Duration
}

// NewM3UHandler creates a new M3U handler with default settings.
func NewM3UHandler(fetcher Fetcher) *M3UHandler {
	return &M3UHandler{
		handlerBase: handlerBase{fetcher: fetcher},
		timeout:     defaultRelayTimeout,
	}
}

// WithLogger sets a structured logger for the handler.
func (h *M3UHandler) WithLogger(logger *slog.Logger) *M3UHandler {
	h.logger = logger
	return h
}

// WithMetrics sets the metrics recorder.
func (h *M3UHandler) WithMetrics(m *metrics.Metrics) *M3UHandler {
	h.metrics = m
	return h
}

// WithTimeout sets the fetch timeout. Non-positive values are ignored.
func (h *M3UHandler) WithTimeout(timeout time.Duration) *M3UHandler {
	if timeout > 0 {
		h.timeout = timeout
	}
	return h
}

// Validate checks that targetURL can be relayed without touching the network.
func (h *M3UHandler) Validate(targetURL string) error {
	if targetURL == "" {
		return models.NewError(models.KindMissingField, models.MsgNoURL)
	}
	if !strings.HasPrefix(targetURL, httpPrefix) && !strings.HasPrefix(targetURL, httpsPrefix) {
		return models.NewError(models.KindInvalidScheme, models.MsgInvalidScheme)
	}
	return nil
}

// Relay fetches targetURL and returns its body unmodified. Errors are
// *models.Error. A body that does not look like a playlist is logged but
// still returned.
func (h *M3UHandler) Relay(ctx context.Context, targetURL string) (content string, err error) {
	logger := h.log().With(slog.String("url", targetURL))
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = string(models.KindOf(err))
		}
		h.metrics.ObserveRelay(outcome)
	}()

	if err := h.Validate(targetURL); err != nil {
		logger.Warn("relay rejected", slog.String("error", err.Error()))
		return "", err
	}

	logger.Info("relaying playlist")
	result := h.fetcher.Fetch(ctx, targetURL, nil, nil, h.timeout)
	if !result.OK() {
		err := relayError(result)
		logger.Error("relay failed",
			slog.String("kind", result.Kind.String()),
			slog.Int("status", result.Status),
			slog.String("message", result.Message),
			slog.String("response", result.BodyExcerpt),
		)
		return "", err
	}

	if !LooksLikePlaylist(result.Body) {
		logger.Warn("content did not look like an M3U playlist",
			slog.String("excerpt", httpclient.Excerpt(result.Body, httpclient.ExcerptLength)),
		)
	}

	return result.Body, nil
}

// LooksLikePlaylist reports whether the trimmed content starts with the
// #EXTM3U header, ignoring case.
func LooksLikePlaylist(content string) bool {
	trimmed := strings.TrimSpace(content)
	return len(trimmed) >= len(m3u.Header) && strings.EqualFold(trimmed[:len(m3u.Header)], m3u.Header)
}

// relayError maps a failed fetch to a classified error.
func relayError(result httpclient.FetchResult) *models.Error {
	switch result.Kind {
	case httpclient.ResultTimeout:
		return models.NewError(models.KindUpstreamTimeout, models.MsgUpstreamTimeout)
	case httpclient.ResultHTTPError:
		if result.Status == http.StatusForbidden {
			e := models.NewError(models.KindUpstreamForbidden, models.MsgUpstreamForbidden)
			e.Status = result.Status
			return e
		}
		e := models.NewError(models.KindUpstreamHTTPError, models.UpstreamHTTPErrorMessage(result.Status))
		e.Status = result.Status
		return e
	default:
		return models.NewError(models.KindUpstreamUnreachable, models.UpstreamUnreachableMessage(result.Message))
	}
}
