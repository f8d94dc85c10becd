package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/m3udash/internal/ingestor"
	"github.com/jmylchreest/m3udash/internal/models"
	"github.com/jmylchreest/m3udash/internal/observability"
	"github.com/jmylchreest/m3udash/pkg/m3u"
)

// Relayer fetches a remote M3U playlist.
type Relayer interface {
	Relay(ctx context.Context, targetURL string) (string, error)
}

// Translator builds a playlist from an Xtream panel.
type Translator interface {
	Translate(ctx context.Context, req ingestor.TranslateRequest) (*m3u.Document, error)
}

// PlaylistHandler serves the playlist acquisition endpoints.
type PlaylistHandler struct {
	relay      Relayer
	translator Translator
	logger     *slog.Logger
}

// NewPlaylistHandler creates a new playlist handler.
func NewPlaylistHandler(relay Relayer, translator Translator) *PlaylistHandler {
	return &PlaylistHandler{
		relay:      relay,
		translator: translator,
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *PlaylistHandler) WithLogger(logger *slog.Logger) *PlaylistHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// RegisterRoutes registers the playlist routes.
// Routes:
//   - POST /proxy_m3u_url - Relay a remote M3U playlist
//   - POST /fetch_xtream_playlist - Translate an Xtream panel into M3U
func (h *PlaylistHandler) RegisterRoutes(router chi.Router) {
	router.Post("/proxy_m3u_url", h.proxyM3U)
	router.Post("/fetch_xtream_playlist", h.fetchXtream)
}

func (h *PlaylistHandler) requestLogger(r *http.Request) *slog.Logger {
	return observability.WithComponent(
		observability.WithRequestID(h.logger, observability.RequestIDFromContext(r.Context())),
		"playlist",
	)
}

func (h *PlaylistHandler) proxyM3U(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	var req RelayRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		logger.Warn("proxy request failed: no JSON data")
		writeBadRequest(w, models.MsgNoJSON)
		return
	}

	content, err := h.relay.Relay(r.Context(), req.URL)
	if err != nil {
		if models.KindOf(err) == models.KindInternal {
			err = models.WrapError(models.KindInternal, models.MsgRelayFailed, err)
		}
		writeError(w, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Envelope{Success: true, M3UContent: content})
}

func (h *PlaylistHandler) fetchXtream(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	var req XtreamRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		logger.Warn("xtream request failed: no JSON data")
		writeBadRequest(w, models.MsgNoJSON)
		return
	}

	doc, err := h.translator.Translate(r.Context(), ingestor.TranslateRequest{
		PanelURL:   req.PanelURL,
		Username:   req.Username,
		Password:   req.Password,
		OutputType: req.OutputType,
	})
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Envelope{Success: true, M3UContent: doc.String()})
}
