package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/m3udash/internal/models"
)

// ShareStore persists and resolves shared playlists.
type ShareStore interface {
	Create(ctx context.Context, content string) (*models.SharedPlaylist, error)
	Resolve(ctx context.Context, name string) ([]byte, error)
}

// ShareHandler serves share link creation and shared playlist downloads.
type ShareHandler struct {
	store         ShareStore
	publicBaseURL string
	logger        *slog.Logger
}

// NewShareHandler creates a new share handler. publicBaseURL prefixes share
// links; when empty the request's own scheme and host are used.
func NewShareHandler(store ShareStore, publicBaseURL string) *ShareHandler {
	return &ShareHandler{
		store:         store,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *ShareHandler) WithLogger(logger *slog.Logger) *ShareHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// RegisterRoutes registers the share routes.
// Routes:
//   - POST /generate-share-link - Store a playlist and return its link
//   - GET /shared/{filename} - Download a stored playlist
func (h *ShareHandler) RegisterRoutes(router chi.Router) {
	router.Post("/generate-share-link", h.generateShareLink)
	router.Get("/shared/*", h.serveShared)
}

func (h *ShareHandler) generateShareLink(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(w, models.MsgNoJSON)
		return
	}

	playlist, err := h.store.Create(r.Context(), req.Content)
	if err != nil {
		if models.KindOf(err) == models.KindInternal {
			err = models.WrapError(models.KindInternal, models.MsgShareFailed, err)
		}
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Envelope{
		Success:       true,
		ShareableLink: h.baseURL(r) + "/shared/" + playlist.Filename(),
		ExpiresIn:     models.MsgShareLinkExpiresIn,
	})
}

func (h *ShareHandler) serveShared(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "*")

	data, err := h.store.Resolve(r.Context(), filename)
	if err != nil {
		switch models.KindOf(err) {
		case models.KindTraversalRejected:
			http.Error(w, models.MsgInvalidFilename, http.StatusBadRequest)
		case models.KindNotFound:
			http.Error(w, models.MsgShareNotFound, http.StatusNotFound)
		default:
			h.logger.Error("failed to serve shared playlist",
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
			http.Error(w, models.MsgServeFailed, http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", models.DownloadNameFor(filename)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// baseURL returns the configured public base URL or the request origin.
func (h *ShareHandler) baseURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return scheme + "://" + r.Host
}
