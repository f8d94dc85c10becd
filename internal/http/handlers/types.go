// Package handlers provides the HTTP handlers of the m3udash API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jmylchreest/m3udash/internal/models"
)

// maxRequestBody bounds JSON request bodies. Share requests carry whole
// playlists.
const maxRequestBody = 64 << 20

// errNoJSON is returned when a request body is missing, not a JSON object,
// or an empty object.
var errNoJSON = errors.New("no JSON data")

// Envelope is the flat response body of the playlist and share endpoints.
type Envelope struct {
	Success       bool   `json:"success"`
	M3UContent    string `json:"m3uContent,omitempty"`
	ShareableLink string `json:"shareableLink,omitempty"`
	ExpiresIn     string `json:"expires_in,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RelayRequest is the body of POST /proxy_m3u_url.
type RelayRequest struct {
	URL string `json:"url"`
}

// XtreamRequest is the body of POST /fetch_xtream_playlist.
type XtreamRequest struct {
	PanelURL   string `json:"panelUrl"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	OutputType string `json:"outputType"`
}

// ShareRequest is the body of POST /generate-share-link.
type ShareRequest struct {
	Content string `json:"content"`
}

// decodeJSONBody decodes a non-empty JSON object into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		return errNoJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		return errNoJSON
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errNoJSON
	}
	return nil
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a failure envelope for err, using its classified status
// and message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	e := models.AsError(err)
	if e.Kind == models.KindInternal {
		logger.Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, e.HTTPStatus(), Envelope{Success: false, Error: e.Message})
}

// writeBadRequest writes a 400 failure envelope.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Envelope{Success: false, Error: message})
}
