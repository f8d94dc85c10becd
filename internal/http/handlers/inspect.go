package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/m3udash/pkg/m3u"
)

// InspectHandler summarizes playlists by group.
type InspectHandler struct{}

// NewInspectHandler creates a new inspect handler.
func NewInspectHandler() *InspectHandler {
	return &InspectHandler{}
}

// InspectInput is the input for the inspect endpoint.
type InspectInput struct {
	Body struct {
		Content string `json:"content" doc:"M3U playlist text" minLength:"1"`
	}
}

// InspectOutput is the output for the inspect endpoint.
type InspectOutput struct {
	Body *m3u.Summary
}

// Register registers the inspect route with the API.
func (h *InspectHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "inspectPlaylist",
		Method:      http.MethodPost,
		Path:        "/api/v1/playlists/inspect",
		Summary:     "Inspect playlist",
		Description: "Parses an M3U playlist and returns its channels grouped by group-title",
		Tags:        []string{"Playlists"},
	}, h.Inspect)
}

// Inspect parses the submitted playlist into a grouped summary.
func (h *InspectHandler) Inspect(ctx context.Context, input *InspectInput) (*InspectOutput, error) {
	summary, err := m3u.SummarizeString(input.Body.Content)
	if err != nil {
		return nil, huma.Error400BadRequest("failed to parse playlist", err)
	}
	return &InspectOutput{Body: summary}, nil
}
