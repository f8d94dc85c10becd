package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/m3udash/internal/metrics"
	"github.com/jmylchreest/m3udash/internal/models"
)

// Share resolution outcomes that are not error kinds.
const outcomeFound = "found"

// ShareStore persists playlists under unguessable identifiers. Each playlist
// is written once to its own file and never modified or expired.
type ShareStore struct {
	sandbox *Sandbox
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewShareStore creates the storage root if needed and returns a store
// writing into it.
func NewShareStore(dir string) (*ShareStore, error) {
	sb, err := NewSandbox(dir)
	if err != nil {
		return nil, err
	}
	return &ShareStore{sandbox: sb, logger: slog.Default()}, nil
}

// WithLogger sets a structured logger for the store.
func (s *ShareStore) WithLogger(logger *slog.Logger) *ShareStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMetrics sets the metrics recorder.
func (s *ShareStore) WithMetrics(m *metrics.Metrics) *ShareStore {
	s.metrics = m
	return s
}

// Close releases the storage directory handle.
func (s *ShareStore) Close() error {
	return s.sandbox.Close()
}

// Dir returns the absolute storage root.
func (s *ShareStore) Dir() string {
	return s.sandbox.BaseDir()
}

// Create stores content under a fresh identifier. Empty content fails with
// KindNoContent before an identifier is allocated.
func (s *ShareStore) Create(ctx context.Context, content string) (*models.SharedPlaylist, error) {
	if content == "" {
		return nil, models.NewError(models.KindNoContent, models.MsgNoContent)
	}
	if err := ctx.Err(); err != nil {
		return nil, models.WrapError(models.KindInternal, models.MsgShareFailed, err)
	}

	id := models.NewShareID()
	playlist := &models.SharedPlaylist{
		ID:        id,
		CreatedAt: id.Time(),
		Size:      len(content),
	}

	if err := s.sandbox.AtomicWrite(playlist.Filename(), []byte(content)); err != nil {
		s.logger.ErrorContext(ctx, "failed to store shared playlist",
			slog.String("id", id.String()),
			slog.String("error", err.Error()),
		)
		return nil, models.WrapError(models.KindInternal, models.MsgShareFailed, err)
	}

	s.metrics.ObserveShareCreated()
	s.logger.InfoContext(ctx, "stored shared playlist",
		slog.String("id", id.String()),
		slog.Int("size", playlist.Size),
	)
	return playlist, nil
}

// Resolve returns the content stored under name, which is an identifier
// with or without the .m3u extension. Names that could address anything
// outside the storage root fail with KindTraversalRejected before the
// filesystem is touched. Unknown or malformed identifiers fail with
// KindNotFound.
func (s *ShareStore) Resolve(ctx context.Context, name string) (content []byte, err error) {
	defer func() {
		outcome := outcomeFound
		if err != nil {
			outcome = string(models.KindOf(err))
		}
		s.metrics.ObserveShareResolution(outcome)
	}()

	logger := s.logger.With(slog.String("name", name))

	if IsTraversal(name) {
		logger.WarnContext(ctx, "rejected shared playlist name")
		return nil, models.NewError(models.KindTraversalRejected, models.MsgInvalidFilename)
	}

	id, err := models.ParseShareID(strings.TrimSuffix(name, models.SharedPlaylistExt))
	if err != nil {
		logger.InfoContext(ctx, "shared playlist name is not an identifier")
		return nil, models.WrapError(models.KindNotFound, models.MsgShareNotFound, err)
	}

	playlist := models.SharedPlaylist{ID: id}
	data, err := s.sandbox.ReadFile(playlist.Filename())
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.InfoContext(ctx, "shared playlist not found")
		return nil, models.WrapError(models.KindNotFound, models.MsgShareNotFound, err)
	case err != nil:
		logger.ErrorContext(ctx, "failed to read shared playlist", slog.String("error", err.Error()))
		return nil, models.WrapError(models.KindInternal, models.MsgInternal, err)
	}

	return data, nil
}

// IsTraversal reports whether name contains a parent reference, a path
// separator, or an absolute or volume marker.
func IsTraversal(name string) bool {
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return true
	}
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return true
	}
	return len(name) >= 2 && name[1] == ':'
}
