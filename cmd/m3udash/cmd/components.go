package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/m3udash/internal/config"
	"github.com/jmylchreest/m3udash/internal/ingestor"
	"github.com/jmylchreest/m3udash/internal/metrics"
	"github.com/jmylchreest/m3udash/internal/storage"
	"github.com/jmylchreest/m3udash/pkg/httpclient"
)

// components are the acquisition and storage services shared by the
// server and the one-shot commands.
type components struct {
	relay  *ingestor.M3UHandler
	xtream *ingestor.XtreamHandler
}

// newComponents builds the fetcher and handlers from configuration. m may
// be nil for one-shot commands.
func newComponents(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *components {
	fetch := httpclient.New(httpclient.Config{
		Timeout:         cfg.Fetch.DefaultTimeout,
		UserAgent:       cfg.Fetch.UserAgent,
		Logger:          logger.With(slog.String("component", "httpclient")),
		MaxResponseSize: int64(cfg.Fetch.MaxResponseSize),
		OnResult: func(kind httpclient.ResultKind, elapsed time.Duration) {
			m.ObserveFetch(kind.String(), elapsed)
		},
	})

	return &components{
		relay: ingestor.NewM3UHandler(fetch).
			WithLogger(logger).
			WithMetrics(m).
			WithTimeout(cfg.Fetch.RelayTimeout),
		xtream: ingestor.NewXtreamHandler(fetch).
			WithLogger(logger).
			WithMetrics(m).
			WithTimeouts(cfg.Fetch.CategoriesTimeout, cfg.Fetch.StreamsTimeout),
	}
}

// newShareStore opens the shared playlist directory from configuration.
func newShareStore(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*storage.ShareStore, error) {
	store, err := storage.NewShareStore(cfg.Storage.SharedPath())
	if err != nil {
		return nil, fmt.Errorf("initializing share storage: %w", err)
	}
	return store.WithLogger(logger).WithMetrics(m), nil
}
