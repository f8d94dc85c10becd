package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	internalhttp "github.com/jmylchreest/m3udash/internal/http"
	"github.com/jmylchreest/m3udash/internal/metrics"
	"github.com/jmylchreest/m3udash/internal/startup"
	"github.com/jmylchreest/m3udash/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the m3udash server",
	Long: `Start the m3udash HTTP server.

The server provides:
- POST /proxy_m3u_url and POST /fetch_xtream_playlist for playlist acquisition
- POST /generate-share-link and GET /shared/{filename} for shared playlists
- Health checks at /health and /livez, metrics at /metrics
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 5000, "Port to listen on")
	serveCmd.Flags().String("data-dir", "./data", "Data directory for shared playlists")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("storage.base_dir", serveCmd.Flags().Lookup("data-dir"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.Default()
	m := metrics.New()

	c := newComponents(cfg, logger, m)
	shares, err := newShareStore(cfg, logger, m)
	if err != nil {
		return err
	}
	defer shares.Close()

	removed, err := startup.CleanupOrphanedTempFiles(logger, shares.Dir(), startup.DefaultCleanupAge)
	if err != nil {
		logger.Warn("failed to clean orphaned temp files",
			slog.String("error", err.Error()),
		)
	} else if removed > 0 {
		logger.Info("cleaned orphaned temp files on startup",
			slog.Int("removed_count", removed),
		)
	}

	server := internalhttp.NewServer(cfg.Server, internalhttp.Dependencies{
		Relay:      c.relay,
		Translator: c.xtream,
		Shares:     shares,
		StorageDir: shares.Dir(),
		Metrics:    m,
	}, logger, version.Version)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting m3udash server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("shared_dir", shares.Dir()),
		slog.String("version", version.Version),
	)

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
