package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmylchreest/m3udash/internal/config"
)

// emitPlaylist writes content to w byte for byte, or stores it and writes
// the shared filename on its own line when share is set.
func emitPlaylist(ctx context.Context, w io.Writer, cfg *config.Config, content string, share bool) error {
	if !share {
		_, err := io.WriteString(w, content)
		return err
	}

	store, err := newShareStore(cfg, slog.Default(), nil)
	if err != nil {
		return err
	}
	defer store.Close()

	shared, err := store.Create(ctx, content)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, shared.Filename())
	return err
}
