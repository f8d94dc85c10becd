package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/m3udash/internal/ingestor"
)

var (
	xtreamOutputType string
	xtreamShare      bool
)

var xtreamCmd = &cobra.Command{
	Use:   "xtream <panel-url> <username> <password>",
	Short: "Translate an Xtream Codes panel into an M3U playlist",
	Long: `Query an Xtream Codes panel for its live categories and streams and print
the resulting M3U playlist. With --share the playlist is stored in the shared
directory and its filename is printed instead.`,
	Args: cobra.ExactArgs(3),
	RunE: runXtream,
}

func init() {
	xtreamCmd.Flags().StringVar(&xtreamOutputType, "output-type", ingestor.DefaultOutputType, "stream container extension (ts, m3u8)")
	xtreamCmd.Flags().BoolVar(&xtreamShare, "share", false, "store the playlist and print its shared filename")
	rootCmd.AddCommand(xtreamCmd)
}

func runXtream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := newComponents(cfg, slog.Default(), nil)
	doc, err := c.xtream.Translate(cmd.Context(), ingestor.TranslateRequest{
		PanelURL:   args[0],
		Username:   args[1],
		Password:   args[2],
		OutputType: xtreamOutputType,
	})
	if err != nil {
		return err
	}

	return emitPlaylist(cmd.Context(), cmd.OutOrStdout(), cfg, doc.String(), xtreamShare)
}
