package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var relayShare bool

var relayCmd = &cobra.Command{
	Use:   "relay <url>",
	Short: "Fetch a remote M3U playlist",
	Long: `Fetch a remote M3U playlist with the configured browser identity and
print it to stdout unmodified. With --share the playlist is stored in the
shared directory and its filename is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelay,
}

func init() {
	relayCmd.Flags().BoolVar(&relayShare, "share", false, "store the playlist and print its shared filename")
	rootCmd.AddCommand(relayCmd)
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := newComponents(cfg, slog.Default(), nil)
	content, err := c.relay.Relay(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return emitPlaylist(cmd.Context(), cmd.OutOrStdout(), cfg, content, relayShare)
}
