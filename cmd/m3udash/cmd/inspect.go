package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/m3udash/pkg/m3u"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize the groups and channels of a local playlist",
	Long: `Parse a local M3U playlist and print its channels grouped by group-title.
Plain, gzip, bzip2 and xz compressed files are detected automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output the summary as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening playlist: %w", err)
	}
	defer f.Close()

	summary, err := m3u.Summarize(f)
	if err != nil {
		return fmt.Errorf("parsing playlist: %w", err)
	}

	out := cmd.OutOrStdout()
	if inspectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	return writeSummary(out, summary)
}

// writeSummary prints one line per group followed by its indented channels.
func writeSummary(w io.Writer, summary *m3u.Summary) error {
	if _, err := fmt.Fprintf(w, "%d channels in %d groups\n", summary.ChannelCount, len(summary.Groups)); err != nil {
		return err
	}
	for _, group := range summary.Groups {
		if _, err := fmt.Fprintf(w, "\n%s (%d)\n", group.Name, len(group.Channels)); err != nil {
			return err
		}
		for _, ch := range group.Channels {
			if _, err := fmt.Fprintf(w, "  %s\n", ch.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
