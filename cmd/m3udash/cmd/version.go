package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/m3udash/internal/version"
)

func newVersionCmd() *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text := version.String()
			if asJSON {
				text = version.JSON()
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return c
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
