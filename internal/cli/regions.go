package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shineum/sesnotify/internal/provider/ses"
)

func newRegionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the SES regions accepted in amazonses.region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, r := range ses.Regions() {
				fmt.Fprintln(out, r)
			}
			fmt.Fprintf(out, "\nUnknown regions fall back to %s.\n", ses.FallbackRegion)
			return nil
		},
	}
}
