// Package cli implements the sesnotify command line.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "sesnotify"

// NewRootCommand returns the sesnotify command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Send email through Amazon SES",
		Long: `sesnotify sends email through the Amazon SES v2 API using the same
parameter mapping that notification hosts use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSendCommand(), newRegionsCommand())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		// A failed send has already printed its result.
		if !errors.Is(err, ErrSendFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
