package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSaveCommand creates the save command.
func newSaveCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Flush pending writes to disk",
		Long: `Flush all pending writes synchronously.

Mutations are normally written after a short quiescence window; save
forces them to disk immediately and reports any write failures.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			if err := c.Store.FlushNow(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Saved")
			return nil
		},
	}
}
