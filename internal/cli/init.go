package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plaintasks/plaintasks/internal/app"
)

// newInitCommand creates the init command.
func newInitCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the data directory",
		Long: `Initialize a plaintasks data directory.

This command creates the directory layout:
- tasks/active/: live task records
- tasks/archive/: archived task records
- boards/: board records
- logs/: log files

The built-in Inbox and Next boards are created on first use.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := resolveDataDir(*dataDir)
			if err != nil {
				return err
			}
			c, err := app.New(dir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()
			if err := c.Files.Initialize(); err != nil {
				return err
			}
			if err := c.Load(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Initialized plaintasks in %s\n", c.Files.Root())
			return nil
		},
	}
}
