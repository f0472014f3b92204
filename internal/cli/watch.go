package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// newWatchCommand creates the watch command.
func newWatchCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the data directory and report changes",
		Long: `Run until interrupted, printing every store change.

External edits made with a text editor show up as they settle;
conflicts between unsaved local state and external edits are reported
without either side being overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			out := cmd.OutOrStdout()
			unsubscribe := c.Store.Subscribe(func(ev domain.Event) {
				switch ev.Type {
				case domain.EventConflict:
					_, _ = fmt.Fprintf(out, "conflict: %s (%s)\n", ev.Conflict.Local.Title, ev.Conflict.Path)
				case domain.EventWriteFailed:
					_, _ = fmt.Fprintf(out, "write failed: %v\n", ev.Err)
				default:
					_, _ = fmt.Fprintf(out, "%s %s: %s\n", ev.Origin, ev.Type, strings.Join(ev.IDs, ", "))
				}
			})
			defer unsubscribe()

			if err := c.StartMonitor(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", c.Files.Root())

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
}
