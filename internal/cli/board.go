package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/query"
)

// newBoardCommand creates the board command and its subcommands.
func newBoardCommand(dataDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "List and inspect boards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "SLUG\tKIND\tLAYOUT\tTITLE")
			for _, b := range c.Store.Boards() {
				if b.Hidden {
					continue
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Slug, b.Kind, b.Layout, b.Title)
			}
			return w.Flush()
		},
	}
	cmd.AddCommand(
		newBoardShowCommand(dataDir),
		newBoardHideCommand(dataDir),
	)
	return cmd
}

// newBoardShowCommand creates the board show subcommand.
func newBoardShowCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show a board's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			b, ok := c.Store.Board(args[0])
			if !ok {
				return &domain.ValidationError{ID: args[0], Err: domain.ErrBoardNotFound}
			}
			if err := c.Store.TouchBoard(b.Slug); err != nil {
				return err
			}

			now := c.Clock.Now()
			tasks := query.Filtered(c.Store.Tasks(), b.Filter, now)
			query.Sort(tasks, query.SortPriority, false)

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s (%s)\n\n", b.Title, b.Layout)
			if b.Layout == domain.LayoutKanban && len(b.Columns) > 0 {
				for _, col := range b.Columns {
					_, _ = fmt.Fprintf(out, "%s:\n", col)
					printTaskTable(out, columnTasks(tasks, col), now)
				}
				return nil
			}
			printTaskTable(out, tasks, now)
			return nil
		},
	}
}

// columnTasks selects the tasks belonging to a kanban column. Column
// titles name a status or a priority; the lowercased title is matched
// against both.
func columnTasks(tasks []*domain.Task, column string) []*domain.Task {
	key := strings.ToLower(column)
	var out []*domain.Task
	for _, t := range tasks {
		if string(t.Status) == key || string(t.Priority) == key {
			out = append(out, t)
		}
	}
	return out
}

// newBoardHideCommand creates the board hide subcommand.
func newBoardHideCommand(dataDir *string) *cobra.Command {
	var unhide bool
	cmd := &cobra.Command{
		Use:   "hide <slug>",
		Short: "Hide a board from listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			b, ok := c.Store.Board(args[0])
			if !ok {
				return &domain.ValidationError{ID: args[0], Err: domain.ErrBoardNotFound}
			}
			b.Hidden = !unhide
			return c.Store.UpdateBoard(b)
		},
	}
	cmd.Flags().BoolVar(&unhide, "unhide", false, "make the board visible again")
	return cmd
}
