package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/query"
	"github.com/plaintasks/plaintasks/internal/store"
)

// newAddCommand creates the add command for capturing tasks.
func newAddCommand(dataDir *string) *cobra.Command {
	var opts struct {
		Body     string
		Project  string
		Context  string
		Priority string
		Status   string
		Due      string
		Tags     []string
		Note     bool
		Flagged  bool
	}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Capture a new task",
		Long: `Capture a new task into the inbox.

Examples:
  # Quick capture
  plaintasks add "Call the dentist"

  # Capture with metadata
  plaintasks add "Write report" --project Work --due 2026-09-01 --priority high

  # Capture a note instead of a task
  plaintasks add "Meeting minutes" --note --body "..."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			fields := store.CreateFields{
				Title:    args[0],
				Body:     opts.Body,
				Project:  opts.Project,
				Context:  opts.Context,
				Tags:     opts.Tags,
				Status:   domain.Status(opts.Status),
				Priority: domain.Priority(opts.Priority),
				Flagged:  opts.Flagged,
			}
			if opts.Note {
				fields.Kind = domain.KindNote
			}
			if opts.Due != "" {
				due, err := parseDate(opts.Due)
				if err != nil {
					return err
				}
				fields.Due = due
			}
			t, err := c.Store.Create(fields)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s\n", t.ID, t.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Body, "body", "", "body text")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project name")
	cmd.Flags().StringVar(&opts.Context, "context", "", "context name")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (high, medium, low)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (inbox, next, waiting, someday)")
	cmd.Flags().StringVar(&opts.Due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&opts.Note, "note", false, "capture a note instead of a task")
	cmd.Flags().BoolVar(&opts.Flagged, "flag", false, "flag the task")
	return cmd
}

// newListCommand creates the list command.
func newListCommand(dataDir *string) *cobra.Command {
	var opts struct {
		Status  string
		Project string
		Context string
		Tag     string
		Sort    string
		Group   string
		Desc    bool
		All     bool
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks, filtered and sorted.

Completed tasks are hidden unless --all is given.

Examples:
  plaintasks list --status next --sort due
  plaintasks list --project Work --group status`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			f := domain.Filter{Mode: domain.MatchAll}
			if opts.Status != "" {
				f.Predicates = append(f.Predicates, domain.StatusIn(domain.Status(opts.Status)))
			}
			if opts.Project != "" {
				f.Predicates = append(f.Predicates, domain.ProjectIs(opts.Project))
			}
			if opts.Context != "" {
				f.Predicates = append(f.Predicates, domain.ContextIs(opts.Context))
			}
			if opts.Tag != "" {
				f.Predicates = append(f.Predicates, domain.HasTagPred(opts.Tag))
			}

			now := c.Clock.Now()
			tasks := query.Filtered(c.Store.Tasks(), f, now)
			if !opts.All {
				visible := tasks[:0]
				for _, t := range tasks {
					if !t.IsCompleted() && !t.Archived {
						visible = append(visible, t)
					}
				}
				tasks = visible
			}

			sortKey := query.SortKey(opts.Sort)
			if !sortKey.IsValid() {
				return fmt.Errorf("unknown sort key: %s", opts.Sort)
			}
			groupKey := query.GroupKey(opts.Group)
			if !groupKey.IsValid() {
				return fmt.Errorf("unknown group key: %s", opts.Group)
			}
			query.Sort(tasks, sortKey, opts.Desc)

			out := cmd.OutOrStdout()
			for _, g := range query.GroupBy(tasks, groupKey) {
				if g.Key != "" {
					_, _ = fmt.Fprintf(out, "%s:\n", g.Key)
				}
				printTaskTable(out, g.Tasks, now)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&opts.Project, "project", "", "filter by project")
	cmd.Flags().StringVar(&opts.Context, "context", "", "filter by context")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "filter by tag")
	cmd.Flags().StringVar(&opts.Sort, "sort", "created", "sort key (priority, due, created, modified, title, effort)")
	cmd.Flags().StringVar(&opts.Group, "group", "", "group key (status, project, context, priority)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "reverse sort order")
	cmd.Flags().BoolVar(&opts.All, "all", false, "include completed and archived tasks")
	return cmd
}

// newShowCommand creates the show command.
func newShowCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			t, ok := c.Store.Task(args[0])
			if !ok {
				return &domain.ValidationError{ID: args[0], Err: domain.ErrTaskNotFound}
			}
			printTask(cmd.OutOrStdout(), t, c.Clock.Now())
			return nil
		},
	}
}

// newDoneCommand creates the done command.
func newDoneCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a task",
		Long: `Mark a task done.

Completing a recurrence instance generates the next occurrence from its
template, unless the pattern has ended.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			t, ok := c.Store.Task(args[0])
			if !ok {
				return &domain.ValidationError{ID: args[0], Err: domain.ErrTaskNotFound}
			}
			out := cmd.OutOrStdout()
			if t.IsInstance() {
				next, err := c.Recur.CompleteInstance(t.ID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Done: %s\n", t.Title)
				if next != nil {
					_, _ = fmt.Fprintf(out, "Next occurrence: %s\n", next.Due.Format("2006-01-02"))
				}
				return nil
			}
			if _, err := c.Store.CompleteTask(t.ID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "Done: %s\n", t.Title)
			return nil
		},
	}
}

// newDeleteCommand creates the delete command.
func newDeleteCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete tasks permanently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			if err := c.Store.DeleteTasks(args); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d task(s)\n", len(args))
			return nil
		},
	}
}

// newArchiveCommand creates the archive command.
func newArchiveCommand(dataDir *string) *cobra.Command {
	var restore bool
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Move a task to the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = c.Shutdown() }()

			if restore {
				if err := c.Store.RestoreTask(args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
				return nil
			}
			if err := c.Store.ArchiveTask(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Archived %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&restore, "restore", false, "move the task back to the active tree")
	return cmd
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func printTaskTable(out io.Writer, tasks []*domain.Task, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tPRI\tDUE\tTITLE")
	for _, t := range tasks {
		due := ""
		if !t.Due.IsZero() {
			due = t.Due.Format("2006-01-02")
			if t.IsOverdue(now) {
				due += "!"
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), t.Status, t.Priority, due, t.Title)
	}
	_ = w.Flush()
}

func printTask(out io.Writer, t *domain.Task, now time.Time) {
	_, _ = fmt.Fprintf(out, "%s  [%s]\n", t.Title, t.Status.Display())
	_, _ = fmt.Fprintf(out, "ID:       %s\n", t.ID)
	_, _ = fmt.Fprintf(out, "Priority: %s\n", t.Priority)
	if t.Project != "" {
		_, _ = fmt.Fprintf(out, "Project:  %s\n", t.Project)
	}
	if t.Context != "" {
		_, _ = fmt.Fprintf(out, "Context:  %s\n", t.Context)
	}
	if len(t.Tags) > 0 {
		_, _ = fmt.Fprintf(out, "Tags:     %s\n", strings.Join(t.Tags, ", "))
	}
	if !t.Due.IsZero() {
		overdue := ""
		if t.IsOverdue(now) {
			overdue = " (overdue)"
		}
		_, _ = fmt.Fprintf(out, "Due:      %s%s\n", t.Due.Format("2006-01-02"), overdue)
	}
	if !t.Defer.IsZero() {
		_, _ = fmt.Fprintf(out, "Defer:    %s\n", t.Defer.Format("2006-01-02"))
	}
	if t.IsTemplate() {
		_, _ = fmt.Fprintf(out, "Repeats:  %s every %d\n", t.Repeat.Freq, t.Repeat.Interval)
	}
	if mins := t.TrackedMinutes(now); mins > 0 {
		_, _ = fmt.Fprintf(out, "Tracked:  %dm\n", mins)
	}
	if t.Body != "" {
		_, _ = fmt.Fprintf(out, "\n%s\n", t.Body)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
