// Package cli provides the command-line interface for plaintasks.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/plaintasks/plaintasks/internal/app"
)

// NewRootCommand creates the root command for plaintasks.
func NewRootCommand(version string) *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:   "plaintasks",
		Short: "Plain-text task management CLI",
		Long: `plaintasks manages tasks and boards as plain text files.

Every task is one human-readable record under the data directory;
edits made with any text editor are picked up while the tool runs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default $PLAINTASKS_DIR or ~/.plaintasks)")

	root.AddCommand(
		newInitCommand(&dataDir),
		newAddCommand(&dataDir),
		newListCommand(&dataDir),
		newShowCommand(&dataDir),
		newDoneCommand(&dataDir),
		newDeleteCommand(&dataDir),
		newArchiveCommand(&dataDir),
		newBoardCommand(&dataDir),
		newSaveCommand(&dataDir),
		newWatchCommand(&dataDir),
	)
	return root
}

// resolveDataDir picks the data directory: flag, then environment, then
// the home default.
func resolveDataDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("PLAINTASKS_DIR"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".plaintasks"), nil
}

// openContainer builds the container and loads all records into the
// store. Used by every command except init.
func openContainer(dataDirFlag *string) (*app.Container, error) {
	dir, err := resolveDataDir(*dataDirFlag)
	if err != nil {
		return nil, err
	}
	c, err := app.New(dir)
	if err != nil {
		return nil, err
	}
	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}
