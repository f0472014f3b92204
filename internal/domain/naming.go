package domain

import (
	"path/filepath"
	"strings"
)

// File and directory names under the data root.
const (
	ConfigFileName       = "config.toml"
	PerspectivesFileName = "perspectives.yaml"
	RecordExt            = ".txt"
)

// ActiveTasksDir returns the active task tree root.
func ActiveTasksDir(root string) string {
	return filepath.Join(root, "tasks", "active")
}

// ArchiveTasksDir returns the archived task tree root.
func ArchiveTasksDir(root string) string {
	return filepath.Join(root, "tasks", "archive")
}

// BoardsDir returns the boards directory.
func BoardsDir(root string) string {
	return filepath.Join(root, "boards")
}

// LogsDir returns the log directory.
func LogsDir(root string) string {
	return filepath.Join(root, "logs")
}

// GlobalLogPath returns the application log file path.
func GlobalLogPath(root string) string {
	return filepath.Join(LogsDir(root), "plaintasks.log")
}

// PerspectivesPath returns the saved perspectives file path.
func PerspectivesPath(root string) string {
	return filepath.Join(root, PerspectivesFileName)
}

// Slugify reduces a title to a short, filesystem- and URL-safe slug.
func Slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

// TaskFileName returns the record file name for a task.
// Format: <id>-<slug>.txt
func TaskFileName(id, title string) string {
	return id + "-" + Slugify(title) + RecordExt
}

// ParseTaskFileID extracts the task ID from a record file name. Task IDs
// are 36-character UUID strings; the slug after them is decorative.
func ParseTaskFileID(name string) (string, bool) {
	name = strings.TrimSuffix(name, RecordExt)
	if len(name) < 36 {
		return "", false
	}
	id := name[:36]
	if strings.Count(id, "-") != 4 {
		return "", false
	}
	return id, true
}

// BoardFileName returns the record file name for a board.
func BoardFileName(slug string) string {
	return slug + RecordExt
}

// ProjectBoardSlug returns the slug of the lazily created board for a
// project.
func ProjectBoardSlug(project string) string {
	return "project-" + Slugify(project)
}

// ContextBoardSlug returns the slug of the lazily created board for a
// context.
func ContextBoardSlug(context string) string {
	return "context-" + Slugify(context)
}
