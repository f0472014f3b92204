package query

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// Perspective is a saved, named query: a filter plus result shaping.
// Fields are ordered to minimize memory padding.
type Perspective struct {
	Name   string        `yaml:"name"`
	Filter domain.Filter `yaml:"filter"`
	Sort   SortKey       `yaml:"sort,omitempty"`
	Group  GroupKey      `yaml:"group,omitempty"`
	Desc   bool          `yaml:"desc,omitempty"`
}

// Run applies the perspective to a task snapshot.
func (p Perspective) Run(tasks []*domain.Task, now time.Time) []Group {
	matched := Filtered(tasks, p.Filter, now)
	if p.Sort != "" {
		Sort(matched, p.Sort, p.Desc)
	}
	return GroupBy(matched, p.Group)
}

type perspectiveFile struct {
	Perspectives []Perspective `yaml:"perspectives"`
}

// LoadPerspectives reads the saved perspectives from the data
// directory. A missing file yields an empty list.
func LoadPerspectives(dataDir string) ([]Perspective, error) {
	data, err := os.ReadFile(domain.PerspectivesPath(dataDir)) //nolint:gosec // Path derives from the data root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read perspectives: %w", err)
	}
	var file perspectiveFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse perspectives: %w", err)
	}
	return file.Perspectives, nil
}

// SavePerspectives writes the perspectives to the data directory.
func SavePerspectives(dataDir string, perspectives []Perspective) error {
	data, err := yaml.Marshal(perspectiveFile{Perspectives: perspectives})
	if err != nil {
		return fmt.Errorf("encode perspectives: %w", err)
	}
	if err := os.WriteFile(domain.PerspectivesPath(dataDir), data, 0o644); err != nil { //nolint:gosec // Perspectives are user-readable text
		return fmt.Errorf("write perspectives: %w", err)
	}
	return nil
}
