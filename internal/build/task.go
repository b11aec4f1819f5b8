// Package build turns a configuration into a matrix of conversion tasks and
// executes them through a bounded worker pool, aggregating per-task results
// into a run summary.
package build

import (
	"github.com/google/uuid"

	"git.home.luguber.info/inful/tplbuild/internal/config"
)

// Task is one (language, flavor, format) conversion unit. Immutable once
// scheduled.
type Task struct {
	ID       string
	Language string
	Flavor   string
	Format   string
	Options  map[string]any
}

// Matrix enumerates the build tasks for the given configuration:
// languages x flavors x enabled formats, language-major, all in declaration
// order. The ordering is a deterministic enumeration, not an execution order.
func Matrix(languages, flavors []string, formats config.Formats) []Task {
	enabled := formats.EnabledNames()
	tasks := make([]Task, 0, len(languages)*len(flavors)*len(enabled))
	for _, lang := range languages {
		for _, flavor := range flavors {
			for _, format := range enabled {
				spec, _ := formats.Get(format)
				tasks = append(tasks, Task{
					ID:       uuid.NewString(),
					Language: lang,
					Flavor:   flavor,
					Format:   format,
					Options:  spec.Options,
				})
			}
		}
	}
	return tasks
}
