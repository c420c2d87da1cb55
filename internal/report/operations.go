package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shelver-tools/shelver/internal/models"
)

// RenameOperation is one proposed filename change, paths relative to the
// scanned root when possible.
type RenameOperation struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Reason string `json:"reason" yaml:"reason"`
}

// DuplicateDeletion is one resolved duplicate group: keep the first path,
// delete the rest.
type DuplicateDeletion struct {
	Keep   string   `json:"keep" yaml:"keep"`
	Delete []string `json:"delete" yaml:"delete"`
}

// AmbiguousGroup is a name-keyed group the detector refused to resolve; all
// members are preserved and listed for manual review.
type AmbiguousGroup struct {
	Members []string `json:"members" yaml:"members"`
	Reason  string   `json:"reason" yaml:"reason"`
}

// DeleteOperation is one proposed cleanup deletion (broken or tiny file).
type DeleteOperation struct {
	Path  string `json:"path" yaml:"path"`
	Issue string `json:"issue" yaml:"issue"`
}

// TodoItem is one manual-attention entry, mirrored from the todo list.
type TodoItem struct {
	Category string `json:"category" yaml:"category"`
	Message  string `json:"message" yaml:"message"`
}

// Operations is the complete machine-readable plan of a scan run. All lists
// are sorted so repeated runs over the same tree produce identical output.
type Operations struct {
	Renames          []RenameOperation   `json:"renames" yaml:"renames"`
	DuplicateDeletes []DuplicateDeletion `json:"duplicate_deletes" yaml:"duplicate_deletes"`
	AmbiguousGroups  []AmbiguousGroup    `json:"ambiguous_groups" yaml:"ambiguous_groups"`
	CleanupDeletes   []DeleteOperation   `json:"small_or_corrupted_deletes" yaml:"small_or_corrupted_deletes"`
	TodoItems        []TodoItem          `json:"todo_items" yaml:"todo_items"`
}

// BuildOperations assembles the plan from pipeline results. targetDir is
// stripped from paths that live under it.
func BuildOperations(
	files []*models.NormalizedFile,
	groups []models.DuplicateGroup,
	ambiguous []models.DuplicateGroup,
	cleanup []DeleteOperation,
	todo *TodoList,
	targetDir string,
) *Operations {
	ops := &Operations{
		Renames:          []RenameOperation{},
		DuplicateDeletes: []DuplicateDeletion{},
		AmbiguousGroups:  []AmbiguousGroup{},
		CleanupDeletes:   []DeleteOperation{},
		TodoItems:        []TodoItem{},
	}

	rel := func(path string) string {
		if r, err := filepath.Rel(targetDir, path); err == nil && !strings.HasPrefix(r, "..") {
			return r
		}
		return path
	}

	for _, f := range files {
		if !f.Normalized() || f.NewName == f.OriginalName {
			continue
		}
		ops.Renames = append(ops.Renames, RenameOperation{
			From:   rel(f.OriginalPath),
			To:     rel(f.NewPath),
			Reason: "normalized",
		})
	}
	sort.Slice(ops.Renames, func(i, j int) bool { return ops.Renames[i].From < ops.Renames[j].From })

	for _, g := range groups {
		del := make([]string, 0, len(g.Files)-1)
		for _, f := range g.Remove() {
			del = append(del, rel(f.OriginalPath))
		}
		sort.Strings(del)
		ops.DuplicateDeletes = append(ops.DuplicateDeletes, DuplicateDeletion{
			Keep:   rel(g.Keep().OriginalPath),
			Delete: del,
		})
	}
	sort.Slice(ops.DuplicateDeletes, func(i, j int) bool {
		return ops.DuplicateDeletes[i].Keep < ops.DuplicateDeletes[j].Keep
	})

	for _, g := range ambiguous {
		members := make([]string, 0, len(g.Files))
		for _, f := range g.Files {
			members = append(members, rel(f.OriginalPath))
		}
		sort.Strings(members)
		ops.AmbiguousGroups = append(ops.AmbiguousGroups, AmbiguousGroup{
			Members: members,
			Reason:  "smallest member below danger-zone size threshold",
		})
	}
	sort.Slice(ops.AmbiguousGroups, func(i, j int) bool {
		return ops.AmbiguousGroups[i].Members[0] < ops.AmbiguousGroups[j].Members[0]
	})

	for _, d := range cleanup {
		ops.CleanupDeletes = append(ops.CleanupDeletes, DeleteOperation{
			Path:  rel(d.Path),
			Issue: d.Issue,
		})
	}
	sort.Slice(ops.CleanupDeletes, func(i, j int) bool {
		return ops.CleanupDeletes[i].Path < ops.CleanupDeletes[j].Path
	})

	if todo != nil {
		for _, pair := range todo.Items() {
			ops.TodoItems = append(ops.TodoItems, TodoItem{Category: pair[0], Message: pair[1]})
		}
		sort.Slice(ops.TodoItems, func(i, j int) bool {
			if ops.TodoItems[i].Category != ops.TodoItems[j].Category {
				return ops.TodoItems[i].Category < ops.TodoItems[j].Category
			}
			return ops.TodoItems[i].Message < ops.TodoItems[j].Message
		})
	}

	return ops
}

// JSON renders the plan as indented JSON.
func (o *Operations) JSON() (string, error) {
	raw, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal operations: %w", err)
	}
	return string(raw), nil
}

// YAML renders the plan as YAML.
func (o *Operations) YAML() (string, error) {
	raw, err := yaml.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("failed to marshal operations: %w", err)
	}
	return string(raw), nil
}
