// Package executor turns a scan plan into filesystem changes: duplicate and
// cleanup deletions first, then renames. Per-file failures are collected and
// reported, never fatal.
package executor

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shelver-tools/shelver/internal/models"
)

// CleanupTarget is one broken or undersized file scheduled for deletion.
type CleanupTarget struct {
	Path   string
	Reason string
}

// Summary counts the changes an Apply call made.
type Summary struct {
	Renamed           int
	DuplicatesRemoved int
	Cleaned           int
	Errors            []string
}

// Executor applies renames and deletions under a scanned root.
type Executor struct {
	noDelete bool
}

// New returns an Executor. With noDelete set, duplicate and cleanup
// deletions are skipped and only renames run.
func New(noDelete bool) *Executor {
	return &Executor{noDelete: noDelete}
}

// Apply executes the plan. Deletions run before renames so a removed file can
// never block a survivor's target name. Renames are collision-safe: an
// existing file at the target path is never overwritten.
func (e *Executor) Apply(files []*models.NormalizedFile, groups []models.DuplicateGroup, cleanup []CleanupTarget) Summary {
	var s Summary

	if e.noDelete {
		slog.Info("deletion disabled, skipping duplicate and cleanup removal")
	} else {
		for _, g := range groups {
			for _, f := range g.Remove() {
				if err := os.Remove(f.OriginalPath); err != nil {
					s.fail("failed to delete duplicate %s: %v", f.OriginalPath, err)
					continue
				}
				slog.Info("deleted duplicate", "path", f.OriginalPath, "kept", g.Keep().OriginalPath)
				s.DuplicatesRemoved++
			}
		}

		for _, t := range cleanup {
			if err := os.Remove(t.Path); err != nil {
				s.fail("failed to clean up %s: %v", t.Path, err)
				continue
			}
			slog.Info("cleaned up file", "path", t.Path, "reason", t.Reason)
			s.Cleaned++
		}
	}

	for _, f := range files {
		if !f.Normalized() || f.NewPath == "" || f.NewPath == f.OriginalPath {
			continue
		}
		if _, err := os.Stat(f.NewPath); err == nil {
			s.fail("rename target already exists: %s", f.NewPath)
			continue
		}
		if err := os.Rename(f.OriginalPath, f.NewPath); err != nil {
			s.fail("failed to rename %s: %v", f.OriginalPath, err)
			continue
		}
		slog.Info("renamed", "from", f.OriginalName, "to", f.NewName)
		s.Renamed++
	}

	slog.Info("apply finished",
		"renamed", s.Renamed,
		"duplicates_removed", s.DuplicatesRemoved,
		"cleaned", s.Cleaned,
		"errors", len(s.Errors))
	return s
}

func (s *Summary) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Warn(msg)
	s.Errors = append(s.Errors, msg)
}
