// Package recovery pulls e-books out of partial-download folders. Browsers
// that download into a "name.pdf.download" directory leave the finished PDF
// stranded inside; this pass moves it up to the library root, discards the
// junk around it, and optionally removes the emptied folder.
package recovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shelver-tools/shelver/internal/models"
	"github.com/shelver-tools/shelver/internal/report"
)

// Suffixes stripped from recovered filenames before they rejoin the library.
var sourceSuffixes = []string{
	" (Z-Library)",
	" (z-Library)",
	" (Anna's Archive)",
	" (libgen.li)",
	" (libgen.lc)",
	" (Library Genesis)",
}

// Recovery processes the download folders directly under a target directory.
type Recovery struct {
	targetDir   string
	autoCleanup bool
}

// Result records everything a recovery pass did. Errors are collected, not
// raised: one unreadable folder must not abort the rest of the pass.
type Result struct {
	ExtractedFiles []string
	CleanedFolders []string
	DeletedFiles   []string
	Errors         []string
}

// New builds a Recovery rooted at targetDir. With autoCleanup set, download
// folders left empty after extraction are removed.
func New(targetDir string, autoCleanup bool) *Recovery {
	return &Recovery{targetDir: targetDir, autoCleanup: autoCleanup}
}

// Run finds every *.download and *.crdownload directory directly under the
// target and processes each one.
func (r *Recovery) Run() (*Result, error) {
	res := &Result{}

	entries, err := os.ReadDir(r.targetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.targetDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".download") && !strings.HasSuffix(name, ".crdownload") {
			continue
		}

		folder := filepath.Join(r.targetDir, name)
		slog.Debug("processing download folder", "folder", folder)
		if err := r.processFolder(folder, res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", folder, err))
		}
	}

	slog.Info("download recovery complete",
		"extracted", len(res.ExtractedFiles),
		"cleaned_folders", len(res.CleanedFolders),
		"deleted", len(res.DeletedFiles),
		"errors", len(res.Errors))
	return res, nil
}

// processFolder extracts valid PDFs from one download folder, deletes
// corrupted and leftover junk files, and removes the folder if it ends up
// empty and cleanup is enabled.
func (r *Recovery) processFolder(folder string, res *Result) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("failed to read folder: %w", err)
	}

	var pdfs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		info, err := entry.Info()
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}

		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			switch {
			case info.Size() < models.MinEbookSize:
				r.deleteJunk(path, "pdf too small", res)
			case report.ValidatePDFHeader(path) != nil:
				r.deleteJunk(path, "invalid pdf header", res)
			default:
				pdfs = append(pdfs, path)
			}
			continue
		}

		// Non-PDF leftovers: browser temp files and trackers are tiny.
		if info.Size() < 100 {
			r.deleteJunk(path, "suspiciously small", res)
		}
	}

	for _, pdf := range pdfs {
		dest := filepath.Join(r.targetDir, cleanRecoveredName(filepath.Base(pdf)))
		if _, err := os.Stat(dest); err == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: target %s already exists", pdf, dest))
			continue
		}
		if err := os.Rename(pdf, dest); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", pdf, err))
			continue
		}
		slog.Info("extracted pdf", "from", pdf, "to", dest)
		res.ExtractedFiles = append(res.ExtractedFiles, dest)
	}

	if r.autoCleanup {
		r.cleanupFolder(folder, res)
	}
	return nil
}

func (r *Recovery) deleteJunk(path, reason string, res *Result) {
	if err := os.Remove(path); err != nil {
		slog.Warn("failed to delete file", "path", path, "error", err)
		return
	}
	slog.Info("deleted corrupted file", "path", path, "reason", reason)
	res.DeletedFiles = append(res.DeletedFiles, path)
}

// cleanupFolder removes the download folder only when no files remain.
func (r *Recovery) cleanupFolder(folder string, res *Result) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		slog.Warn("failed to re-read download folder", "folder", folder, "error", err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			slog.Debug("download folder not empty, keeping", "folder", folder)
			return
		}
	}
	if err := os.Remove(folder); err != nil {
		slog.Warn("failed to remove download folder", "folder", folder, "error", err)
		return
	}
	slog.Info("removed empty download folder", "folder", folder)
	res.CleanedFolders = append(res.CleanedFolders, folder)
}

// cleanRecoveredName strips one trailing source marker and guarantees a .pdf
// extension on the recovered name.
func cleanRecoveredName(original string) string {
	cleaned := original
	if strings.HasSuffix(strings.ToLower(cleaned), ".pdf") {
		cleaned = cleaned[:len(cleaned)-4]
	}

	for _, suffix := range sourceSuffixes {
		if strings.HasSuffix(cleaned, suffix) {
			cleaned = strings.TrimSuffix(cleaned, suffix)
			break
		}
	}

	if !strings.HasSuffix(strings.ToLower(cleaned), ".pdf") {
		cleaned += ".pdf"
	}
	return cleaned
}
