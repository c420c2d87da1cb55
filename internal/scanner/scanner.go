// Package scanner walks a library directory and produces the immutable file
// descriptors the rest of the pipeline consumes. All flagging (failed
// download, too-small) happens here, once, at scan time.
package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shelver-tools/shelver/internal/models"
)

// Directories never descended into regardless of depth.
var skipDirs = map[string]bool{
	"Xcode":        true,
	"node_modules": true,
	".git":         true,
	"__pycache__":  true,
}

// Scanner lists files under a root directory.
type Scanner struct {
	root     string
	maxDepth int // 0 means unlimited
}

// New validates the root and builds a Scanner. maxDepth counts directory
// levels below the root; 1 scans only the root itself, 0 means unlimited.
func New(root string, maxDepth int) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", abs)
	}
	return &Scanner{root: abs, maxDepth: maxDepth}, nil
}

// Scan walks the tree and returns a descriptor per visited file. Unreadable
// entries are logged and skipped; only a broken walk root is an error.
func (s *Scanner) Scan() ([]*models.NormalizedFile, error) {
	var files []*models.NormalizedFile

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			slog.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if path == s.root {
				return nil
			}
			if s.shouldSkipDir(name) {
				return filepath.SkipDir
			}
			if s.maxDepth > 0 && s.depthOf(path) >= s.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		// Hidden files (dotfiles, .DS_Store and friends).
		if strings.HasPrefix(name, ".") {
			return nil
		}

		f, err := s.describe(path, d)
		if err != nil {
			slog.Warn("skipping file", "path", path, "error", err)
			return nil
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}

	slog.Debug("scan complete", "root", s.root, "files", len(files))
	return files, nil
}

// describe builds the descriptor for one file: compound-aware extension,
// size, mtime, and the broken-file flags.
func (s *Scanner) describe(path string, d fs.DirEntry) (*models.NormalizedFile, error) {
	info, err := d.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	name := d.Name()
	ext := detectExtension(name)

	isFailed := strings.HasSuffix(name, ".download") || strings.HasSuffix(name, ".crdownload")
	// Size sanity only applies to real e-book formats; text files are
	// legitimately tiny.
	isEbook := ext == ".pdf" || ext == ".epub"
	isTooSmall := !isFailed && isEbook && info.Size() < models.MinEbookSize

	return &models.NormalizedFile{
		FileDescriptor: models.FileDescriptor{
			OriginalPath:     path,
			OriginalName:     name,
			Extension:        ext,
			Size:             info.Size(),
			ModifiedTime:     info.ModTime(),
			IsFailedDownload: isFailed,
			IsTooSmall:       isTooSmall,
		},
	}, nil
}

// detectExtension handles the compound suffixes filepath.Ext would split.
func detectExtension(name string) string {
	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		return ".tar.gz"
	case strings.HasSuffix(name, ".download"):
		return ".download"
	case strings.HasSuffix(name, ".crdownload"):
		return ".crdownload"
	}
	return filepath.Ext(name)
}

// shouldSkipDir filters hidden and system directories, plus partial-download
// folders, which belong to the recovery pass rather than the scan.
func (s *Scanner) shouldSkipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if strings.HasSuffix(name, ".download") || strings.HasSuffix(name, ".crdownload") {
		return true
	}
	return skipDirs[name]
}

// depthOf counts directory levels between the root and path.
func (s *Scanner) depthOf(path string) int {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}
