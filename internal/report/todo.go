// Package report produces the two human-facing artifacts of a scan: the
// todo.md checklist of files needing manual attention, and the
// machine-readable operations output (JSON/YAML) describing every proposed
// change.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shelver-tools/shelver/internal/models"
)

// Issue classifies why a file landed on the todo list.
type Issue string

const (
	IssueFailedDownload Issue = "failed_download"
	IssueTooSmall       Issue = "too_small"
	IssueCorruptedPDF   Issue = "corrupted_pdf"
	IssueReadError      Issue = "read_error"
)

// Generic checklist lines from older todo.md revisions, never re-imported.
var skipPatterns = []string{
	"检查所有未完成下载文件",
	"重新下载过小文件",
	"验证损坏的PDF文件",
	"处理其他文件问题",
	"MD5校验重复文件",
}

// TodoList accumulates per-file issues and renders them as grouped markdown.
// Items already present in an existing todo.md are carried over, so repeated
// scans never duplicate entries.
type TodoList struct {
	path string

	seen            map[string]bool
	failedDownloads []string
	smallFiles      []string
	corruptedFiles  []string
	otherIssues     []string
	carried         []string

	now func() time.Time
}

// NewTodoList loads any existing checklist at path (empty path defaults to
// todo.md inside targetDir) and returns a list ready to collect new issues.
func NewTodoList(path, targetDir string) (*TodoList, error) {
	if path == "" {
		path = filepath.Join(targetDir, "todo.md")
	}

	t := &TodoList{
		path: path,
		seen: make(map[string]bool),
		now:  time.Now,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("failed to read existing todo file %s: %w", path, err)
	}
	for _, item := range parseItems(string(raw)) {
		t.seen[item] = true
		t.carried = append(t.carried, item)
	}
	return t, nil
}

// Add records one issue for a file. Duplicate items are dropped.
func (t *TodoList) Add(f *models.NormalizedFile, issue Issue) {
	var item string
	switch issue {
	case IssueFailedDownload:
		item = fmt.Sprintf("重新下载: %s (未完成下载)", f.OriginalName)
	case IssueTooSmall:
		item = fmt.Sprintf("检查并重新下载: %s (文件过小，仅 %d 字节)", f.OriginalName, f.Size)
	case IssueCorruptedPDF:
		item = fmt.Sprintf("重新下载: %s (PDF文件损坏或格式无效)", f.OriginalName)
	case IssueReadError:
		item = fmt.Sprintf("检查文件权限: %s (无法读取文件)", f.OriginalName)
	default:
		return
	}

	if t.seen[item] {
		return
	}
	t.seen[item] = true

	switch issue {
	case IssueFailedDownload:
		t.failedDownloads = append(t.failedDownloads, item)
	case IssueTooSmall:
		t.smallFiles = append(t.smallFiles, item)
	case IssueCorruptedPDF:
		t.corruptedFiles = append(t.corruptedFiles, item)
	case IssueReadError:
		t.otherIssues = append(t.otherIssues, item)
	}
	slog.Debug("added todo item", "item", item)
}

// AddFlagged records the scan-time flags of a file, if any.
func (t *TodoList) AddFlagged(f *models.NormalizedFile) {
	switch {
	case f.IsFailedDownload:
		t.Add(f, IssueFailedDownload)
	case f.IsTooSmall:
		t.Add(f, IssueTooSmall)
	}
}

// CheckIntegrity probes an unflagged file for deeper damage: a PDF with a
// bad header, or a file that cannot be statted anymore. Returns the issue
// found, or "".
func (t *TodoList) CheckIntegrity(f *models.NormalizedFile) Issue {
	if f.IsFailedDownload || f.IsTooSmall {
		return ""
	}

	if strings.EqualFold(f.Extension, ".pdf") {
		if err := ValidatePDFHeader(f.OriginalPath); err != nil {
			t.Add(f, IssueCorruptedPDF)
			return IssueCorruptedPDF
		}
	}

	if _, err := os.Stat(f.OriginalPath); err != nil {
		t.Add(f, IssueReadError)
		return IssueReadError
	}
	return ""
}

// Remove drops every item mentioning the given filename, used after the file
// has been repaired or deleted.
func (t *TodoList) Remove(filename string) {
	lower := strings.ToLower(filename)
	keep := func(items []string) []string {
		out := items[:0]
		for _, item := range items {
			if strings.Contains(strings.ToLower(item), lower) {
				delete(t.seen, item)
				continue
			}
			out = append(out, item)
		}
		return out
	}
	t.failedDownloads = keep(t.failedDownloads)
	t.smallFiles = keep(t.smallFiles)
	t.corruptedFiles = keep(t.corruptedFiles)
	t.otherIssues = keep(t.otherIssues)
	t.carried = keep(t.carried)
}

// Items returns every current item as (category, text) pairs, grouped in
// render order.
func (t *TodoList) Items() [][2]string {
	var out [][2]string
	for _, item := range t.failedDownloads {
		out = append(out, [2]string{string(IssueFailedDownload), item})
	}
	for _, item := range t.smallFiles {
		out = append(out, [2]string{string(IssueTooSmall), item})
	}
	for _, item := range t.corruptedFiles {
		out = append(out, [2]string{string(IssueCorruptedPDF), item})
	}
	for _, item := range t.otherIssues {
		out = append(out, [2]string{string(IssueReadError), item})
	}
	return out
}

// Empty reports whether the list holds no items at all, carried or new.
func (t *TodoList) Empty() bool {
	return len(t.failedDownloads)+len(t.smallFiles)+len(t.corruptedFiles)+
		len(t.otherIssues)+len(t.carried) == 0
}

// Write renders the checklist to its markdown file.
func (t *TodoList) Write() error {
	var b strings.Builder

	b.WriteString("# 需要检查的任务\n\n")
	fmt.Fprintf(&b, "更新时间: %s\n\n", t.now().Format("2006-01-02 15:04:05"))

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("## " + title + "\n\n")
		for _, item := range items {
			b.WriteString("- [ ] " + item + "\n")
		}
		b.WriteString("\n")
	}

	section("🔄 未完成下载文件（.download）", t.failedDownloads)
	section("📁 异常小文件（< 1KB）", t.smallFiles)
	section("🚨 损坏的PDF文件", t.corruptedFiles)
	section("⚠️ 其他文件问题", t.otherIssues)
	section("📋 其他需要处理的文件", t.carriedOnly())

	if err := os.WriteFile(t.path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write todo file %s: %w", t.path, err)
	}
	slog.Debug("wrote todo file", "path", t.path)
	return nil
}

// carriedOnly returns imported items not re-raised by this run.
func (t *TodoList) carriedOnly() []string {
	current := make(map[string]bool)
	for _, items := range [][]string{t.failedDownloads, t.smallFiles, t.corruptedFiles, t.otherIssues} {
		for _, item := range items {
			current[item] = true
		}
	}
	var out []string
	for _, item := range t.carried {
		if !current[item] {
			out = append(out, item)
		}
	}
	return out
}

// parseItems pulls checklist lines out of existing markdown, skipping the
// generic boilerplate entries older versions emitted.
func parseItems(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- [") {
			continue
		}
		item := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "- [ ]"), "- [x]"))
		skip := false
		for _, pattern := range skipPatterns {
			if strings.Contains(item, pattern) {
				skip = true
				break
			}
		}
		if !skip && item != "" {
			items = append(items, item)
		}
	}
	return items
}
