// Package ui renders scan results for humans. All output goes through a
// Printer; with quiet set (machine-readable output modes) everything is
// suppressed so stdout stays valid JSON or YAML.
package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/shelver-tools/shelver/internal/executor"
	"github.com/shelver-tools/shelver/internal/models"
)

var (
	colorGreen  = lipgloss.Color("#A6E22E")
	colorCyan   = lipgloss.Color("#66D9EF")
	colorPink   = lipgloss.Color("#F92672")
	colorOrange = lipgloss.Color("#FD971F")
	colorYellow = lipgloss.Color("#E6DB74")
	colorGray   = lipgloss.Color("#75715E")
	colorWhite  = lipgloss.Color("#F8F8F2")
	colorDark   = lipgloss.Color("#272822")

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow).
			MarginTop(1)

	successStyle = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorOrange)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	infoStyle    = lipgloss.NewStyle().Foreground(colorCyan)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorGray)
	pathStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	newNameStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	arrowStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	keepStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	deleteStyle  = lipgloss.NewStyle().Foreground(colorPink).Strikethrough(true)
	countStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)

	dryRunStyle = lipgloss.NewStyle().
			Bold(true).
			Background(colorOrange).
			Foreground(colorDark).
			Padding(0, 2)
)

// Printer writes styled scan output.
type Printer struct {
	out   io.Writer
	quiet bool
}

// NewPrinter returns a Printer on stdout. quiet suppresses all output.
func NewPrinter(quiet bool) *Printer {
	return &Printer{out: os.Stdout, quiet: quiet}
}

// DryRunBanner announces that no changes will be made.
func (p *Printer) DryRunBanner() {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, dryRunStyle.Render("DRY RUN: no changes will be made (pass --apply to execute)"))
	fmt.Fprintln(p.out)
}

// ScanStart announces the directory being scanned.
func (p *Printer) ScanStart(path string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, infoStyle.Render("Scanning ")+pathStyle.Render(path))
}

// ScanComplete reports how many files the scanner found.
func (p *Printer) ScanComplete(count int) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s Found %s files\n",
		successStyle.Render("✓"), countStyle.Render(fmt.Sprintf("%d", count)))
}

// Renames lists proposed filename changes.
func (p *Printer) Renames(files []*models.NormalizedFile) {
	if p.quiet {
		return
	}

	var pending []*models.NormalizedFile
	for _, f := range files {
		if f.Normalized() && f.NewName != f.OriginalName {
			pending = append(pending, f)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(p.out, mutedStyle.Render("no renames needed"))
		return
	}

	p.section(fmt.Sprintf("Renames (%d)", len(pending)))
	for _, f := range pending {
		fmt.Fprintf(p.out, "  %s %s %s\n",
			pathStyle.Render(f.OriginalName),
			arrowStyle.Render("→"),
			newNameStyle.Render(f.NewName))
	}
}

// Duplicates lists resolved duplicate groups with keep/delete markers.
func (p *Printer) Duplicates(groups []models.DuplicateGroup, noDelete bool) {
	if p.quiet || len(groups) == 0 {
		return
	}

	action := "to delete"
	if noDelete {
		action = "found (no-delete mode)"
	}
	p.section(fmt.Sprintf("Duplicates %s (%d groups)", action, len(groups)))

	for _, g := range groups {
		fmt.Fprintf(p.out, "  %s %s\n",
			keepStyle.Render("KEEP  "), pathStyle.Render(g.Keep().OriginalPath))
		for _, f := range g.Remove() {
			fmt.Fprintf(p.out, "  %s %s\n",
				errorStyle.Render("DELETE"), deleteStyle.Render(f.OriginalPath))
		}
	}
}

// Ambiguous lists groups the detector kept whole for manual review.
func (p *Printer) Ambiguous(groups []models.DuplicateGroup) {
	if p.quiet || len(groups) == 0 {
		return
	}

	p.section(fmt.Sprintf("Ambiguous groups kept for review (%d)", len(groups)))
	for _, g := range groups {
		for _, f := range g.Files {
			fmt.Fprintf(p.out, "  %s %s %s\n",
				warnStyle.Render("?"),
				pathStyle.Render(f.OriginalPath),
				mutedStyle.Render(fmt.Sprintf("(%d bytes)", f.Size)))
		}
		fmt.Fprintln(p.out)
	}
}

// Cleanup lists broken or undersized files scheduled for deletion.
func (p *Printer) Cleanup(targets []executor.CleanupTarget) {
	if p.quiet || len(targets) == 0 {
		return
	}

	p.section(fmt.Sprintf("Cleanup (%d)", len(targets)))
	for _, t := range targets {
		fmt.Fprintf(p.out, "  %s %s %s\n",
			errorStyle.Render("DELETE"),
			mutedStyle.Render("["+t.Reason+"]"),
			deleteStyle.Render(filepath.Base(t.Path)))
	}
}

// TodoItems lists manual-attention entries that will land in todo.md.
func (p *Printer) TodoItems(items [][2]string) {
	if p.quiet || len(items) == 0 {
		return
	}

	p.section(fmt.Sprintf("Todo items (%d)", len(items)))
	for _, item := range items {
		fmt.Fprintf(p.out, "  %s %s\n", infoStyle.Render("- [ ]"), item[1])
	}
}

// ApplySummary reports what an executed run changed.
func (p *Printer) ApplySummary(s executor.Summary) {
	if p.quiet {
		return
	}

	p.section("Applied")
	fmt.Fprintf(p.out, "  renamed %s, removed %s duplicates, cleaned %s files\n",
		countStyle.Render(fmt.Sprintf("%d", s.Renamed)),
		countStyle.Render(fmt.Sprintf("%d", s.DuplicatesRemoved)),
		countStyle.Render(fmt.Sprintf("%d", s.Cleaned)))
	for _, msg := range s.Errors {
		fmt.Fprintf(p.out, "  %s %s\n", errorStyle.Render("✗"), msg)
	}
}

// Success prints a green check line.
func (p *Printer) Success(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, successStyle.Render("✓ ")+msg)
}

// Warning prints an orange warning line.
func (p *Printer) Warning(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, warnStyle.Render("⚠ ")+msg)
}

// Info prints a cyan informational line.
func (p *Printer) Info(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, infoStyle.Render(msg))
}

func (p *Printer) section(title string) {
	fmt.Fprintln(p.out, sectionStyle.Render(title))
}
