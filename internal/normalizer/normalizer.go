// Package normalizer turns messy downloaded e-book filenames into canonical
// "Author - Title [Series N] (Year, Edition)" names. Parsing is a fixed
// sequence of narrow stages; each stage consumes the previous stage's output,
// and the order is load-bearing (see the stage comments).
package normalizer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shelver-tools/shelver/internal/models"
	"github.com/shelver-tools/shelver/internal/rules"
)

// Normalizer parses filenames against a compiled rule set. Safe for
// concurrent use; all state is immutable after New.
type Normalizer struct {
	set *rules.Set

	series        []seriesMatcher
	noise         []*regexp.Regexp
	parenSeries   *regexp.Regexp
	bracketSeries *regexp.Regexp
}

type seriesMatcher struct {
	name       string
	abbrev     string
	numbered   *regexp.Regexp // "Series N - rest"
	unnumbered *regexp.Regexp // "Series - rest"
}

// New compiles a rule set into a Normalizer. The set must already be
// validated; a pattern that fails to compile here is a programming defect.
func New(set *rules.Set) (*Normalizer, error) {
	n := &Normalizer{
		set:           set,
		parenSeries:   regexp.MustCompile(`^\s*\(([^)]+?)\s+(\d+)\)\s*`),
		bracketSeries: regexp.MustCompile(`\s*\[([^\]]+?)\s+(\d+)\]`),
	}

	for _, s := range set.Series {
		escaped := regexp.QuoteMeta(s.Name)
		numbered, err := regexp.Compile(`^` + escaped + `\s*(\d+)\s*[-\s]`)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Name, err)
		}
		unnumbered, err := regexp.Compile(`^` + escaped + `\s*-\s*`)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Name, err)
		}
		n.series = append(n.series, seriesMatcher{
			name:       s.Name,
			abbrev:     s.Abbrev,
			numbered:   numbered,
			unnumbered: unnumbered,
		})
	}

	for _, pattern := range set.NoisePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("noise pattern %q: %w", pattern, err)
		}
		n.noise = append(n.noise, re)
	}

	return n, nil
}

// Parse extracts structured metadata from a raw filename. It is total: the
// worst case is a ParsedMetadata whose Title is the cleaned input with every
// optional field absent.
func (n *Normalizer) Parse(rawName, ext string) models.ParsedMetadata {
	// Stage 1: strip extension and partial-download suffixes.
	base := strings.TrimSuffix(rawName, ext)
	base = strings.TrimSuffix(base, ".download")
	base = strings.TrimSuffix(base, ".crdownload")
	base = strings.TrimSpace(base)

	// Stage 2: series prefix, before the bracket sweep eats "[GTM 52]".
	series, base := n.extractSeries(base)

	// Stage 3: every remaining [...] span is an annotation, not metadata.
	base = bracketRegex.ReplaceAllString(base, "")

	// Stage 4: download-site markers, hashes, ISBN runs, bare domains.
	base = n.cleanNoise(base)

	// Stage 5: duplicate markers. Years are 4 digits, markers at most 2,
	// so "(1978)" survives this stage untouched.
	base = dupParenRegex.ReplaceAllString(base, "")
	base = dupDashRegex.ReplaceAllString(base, "")
	base = dupDashParenRegex.ReplaceAllString(base, " (")
	base = copyMarkerRegex.ReplaceAllString(base, "")

	// Stage 6: edition, before year extraction so "2nd Edition (2000)"
	// leaves a clean year behind.
	edition, base := extractEdition(base)

	// Stage 7: publication year, last occurrence wins.
	year := extractYear(base)

	// Stage 8: drop "(year, publisher)" and publisher/series parentheticals,
	// keeping non-matching ones (usually the author).
	base = n.cleanParentheticals(base, year)

	// Stage 9: volume, normalized in place and recorded separately.
	volume, base := extractVolume(base)

	// Stage 10: author/title split.
	authors, title := n.splitAuthorTitle(base)

	if title == "" {
		// Everything got stripped; fall back to the least-processed form.
		title = n.cleanTitle(strings.TrimSpace(strings.TrimSuffix(rawName, ext)))
		if title == "" {
			title = strings.TrimSpace(strings.TrimSuffix(rawName, ext))
		}
	}

	return models.ParsedMetadata{
		Authors: authors,
		Title:   title,
		Year:    year,
		Series:  series,
		Edition: edition,
		Volume:  volume,
	}
}

// Render builds the canonical filename from parsed metadata:
//
//	Authors - Title [ABBR N] (Year, Edition).ext
//
// Each optional clause is omitted cleanly when its field is absent.
func Render(md models.ParsedMetadata, ext string) string {
	var b strings.Builder

	if md.Authors != "" {
		b.WriteString(md.Authors)
		b.WriteString(" - ")
	}
	b.WriteString(md.Title)
	if md.Series != "" {
		fmt.Fprintf(&b, " [%s]", md.Series)
	}
	switch {
	case md.Year != 0 && md.Edition != "":
		fmt.Fprintf(&b, " (%d, %s)", md.Year, md.Edition)
	case md.Year != 0:
		fmt.Fprintf(&b, " (%d)", md.Year)
	case md.Edition != "":
		fmt.Fprintf(&b, " (%s)", md.Edition)
	}
	b.WriteString(ext)
	return b.String()
}

// NormalizeBatch parses every eligible file in the batch and assigns its
// canonical name and path. Flagged files (failed downloads, too-small) are
// left untouched per contract.
func (n *Normalizer) NormalizeBatch(files []*models.NormalizedFile) {
	for _, f := range files {
		if f.IsFailedDownload || f.IsTooSmall {
			continue
		}

		md := n.Parse(f.OriginalName, f.Extension)
		f.Meta = &md
		f.NewName = Render(md, f.Extension)
		f.NewPath = filepath.Join(filepath.Dir(f.OriginalPath), f.NewName)

		slog.Debug("normalized filename", "from", f.OriginalName, "to", f.NewName)
	}
}
