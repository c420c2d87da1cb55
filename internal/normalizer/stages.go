package normalizer

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bracketRegex      = regexp.MustCompile(`\s*\[[^\]]*\]`)
	dupParenRegex     = regexp.MustCompile(`[-\s]*\(\d{1,2}\)\s*$`)
	dupDashRegex      = regexp.MustCompile(`-\d{1,2}\s*$`)
	dupDashParenRegex = regexp.MustCompile(`-\d{1,2}\s+\(`)
	copyMarkerRegex   = regexp.MustCompile(`(?i)(?:\s+copy|\s*副本)\s*$`)
	yearRegex         = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	spaceRunRegex     = regexp.MustCompile(`\s+`)
	doubleSpaceRegex  = regexp.MustCompile(`\s{2,}`)
	// RE2 has no recursion; this matches one level of nesting and the
	// caller loops until a fixed point for deeper structures.
	nestedParenRegex = regexp.MustCompile(`\([^()]*(?:\([^()]*\)[^()]*)*\)`)
	simpleParenRegex = regexp.MustCompile(`\([^)]+\)`)

	editionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\s+[Ee]dition`),
		regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\s+[Ee]d\.?`),
		regexp.MustCompile(`[Ee]dition\s+(\d+)`),
	}

	volumePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bVol\.?\s+(\d+)\b`),
		regexp.MustCompile(`\bVolume\s+(\d+)\b`),
		regexp.MustCompile(`\bPart\s+(\d+)\b`),
	}
)

// extractSeries recognizes a known series at the start of the string in four
// shapes: "Series N - rest", "Series - rest", "(Series N) rest", and
// "[Series N] rest". The numbered forms record "ABBR N"; the bare form only
// strips the prefix.
func (n *Normalizer) extractSeries(s string) (string, string) {
	for _, sm := range n.series {
		if m := sm.numbered.FindStringSubmatch(s); m != nil {
			rest := strings.TrimSpace(sm.numbered.ReplaceAllString(s, ""))
			return sm.abbrev + " " + m[1], rest
		}
	}

	for _, sm := range n.series {
		if sm.unnumbered.MatchString(s) {
			return "", strings.TrimSpace(sm.unnumbered.ReplaceAllString(s, ""))
		}
	}

	if m := n.parenSeries.FindStringSubmatch(s); m != nil {
		if abbrev := n.lookupSeries(m[1]); abbrev != "" {
			rest := strings.TrimSpace(n.parenSeries.ReplaceAllString(s, ""))
			return abbrev + " " + m[2], rest
		}
	}

	if m := n.bracketSeries.FindStringSubmatch(s); m != nil {
		if abbrev := n.lookupSeries(m[1]); abbrev != "" {
			rest := strings.TrimSpace(n.bracketSeries.ReplaceAllString(s, ""))
			return abbrev + " " + m[2], rest
		}
	}

	return "", strings.TrimSpace(s)
}

func (n *Normalizer) lookupSeries(name string) string {
	lower := strings.ToLower(name)
	for _, sm := range n.series {
		if strings.Contains(lower, strings.ToLower(sm.name)) {
			return sm.abbrev
		}
		// Exact abbreviation match keeps already-canonical names stable
		// across a re-run.
		if lower == strings.ToLower(sm.abbrev) {
			return sm.abbrev
		}
	}
	return ""
}

// cleanNoise strips source/platform markers. The patterns can be chained or
// nested ("-- hash -- Anna's Archive"), so the sweep repeats until a fixed
// point, bounded at three passes.
func (n *Normalizer) cleanNoise(s string) string {
	for range 3 {
		before := s
		for _, re := range n.noise {
			s = re.ReplaceAllString(s, "")
		}
		if s == before {
			break
		}
	}
	return strings.TrimSpace(s)
}

// extractEdition recognizes "2nd Edition", "3rd ed.", and "Edition N",
// normalizing to "Nst/nd/rd/th ed" and removing the matched text.
func extractEdition(s string) (string, string) {
	for _, re := range editionPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		edition := m[1] + ordinalSuffix(m[1]) + " ed"
		return edition, strings.TrimSpace(re.ReplaceAllString(s, ""))
	}
	return "", strings.TrimSpace(s)
}

func ordinalSuffix(num string) string {
	switch num {
	case "1":
		return "st"
	case "2":
		return "nd"
	case "3":
		return "rd"
	}
	return "th"
}

// extractYear returns the last 4-digit token in 1900-2099, or 0. Later years
// in a string are more often the true publication date; earlier ones tend to
// be reprints or series founding dates.
func extractYear(s string) int {
	matches := yearRegex.FindAllString(s, -1)
	if len(matches) == 0 {
		return 0
	}
	year, err := strconv.Atoi(matches[len(matches)-1])
	if err != nil {
		return 0
	}
	return year
}

// cleanParentheticals removes "(year[, publisher])" and any parenthetical
// group whose content matches the publisher/series keyword tables. Nested
// groups are collapsed iteratively. Non-matching parentheticals, most often
// an author name, are preserved for the split stage.
func (n *Normalizer) cleanParentheticals(s string, year int) string {
	if year != 0 {
		yearParen := regexp.MustCompile(`\s*\(\s*` + strconv.Itoa(year) + `\s*(?:,\s*[^)]+)?\s*\)`)
		s = yearParen.ReplaceAllString(s, "")
	}

	for {
		changed := false
		s = nestedParenRegex.ReplaceAllStringFunc(s, func(m string) string {
			if n.isPublisherOrSeriesInfo(m) {
				changed = true
				return ""
			}
			return m
		})
		if !changed {
			break
		}
	}

	s = simpleParenRegex.ReplaceAllStringFunc(s, func(m string) string {
		if n.isPublisherOrSeriesInfo(m) {
			return ""
		}
		return m
	})

	s = spaceRunRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// extractVolume detects "Vol N" / "Volume N" / "Part N", rewrites the match
// to "Vol N" in place (volume stays inside the title), and records it.
func extractVolume(s string) (string, string) {
	for _, re := range volumePatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		volume := "Vol " + m[1]
		return volume, re.ReplaceAllString(s, volume)
	}
	return "", s
}
