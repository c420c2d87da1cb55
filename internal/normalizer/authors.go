package normalizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	trailingAuthorRegex = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)\s*$`)
	separatorRegex      = regexp.MustCompile(`^(.+?)\s*(?:--|[-:])\s+(.+)$`)
	multiAuthorRegex    = regexp.MustCompile(`^([A-Z][^:]+?),\s*([A-Z][^:]+?)\s*(?:--|[-:])\s+(.+)$`)
	semicolonRegex      = regexp.MustCompile(`^(.+?)\s*;\s*(.+)$`)

	authorNoiseRegexes = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(auth\.?\)`),
		regexp.MustCompile(`\s*\(author\)`),
		regexp.MustCompile(`\s*\(eds?\.?\)`),
		regexp.MustCompile(`\s*\(translator\)`),
	}

	titleAuthRegex      = regexp.MustCompile(`\s*\([Aa]uth\.?\)`)
	trailingIDRegex     = regexp.MustCompile(`[-_][A-Za-z0-9]{8,}$`)
	hexRunRegex         = regexp.MustCompile(`[a-f0-9]{8,}`)
	alnumRunRegex       = regexp.MustCompile(`[A-Za-z0-9]{16,}`)
	digitsAndSepsOnlyRe = regexp.MustCompile(`^[\d\-_]+$`)
)

// splitAttempt is one candidate author/title pattern. Attempts run in fixed
// order; the first one that produces a valid split wins.
type splitAttempt struct {
	name string
	try  func(n *Normalizer, s string) (authors, title string, ok bool)
}

var splitAttempts = []splitAttempt{
	{"trailing-author", tryTrailingAuthor},
	{"dash-separator", trySeparator},
	{"comma-authors", tryMultiAuthor},
	{"semicolon-author", trySemicolon},
}

// splitAuthorTitle tries each candidate pattern in order. When none matches,
// the whole remainder becomes the title with no author.
func (n *Normalizer) splitAuthorTitle(s string) (string, string) {
	s = strings.TrimSpace(s)

	for _, attempt := range splitAttempts {
		if authors, title, ok := attempt.try(n, s); ok {
			return authors, title
		}
	}
	return "", n.cleanTitle(s)
}

// "Title (Author)": the parenthetical must pass the author heuristic and
// fail the publisher heuristic, otherwise a publisher note would be promoted
// to authorship.
func tryTrailingAuthor(n *Normalizer, s string) (string, string, bool) {
	m := trailingAuthorRegex.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	if !n.isLikelyAuthor(m[2]) || n.isPublisherOrSeriesInfo("("+m[2]+")") {
		return "", "", false
	}
	return n.cleanAuthorName(m[2]), n.cleanTitle(m[1]), true
}

// "Author - Title", "Author: Title", "Author -- Title".
func trySeparator(n *Normalizer, s string) (string, string, bool) {
	m := separatorRegex.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	if !n.isLikelyAuthor(m[1]) || strings.TrimSpace(m[2]) == "" {
		return "", "", false
	}
	return n.cleanAuthorName(m[1]), n.cleanTitle(m[2]), true
}

// "Author1, Author2 - Title".
func tryMultiAuthor(n *Normalizer, s string) (string, string, bool) {
	m := multiAuthorRegex.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	if !n.isLikelyAuthor(m[1]) || !n.isLikelyAuthor(m[2]) {
		return "", "", false
	}
	authors := n.cleanAuthorName(m[1]) + ", " + n.cleanAuthorName(m[2])
	return authors, n.cleanTitle(m[3]), true
}

// "Title; Author".
func trySemicolon(n *Normalizer, s string) (string, string, bool) {
	m := semicolonRegex.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	if !n.isLikelyAuthor(m[2]) || n.isPublisherOrSeriesInfo(m[2]) {
		return "", "", false
	}
	return n.cleanAuthorName(m[2]), n.cleanTitle(m[1]), true
}

// isLikelyAuthor accepts a string as a plausible author name. Uppercase
// Latin letters OR any non-ASCII alphabetic character qualify, so CJK and
// Cyrillic names (which have no uppercase concept) pass.
func (n *Normalizer) isLikelyAuthor(s string) bool {
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) < 2 {
		return false
	}

	for _, stopword := range n.set.AuthorStopwords {
		if strings.Contains(s, stopword) {
			return false
		}
	}

	// Pure digit/ID tokens are never names.
	if digitsAndSepsOnlyRe.MatchString(s) {
		return false
	}

	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
		if unicode.IsLetter(r) && r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

// cleanAuthorName strips role annotations and joins a single "Last, First"
// pair into "First Last" only when both sides are exactly one word. True
// multi-author comma lists and multi-word "Last, First" forms keep their
// commas.
func (n *Normalizer) cleanAuthorName(s string) string {
	s = strings.TrimSpace(s)

	for _, re := range authorNoiseRegexes {
		s = re.ReplaceAllString(s, "")
	}

	if strings.Count(s, ",") == 1 {
		if idx := strings.Index(s, ", "); idx >= 0 {
			before := strings.TrimSpace(s[:idx])
			after := strings.TrimSpace(s[idx+2:])
			if len(strings.Fields(before)) == 1 && len(strings.Fields(after)) == 1 {
				s = before + " " + after
			}
		}
	}

	s = doubleSpaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// isPublisherOrSeriesInfo reports whether a span of text (usually a
// parenthetical) looks like publisher, series, or source noise rather than
// an author name. Keyword comparison is case-insensitive.
func (n *Normalizer) isPublisherOrSeriesInfo(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range n.set.PublisherKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}

	// Hash-looking runs: 8+ hex or 16+ alphanumeric characters.
	if hexRunRegex.MatchString(s) && len(s) > 8 {
		return true
	}
	if alnumRunRegex.MatchString(s) && len(s) > 16 {
		return true
	}

	// Mostly numbers and punctuation reads as series/catalog info.
	hasDigit := strings.ContainsFunc(s, unicode.IsDigit)
	nonLetter := 0
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' {
			nonLetter++
		}
	}
	return hasDigit && nonLetter > 2
}

// isStrictPublisherInfo is the narrow check used only for un-spaced
// "-Publisher" suffixes, where a loose match would eat part of the title.
func (n *Normalizer) isStrictPublisherInfo(s string) bool {
	for _, kw := range n.set.StrictPublishers {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// cleanTitle removes residual markers from a title candidate: "(auth.)"
// notes, trailing ID-like suffixes, trailing publisher names, orphaned
// brackets, doubled spaces, and stray leading/trailing punctuation.
func (n *Normalizer) cleanTitle(s string) string {
	s = strings.TrimSpace(s)

	s = titleAuthRegex.ReplaceAllString(s, "")
	s = trailingIDRegex.ReplaceAllString(s, "")

	if idx := strings.LastIndex(s, " - "); idx >= 0 {
		if n.isPublisherOrSeriesInfo(s[idx+3:]) {
			s = s[:idx]
		}
	}
	if idx := strings.LastIndex(s, "-"); idx > 0 && idx < len(s)-1 {
		if n.isStrictPublisherInfo(strings.TrimSpace(s[idx+1:])) {
			s = s[:idx]
		}
	}

	s = repairBrackets(s)
	s = spaceRunRegex.ReplaceAllString(s, " ")
	s = strings.Trim(s, "-:,;. ")
	return strings.TrimSpace(s)
}

// repairBrackets deletes unbalanced parentheses and square brackets: a
// closing character with no matching open, and an opening character that is
// never closed. Removed characters become spaces so surrounding words do not
// fuse. Underscores are separator noise and become spaces too.
func repairBrackets(s string) string {
	out := []rune(strings.TrimSpace(s))

	var openParens, openBrackets []int
	for i, r := range out {
		switch r {
		case '(':
			openParens = append(openParens, i)
		case ')':
			if len(openParens) > 0 {
				openParens = openParens[:len(openParens)-1]
			} else {
				out[i] = ' '
			}
		case '[':
			openBrackets = append(openBrackets, i)
		case ']':
			if len(openBrackets) > 0 {
				openBrackets = openBrackets[:len(openBrackets)-1]
			} else {
				out[i] = ' '
			}
		case '_':
			out[i] = ' '
		}
	}
	for _, i := range openParens {
		out[i] = ' '
	}
	for _, i := range openBrackets {
		out[i] = ' '
	}

	result := doubleSpaceRegex.ReplaceAllString(string(out), " ")
	return strings.TrimSpace(result)
}
