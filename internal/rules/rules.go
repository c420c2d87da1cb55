// Package rules holds the keyword and pattern tables that drive filename
// normalization. The tables are immutable configuration: built once at
// startup (from the built-in defaults or a YAML file) and injected into the
// normalizer, so tests can run against synthetic tables.
package rules

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Series maps a full series name to the abbreviation used in canonical
// filenames, e.g. "Graduate Texts in Mathematics" -> "GTM".
type Series struct {
	Name   string `yaml:"name"`
	Abbrev string `yaml:"abbrev"`
}

// Set is the complete rule configuration consumed by the normalizer.
type Set struct {
	// Series recognized as filename prefixes ("Series N - rest",
	// "(Series N) rest", ...). Prefix forms match the name exactly as
	// written; the parenthesized and bracketed forms are case-insensitive.
	Series []Series `yaml:"series"`

	// PublisherKeywords mark a parenthetical as publisher/series noise.
	// Substring match, used by the loose publisher check.
	PublisherKeywords []string `yaml:"publisher_keywords"`

	// StrictPublishers is the narrower list used when stripping an
	// un-spaced "-Publisher" suffix from a title, where a false positive
	// would eat part of the title itself.
	StrictPublishers []string `yaml:"strict_publishers"`

	// NoisePatterns are regular expressions for source/platform markers
	// (download sites, hashes, ISBN runs, "uploaded by", bare domains).
	// Applied repeatedly until a fixed point.
	NoisePatterns []string `yaml:"noise_patterns"`

	// AuthorStopwords disqualify a string from being treated as an author.
	AuthorStopwords []string `yaml:"author_stopwords"`
}

// Default returns the built-in rule set.
func Default() *Set {
	return &Set{
		Series: []Series{
			{Name: "Graduate Texts in Mathematics", Abbrev: "GTM"},
			{Name: "Cambridge Studies in Advanced Mathematics", Abbrev: "CSAM"},
			{Name: "London Mathematical Society Lecture Note Series", Abbrev: "LMSLN"},
			{Name: "Progress in Mathematics", Abbrev: "PM"},
			{Name: "Springer Undergraduate Mathematics Series", Abbrev: "SUMS"},
			{Name: "Graduate Studies in Mathematics", Abbrev: "GSM"},
			{Name: "AMS Mathematical Surveys and Monographs", Abbrev: "AMS-MSM"},
			{Name: "Oxford Graduate Texts in Mathematics", Abbrev: "OGTM"},
			{Name: "Springer Monographs in Mathematics", Abbrev: "SMM"},
		},
		PublisherKeywords: []string{
			"Press", "Publishing", "Academic Press", "Springer", "Cambridge",
			"Oxford", "MIT Press", "Series", "Textbook Series", "Graduate Texts",
			"Graduate Studies", "Lecture Notes", "Pure and Applied", "Mathematics",
			"Foundations of", "Monographs", "Studies", "Collection", "Textbook",
			"Edition", "Kindle Edition", "Vol.", "Volume", "No.", "Part",
			"理工", "出版社", "中文版", "の",
			"Z-Library", "libgen", "Anna's Archive",
		},
		StrictPublishers: []string{
			"Press", "Publishing", "Springer", "Cambridge", "Oxford", "MIT",
			"Wiley", "Elsevier", "Routledge", "Pearson", "McGraw", "Addison",
			"Prentice", "O'Reilly", "Princeton", "Harvard", "Yale", "Stanford",
			"Chicago", "California", "Columbia", "University", "Verlag",
			"Birkhäuser", "CUP",
		},
		NoisePatterns: []string{
			// Z-Library variants
			`\s*[-(]?\s*[zZ]-?Library\s*[).]?`,
			// libgen variants
			`\s*[-(]?\s*libgen(?:\.li)?\s*[).]?`,
			// Anna's Archive, including forms stuck to other words
			`Anna'?s?\s*Archive`,
			`\s*[-(]?\s*Anna'?s?\s+Archive\s*[).]?`,
			// MD5/SHA-looking hex runs
			`\s*--\s*[a-f0-9]{32}\s*(?:--)?`,
			// ISBN-like digit runs
			`\s*--\s*\d{10,13}\s*(?:--)?`,
			// Long opaque IDs
			`\s*--\s*[A-Za-z0-9]{16,}\s*(?:--)?`,
			`\s*--\s*[a-f0-9]{8,}\s*(?:--)?`,
			// Attribution phrases
			`\s*[-(]?\s*[Uu]ploaded by\s+[^)\-]+[).]?`,
			`\s*[-(]?\s*[Vv]ia\s+[^)\-]+[).]?`,
			// Bare URLs and domains
			`\s*[-(]?\s*w{3}\.[a-zA-Z0-9-]+\.[a-z]{2,}\s*[).]?`,
			`\s*[-(]?\s*[a-zA-Z0-9-]+\.(?:com|org|net|edu|io)\s*[).]?`,
		},
		AuthorStopwords: []string{
			"auth.", "translator", "translated by",
			"Z-Library", "2-Library", "libgen", "Anna's Archive",
		},
	}
}

// Load reads a rule set from a YAML file and validates it. Fields left empty
// in the file fall back to the built-in defaults.
func Load(path string) (*Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	set := &Set{}
	if err := yaml.Unmarshal(raw, set); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	def := Default()
	if len(set.Series) == 0 {
		set.Series = def.Series
	}
	if len(set.PublisherKeywords) == 0 {
		set.PublisherKeywords = def.PublisherKeywords
	}
	if len(set.StrictPublishers) == 0 {
		set.StrictPublishers = def.StrictPublishers
	}
	if len(set.NoisePatterns) == 0 {
		set.NoisePatterns = def.NoisePatterns
	}
	if len(set.AuthorStopwords) == 0 {
		set.AuthorStopwords = def.AuthorStopwords
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return set, nil
}

// Validate rejects malformed table entries. A bad entry is a configuration
// defect, so callers are expected to fail at startup rather than limp along.
func (s *Set) Validate() error {
	for i, series := range s.Series {
		if series.Name == "" {
			return fmt.Errorf("series entry %d has an empty name", i)
		}
		if series.Abbrev == "" {
			return fmt.Errorf("series %q has an empty abbreviation", series.Name)
		}
	}
	for i, kw := range s.PublisherKeywords {
		if kw == "" {
			return fmt.Errorf("publisher keyword %d is empty", i)
		}
	}
	for i, kw := range s.StrictPublishers {
		if kw == "" {
			return fmt.Errorf("strict publisher %d is empty", i)
		}
	}
	for _, pattern := range s.NoisePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("noise pattern %q does not compile: %w", pattern, err)
		}
	}
	for i, kw := range s.AuthorStopwords {
		if kw == "" {
			return fmt.Errorf("author stopword %d is empty", i)
		}
	}
	return nil
}
