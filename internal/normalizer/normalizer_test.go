package normalizer

import (
	"strings"
	"testing"

	"github.com/shelver-tools/shelver/internal/models"
	"github.com/shelver-tools/shelver/internal/rules"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(rules.Default())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return n
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		authors string
		title   string
		year    int
		series  string
		edition string
		volume  string
	}{
		{
			name:    "simple author dash title",
			input:   "John Smith - Sample Book Title.pdf",
			authors: "John Smith",
			title:   "Sample Book Title",
		},
		{
			name:    "year with publisher",
			input:   "Jane Doe - Another Title (2020, Publisher).pdf",
			authors: "Jane Doe",
			title:   "Another Title",
			year:    2020,
		},
		{
			name:    "initials in author",
			input:   "B. R. Tennison - Sheaf Theory (1976).pdf",
			authors: "B. R. Tennison",
			title:   "Sheaf Theory",
			year:    1976,
		},
		{
			name:    "numbered series prefix",
			input:   "Graduate Texts in Mathematics 52 - Saunders Mac Lane - Categories for the Working Mathematician (1978).pdf",
			authors: "Saunders Mac Lane",
			title:   "Categories for the Working Mathematician",
			year:    1978,
			series:  "GTM 52",
		},
		{
			name:    "series prefix without volume",
			input:   "London Mathematical Society Lecture Note Series - B. R. Tennison - Sheaf Theory.pdf",
			authors: "B. R. Tennison",
			title:   "Sheaf Theory",
		},
		{
			name:    "parenthesized series",
			input:   "(Cambridge Studies in Advanced Mathematics 218) John Lee - Introduction to Smooth Manifolds (2012).pdf",
			authors: "John Lee",
			title:   "Introduction to Smooth Manifolds",
			year:    2012,
			series:  "CSAM 218",
		},
		{
			name:    "uppercase series in parens",
			input:   "(CAMBRIDGE STUDIES IN ADVANCED MATHEMATICS 184) Ciprian Demeter - Fourier Restriction, Decoupling, and Applications-Cambridge University Press (2020).pdf",
			authors: "Ciprian Demeter",
			title:   "Fourier Restriction, Decoupling, and Applications",
			year:    2020,
			series:  "CSAM 184",
		},
		{
			name:    "edition spelled out",
			input:   "James Munkres - Topology - 2nd Edition (2000).pdf",
			authors: "James Munkres",
			title:   "Topology",
			year:    2000,
			edition: "2nd ed",
		},
		{
			name:    "edition abbreviated",
			input:   "Walter Rudin - Principles of Mathematical Analysis 3rd ed (1976).pdf",
			authors: "Walter Rudin",
			title:   "Principles of Mathematical Analysis",
			year:    1976,
			edition: "3rd ed",
		},
		{
			name:    "volume kept in title",
			input:   "Michael Spivak - Differential Geometry Vol 2 (1979).pdf",
			authors: "Michael Spivak",
			title:   "Differential Geometry Vol 2",
			year:    1979,
			volume:  "Vol 2",
		},
		{
			name:    "volume keyword normalized",
			input:   "Knuth - The Art of Computer Programming Volume 1.pdf",
			authors: "Knuth",
			title:   "The Art of Computer Programming Vol 1",
			volume:  "Vol 1",
		},
		{
			name:    "z-library marker",
			input:   "Daniel Huybrechts - Fourier-Mukai transforms in algebraic geometry (z-Library).pdf",
			authors: "Daniel Huybrechts",
			title:   "Fourier-Mukai transforms in algebraic geometry",
		},
		{
			name:    "libgen suffix with publisher parenthetical",
			input:   "Ernst Kunz, Richard G. Belshoff - Introduction to Plane Algebraic Curves (2005, Birkhäuser) - libgen.li.pdf",
			authors: "Ernst Kunz, Richard G. Belshoff",
			title:   "Introduction to Plane Algebraic Curves",
			year:    2005,
		},
		{
			name:    "hash and archive chain",
			input:   "Masaki Kashiwara - Systems of microdifferential equations -- 9780817631383 -- b3ab25f14db594eb0188171e0dd81250 -- Anna's Archive.pdf",
			authors: "Masaki Kashiwara",
			title:   "Systems of microdifferential equations",
		},
		{
			name:    "trailing author in parens",
			input:   "From Quantum Cohomology to Integrable Systems (Martin A. Guest).pdf",
			authors: "Martin A. Guest",
			title:   "From Quantum Cohomology to Integrable Systems",
		},
		{
			name:    "multi-author trailing parenthetical keeps commas",
			input:   "Lectures on harmonic analysis (Thomas H. Wolff, Izabella Aba, Carol Shubin).pdf",
			authors: "Thomas H. Wolff, Izabella Aba, Carol Shubin",
			title:   "Lectures on harmonic analysis",
		},
		{
			name:    "single-word comma pair joined",
			input:   "Higher Dimensional Categories From Double To Multiple Categories (Marco, Grandis).pdf",
			authors: "Marco Grandis",
			title:   "Higher Dimensional Categories From Double To Multiple Categories",
		},
		{
			name:    "cjk author",
			input:   "文革时期中国农村的集体杀戮 Collective Killings in Rural China during the Cultural Revolution (苏阳).pdf",
			authors: "苏阳",
			title:   "文革时期中国农村的集体杀戮 Collective Killings in Rural China during the Cultural Revolution",
		},
		{
			name:    "bracketed annotation removed",
			input:   "Introduction to Category Theory and Categorical Logic [Lecture notes] (Thomas Streicher).pdf",
			authors: "Thomas Streicher",
			title:   "Introduction to Category Theory and Categorical Logic",
		},
		{
			name:    "nested publisher parenthetical",
			input:   "Theory of Categories (Pure and Applied Mathematics (Academic Press)) (Barry Mitchell).pdf",
			authors: "Barry Mitchell",
			title:   "Theory of Categories",
		},
		{
			name:  "trailing asin id",
			input: "Math History A Long-Form Mathematics Textbook (The Long-Form Math Textbook Series)-B0F5TFL6ZQ.pdf",
			title: "Math History A Long-Form Mathematics Textbook",
		},
		{
			name:    "strict publisher suffix without spaces",
			input:   "(Cambridge Studies in Advanced Mathematics 201) Jan van Neerven - Functional Analysis-Cambridge University Press.pdf",
			authors: "Jan van Neerven",
			title:   "Functional Analysis",
			series:  "CSAM 201",
		},
		{
			name:    "underscore separators and cup suffix",
			input:   "(Cambridge Studies in Advanced Mathematics 123) Gregory F. Lawler, Vlada Limic - Random walk_ A modern introduction-CUP (2010).pdf",
			authors: "Gregory F. Lawler, Vlada Limic",
			title:   "Random walk A modern introduction",
			year:    2010,
			series:  "CSAM 123",
		},
		{
			name:  "duplicate marker not confused with year",
			input: "Some Treatise (1978) (2).pdf",
			title: "Some Treatise",
			year:  1978,
		},
		{
			name:  "no structural cues",
			input: "just some notes.txt",
			title: "just some notes",
		},
	}

	n := newTestNormalizer(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := tt.input[strings.LastIndex(tt.input, "."):]
			md := n.Parse(tt.input, ext)

			if md.Authors != tt.authors {
				t.Errorf("authors = %q, want %q", md.Authors, tt.authors)
			}
			if md.Title != tt.title {
				t.Errorf("title = %q, want %q", md.Title, tt.title)
			}
			if md.Year != tt.year {
				t.Errorf("year = %d, want %d", md.Year, tt.year)
			}
			if md.Series != tt.series {
				t.Errorf("series = %q, want %q", md.Series, tt.series)
			}
			if md.Edition != tt.edition {
				t.Errorf("edition = %q, want %q", md.Edition, tt.edition)
			}
			if md.Volume != tt.volume {
				t.Errorf("volume = %q, want %q", md.Volume, tt.volume)
			}
		})
	}
}

func TestSeriesPrefixMatchesExactCase(t *testing.T) {
	n := newTestNormalizer(t)

	// Prefix forms match the configured name exactly as written; only the
	// parenthesized and bracketed forms fold case.
	md := n.Parse("graduate texts in mathematics 52 - Saunders Mac Lane - Categories for the Working Mathematician (1978).pdf", ".pdf")
	if md.Series != "" {
		t.Errorf("lowercased prefix extracted series %q, want none", md.Series)
	}

	md = n.Parse("Graduate Texts in Mathematics 52 - Saunders Mac Lane - Categories for the Working Mathematician (1978).pdf", ".pdf")
	if md.Series != "GTM 52" {
		t.Errorf("exact-case prefix series = %q, want GTM 52", md.Series)
	}
}

func TestParseNeverReturnsEmptyTitle(t *testing.T) {
	n := newTestNormalizer(t)

	inputs := []string{
		"book.pdf",
		"a.pdf",
		"-- b3ab25f14db594eb0188171e0dd81250 --.pdf",
		"(Springer).pdf",
	}
	for _, input := range inputs {
		md := n.Parse(input, ".pdf")
		if strings.TrimSpace(md.Title) == "" {
			t.Errorf("Parse(%q) produced an empty title", input)
		}
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		md   models.ParsedMetadata
		want string
	}{
		{
			name: "author title year",
			md:   models.ParsedMetadata{Authors: "John Smith", Title: "Great Book", Year: 2015},
			want: "John Smith - Great Book (2015).pdf",
		},
		{
			name: "no year",
			md:   models.ParsedMetadata{Authors: "Jane Doe", Title: "Another Book"},
			want: "Jane Doe - Another Book.pdf",
		},
		{
			name: "series",
			md: models.ParsedMetadata{
				Authors: "Saunders Mac Lane",
				Title:   "Categories for the Working Mathematician",
				Year:    1978,
				Series:  "GTM 52",
			},
			want: "Saunders Mac Lane - Categories for the Working Mathematician [GTM 52] (1978).pdf",
		},
		{
			name: "edition with year",
			md:   models.ParsedMetadata{Authors: "James Munkres", Title: "Topology", Year: 2000, Edition: "2nd ed"},
			want: "James Munkres - Topology (2000, 2nd ed).pdf",
		},
		{
			name: "edition without year",
			md:   models.ParsedMetadata{Title: "Topology", Edition: "2nd ed"},
			want: "Topology (2nd ed).pdf",
		},
		{
			name: "no author",
			md:   models.ParsedMetadata{Title: "Anonymous Work", Year: 1999},
			want: "Anonymous Work (1999).pdf",
		},
		{
			name: "everything",
			md: models.ParsedMetadata{
				Authors: "Author Name",
				Title:   "Book Title Vol 3",
				Year:    2020,
				Series:  "CSAM 100",
				Edition: "2nd ed",
				Volume:  "Vol 3",
			},
			want: "Author Name - Book Title Vol 3 [CSAM 100] (2020, 2nd ed).pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.md, ".pdf"); got != tt.want {
				t.Errorf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

// A rendered name always contains the extracted title verbatim.
func TestRenderContainsTitle(t *testing.T) {
	n := newTestNormalizer(t)

	inputs := []string{
		"John Smith - Sample Book Title.pdf",
		"Graduate Texts in Mathematics 52 - Saunders Mac Lane - Categories for the Working Mathematician (1978).pdf",
		"Wavelets Theory and Its Applications A First Course (Mani Mehra) (Z-Library).pdf",
		"random_scan_0001.pdf",
	}
	for _, input := range inputs {
		md := n.Parse(input, ".pdf")
		if !strings.Contains(Render(md, ".pdf"), md.Title) {
			t.Errorf("render of %q does not contain title %q", input, md.Title)
		}
	}
}

// Re-parsing a canonical name must not wrap the author or year a second
// time: render(parse(render(parse(x)))) == render(parse(x)).
func TestRoundTripStable(t *testing.T) {
	n := newTestNormalizer(t)

	inputs := []string{
		"Graduate Texts in Mathematics 52 - Saunders Mac Lane - Categories for the Working Mathematician (1978).pdf",
		"James Munkres - Topology - 2nd Edition (2000).pdf",
		"Jane Doe - Another Title (2020, Publisher).pdf",
		"From Quantum Cohomology to Integrable Systems (Martin A. Guest).pdf",
	}
	for _, input := range inputs {
		first := Render(n.Parse(input, ".pdf"), ".pdf")
		second := Render(n.Parse(first, ".pdf"), ".pdf")
		if first != second {
			t.Errorf("round trip unstable for %q:\n first = %q\nsecond = %q", input, first, second)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		input string
		want  string
	}{
		{"Title", "Title"},
		{"Title (auth.)", "Title"},
		{"Title with  double  spaces", "Title with double spaces"},
		{"Title -", "Title"},
		{"Title :", "Title"},
		{"Title ;", "Title"},
		{"Title - Uploaded by user123", "Title"},
		{"Title-9780262046305", "Title"},
	}
	for _, tt := range tests {
		if got := n.cleanTitle(tt.input); got != tt.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRepairBrackets(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Sample_Title_With_Underscores", "Sample Title With Underscores"},
		{"Title (Part 1", "Title Part 1"},
		{"Title [Part 1", "Title Part 1"},
		{"Title (Part [1", "Title Part 1"},
		{"Title (kept) intact", "Title (kept) intact"},
		{"Title ) stray", "Title stray"},
	}
	for _, tt := range tests {
		if got := repairBrackets(tt.input); got != tt.want {
			t.Errorf("repairBrackets(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsLikelyAuthor(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		input string
		want  bool
	}{
		{"Saunders Mac Lane", true},
		{"苏阳", true},
		{"Masaki Kashiwara", true},
		{"x", false},
		{"123456", false},
		{"123-456_789", false},
		{"John Smith translator", false},
		{"Z-Library", false},
	}
	for _, tt := range tests {
		if got := n.isLikelyAuthor(tt.input); got != tt.want {
			t.Errorf("isLikelyAuthor(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCleanAuthorName(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		input string
		want  string
	}{
		{"Marco, Grandis", "Marco Grandis"},
		{"Smith, John Q.", "Smith, John Q."},
		{"Thomas H. Wolff, Izabella Aba, Carol Shubin", "Thomas H. Wolff, Izabella Aba, Carol Shubin"},
		{"Jane Doe (auth.)", "Jane Doe"},
		{"Jane Doe (ed.)", "Jane Doe"},
		{"Jane Doe (translator)", "Jane Doe"},
	}
	for _, tt := range tests {
		if got := n.cleanAuthorName(tt.input); got != tt.want {
			t.Errorf("cleanAuthorName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeBatchSkipsFlaggedFiles(t *testing.T) {
	n := newTestNormalizer(t)

	files := []*models.NormalizedFile{
		{FileDescriptor: models.FileDescriptor{
			OriginalPath: "/books/John Smith - Fine Book.pdf",
			OriginalName: "John Smith - Fine Book.pdf",
			Extension:    ".pdf",
		}},
		{FileDescriptor: models.FileDescriptor{
			OriginalPath:     "/books/broken.pdf.download",
			OriginalName:     "broken.pdf.download",
			Extension:        ".download",
			IsFailedDownload: true,
		}},
		{FileDescriptor: models.FileDescriptor{
			OriginalPath: "/books/tiny.pdf",
			OriginalName: "tiny.pdf",
			Extension:    ".pdf",
			IsTooSmall:   true,
		}},
	}

	n.NormalizeBatch(files)

	if !files[0].Normalized() {
		t.Error("eligible file was not normalized")
	}
	if files[0].Meta == nil || files[0].Meta.Title == "" {
		t.Error("eligible file has no parsed metadata")
	}
	if files[1].Normalized() || files[1].Meta != nil {
		t.Error("failed download must not be normalized")
	}
	if files[2].Normalized() || files[2].Meta != nil {
		t.Error("too-small file must not be normalized")
	}
}
