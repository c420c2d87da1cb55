package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shelver-tools/shelver/internal/executor"
	"github.com/shelver-tools/shelver/internal/models"
)

func testPrinter(quiet bool) (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Printer{out: &buf, quiet: quiet}, &buf
}

func renamedFile(name, newName string) *models.NormalizedFile {
	return &models.NormalizedFile{
		FileDescriptor: models.FileDescriptor{
			OriginalPath: "/lib/" + name,
			OriginalName: name,
		},
		NewName: newName,
	}
}

func TestRenames(t *testing.T) {
	p, buf := testPrinter(false)
	p.Renames([]*models.NormalizedFile{
		renamedFile("messy.pdf", "Author - Title.pdf"),
		renamedFile("Already Good.pdf", "Already Good.pdf"),
		renamedFile("flagged.pdf", ""),
	})

	out := buf.String()
	if !strings.Contains(out, "Renames (1)") {
		t.Errorf("missing section header: %q", out)
	}
	if !strings.Contains(out, "messy.pdf") || !strings.Contains(out, "Author - Title.pdf") {
		t.Errorf("rename line missing: %q", out)
	}
	if strings.Contains(out, "Already Good.pdf") {
		t.Errorf("identity rename printed: %q", out)
	}
}

func TestRenamesEmpty(t *testing.T) {
	p, buf := testPrinter(false)
	p.Renames(nil)
	if !strings.Contains(buf.String(), "no renames needed") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestDuplicates(t *testing.T) {
	p, buf := testPrinter(false)
	group := models.DuplicateGroup{Files: []*models.NormalizedFile{
		renamedFile("keep.pdf", ""),
		renamedFile("dupe.pdf", ""),
	}}

	p.Duplicates([]models.DuplicateGroup{group}, false)
	out := buf.String()
	for _, want := range []string{"KEEP", "DELETE", "/lib/keep.pdf", "/lib/dupe.pdf"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}

	buf.Reset()
	p.Duplicates([]models.DuplicateGroup{group}, true)
	if !strings.Contains(buf.String(), "no-delete mode") {
		t.Errorf("no-delete marker missing: %q", buf.String())
	}
}

func TestCleanupAndSummary(t *testing.T) {
	p, buf := testPrinter(false)
	p.Cleanup([]executor.CleanupTarget{{Path: "/lib/tiny.pdf", Reason: "too_small"}})
	p.ApplySummary(executor.Summary{Renamed: 3, Cleaned: 1, Errors: []string{"boom"}})

	out := buf.String()
	for _, want := range []string{"Cleanup (1)", "[too_small]", "tiny.pdf", "renamed", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestQuietSuppressesEverything(t *testing.T) {
	p, buf := testPrinter(true)
	p.DryRunBanner()
	p.ScanStart("/lib")
	p.ScanComplete(10)
	p.Renames([]*models.NormalizedFile{renamedFile("a.pdf", "b.pdf")})
	p.Duplicates([]models.DuplicateGroup{{Files: []*models.NormalizedFile{
		renamedFile("x.pdf", ""), renamedFile("y.pdf", ""),
	}}}, false)
	p.Cleanup([]executor.CleanupTarget{{Path: "/lib/tiny.pdf", Reason: "too_small"}})
	p.TodoItems([][2]string{{"failed_download", "item"}})
	p.ApplySummary(executor.Summary{Renamed: 1})
	p.Success("done")
	p.Warning("careful")
	p.Info("note")

	if buf.Len() != 0 {
		t.Errorf("quiet printer produced output: %q", buf.String())
	}
}
