package inventory

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shelver-tools/shelver/internal/models"
)

type stubDigester struct {
	sums map[string]string
}

func (d stubDigester) Digest(path string) (string, error) {
	sum, ok := d.sums[path]
	if !ok {
		return "", errors.New("no content for " + path)
	}
	return sum, nil
}

func sampleFile(path string, size int64) *models.NormalizedFile {
	return &models.NormalizedFile{
		FileDescriptor: models.FileDescriptor{
			OriginalPath: path,
			OriginalName: filepath.Base(path),
			Extension:    filepath.Ext(path),
			Size:         size,
			ModifiedTime: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		Meta: &models.ParsedMetadata{
			Authors: "Graham, Knuth, Patashnik",
			Title:   "Concrete Mathematics",
			Year:    1994,
			Edition: "2nd ed",
		},
		NewName: "Graham, Knuth, Patashnik - Concrete Mathematics (1994, 2nd ed).pdf",
	}
}

func TestBuild(t *testing.T) {
	files := []*models.NormalizedFile{
		sampleFile("/lib/concrete.pdf", 4096),
		{
			FileDescriptor: models.FileDescriptor{
				OriginalPath:     "/lib/broken.pdf.download",
				OriginalName:     "broken.pdf.download",
				IsFailedDownload: true,
			},
		},
		{
			FileDescriptor: models.FileDescriptor{
				OriginalPath: "/lib/cloud.epub",
				OriginalName: "cloud.epub",
				Extension:    ".epub",
				Size:         2048,
				Cloud:        models.CloudMetadata{DropboxContentHash: "abc123"},
			},
		},
		{
			FileDescriptor: models.FileDescriptor{
				OriginalPath: "/lib/unreadable.pdf",
				OriginalName: "unreadable.pdf",
				Extension:    ".pdf",
				Size:         2048,
			},
		},
	}
	digester := stubDigester{sums: map[string]string{"/lib/concrete.pdf": "deadbeef"}}

	records := Build(files, digester)

	if len(records) != 3 {
		t.Fatalf("Build returned %d records, want 3", len(records))
	}

	first := records[0]
	if first.Path != "/lib/concrete.pdf" {
		t.Errorf("Path = %q", first.Path)
	}
	if first.CanonicalName != "Graham, Knuth, Patashnik - Concrete Mathematics (1994, 2nd ed).pdf" {
		t.Errorf("CanonicalName = %q", first.CanonicalName)
	}
	if first.Authors != "Graham, Knuth, Patashnik" || first.Title != "Concrete Mathematics" {
		t.Errorf("metadata not carried: %+v", first)
	}
	if first.Year != 1994 || first.Edition != "2nd ed" {
		t.Errorf("year/edition not carried: %+v", first)
	}
	if first.Digest != "md5:deadbeef" {
		t.Errorf("Digest = %q, want md5:deadbeef", first.Digest)
	}

	cloud := records[1]
	if cloud.Digest != "dropbox:abc123" {
		t.Errorf("cloud Digest = %q, want provider hash", cloud.Digest)
	}

	// Digest failure leaves the field empty but keeps the record.
	if records[2].Path != "/lib/unreadable.pdf" || records[2].Digest != "" {
		t.Errorf("unreadable record = %+v", records[2])
	}
}

func TestBuildWithoutDigester(t *testing.T) {
	records := Build([]*models.NormalizedFile{sampleFile("/lib/a.pdf", 100)}, nil)
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Digest != "" {
		t.Errorf("Digest = %q, want empty without a digester", records[0].Digest)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	records := Build([]*models.NormalizedFile{
		sampleFile("/lib/a.pdf", 4096),
		sampleFile("/lib/b.pdf", 8192),
	}, nil)

	for _, format := range []string{"inventory.jsonl", "inventory.parquet"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), format)
			if err := Write(path, records); err != nil {
				t.Fatalf("Write: %v", err)
			}

			got, err := Read(path)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(got) != len(records) {
				t.Fatalf("Read returned %d records, want %d", len(got), len(records))
			}
			for i := range got {
				if got[i] != records[i] {
					t.Errorf("record %d = %+v, want %+v", i, got[i], records[i])
				}
			}
		})
	}
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	if err := Write(filepath.Join(t.TempDir(), "inventory.csv"), nil); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := Read("inventory.csv"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
