package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shelver-tools/shelver/internal/models"
)

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		token    string
		wantErr  bool
	}{
		{"dropbox", "tok", false},
		{"gdrive", "tok", false},
		{"google-drive", "tok", false},
		{"GoogleDrive", "tok", false},
		{"dropbox", "", true},
		{"icloud", "tok", true},
	}
	for _, tt := range tests {
		_, err := New(tt.provider, tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q, %q) error = %v, wantErr %v", tt.provider, tt.token, err, tt.wantErr)
		}
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		path     string
		provider string
		ok       bool
	}{
		{"/Users/me/Dropbox/Books", "dropbox", true},
		{"/Users/me/Library/CloudStorage/GoogleDrive-me@x.com/My Drive", "gdrive", true},
		{"/Users/me/Google Drive/Books", "gdrive", true},
		{"/Users/me/OneDrive/Books", "onedrive", true},
		{"/home/me/books", "", false},
	}
	for _, tt := range tests {
		provider, mode, ok := Sniff(tt.path)
		if ok != tt.ok || provider != tt.provider {
			t.Errorf("Sniff(%q) = (%q, %v), want (%q, %v)", tt.path, provider, ok, tt.provider, tt.ok)
		}
		if ok && mode != models.ModeMetadata {
			t.Errorf("Sniff(%q) recommended mode %q, want metadata", tt.path, mode)
		}
	}
}

func TestCloudExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"book.pdf", ".pdf"},
		{"book.pdf.download", ".download"},
		{"book.pdf.crdownload", ".crdownload"},
		{"arXiv-2012.08669v1.tar.gz", ".tar.gz"},
		{"README", ""},
		{".hidden", ""},
	}
	for _, tt := range tests {
		if got := cloudExtension(tt.name); got != tt.want {
			t.Errorf("cloudExtension(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDropboxList(t *testing.T) {
	page2 := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/files/list_folder":
			json.NewEncoder(w).Encode(map[string]any{
				"entries": []map[string]any{
					{
						".tag": "file", "name": "Book One.pdf",
						"path_display":    "/Books/Book One.pdf",
						"size":            204800,
						"server_modified": "2024-01-15T12:34:56Z",
						"content_hash":    "abc123",
					},
					{".tag": "folder", "name": "sub", "path_display": "/Books/sub"},
				},
				"cursor":   "cur1",
				"has_more": true,
			})
		case "/files/list_folder/continue":
			page2 = true
			json.NewEncoder(w).Encode(map[string]any{
				"entries": []map[string]any{
					{
						".tag": "file", "name": "tiny.pdf",
						"path_display":    "/Books/sub/tiny.pdf",
						"size":            12,
						"server_modified": "2024-02-01T00:00:00Z",
						"content_hash":    "def456",
					},
				},
				"has_more": false,
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	d := NewDropbox("tok")
	d.baseURL = srv.URL

	files, err := d.List(context.Background(), "/Books")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if !page2 {
		t.Error("pagination cursor not followed")
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2 (folders excluded)", len(files))
	}

	first := files[0]
	if first.OriginalPath != "/Books/Book One.pdf" || first.Size != 204800 {
		t.Errorf("descriptor = %+v", first.FileDescriptor)
	}
	if first.Cloud.ProviderHash() != "dropbox:abc123" {
		t.Errorf("provider hash = %q", first.Cloud.ProviderHash())
	}
	if first.Cloud.IsVirtual {
		t.Error("hashed entry must not be virtual")
	}
	if first.ModifiedTime.IsZero() {
		t.Error("server_modified not parsed")
	}
	if !files[1].IsTooSmall {
		t.Error("12-byte pdf not flagged too small")
	}
}

func TestDropboxListError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_summary": "invalid_access_token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := NewDropbox("bad")
	d.baseURL = srv.URL
	if _, err := d.List(context.Background(), ""); err == nil {
		t.Fatal("List ignored an API error")
	}
}

func TestGDriveList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		switch {
		case q == "name = 'Books' and 'root' in parents and mimeType = 'application/vnd.google-apps.folder' and trashed = false":
			json.NewEncoder(w).Encode(map[string]any{
				"files": []map[string]any{{"id": "folder1"}},
			})
		case q == "'folder1' in parents and trashed = false":
			json.NewEncoder(w).Encode(map[string]any{
				"files": []map[string]any{
					{
						"id": "f1", "name": "Book.pdf",
						"mimeType":     "application/pdf",
						"size":         "409600",
						"modifiedTime": "2024-03-01T08:00:00Z",
						"md5Checksum":  "cafe01",
					},
					{
						"id": "sub1", "name": "More",
						"mimeType": "application/vnd.google-apps.folder",
					},
				},
			})
		case q == "'sub1' in parents and trashed = false":
			json.NewEncoder(w).Encode(map[string]any{
				"files": []map[string]any{
					{
						"id": "f2", "name": "placeholder.pdf",
						"mimeType":     "application/pdf",
						"size":         "204800",
						"modifiedTime": "2024-03-02T08:00:00Z",
					},
				},
			})
		default:
			t.Errorf("unexpected query %q", q)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	g := NewGDrive("tok")
	g.baseURL = srv.URL

	files, err := g.List(context.Background(), "/Books")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}

	if files[0].OriginalPath != "/Books/Book.pdf" {
		t.Errorf("path = %q", files[0].OriginalPath)
	}
	if files[0].Cloud.ProviderHash() != "gdrive:cafe01" {
		t.Errorf("provider hash = %q", files[0].Cloud.ProviderHash())
	}
	if files[0].Cloud.GDriveFileID != "f1" {
		t.Errorf("file id = %q", files[0].Cloud.GDriveFileID)
	}

	// Nested file without a checksum is a virtual placeholder.
	if files[1].OriginalPath != "/Books/More/placeholder.pdf" {
		t.Errorf("nested path = %q", files[1].OriginalPath)
	}
	if !files[1].Cloud.IsVirtual {
		t.Error("hashless entry must be virtual")
	}
}

func TestGDriveRenameRequiresID(t *testing.T) {
	g := NewGDrive("tok")
	f := &models.NormalizedFile{}
	if err := g.Rename(context.Background(), f, "x.pdf"); err == nil {
		t.Error("Rename without a file id must fail")
	}
	if err := g.Delete(context.Background(), f); err == nil {
		t.Error("Delete without a file id must fail")
	}
}
