package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/shelver-tools/shelver/internal/models"
)

const dropboxAPI = "https://api.dropboxapi.com/2"

// Dropbox binds the Dropbox HTTP API v2. Listings carry the content_hash
// field, a Dropbox-proprietary fingerprint that is stable per content and
// usable as a clustering key (but never comparable to an MD5).
type Dropbox struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// NewDropbox creates a Dropbox provider for the given OAuth access token.
func NewDropbox(accessToken string) *Dropbox {
	return &Dropbox{
		accessToken: accessToken,
		baseURL:     dropboxAPI,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (d *Dropbox) Name() string { return "dropbox" }

type dropboxEntry struct {
	Tag            string `json:".tag"`
	Name           string `json:"name"`
	PathDisplay    string `json:"path_display"`
	Size           int64  `json:"size"`
	ServerModified string `json:"server_modified"`
	ContentHash    string `json:"content_hash"`
}

type dropboxListResponse struct {
	Entries []dropboxEntry `json:"entries"`
	Cursor  string         `json:"cursor"`
	HasMore bool           `json:"has_more"`
}

// List walks a Dropbox folder recursively, following pagination cursors.
// The root of the account is "" in Dropbox terms; "/" is accepted too.
func (d *Dropbox) List(ctx context.Context, folder string) ([]*models.NormalizedFile, error) {
	if folder == "/" {
		folder = ""
	}

	body := map[string]any{
		"path":      folder,
		"recursive": true,
		"limit":     1000,
	}
	var resp dropboxListResponse
	if err := d.post(ctx, "/files/list_folder", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to list Dropbox folder %q: %w", folder, err)
	}

	files := collectDropboxEntries(nil, resp.Entries)
	for resp.HasMore {
		next := map[string]any{"cursor": resp.Cursor}
		resp = dropboxListResponse{}
		if err := d.post(ctx, "/files/list_folder/continue", next, &resp); err != nil {
			return nil, fmt.Errorf("failed to continue Dropbox listing: %w", err)
		}
		files = collectDropboxEntries(files, resp.Entries)
	}
	return files, nil
}

// Rename moves the file to its new name within the same folder, never
// auto-renaming over an existing target.
func (d *Dropbox) Rename(ctx context.Context, f *models.NormalizedFile, newName string) error {
	body := map[string]any{
		"from_path":  f.OriginalPath,
		"to_path":    path.Join(path.Dir(f.OriginalPath), newName),
		"autorename": false,
	}
	if err := d.post(ctx, "/files/move_v2", body, nil); err != nil {
		return fmt.Errorf("failed to rename %s: %w", f.OriginalPath, err)
	}
	return nil
}

// Delete removes the file (to the Dropbox trash, per API semantics).
func (d *Dropbox) Delete(ctx context.Context, f *models.NormalizedFile) error {
	body := map[string]any{"path": f.OriginalPath}
	if err := d.post(ctx, "/files/delete_v2", body, nil); err != nil {
		return fmt.Errorf("failed to delete %s: %w", f.OriginalPath, err)
	}
	return nil
}

func (d *Dropbox) post(ctx context.Context, endpoint string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Dropbox API returned status %d: %s", resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func collectDropboxEntries(files []*models.NormalizedFile, entries []dropboxEntry) []*models.NormalizedFile {
	for _, e := range entries {
		if e.Tag != "file" {
			continue
		}
		f := describe(e.PathDisplay, e.Name, e.Size, models.CloudMetadata{
			DropboxContentHash: e.ContentHash,
		})
		if t, err := time.Parse(time.RFC3339, e.ServerModified); err == nil {
			f.ModifiedTime = t
		}
		files = append(files, f)
	}
	return files
}
