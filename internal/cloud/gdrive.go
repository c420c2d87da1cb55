package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shelver-tools/shelver/internal/models"
)

const gdriveAPI = "https://www.googleapis.com/drive/v3"

// GDrive binds the Google Drive REST API v3. Drive reports a true MD5 for
// binary files (md5Checksum), so Drive listings can join content-keyed
// clustering directly.
type GDrive struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// NewGDrive creates a Google Drive provider for the given OAuth access token.
func NewGDrive(accessToken string) *GDrive {
	return &GDrive{
		accessToken: accessToken,
		baseURL:     gdriveAPI,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (g *GDrive) Name() string { return "gdrive" }

type gdriveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         string `json:"size"`
	ModifiedTime string `json:"modifiedTime"`
	MD5Checksum  string `json:"md5Checksum"`
}

type gdriveListResponse struct {
	Files         []gdriveFile `json:"files"`
	NextPageToken string       `json:"nextPageToken"`
}

const gdriveFolderMime = "application/vnd.google-apps.folder"

// List resolves the folder path and returns every file in it, following
// subfolders and pagination. Drive has no real paths, so each path segment
// is one name query.
func (g *GDrive) List(ctx context.Context, folder string) ([]*models.NormalizedFile, error) {
	folderID, err := g.resolveFolder(ctx, folder)
	if err != nil {
		return nil, err
	}
	return g.listFolder(ctx, folderID, strings.TrimSuffix(folder, "/"))
}

func (g *GDrive) listFolder(ctx context.Context, folderID, prefix string) ([]*models.NormalizedFile, error) {
	var files []*models.NormalizedFile

	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	pageToken := ""
	for {
		endpoint := "/files?q=" + url.QueryEscape(query) +
			"&fields=" + url.QueryEscape("files(id,name,mimeType,size,modifiedTime,md5Checksum),nextPageToken") +
			"&pageSize=1000"
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var resp gdriveListResponse
		if err := g.get(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("failed to list Drive folder: %w", err)
		}

		for _, entry := range resp.Files {
			entryPath := prefix + "/" + entry.Name
			if entry.MimeType == gdriveFolderMime {
				sub, err := g.listFolder(ctx, entry.ID, entryPath)
				if err != nil {
					return nil, err
				}
				files = append(files, sub...)
				continue
			}

			size, _ := strconv.ParseInt(entry.Size, 10, 64)
			f := describe(entryPath, entry.Name, size, models.CloudMetadata{
				GDriveMD5Checksum: entry.MD5Checksum,
			})
			f.Cloud.GDriveFileID = entry.ID
			if t, err := time.Parse(time.RFC3339, entry.ModifiedTime); err == nil {
				f.ModifiedTime = t
			}
			files = append(files, f)
		}

		if resp.NextPageToken == "" {
			return files, nil
		}
		pageToken = resp.NextPageToken
	}
}

// resolveFolder walks a slash-separated path from the Drive root down to a
// folder ID.
func (g *GDrive) resolveFolder(ctx context.Context, folder string) (string, error) {
	id := "root"
	for _, segment := range strings.Split(strings.Trim(folder, "/"), "/") {
		if segment == "" {
			continue
		}
		query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
			strings.ReplaceAll(segment, "'", `\'`), id, gdriveFolderMime)
		endpoint := "/files?q=" + url.QueryEscape(query) + "&fields=" + url.QueryEscape("files(id)")

		var resp gdriveListResponse
		if err := g.get(ctx, endpoint, &resp); err != nil {
			return "", fmt.Errorf("failed to resolve Drive folder %q: %w", segment, err)
		}
		if len(resp.Files) == 0 {
			return "", fmt.Errorf("Drive folder not found: %s", segment)
		}
		id = resp.Files[0].ID
	}
	return id, nil
}

// Rename updates the file's name in place; Drive identifies files by ID, so
// no move is involved.
func (g *GDrive) Rename(ctx context.Context, f *models.NormalizedFile, newName string) error {
	if f.Cloud.GDriveFileID == "" {
		return fmt.Errorf("no Drive file id recorded for %s", f.OriginalPath)
	}
	body := fmt.Sprintf(`{"name": %s}`, mustJSON(newName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		g.baseURL+"/files/"+url.PathEscape(f.Cloud.GDriveFileID), strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Content-Type", "application/json")
	return g.expectOK(req, f.OriginalPath)
}

// Delete removes the file permanently.
func (g *GDrive) Delete(ctx context.Context, f *models.NormalizedFile) error {
	if f.Cloud.GDriveFileID == "" {
		return fmt.Errorf("no Drive file id recorded for %s", f.OriginalPath)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		g.baseURL+"/files/"+url.PathEscape(f.Cloud.GDriveFileID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	return g.expectOK(req, f.OriginalPath)
}

func (g *GDrive) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Drive API returned status %d: %s", resp.StatusCode, string(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (g *GDrive) expectOK(req *http.Request, path string) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request for %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Drive API returned status %d for %s: %s", resp.StatusCode, path, string(msg))
	}
	return nil
}

func mustJSON(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
