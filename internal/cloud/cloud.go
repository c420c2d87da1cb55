// Package cloud lists e-book files out of cloud storage accounts so the
// pipeline can manage libraries that never touch the local disk. Providers
// surface whatever content fingerprint their API offers; the duplicate
// detector decides what to do with it.
package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/shelver-tools/shelver/internal/models"
)

// Provider is a minimal cloud storage binding: list a folder tree, rename
// and delete individual files. Listings return the same descriptors the
// local scanner produces, with CloudMetadata filled in.
type Provider interface {
	Name() string
	List(ctx context.Context, path string) ([]*models.NormalizedFile, error)
	Rename(ctx context.Context, f *models.NormalizedFile, newName string) error
	Delete(ctx context.Context, f *models.NormalizedFile) error
}

// New builds a provider by name. Supported: "dropbox", "gdrive" (also
// "google-drive", "googledrive").
func New(name, accessToken string) (Provider, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("no access token configured for provider %s", name)
	}
	switch strings.ToLower(name) {
	case "dropbox":
		return NewDropbox(accessToken), nil
	case "gdrive", "google-drive", "googledrive":
		return NewGDrive(accessToken), nil
	}
	return nil, fmt.Errorf("unknown cloud provider %q (want dropbox or gdrive)", name)
}

// Sniff inspects a local path for signs it is a cloud sync mount and, when
// one is recognized, returns the provider name and the detection mode that
// avoids pulling file bytes over the network.
func Sniff(path string) (provider string, mode models.Mode, ok bool) {
	switch {
	case strings.Contains(path, "Dropbox"):
		return "dropbox", models.ModeMetadata, true
	case strings.Contains(path, "Google Drive"), strings.Contains(path, "GoogleDrive"):
		return "gdrive", models.ModeMetadata, true
	case strings.Contains(path, "OneDrive"):
		return "onedrive", models.ModeMetadata, true
	}
	return "", "", false
}

// MetadataModeWarning is shown whenever display-name clustering is in effect.
// The key is weaker than a content digest and the user should know it.
const MetadataModeWarning = "metadata mode clusters by display name only; distinct files can collide and differently-named identical files will be missed"

// describe converts one cloud listing entry into a pipeline descriptor.
// Files without a provider hash are virtual: their bytes are not local and
// digesting them would force a download.
func describe(path, name string, size int64, meta models.CloudMetadata) *models.NormalizedFile {
	ext := cloudExtension(name)
	isFailed := strings.HasSuffix(name, ".download") || strings.HasSuffix(name, ".crdownload")
	isEbook := ext == ".pdf" || ext == ".epub"

	meta.IsVirtual = meta.ProviderHash() == ""

	return &models.NormalizedFile{
		FileDescriptor: models.FileDescriptor{
			OriginalPath:     path,
			OriginalName:     name,
			Extension:        ext,
			Size:             size,
			IsFailedDownload: isFailed,
			IsTooSmall:       !isFailed && isEbook && size < models.MinEbookSize,
			Cloud:            meta,
		},
	}
}

func cloudExtension(name string) string {
	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		return ".tar.gz"
	case strings.HasSuffix(name, ".download"):
		return ".download"
	case strings.HasSuffix(name, ".crdownload"):
		return ".crdownload"
	}
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[idx:]
	}
	return ""
}
