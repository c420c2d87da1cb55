package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MinEbookSize is the smallest byte size at which a .pdf or .epub file is
// considered plausibly intact. Anything below it is flagged too-small and
// excluded from normalization and duplicate scanning.
const MinEbookSize = 1024

// DangerZoneSize is the threshold for the metadata-mode retention policy.
// When the smallest member of a name-keyed duplicate group is below this
// size while another member is above it, the small file may be a truncated
// copy and the whole group is treated as ambiguous.
const DangerZoneSize = 500 * 1024

// FileDescriptor is the immutable record produced by the scanner for every
// file it visits. The flag fields are set once at scan time; a flagged file
// is never normalized and never participates in duplicate clustering.
type FileDescriptor struct {
	OriginalPath     string        `json:"original_path"`
	OriginalName     string        `json:"original_name"`
	Extension        string        `json:"extension"` // with leading dot, e.g. ".pdf"
	Size             int64         `json:"size"`
	ModifiedTime     time.Time     `json:"modified_time"`
	IsFailedDownload bool          `json:"is_failed_download"`
	IsTooSmall       bool          `json:"is_too_small"`
	Cloud            CloudMetadata `json:"cloud,omitzero"`
}

// CloudMetadata carries provider-supplied details for files that live in a
// cloud mount. Provider hashes let the duplicate detector avoid reading file
// bytes; IsVirtual marks placeholder entries whose bytes are not local.
type CloudMetadata struct {
	DropboxContentHash string `json:"dropbox_content_hash,omitempty"`
	GDriveMD5Checksum  string `json:"gdrive_md5_checksum,omitempty"`
	GDriveFileID       string `json:"gdrive_file_id,omitempty"`
	IsVirtual          bool   `json:"is_virtual,omitempty"`
}

// ProviderHash returns a provider-supplied content fingerprint, prefixed so
// that hashes from different providers can never collide, or "" when none
// is available.
func (c CloudMetadata) ProviderHash() string {
	if c.DropboxContentHash != "" {
		return "dropbox:" + c.DropboxContentHash
	}
	if c.GDriveMD5Checksum != "" {
		return "gdrive:" + c.GDriveMD5Checksum
	}
	return ""
}

// ParsedMetadata is the structured result of parsing a filename. Title is
// never empty after a successful parse; every other field may be absent
// (zero value). Volume is recorded separately but also kept inside Title.
type ParsedMetadata struct {
	Authors string `json:"authors,omitempty"`
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	Series  string `json:"series,omitempty"`  // e.g. "GTM 52"
	Edition string `json:"edition,omitempty"` // e.g. "2nd ed"
	Volume  string `json:"volume,omitempty"`  // e.g. "Vol 2"
}

// NormalizedFile is a FileDescriptor plus the canonical name assigned by the
// normalizer. NewName is empty when the file was exempt from normalization.
type NormalizedFile struct {
	FileDescriptor
	Meta    *ParsedMetadata `json:"meta,omitempty"`
	NewName string          `json:"new_name,omitempty"`
	NewPath string          `json:"new_path,omitempty"`
}

// Normalized reports whether the normalizer assigned a canonical name.
func (f *NormalizedFile) Normalized() bool {
	return f.NewName != ""
}

// PathDepth counts the path components of the original path. The retention
// cascade prefers copies with fewer components.
func (f *NormalizedFile) PathDepth() int {
	clean := filepath.ToSlash(filepath.Clean(f.OriginalPath))
	depth := 0
	for _, part := range strings.Split(clean, "/") {
		if part != "" && part != "." {
			depth++
		}
	}
	return depth
}

// DuplicateGroup is an ordered, non-empty cluster of files judged to be the
// same work. The first member is kept; the rest are removal candidates.
type DuplicateGroup struct {
	Files []*NormalizedFile
}

// Keep returns the surviving member of the group.
func (g DuplicateGroup) Keep() *NormalizedFile {
	return g.Files[0]
}

// Remove returns the members proposed for deletion.
func (g DuplicateGroup) Remove() []*NormalizedFile {
	return g.Files[1:]
}

// Mode selects the clustering key used by the duplicate detector.
type Mode string

const (
	// ModeContent hashes file bytes locally. Default for local storage.
	ModeContent Mode = "content"
	// ModeMetadata keys on the lowercase display name, with size driving
	// retention. Weaker than a digest but avoids reading bytes on cloud
	// mounts.
	ModeMetadata Mode = "metadata"
	// ModeProvider prefers a cloud-supplied hash, falling back to local
	// hashing with a warning.
	ModeProvider Mode = "provider"
	// ModeHybrid prefers a provider hash and keys virtual placeholders by
	// metadata instead of forcing a download.
	ModeHybrid Mode = "hybrid"
)

// ParseMode validates a mode name supplied on the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeContent, ModeMetadata, ModeProvider, ModeHybrid:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown duplicate detection mode %q (want content, metadata, provider, or hybrid)", s)
}
