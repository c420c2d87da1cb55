// Package duplicates clusters files that represent the same work and picks
// which copy of each cluster to keep. Clustering keys and retention policy
// depend on the detection mode: byte-identity keys use a quality cascade,
// name-derived keys use a size/age policy with a danger-zone escape hatch.
package duplicates

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/shelver-tools/shelver/internal/models"
)

// DefaultExtensions is the allow-list of managed file types. Files with any
// other extension pass through duplicate detection untouched.
var DefaultExtensions = []string{".pdf", ".epub", ".txt"}

// Detector groups a batch of files by clustering key and resolves retention
// per group. Construct with New; the zero value is not usable.
type Detector struct {
	mode     models.Mode
	digester Digester
	allowed  map[string]struct{}
}

// New builds a Detector. A nil digester falls back to local MD5 digesting;
// empty extensions fall back to DefaultExtensions.
func New(mode models.Mode, digester Digester, extensions []string) *Detector {
	if digester == nil {
		digester = MD5Digester{}
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	return &Detector{
		mode:     mode,
		digester: digester,
		allowed:  allowed,
	}
}

// Result is the outcome of a detection pass. Groups propose removals
// (Keep/Remove per group); Ambiguous groups propose none and exist so the
// keep-everyone decision is observable; Survivors is the input batch minus
// every Remove member.
type Result struct {
	Groups    []models.DuplicateGroup
	Ambiguous []models.DuplicateGroup
	Survivors []*models.NormalizedFile
}

// Detect clusters the batch and resolves retention. Files outside the
// extension allow-list, flagged files, and files whose key cannot be
// computed never join a group, but they always remain survivors: detection
// alone never proposes deleting a file it could not positively cluster.
func (d *Detector) Detect(files []*models.NormalizedFile) *Result {
	type cluster struct {
		byName  bool
		members []*models.NormalizedFile
	}

	var order []string
	clusters := make(map[string]*cluster)

	for _, f := range files {
		if _, ok := d.allowed[strings.ToLower(f.Extension)]; !ok {
			continue
		}
		if f.IsFailedDownload || f.IsTooSmall {
			continue
		}

		key, byName, err := d.key(f)
		if err != nil {
			slog.Warn("excluding file from duplicate scan", "path", f.OriginalPath, "error", err)
			continue
		}

		c, ok := clusters[key]
		if !ok {
			c = &cluster{byName: byName}
			clusters[key] = c
			order = append(order, key)
		}
		c.members = append(c.members, f)
	}

	res := &Result{}
	removed := make(map[*models.NormalizedFile]bool)

	for _, key := range order {
		c := clusters[key]
		if len(c.members) < 2 {
			continue
		}

		if c.byName {
			group, ambiguous := resolveBySize(c.members)
			if ambiguous {
				slog.Warn("ambiguous duplicate group, keeping every member",
					"name", group.Keep().OriginalName,
					"members", len(group.Files))
				res.Ambiguous = append(res.Ambiguous, group)
				continue
			}
			res.Groups = append(res.Groups, group)
		} else {
			res.Groups = append(res.Groups, resolveByQuality(c.members))
		}

		for _, f := range res.Groups[len(res.Groups)-1].Remove() {
			removed[f] = true
		}
	}

	for _, f := range files {
		if !removed[f] {
			res.Survivors = append(res.Survivors, f)
		}
	}
	return res
}

// key computes the clustering key for one file. byName reports that the key
// is name derived, which selects the size/age retention policy.
func (d *Detector) key(f *models.NormalizedFile) (key string, byName bool, err error) {
	switch d.mode {
	case models.ModeMetadata:
		return nameKey(f), true, nil
	case models.ModeProvider:
		if h := f.Cloud.ProviderHash(); h != "" {
			return h, false, nil
		}
		slog.Warn("no provider hash available, digesting locally", "path", f.OriginalPath)
	case models.ModeHybrid:
		if h := f.Cloud.ProviderHash(); h != "" {
			return h, false, nil
		}
		if f.Cloud.IsVirtual {
			// Placeholder bytes are not local; digesting would force a
			// download.
			return nameKey(f), true, nil
		}
	}

	sum, err := d.digester.Digest(f.OriginalPath)
	if err != nil {
		return "", false, err
	}
	return "md5:" + sum, false, nil
}

// nameKey is the lowercase display name. Weaker than a digest: same-named
// files are assumed to be copies of the same work, and size differences are
// left for resolveBySize to judge (smaller wins, danger zone keeps all).
func nameKey(f *models.NormalizedFile) string {
	name := f.OriginalName
	if f.Normalized() {
		name = f.NewName
	}
	return "meta:" + strings.ToLower(name)
}

// resolveByQuality orders a byte-identity group: normalized members beat
// unnormalized, then shallower paths beat deeper, then newer modification
// times beat older, final ties resolved by input order.
func resolveByQuality(members []*models.NormalizedFile) models.DuplicateGroup {
	cand := slices.Clone(members)

	if normalized := keepIf(cand, (*models.NormalizedFile).Normalized); len(normalized) > 0 {
		cand = normalized
	}

	minDepth := cand[0].PathDepth()
	for _, f := range cand[1:] {
		if d := f.PathDepth(); d < minDepth {
			minDepth = d
		}
	}
	cand = keepIf(cand, func(f *models.NormalizedFile) bool { return f.PathDepth() == minDepth })

	keep := cand[0]
	for _, f := range cand[1:] {
		if f.ModifiedTime.After(keep.ModifiedTime) {
			keep = f
		}
	}

	return buildGroup(members, keep)
}

// resolveBySize applies the name-keyed policy: smaller file wins, equal
// sizes fall back to the older file. When the smallest member sits under the
// danger-zone threshold while another sits above it, the small file may be a
// truncated copy and the group is ambiguous.
func resolveBySize(members []*models.NormalizedFile) (models.DuplicateGroup, bool) {
	smallest, largest := members[0].Size, members[0].Size
	for _, f := range members[1:] {
		if f.Size < smallest {
			smallest = f.Size
		}
		if f.Size > largest {
			largest = f.Size
		}
	}

	if smallest < models.DangerZoneSize && largest > models.DangerZoneSize {
		return models.DuplicateGroup{Files: slices.Clone(members)}, true
	}

	keep := members[0]
	for _, f := range members[1:] {
		if f.Size < keep.Size || (f.Size == keep.Size && f.ModifiedTime.Before(keep.ModifiedTime)) {
			keep = f
		}
	}

	return buildGroup(members, keep), false
}

// buildGroup orders the group with the kept member first and the rest in
// input order.
func buildGroup(members []*models.NormalizedFile, keep *models.NormalizedFile) models.DuplicateGroup {
	files := make([]*models.NormalizedFile, 0, len(members))
	files = append(files, keep)
	for _, f := range members {
		if f != keep {
			files = append(files, f)
		}
	}
	return models.DuplicateGroup{Files: files}
}

func keepIf(files []*models.NormalizedFile, pred func(*models.NormalizedFile) bool) []*models.NormalizedFile {
	var out []*models.NormalizedFile
	for _, f := range files {
		if pred(f) {
			out = append(out, f)
		}
	}
	return out
}
