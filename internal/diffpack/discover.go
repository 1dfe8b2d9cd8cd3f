package diffpack

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// RawChange is one entry of git name-status output before normalization.
type RawChange struct {
	Status  string
	Score   int // similarity percent, meaningful for R/C only
	PathOld string
	PathNew string
}

// Metadata is the per-side view of a path at a commit.
type Metadata struct {
	Mode        string
	Size        *int64
	IsSubmodule bool
}

// Driver is the set of repository capabilities change discovery and the
// pipeline consume. Implementations run git under a locked environment and
// are deterministic for a fixed repository state.
type Driver interface {
	NameStatus(ctx context.Context, good, cand string, renameThreshold int) ([]RawChange, error)
	FileMetadata(ctx context.Context, commit, path string) (Metadata, bool, error)
	IsBinary(ctx context.Context, good, cand, path string) (bool, error)
	UnifiedPatch(ctx context.Context, good, cand, pathOld, pathNew string, contextLines int) (string, error)
	SubmoduleSHAs(ctx context.Context, good, cand, path string) (oldSHA, newSHA string, err error)
}

// Discover turns raw name-status output into the ordered file change set:
// status normalization, path assignment, metadata enrichment, binary and
// submodule flags, rename near-tie resolution, and the primary ordering
// that every later stage preserves.
func Discover(ctx context.Context, drv Driver, good, cand string, renameThreshold int) ([]FileRecord, error) {
	raw, err := drv.NameStatus(ctx, good, cand, renameThreshold)
	if err != nil {
		return nil, err
	}

	var files []FileRecord
	for _, rc := range raw {
		recs, err := normalize(rc, renameThreshold)
		if err != nil {
			return nil, err
		}
		files = append(files, recs...)
	}

	for i := range files {
		if err := enrich(ctx, drv, good, cand, &files[i]); err != nil {
			return nil, err
		}
	}

	resolveRenameTies(files)

	sort.SliceStable(files, func(i, j int) bool {
		pi, pj := files[i].EffectivePath(), files[j].EffectivePath()
		if pi != pj {
			return pi < pj
		}
		return files[i].Status < files[j].Status
	})

	return files, nil
}

// normalize maps one raw record onto canonical records. A rename or copy
// that somehow reports a score below the active threshold is downgraded to
// an add/delete pair; git enforces the threshold itself, so this is a
// re-check on observed records rather than an expected path.
func normalize(rc RawChange, renameThreshold int) ([]FileRecord, error) {
	s := Status(rc.Status)
	if !KnownStatus(s) {
		return nil, fmt.Errorf("unknown change status %q for %q", rc.Status, rc.PathNew)
	}

	switch s {
	case StatusAdded:
		return []FileRecord{{Status: s, PathNew: rc.PathNew}}, nil
	case StatusDeleted:
		return []FileRecord{{Status: s, PathOld: rc.PathOld}}, nil
	case StatusModified, StatusTypeChanged:
		p := rc.PathNew
		if p == "" {
			p = rc.PathOld
		}
		return []FileRecord{{Status: s, PathOld: p, PathNew: p}}, nil
	case StatusRenamed, StatusCopied:
		if rc.Score < renameThreshold {
			recs := []FileRecord{{Status: StatusAdded, PathNew: rc.PathNew}}
			if s == StatusRenamed {
				recs = append(recs, FileRecord{Status: StatusDeleted, PathOld: rc.PathOld})
			}
			return recs, nil
		}
		return []FileRecord{{
			Status:      s,
			PathOld:     rc.PathOld,
			PathNew:     rc.PathNew,
			RenameScore: rc.Score,
		}}, nil
	}
	return nil, fmt.Errorf("unhandled change status %q", rc.Status)
}

func enrich(ctx context.Context, drv Driver, good, cand string, f *FileRecord) error {
	if f.PathOld != "" {
		meta, ok, err := drv.FileMetadata(ctx, good, f.PathOld)
		if err != nil {
			return fmt.Errorf("metadata for %s at %s: %w", f.PathOld, good, err)
		}
		if ok {
			f.ModeOld = meta.Mode
			f.SizeOld = meta.Size
			f.IsSubmodule = f.IsSubmodule || meta.IsSubmodule
		}
	}
	if f.PathNew != "" {
		meta, ok, err := drv.FileMetadata(ctx, cand, f.PathNew)
		if err != nil {
			return fmt.Errorf("metadata for %s at %s: %w", f.PathNew, cand, err)
		}
		if ok {
			f.ModeNew = meta.Mode
			f.SizeNew = meta.Size
			f.IsSubmodule = f.IsSubmodule || meta.IsSubmodule
		}
	}

	if f.IsSubmodule {
		oldSHA, newSHA, err := drv.SubmoduleSHAs(ctx, good, cand, f.EffectivePath())
		if err != nil {
			return fmt.Errorf("submodule shas for %s: %w", f.EffectivePath(), err)
		}
		f.Submodule = &SubmoduleChange{OldSHA: oldSHA, NewSHA: newSHA}
		return nil
	}

	binary, err := drv.IsBinary(ctx, good, cand, f.EffectivePath())
	if err != nil {
		return fmt.Errorf("binary check for %s: %w", f.EffectivePath(), err)
	}
	f.IsBinary = binary
	return nil
}

// resolveRenameTies finds rename/copy records targeting the same new path
// with similarity scores within one percentage point of the group maximum
// and orders each group by three rules: highest old/new path-component
// similarity, then smallest absolute size delta, then lexicographically
// smallest old path. Every member of a near-tie group records the rule
// that separated the winner from the runner-up.
func resolveRenameTies(files []FileRecord) {
	groups := make(map[string][]*FileRecord)
	for i := range files {
		f := &files[i]
		if f.Status == StatusRenamed || f.Status == StatusCopied {
			groups[f.PathNew] = append(groups[f.PathNew], f)
		}
	}

	for _, group := range groups {
		maxScore := 0
		for _, f := range group {
			if f.RenameScore > maxScore {
				maxScore = f.RenameScore
			}
		}
		var tied []*FileRecord
		for _, f := range group {
			if maxScore-f.RenameScore <= 1 {
				tied = append(tied, f)
			}
		}
		if len(tied) < 2 {
			continue
		}

		sort.SliceStable(tied, func(i, j int) bool {
			si, sj := pathSimilarity(tied[i].PathOld, tied[i].PathNew), pathSimilarity(tied[j].PathOld, tied[j].PathNew)
			if si != sj {
				return si > sj
			}
			di, dj := sizeDelta(tied[i]), sizeDelta(tied[j])
			if di != dj {
				return di < dj
			}
			return tied[i].PathOld < tied[j].PathOld
		})

		rule := TiebreakLex
		w, r := tied[0], tied[1]
		switch {
		case pathSimilarity(w.PathOld, w.PathNew) != pathSimilarity(r.PathOld, r.PathNew):
			rule = TiebreakPath
		case sizeDelta(w) != sizeDelta(r):
			rule = TiebreakSize
		}
		for _, f := range tied {
			f.RenameTiebreaker = rule
		}
	}
}

// pathSimilarity scores how much of the directory structure survives a
// rename, comparing slash-separated components.
func pathSimilarity(oldPath, newPath string) float64 {
	if oldPath == "" || newPath == "" {
		return 0
	}
	m := difflib.NewMatcher(strings.Split(oldPath, "/"), strings.Split(newPath, "/"))
	return m.Ratio()
}

func sizeDelta(f *FileRecord) int64 {
	var oldSize, newSize int64
	if f.SizeOld != nil {
		oldSize = *f.SizeOld
	}
	if f.SizeNew != nil {
		newSize = *f.SizeNew
	}
	d := newSize - oldSize
	if d < 0 {
		d = -d
	}
	return d
}
