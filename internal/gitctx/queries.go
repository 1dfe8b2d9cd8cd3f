package gitctx

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/diffpack/internal/differr"
	"github.com/dshills/diffpack/internal/diffpack"
	"github.com/dshills/diffpack/internal/redact"
)

// ResolveCommit expands a possibly-abbreviated ref to a full commit SHA.
func (w *Workspace) ResolveCommit(ctx context.Context, ref string) (string, error) {
	out, err := w.git(ctx, queryTimeout, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", differr.CommitNotFound([]string{ref}, redact.URL(w.opts.RepoURL))
	}
	return strings.TrimSpace(out), nil
}

// NameStatus lists the changes between two commits with rename detection
// at the given threshold. Output order is git's own; discovery re-sorts.
func (w *Workspace) NameStatus(ctx context.Context, good, cand string, renameThreshold int) ([]diffpack.RawChange, error) {
	out, err := w.git(ctx, queryTimeout,
		"diff", "--name-status",
		fmt.Sprintf("--find-renames=%d%%", renameThreshold),
		"--no-color",
		good+".."+cand,
	)
	if err != nil {
		return nil, err
	}

	var changes []diffpack.RawChange
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		rc, ok := parseNameStatusLine(line)
		if !ok {
			return nil, fmt.Errorf("malformed name-status line %q", line)
		}
		changes = append(changes, rc)
	}
	return changes, nil
}

// parseNameStatusLine splits one tab-separated name-status record. The
// status field is a letter optionally followed by a similarity score, as
// in "R095".
func parseNameStatusLine(line string) (diffpack.RawChange, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 2 || parts[0] == "" {
		return diffpack.RawChange{}, false
	}

	statusField := parts[0]
	rc := diffpack.RawChange{Status: statusField[:1]}
	if len(statusField) > 1 {
		score, err := strconv.Atoi(statusField[1:])
		if err != nil {
			return diffpack.RawChange{}, false
		}
		rc.Score = score
	}

	switch rc.Status {
	case "R", "C":
		if len(parts) < 3 {
			return diffpack.RawChange{}, false
		}
		rc.PathOld, rc.PathNew = parts[1], parts[2]
	case "D":
		rc.PathOld = parts[1]
	default:
		rc.PathNew = parts[1]
	}
	return rc, true
}

// FileMetadata reads mode and size for a path at a commit via ls-tree -l.
// The boolean reports whether the path exists on that side. Gitlinks carry
// type "commit" and no size.
func (w *Workspace) FileMetadata(ctx context.Context, commit, path string) (diffpack.Metadata, bool, error) {
	out, err := w.git(ctx, queryTimeout, "ls-tree", "-l", commit, "--", path)
	if err != nil {
		return diffpack.Metadata{}, false, err
	}
	line := strings.TrimSpace(out)
	if line == "" {
		return diffpack.Metadata{}, false, nil
	}

	// Format: <mode> <type> <sha> <size>\t<path>, size right-aligned and
	// "-" for gitlinks.
	head, _, found := strings.Cut(line, "\t")
	if !found {
		return diffpack.Metadata{}, false, fmt.Errorf("malformed ls-tree line %q", line)
	}
	fields := strings.Fields(head)
	if len(fields) < 4 {
		return diffpack.Metadata{}, false, fmt.Errorf("malformed ls-tree line %q", line)
	}

	meta := diffpack.Metadata{
		Mode:        fields[0],
		IsSubmodule: fields[1] == "commit",
	}
	if fields[3] != "-" {
		size, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return diffpack.Metadata{}, false, fmt.Errorf("malformed ls-tree size in %q", line)
		}
		meta.Size = &size
	}
	return meta, true, nil
}

// IsBinary asks git's numstat classification for the path between the two
// commits. Binary entries report "-\t-\t<path>".
func (w *Workspace) IsBinary(ctx context.Context, good, cand, path string) (bool, error) {
	out, err := w.git(ctx, queryTimeout, "diff", "--numstat", good+".."+cand, "--", path)
	if err != nil {
		return false, err
	}
	first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return strings.HasPrefix(first, "-\t-\t"), nil
}

// UnifiedPatch returns the unified diff for one file. Both sides of a
// rename or copy are passed as pathspecs together with the rename
// threshold, so a pure rename yields an empty patch rather than a
// full-content delete and add.
func (w *Workspace) UnifiedPatch(ctx context.Context, good, cand, pathOld, pathNew string, contextLines int) (string, error) {
	args := []string{
		"diff",
		fmt.Sprintf("--unified=%d", contextLines),
		fmt.Sprintf("--find-renames=%d%%", w.opts.RenameThreshold),
		"--no-color",
		"--no-prefix",
		good + ".." + cand,
		"--",
	}
	if pathOld != "" {
		args = append(args, pathOld)
	}
	if pathNew != "" && pathNew != pathOld {
		args = append(args, pathNew)
	}
	return w.git(ctx, queryTimeout, args...)
}

// SubmoduleSHAs reads the gitlink SHA recorded on each side of a
// submodule change. A side where the path is absent yields "".
func (w *Workspace) SubmoduleSHAs(ctx context.Context, good, cand, path string) (string, string, error) {
	oldSHA, err := w.gitlinkSHA(ctx, good, path)
	if err != nil {
		return "", "", err
	}
	newSHA, err := w.gitlinkSHA(ctx, cand, path)
	if err != nil {
		return "", "", err
	}
	return oldSHA, newSHA, nil
}

func (w *Workspace) gitlinkSHA(ctx context.Context, commit, path string) (string, error) {
	out, err := w.git(ctx, queryTimeout, "ls-tree", commit, "--", path)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(out)
	if line == "" {
		return "", nil
	}
	head, _, _ := strings.Cut(line, "\t")
	fields := strings.Fields(head)
	if len(fields) < 3 || fields[1] != "commit" {
		return "", nil
	}
	return fields[2], nil
}
