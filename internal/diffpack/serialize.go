package diffpack

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// The canonical form is produced by encoding a map view of the payload:
// encoding/json sorts map keys bytewise, which for UTF-8 strings is
// ascending codepoint order, uses ","/":" separators with no whitespace in
// compact mode, and replaces invalid UTF-8 with U+FFFD. SetEscapeHTML(false)
// keeps non-ASCII bytes literal. The one adjustment needed is dropping the
// trailing newline the Encoder appends.

// CanonicalBytes encodes v in the canonical compact form.
func CanonicalBytes(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// PrettyBytes encodes v human-readably: two-space indent, sorted keys,
// literal non-ASCII. Checksums are always computed over the canonical form,
// never this one.
func PrettyBytes(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("pretty encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Finalize computes the payload checksum: the SHA-256 hex digest of the
// canonical serialization with provenance.checksum set to the empty string.
// The digest is stored back on the payload so a subsequent serialization
// emits it.
func Finalize(p *Payload) error {
	p.Provenance.Checksum = ""
	raw, err := CanonicalBytes(payloadView(p))
	if err != nil {
		return err
	}
	sum := sha256.Sum256(raw)
	p.Provenance.Checksum = hex.EncodeToString(sum[:])
	return nil
}

// EnvelopeView builds the serializable form of an envelope:
// {"ok":true,"data":...} or {"ok":false,"error":...}.
func EnvelopeView(env Envelope) map[string]any {
	if env.OK {
		return map[string]any{"ok": true, "data": payloadView(env.Data)}
	}
	e := map[string]any{
		"code":    env.Error.Code,
		"message": env.Error.Message,
	}
	if len(env.Error.Details) > 0 {
		e["details"] = env.Error.Details
	}
	return map[string]any{"ok": false, "error": e}
}

func payloadView(p *Payload) map[string]any {
	files := make([]any, 0, len(p.Files))
	for i := range p.Files {
		files = append(files, fileView(&p.Files[i]))
	}
	notes := make([]any, 0, len(p.Notes))
	for _, n := range p.Notes {
		notes = append(notes, n)
	}
	return map[string]any{
		"provenance":          provenanceView(&p.Provenance),
		"files":               files,
		"omitted_files_count": p.OmittedFilesCount,
		"notes":               notes,
	}
}

func provenanceView(pr *Provenance) map[string]any {
	var branch any
	if pr.BranchName != "" {
		branch = pr.BranchName
	}
	return map[string]any{
		"repo_url":         pr.RepoURL,
		"commit_good":      pr.CommitGood,
		"commit_candidate": pr.CommitCandidate,
		"branch_name":      branch,
		"caps": map[string]any{
			"total_bytes":    pr.Caps.TotalBytes,
			"per_file_bytes": pr.Caps.PerFileBytes,
			"context_lines":  pr.Caps.ContextLines,
		},
		"rename_detection": map[string]any{
			"enabled":       pr.RenameDetection.Enabled,
			"threshold_pct": pr.RenameDetection.ThresholdPct,
		},
		"git_version":    pr.GitVersion,
		"diff_algorithm": pr.DiffAlgorithm,
		"env_locks": map[string]any{
			"LC_ALL":        pr.EnvLocks.LCAll,
			"color":         pr.EnvLocks.Color,
			"core.autocrlf": pr.EnvLocks.AutoCRLF,
		},
		"checksum": pr.Checksum,
	}
}

func fileView(f *FileRecord) map[string]any {
	m := map[string]any{
		"status":       string(f.Status),
		"path_old":     nullableString(f.PathOld),
		"path_new":     nullableString(f.PathNew),
		"mode_old":     nullableString(f.ModeOld),
		"mode_new":     nullableString(f.ModeNew),
		"size_old":     nullableInt(f.SizeOld),
		"size_new":     nullableInt(f.SizeNew),
		"is_binary":    f.IsBinary,
		"is_submodule": f.IsSubmodule,
	}

	if f.Status == StatusRenamed || f.Status == StatusCopied {
		m["rename_score"] = f.RenameScore
	}
	if f.RenameTiebreaker != "" {
		m["rename_tiebreaker"] = string(f.RenameTiebreaker)
	}
	if f.EOLOnlyChange {
		m["eol_only_change"] = true
	}
	if f.WhitespaceOnlyChange {
		m["whitespace_only_change"] = true
	}
	if f.Summarized {
		m["summarized"] = true
	}
	if f.Truncated {
		m["truncated"] = true
		m["omitted_hunks_count"] = f.OmittedHunksCount
	}
	if f.Submodule != nil {
		m["submodule"] = map[string]any{
			"old_sha": f.Submodule.OldSHA,
			"new_sha": f.Submodule.NewSHA,
		}
	}
	if len(f.Hunks) > 0 {
		hunks := make([]any, 0, len(f.Hunks))
		for _, h := range f.Hunks {
			hunks = append(hunks, hunkView(h))
		}
		m["hunks"] = hunks
	}

	return m
}

func hunkView(h Hunk) map[string]any {
	return map[string]any{
		"header":    h.Header,
		"old_start": h.OldStart,
		"old_lines": h.OldLines,
		"new_start": h.NewStart,
		"new_lines": h.NewLines,
		"added":     h.Added,
		"deleted":   h.Deleted,
		"patch":     h.Patch,
	}
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
