package diffpack

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/diffpack/internal/differr"
)

// Default byte budgets and diff settings.
const (
	DefaultCapTotal        = 800_000
	DefaultCapFile         = 64_000
	DefaultContextLines    = 3
	DefaultRenameThreshold = 90
)

// DiffAlgorithm is the only algorithm the pipeline runs with. Provenance
// records it so a consumer can reproduce the diff.
const DiffAlgorithm = "myers"

// Config is the immutable per-run configuration.
type Config struct {
	RepoURL         string
	CommitGood      string
	CommitCandidate string
	BranchName      string

	CapTotal        int
	CapFile         int
	ContextLines    int
	RenameThreshold int

	KeepWorkdir bool
	KeepOnError bool

	Policy *PolicyTable
}

// DefaultConfig returns a config with the shipped budgets and policy table.
// Repository coordinates are left for the caller.
func DefaultConfig() Config {
	return Config{
		CapTotal:        DefaultCapTotal,
		CapFile:         DefaultCapFile,
		ContextLines:    DefaultContextLines,
		RenameThreshold: DefaultRenameThreshold,
		Policy:          DefaultPolicyTable(),
	}
}

// Validate enforces the configuration invariants. It runs before any git
// work so a bad configuration never costs a clone.
func (c *Config) Validate() *differr.Error {
	switch {
	case c.CapFile < 0:
		return differr.CapsInvalid(fmt.Sprintf("cap_file must be non-negative, got %d", c.CapFile))
	case c.CapTotal < c.CapFile:
		return differr.CapsInvalid(fmt.Sprintf("cap_total (%d) must be >= cap_file (%d)", c.CapTotal, c.CapFile))
	case c.ContextLines < 0:
		return differr.CapsInvalid(fmt.Sprintf("context_lines must be non-negative, got %d", c.ContextLines))
	case c.RenameThreshold < 0 || c.RenameThreshold > 100:
		return differr.CapsInvalid(fmt.Sprintf("find_renames_threshold must be in [0,100], got %d", c.RenameThreshold))
	case c.RepoURL == "":
		return differr.CapsInvalid("repo_url is required")
	case c.CommitGood == "" || c.CommitCandidate == "":
		return differr.CapsInvalid("both commit_good and commit_candidate are required")
	}
	return nil
}

func (c *Config) policy() *PolicyTable {
	if c.Policy != nil {
		return c.Policy
	}
	return DefaultPolicyTable()
}

// RunDriver is the full capability set the pipeline needs from an
// established workspace.
type RunDriver interface {
	Driver
	GitVersion() string
	ResolveCommit(ctx context.Context, ref string) (string, error)
}

// CloseFunc releases a workspace. failed reports whether the run is ending
// on an error, which the workspace may use to preserve its directory.
type CloseFunc func(failed bool)

// Opener establishes a workspace for a run: version check, clone, and
// commit presence. Errors carry their classification.
type Opener func(ctx context.Context, cfg Config) (RunDriver, CloseFunc, error)

// Run executes the whole pipeline: validate, open workspace, discover
// changes, extract hunks, apply caps, serialize with checksum. The result
// is always a complete envelope; a failing run never produces a partial
// payload.
func Run(ctx context.Context, cfg Config, open Opener) Envelope {
	if derr := cfg.Validate(); derr != nil {
		return Envelope{OK: false, Error: derr}
	}

	drv, closeFn, err := open(ctx, cfg)
	if err != nil {
		return Envelope{OK: false, Error: differr.From(err)}
	}
	failed := true
	defer func() { closeFn(failed) }()

	payload, err := execute(ctx, cfg, drv)
	if err != nil {
		return Envelope{OK: false, Error: differr.From(err)}
	}

	failed = false
	return Envelope{OK: true, Data: payload}
}

func execute(ctx context.Context, cfg Config, drv RunDriver) (*Payload, error) {
	good, err := drv.ResolveCommit(ctx, cfg.CommitGood)
	if err != nil {
		return nil, err
	}
	cand, err := drv.ResolveCommit(ctx, cfg.CommitCandidate)
	if err != nil {
		return nil, err
	}

	files, err := Discover(ctx, drv, good, cand, cfg.RenameThreshold)
	if err != nil {
		return nil, err
	}

	fileNotes, err := extractAll(ctx, cfg, drv, good, cand, files)
	if err != nil {
		return nil, err
	}

	caps := Caps{TotalBytes: cfg.CapTotal, PerFileBytes: cfg.CapFile, ContextLines: cfg.ContextLines}
	omittedFiles, capNotes := ApplyCaps(files, caps, cfg.policy())

	notes := assembleNotes(files, fileNotes, capNotes, omittedFiles)

	payload := &Payload{
		Provenance: Provenance{
			RepoURL:         cfg.RepoURL,
			CommitGood:      good,
			CommitCandidate: cand,
			BranchName:      cfg.BranchName,
			Caps:            caps,
			RenameDetection: RenameDetection{Enabled: true, ThresholdPct: cfg.RenameThreshold},
			GitVersion:      drv.GitVersion(),
			DiffAlgorithm:   DiffAlgorithm,
			EnvLocks:        DefaultEnvLocks(),
		},
		Files:             files,
		OmittedFilesCount: omittedFiles,
		Notes:             notes,
	}
	if err := Finalize(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// extractAll runs per-file hunk extraction. Files are independent so the
// git subprocesses run in parallel; results land in per-index slots and
// the file order fixed by discovery is untouched.
func extractAll(ctx context.Context, cfg Config, drv Driver, good, cand string, files []FileRecord) ([]string, error) {
	diagnostics := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range files {
		i := i
		f := &files[i]
		if f.IsBinary || f.IsSubmodule {
			continue
		}
		g.Go(func() error {
			patch, err := drv.UnifiedPatch(gctx, good, cand, f.PathOld, f.PathNew, cfg.ContextLines)
			if err != nil {
				return fmt.Errorf("diff for %s: %w", f.EffectivePath(), err)
			}
			hunks, err := ExtractHunks(patch)
			if err != nil {
				diagnostics[i] = fmt.Sprintf("hunk parse failed for %s: %v", f.EffectivePath(), err)
				return nil
			}
			f.Hunks = hunks
			f.EOLOnlyChange = IsEOLOnlyChange(hunks)
			f.WhitespaceOnlyChange = IsWhitespaceOnlyChange(hunks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var notes []string
	for _, d := range diagnostics {
		if d != "" {
			notes = append(notes, d)
		}
	}
	return notes, nil
}

// assembleNotes merges per-file diagnostics, cap-engine notes, and the
// summary counters, de-duplicated preserving first-seen order.
func assembleNotes(files []FileRecord, fileNotes, capNotes []string, omittedFiles int) []string {
	var notes []string
	notes = append(notes, fileNotes...)
	notes = append(notes, capNotes...)

	summarized, eolFiles, wsFiles := 0, 0, 0
	for i := range files {
		if files[i].Summarized {
			summarized++
		}
		if files[i].EOLOnlyChange {
			eolFiles++
		}
		if files[i].WhitespaceOnlyChange {
			wsFiles++
		}
	}
	if omittedFiles > 0 {
		notes = append(notes, fmt.Sprintf("%d files omitted due to global capacity limit", omittedFiles))
	}
	if summarized > 0 {
		notes = append(notes, fmt.Sprintf("%d lockfiles summarized", summarized))
	}
	if eolFiles > 0 {
		notes = append(notes, fmt.Sprintf("EOL changes detected in %d files", eolFiles))
	}
	if wsFiles > 0 {
		notes = append(notes, fmt.Sprintf("Whitespace-only changes in %d files", wsFiles))
	}

	seen := make(map[string]struct{}, len(notes))
	deduped := notes[:0]
	for _, n := range notes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		deduped = append(deduped, n)
	}
	if len(deduped) == 0 {
		return nil
	}
	return deduped
}
