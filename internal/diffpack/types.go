package diffpack

import "github.com/dshills/diffpack/internal/differr"

// Status is one of the six canonical change statuses reported by git
// name-status output.
type Status string

const (
	StatusAdded       Status = "A"
	StatusCopied      Status = "C"
	StatusDeleted     Status = "D"
	StatusModified    Status = "M"
	StatusRenamed     Status = "R"
	StatusTypeChanged Status = "T"
)

// KnownStatus reports whether s is a member of the canonical status set.
func KnownStatus(s Status) bool {
	switch s {
	case StatusAdded, StatusCopied, StatusDeleted, StatusModified, StatusRenamed, StatusTypeChanged:
		return true
	}
	return false
}

// Tiebreaker names which rule resolved a rename near-tie.
type Tiebreaker string

const (
	TiebreakPath Tiebreaker = "path"
	TiebreakSize Tiebreaker = "size"
	TiebreakLex  Tiebreaker = "lex"
)

// Hunk is a contiguous block of a unified diff sharing a single @@ header.
// Patch holds the hunk's full text including the header line.
type Hunk struct {
	Header   string
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Added    int
	Deleted  int
	Patch    string
}

// SubmoduleChange carries the gitlink SHAs on either side of the change.
type SubmoduleChange struct {
	OldSHA string
	NewSHA string
}

// FileRecord is one entry in the ordered change set. Optional string
// attributes use "" for absent; optional sizes use nil.
type FileRecord struct {
	Status  Status
	PathOld string
	PathNew string

	RenameScore      int // valid only for R/C
	RenameTiebreaker Tiebreaker

	ModeOld string
	ModeNew string
	SizeOld *int64
	SizeNew *int64

	IsBinary    bool
	IsSubmodule bool

	EOLOnlyChange        bool
	WhitespaceOnlyChange bool
	Summarized           bool
	Truncated            bool
	OmittedHunksCount    int // meaningful only when Truncated

	Submodule *SubmoduleChange

	Hunks []Hunk
}

// EffectivePath is the path used for ordering: path_new when present,
// otherwise path_old.
func (f *FileRecord) EffectivePath() string {
	if f.PathNew != "" {
		return f.PathNew
	}
	return f.PathOld
}

// Caps is the provenance view of the configured byte budgets.
type Caps struct {
	TotalBytes   int
	PerFileBytes int
	ContextLines int
}

// RenameDetection is the provenance view of rename detection settings.
type RenameDetection struct {
	Enabled      bool
	ThresholdPct int
}

// EnvLocks is the fixed environment lock mapping recorded in provenance.
type EnvLocks struct {
	LCAll    string
	Color    string
	AutoCRLF string
}

// DefaultEnvLocks returns the locked git environment recorded in every
// payload.
func DefaultEnvLocks() EnvLocks {
	return EnvLocks{LCAll: "C", Color: "off", AutoCRLF: "false"}
}

// Provenance records everything needed to reproduce the payload.
type Provenance struct {
	RepoURL         string
	CommitGood      string
	CommitCandidate string
	BranchName      string
	Caps            Caps
	RenameDetection RenameDetection
	GitVersion      string
	DiffAlgorithm   string
	EnvLocks        EnvLocks
	Checksum        string
}

// Payload is the complete successful output of a run.
type Payload struct {
	Provenance        Provenance
	Files             []FileRecord
	OmittedFilesCount int
	Notes             []string
}

// Envelope is the single output shape: ok with data, or not ok with a
// classified error.
type Envelope struct {
	OK    bool
	Data  *Payload
	Error *differr.Error
}
