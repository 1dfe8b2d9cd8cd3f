package diffpack

import (
	"strings"
	"testing"
)

func sizedHunk(id byte, n int) Hunk {
	return Hunk{Header: "@@", Patch: strings.Repeat(string(id), n)}
}

func capsFor(total, perFile int) Caps {
	return Caps{TotalBytes: total, PerFileBytes: perFile, ContextLines: 3}
}

func TestApplyCaps_NoOverflow(t *testing.T) {
	files := []FileRecord{{
		Status:  StatusModified,
		PathNew: "a.go", PathOld: "a.go",
		Hunks: []Hunk{sizedHunk('a', 100), sizedHunk('b', 100)},
	}}
	omitted, notes := ApplyCaps(files, capsFor(1000, 500), DefaultPolicyTable())
	if omitted != 0 {
		t.Errorf("omitted = %d, want 0", omitted)
	}
	if len(notes) != 0 {
		t.Errorf("notes = %v, want none", notes)
	}
	f := files[0]
	if f.Truncated || len(f.Hunks) != 2 {
		t.Errorf("truncated=%v hunks=%d, want untouched file", f.Truncated, len(f.Hunks))
	}
}

func TestApplyCaps_FirstAndLastPreserved(t *testing.T) {
	files := []FileRecord{{
		Status:  StatusModified,
		PathNew: "a.go", PathOld: "a.go",
		Hunks: []Hunk{sizedHunk('a', 40), sizedHunk('b', 40), sizedHunk('c', 40), sizedHunk('d', 40)},
	}}
	ApplyCaps(files, capsFor(10_000, 100), DefaultPolicyTable())
	f := files[0]
	if !f.Truncated {
		t.Fatal("file should be truncated")
	}
	if len(f.Hunks) != 2 {
		t.Fatalf("got %d hunks, want 2", len(f.Hunks))
	}
	if f.Hunks[0].Patch[0] != 'a' || f.Hunks[1].Patch[0] != 'd' {
		t.Errorf("retained %c,%c, want first and last (a,d)", f.Hunks[0].Patch[0], f.Hunks[1].Patch[0])
	}
	if f.OmittedHunksCount != 2 {
		t.Errorf("omitted_hunks_count = %d, want 2", f.OmittedHunksCount)
	}
}

func TestApplyCaps_EvictsMiddlesForLast(t *testing.T) {
	// a+b+c fit under the cap, but the last hunk d needs b and c evicted.
	files := []FileRecord{{
		Status:  StatusModified,
		PathNew: "a.go", PathOld: "a.go",
		Hunks: []Hunk{sizedHunk('a', 30), sizedHunk('b', 30), sizedHunk('c', 30), sizedHunk('d', 60)},
	}}
	ApplyCaps(files, capsFor(10_000, 100), DefaultPolicyTable())
	f := files[0]
	if len(f.Hunks) != 2 {
		t.Fatalf("got %d hunks, want 2", len(f.Hunks))
	}
	if f.Hunks[0].Patch[0] != 'a' || f.Hunks[1].Patch[0] != 'd' {
		t.Errorf("retained %c,%c, want a,d", f.Hunks[0].Patch[0], f.Hunks[1].Patch[0])
	}
	if got := hunksCost(f.Hunks); got > 100 {
		t.Errorf("file cost %d exceeds cap 100", got)
	}
}

func TestApplyCaps_PairExceedsCap(t *testing.T) {
	files := []FileRecord{{
		Status:  StatusModified,
		PathNew: "a.go", PathOld: "a.go",
		Hunks: []Hunk{sizedHunk('a', 70), sizedHunk('b', 10), sizedHunk('c', 70)},
	}}
	ApplyCaps(files, capsFor(10_000, 100), DefaultPolicyTable())
	f := files[0]
	if len(f.Hunks) != 1 || f.Hunks[0].Patch[0] != 'a' {
		t.Fatalf("want only the first hunk, got %d", len(f.Hunks))
	}
	if f.OmittedHunksCount != 2 {
		t.Errorf("omitted_hunks_count = %d, want 2", f.OmittedHunksCount)
	}
}

func TestApplyCaps_SingleOversizedHunkKept(t *testing.T) {
	files := []FileRecord{{
		Status:  StatusModified,
		PathNew: "a.go", PathOld: "a.go",
		Hunks: []Hunk{sizedHunk('a', 500)},
	}}
	ApplyCaps(files, capsFor(10_000, 100), DefaultPolicyTable())
	f := files[0]
	if !f.Truncated {
		t.Error("oversized single hunk marks the file truncated")
	}
	if len(f.Hunks) != 1 {
		t.Fatalf("got %d hunks, want the hunk kept in full", len(f.Hunks))
	}
	if f.OmittedHunksCount != 0 {
		t.Errorf("omitted_hunks_count = %d, want 0", f.OmittedHunksCount)
	}
}

func TestApplyCaps_LockfileSummarized(t *testing.T) {
	files := []FileRecord{{
		Status:  StatusModified,
		PathNew: "deps/package-lock.json", PathOld: "deps/package-lock.json",
		Hunks: []Hunk{sizedHunk('a', 200)},
	}}
	omitted, notes := ApplyCaps(files, capsFor(10_000, 100), DefaultPolicyTable())
	f := files[0]
	if !f.Summarized {
		t.Error("lockfile over the per-file cap should be summarized")
	}
	if len(f.Hunks) != 0 || f.Truncated {
		t.Errorf("summarized file carries no hunks, got %d truncated=%v", len(f.Hunks), f.Truncated)
	}
	if omitted != 0 {
		t.Errorf("omitted = %d, want 0", omitted)
	}
	if len(notes) != 1 || notes[0] != "summarized lockfile: deps/package-lock.json" {
		t.Errorf("notes = %v", notes)
	}
}

func TestApplyCaps_SmallLockfileNotSummarized(t *testing.T) {
	files := []FileRecord{{
		Status:  StatusModified,
		PathNew: "yarn.lock", PathOld: "yarn.lock",
		Hunks: []Hunk{sizedHunk('a', 50)},
	}}
	_, notes := ApplyCaps(files, capsFor(10_000, 100), DefaultPolicyTable())
	if files[0].Summarized {
		t.Error("lockfile under the cap keeps its hunks")
	}
	if len(notes) != 0 {
		t.Errorf("notes = %v, want none", notes)
	}
}

func TestApplyCaps_GlobalBestEffortAdmit(t *testing.T) {
	// b overflows the global budget; c still fits afterwards.
	files := []FileRecord{
		{Status: StatusModified, PathNew: "a.go", PathOld: "a.go", Hunks: []Hunk{sizedHunk('a', 80)}},
		{Status: StatusModified, PathNew: "b.go", PathOld: "b.go", Hunks: []Hunk{sizedHunk('b', 90)}},
		{Status: StatusModified, PathNew: "c.go", PathOld: "c.go", Hunks: []Hunk{sizedHunk('c', 20)}},
	}
	omitted, _ := ApplyCaps(files, capsFor(100, 100), DefaultPolicyTable())
	if omitted != 1 {
		t.Fatalf("omitted = %d, want 1", omitted)
	}
	if len(files[0].Hunks) != 1 {
		t.Error("a.go should keep its hunks")
	}
	if len(files[1].Hunks) != 0 {
		t.Error("b.go should be dropped by the global cap")
	}
	if len(files[2].Hunks) != 1 {
		t.Error("c.go should still be admitted after the overflow")
	}
}

func TestApplyCaps_GlobalDropClearsTruncation(t *testing.T) {
	files := []FileRecord{
		{Status: StatusModified, PathNew: "a.go", PathOld: "a.go", Hunks: []Hunk{sizedHunk('a', 90)}},
		{Status: StatusModified, PathNew: "b.go", PathOld: "b.go",
			Hunks: []Hunk{sizedHunk('b', 60), sizedHunk('c', 60), sizedHunk('d', 60)}},
	}
	omitted, _ := ApplyCaps(files, capsFor(100, 100), DefaultPolicyTable())
	if omitted != 1 {
		t.Fatalf("omitted = %d, want 1", omitted)
	}
	f := files[1]
	if len(f.Hunks) != 0 {
		t.Fatal("b.go should be dropped by the global cap")
	}
	if f.Truncated || f.OmittedHunksCount != 0 {
		t.Errorf("globally dropped file cannot stay truncated: truncated=%v omitted=%d", f.Truncated, f.OmittedHunksCount)
	}
}

func TestApplyCaps_MetadataNotCounted(t *testing.T) {
	// A binary file with no hunks consumes no budget.
	files := []FileRecord{
		{Status: StatusModified, PathNew: "img.png", PathOld: "img.png", IsBinary: true},
		{Status: StatusModified, PathNew: "z.go", PathOld: "z.go", Hunks: []Hunk{sizedHunk('z', 100)}},
	}
	omitted, _ := ApplyCaps(files, capsFor(100, 100), DefaultPolicyTable())
	if omitted != 0 {
		t.Errorf("omitted = %d, want 0", omitted)
	}
	if len(files[1].Hunks) != 1 {
		t.Error("z.go should be admitted")
	}
}
