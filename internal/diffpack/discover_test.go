package diffpack

import (
	"context"
	"strings"
	"testing"
)

// fakeDriver serves change discovery and hunk extraction from in-memory
// fixtures, keyed the way the git driver would answer.
type fakeDriver struct {
	changes []RawChange
	meta    map[string]Metadata // "commit:path"
	binary  map[string]bool     // path
	sub     map[string][2]string
	patches map[string]string // "pathOld|pathNew"

	gitVersion string
	resolved   map[string]string
	resolveErr error
}

func (d *fakeDriver) NameStatus(ctx context.Context, good, cand string, threshold int) ([]RawChange, error) {
	return d.changes, nil
}

func (d *fakeDriver) FileMetadata(ctx context.Context, commit, path string) (Metadata, bool, error) {
	m, ok := d.meta[commit+":"+path]
	return m, ok, nil
}

func (d *fakeDriver) IsBinary(ctx context.Context, good, cand, path string) (bool, error) {
	return d.binary[path], nil
}

func (d *fakeDriver) UnifiedPatch(ctx context.Context, good, cand, pathOld, pathNew string, contextLines int) (string, error) {
	return d.patches[pathOld+"|"+pathNew], nil
}

func (d *fakeDriver) SubmoduleSHAs(ctx context.Context, good, cand, path string) (string, string, error) {
	pair := d.sub[path]
	return pair[0], pair[1], nil
}

func (d *fakeDriver) GitVersion() string { return d.gitVersion }

func (d *fakeDriver) ResolveCommit(ctx context.Context, ref string) (string, error) {
	if d.resolveErr != nil {
		return "", d.resolveErr
	}
	if full, ok := d.resolved[ref]; ok {
		return full, nil
	}
	return ref, nil
}

func sizePtr(n int64) *int64 { return &n }

func TestDiscover_NormalizesAndOrders(t *testing.T) {
	drv := &fakeDriver{
		changes: []RawChange{
			{Status: "M", PathNew: "zz.go"},
			{Status: "A", PathNew: "aa.go"},
			{Status: "D", PathOld: "mm.go"},
		},
		meta: map[string]Metadata{
			"good:zz.go": {Mode: "100644", Size: sizePtr(10)},
			"cand:zz.go": {Mode: "100644", Size: sizePtr(12)},
			"cand:aa.go": {Mode: "100644", Size: sizePtr(5)},
			"good:mm.go": {Mode: "100755", Size: sizePtr(7)},
		},
	}
	files, err := Discover(context.Background(), drv, "good", "cand", 90)
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	order := []string{"aa.go", "mm.go", "zz.go"}
	for i, want := range order {
		if got := files[i].EffectivePath(); got != want {
			t.Errorf("files[%d] = %s, want %s", i, got, want)
		}
	}
	del := files[1]
	if del.Status != StatusDeleted || del.PathNew != "" || del.PathOld != "mm.go" {
		t.Errorf("deletion record = %+v", del)
	}
	if del.ModeOld != "100755" || del.SizeOld == nil || *del.SizeOld != 7 {
		t.Errorf("deletion metadata = mode %s size %v", del.ModeOld, del.SizeOld)
	}
	if del.ModeNew != "" || del.SizeNew != nil {
		t.Errorf("deleted file must not carry new-side metadata")
	}
}

func TestDiscover_UnknownStatus(t *testing.T) {
	drv := &fakeDriver{changes: []RawChange{{Status: "X", PathNew: "weird.go"}}}
	_, err := Discover(context.Background(), drv, "good", "cand", 90)
	if err == nil {
		t.Fatal("want error for unknown status")
	}
	if !strings.Contains(err.Error(), `unknown change status "X"`) {
		t.Errorf("error = %v", err)
	}
}

func TestDiscover_BelowThresholdRenameDowngraded(t *testing.T) {
	drv := &fakeDriver{
		changes: []RawChange{{Status: "R", Score: 50, PathOld: "old.go", PathNew: "new.go"}},
		meta: map[string]Metadata{
			"good:old.go": {Mode: "100644", Size: sizePtr(10)},
			"cand:new.go": {Mode: "100644", Size: sizePtr(10)},
		},
	}
	files, err := Discover(context.Background(), drv, "good", "cand", 90)
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want add+delete pair", len(files))
	}
	if files[0].Status != StatusAdded || files[0].PathNew != "new.go" {
		t.Errorf("first = %+v, want add of new.go", files[0])
	}
	if files[1].Status != StatusDeleted || files[1].PathOld != "old.go" {
		t.Errorf("second = %+v, want delete of old.go", files[1])
	}
}

func TestDiscover_BelowThresholdCopyKeepsSource(t *testing.T) {
	drv := &fakeDriver{
		changes: []RawChange{{Status: "C", Score: 50, PathOld: "src.go", PathNew: "dup.go"}},
		meta:    map[string]Metadata{"cand:dup.go": {Mode: "100644"}},
	}
	files, err := Discover(context.Background(), drv, "good", "cand", 90)
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(files) != 1 || files[0].Status != StatusAdded {
		t.Fatalf("downgraded copy is a bare add, got %+v", files)
	}
}

func TestDiscover_SubmoduleChange(t *testing.T) {
	drv := &fakeDriver{
		changes: []RawChange{{Status: "M", PathNew: "vendor/lib"}},
		meta: map[string]Metadata{
			"good:vendor/lib": {Mode: "160000", IsSubmodule: true},
			"cand:vendor/lib": {Mode: "160000", IsSubmodule: true},
		},
		sub: map[string][2]string{"vendor/lib": {"sha-old", "sha-new"}},
	}
	files, err := Discover(context.Background(), drv, "good", "cand", 90)
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	f := files[0]
	if !f.IsSubmodule || f.Submodule == nil {
		t.Fatalf("submodule not detected: %+v", f)
	}
	if f.Submodule.OldSHA != "sha-old" || f.Submodule.NewSHA != "sha-new" {
		t.Errorf("shas = %s/%s", f.Submodule.OldSHA, f.Submodule.NewSHA)
	}
	if f.IsBinary {
		t.Error("submodules skip the binary check")
	}
}

func TestResolveRenameTies_PathRule(t *testing.T) {
	files := []FileRecord{
		{Status: StatusRenamed, PathOld: "pkg/util/a.go", PathNew: "pkg/util/b.go", RenameScore: 95},
		{Status: StatusCopied, PathOld: "other/tree/a.go", PathNew: "pkg/util/b.go", RenameScore: 95},
	}
	resolveRenameTies(files)
	for i := range files {
		if files[i].RenameTiebreaker != TiebreakPath {
			t.Errorf("files[%d].RenameTiebreaker = %q, want path", i, files[i].RenameTiebreaker)
		}
	}
}

func TestResolveRenameTies_SizeRule(t *testing.T) {
	files := []FileRecord{
		{Status: StatusRenamed, PathOld: "a/x.go", PathNew: "a/y.go", RenameScore: 95,
			SizeOld: sizePtr(100), SizeNew: sizePtr(101)},
		{Status: StatusCopied, PathOld: "a/z.go", PathNew: "a/y.go", RenameScore: 95,
			SizeOld: sizePtr(100), SizeNew: sizePtr(150)},
	}
	resolveRenameTies(files)
	if files[0].RenameTiebreaker != TiebreakSize {
		t.Errorf("tiebreaker = %q, want size", files[0].RenameTiebreaker)
	}
}

func TestResolveRenameTies_LexRule(t *testing.T) {
	files := []FileRecord{
		{Status: StatusCopied, PathOld: "a/bb.go", PathNew: "a/target.go", RenameScore: 95},
		{Status: StatusCopied, PathOld: "a/aa.go", PathNew: "a/target.go", RenameScore: 95},
	}
	resolveRenameTies(files)
	if files[0].RenameTiebreaker != TiebreakLex {
		t.Errorf("tiebreaker = %q, want lex", files[0].RenameTiebreaker)
	}
}

func TestResolveRenameTies_NotNearTie(t *testing.T) {
	files := []FileRecord{
		{Status: StatusRenamed, PathOld: "a.go", PathNew: "t.go", RenameScore: 99},
		{Status: StatusCopied, PathOld: "b.go", PathNew: "t.go", RenameScore: 92},
	}
	resolveRenameTies(files)
	for i := range files {
		if files[i].RenameTiebreaker != "" {
			t.Errorf("files[%d] should carry no tiebreaker, got %q", i, files[i].RenameTiebreaker)
		}
	}
}

func TestPathSimilarity(t *testing.T) {
	same := pathSimilarity("pkg/util/a.go", "pkg/util/b.go")
	far := pathSimilarity("pkg/util/a.go", "other/place/b.go")
	if same <= far {
		t.Errorf("shared directories should score higher: %v vs %v", same, far)
	}
	if got := pathSimilarity("", "x"); got != 0 {
		t.Errorf("empty path similarity = %v, want 0", got)
	}
}
