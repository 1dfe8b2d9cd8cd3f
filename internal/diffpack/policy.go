package diffpack

import "path/filepath"

// PolicyTable classifies paths whose diffs are mechanically produced and
// low-signal. Matching files are summarized instead of truncated when
// their raw patch cost exceeds the per-file cap.
//
// Fixed names match the path basename case-sensitively; entries containing
// glob metacharacters are matched against the basename with filepath.Match.
type PolicyTable struct {
	patterns []string
}

// defaultPolicyPatterns is the shipped lockfile/generated set.
var defaultPolicyPatterns = []string{
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"npm-shrinkwrap.json",
	"poetry.lock",
	"Pipfile.lock",
	"gradle.lockfile",
	"Gemfile.lock",
	"composer.lock",
	"Cargo.lock",
	"go.sum",
	"Package.resolved",
	"mix.lock",
	"packages.lock.json",
	"*.min.js",
	"*.map",
}

// DefaultPolicyTable returns a table with the shipped pattern set.
func DefaultPolicyTable() *PolicyTable {
	return NewPolicyTable(defaultPolicyPatterns)
}

// NewPolicyTable builds a table from an explicit pattern list. The slice
// is copied; the table is immutable after construction.
func NewPolicyTable(patterns []string) *PolicyTable {
	p := &PolicyTable{patterns: make([]string, len(patterns))}
	copy(p.patterns, patterns)
	return p
}

// Patterns returns a copy of the configured pattern list.
func (p *PolicyTable) Patterns() []string {
	out := make([]string, len(p.patterns))
	copy(out, p.patterns)
	return out
}

// Matches reports whether path is classified as lockfile/generated.
func (p *PolicyTable) Matches(path string) bool {
	if path == "" {
		return false
	}
	base := filepath.Base(path)
	for _, pat := range p.patterns {
		if hasGlobMeta(pat) {
			if ok, err := filepath.Match(pat, base); err == nil && ok {
				return true
			}
			continue
		}
		if base == pat {
			return true
		}
	}
	return false
}

func hasGlobMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}
