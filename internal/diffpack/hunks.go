package diffpack

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// hunkHeaderRe accepts exactly the unified form @@ -o[,ol] +n[,nl] @@ with
// an optional trailing section heading, which is ignored.
var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ExtractHunks parses unified-diff text into structured hunks. Text before
// the first @@ header (diff/index/mode and ---/+++ lines) is skipped.
// A non-nil error means the line accounting disagreed with a header; the
// caller emits the file without hunks and records a diagnostic note.
func ExtractHunks(patch string) ([]Hunk, error) {
	if patch == "" {
		return nil, nil
	}

	lines := strings.Split(patch, "\n")
	// A trailing newline leaves one empty element behind; it belongs to
	// no hunk.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	var hunks []Hunk
	var header string
	var match []string
	var body []string

	flush := func() error {
		if header == "" {
			return nil
		}
		h, err := buildHunk(header, match, body)
		if err != nil {
			return err
		}
		hunks = append(hunks, h)
		return nil
	}

	for _, line := range lines {
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			if err := flush(); err != nil {
				return nil, err
			}
			header = line
			match = m
			body = nil
			continue
		}
		if header != "" {
			body = append(body, line)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return hunks, nil
}

func buildHunk(header string, match []string, body []string) (Hunk, error) {
	oldStart := mustAtoi(match[1])
	oldLines := 1
	if match[2] != "" {
		oldLines = mustAtoi(match[2])
	}
	newStart := mustAtoi(match[3])
	newLines := 1
	if match[4] != "" {
		newLines = mustAtoi(match[4])
	}

	var added, deleted, context int
	for _, line := range body {
		switch {
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			deleted++
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file" is retained in the patch
			// text but counts toward nothing.
		default:
			context++
		}
	}

	if oldLines != context+deleted || newLines != context+added {
		return Hunk{}, fmt.Errorf(
			"hunk accounting mismatch at %q: header claims -%d/+%d, body has %d context, %d deleted, %d added",
			header, oldLines, newLines, context, deleted, added)
	}

	patch := header
	if len(body) > 0 {
		patch += "\n" + strings.Join(body, "\n")
	}

	return Hunk{
		Header:   header,
		OldStart: oldStart,
		OldLines: oldLines,
		NewStart: newStart,
		NewLines: newLines,
		Added:    added,
		Deleted:  deleted,
		Patch:    patch,
	}, nil
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s) // guarded by hunkHeaderRe digit groups
	return n
}

// changeLines returns the removed and added line contents of a hunk body
// with their sign characters stripped.
func changeLines(h Hunk) (removed, added []string) {
	lines := strings.Split(h.Patch, "\n")
	for _, line := range lines[1:] { // skip the @@ header
		switch {
		case strings.HasPrefix(line, "-"):
			removed = append(removed, line[1:])
		case strings.HasPrefix(line, "+"):
			added = append(added, line[1:])
		}
	}
	return removed, added
}

// IsEOLOnlyChange reports whether every change across all hunks is a pure
// CRLF<->LF conversion: removed and added lines pair up within each hunk
// and each pair is identical once a trailing carriage return is stripped.
// Any substantive delta in any hunk makes the whole file non-EOL-only.
func IsEOLOnlyChange(hunks []Hunk) bool {
	sawChange := false
	for _, h := range hunks {
		removed, added := changeLines(h)
		if len(removed) != len(added) {
			return false
		}
		for i := range removed {
			if strings.TrimSuffix(removed[i], "\r") != strings.TrimSuffix(added[i], "\r") {
				return false
			}
			sawChange = true
		}
	}
	return sawChange
}

// IsWhitespaceOnlyChange reports whether, hunk by hunk, the removed and
// added content is identical after deleting all ASCII whitespace.
func IsWhitespaceOnlyChange(hunks []Hunk) bool {
	sawChange := false
	for _, h := range hunks {
		removed, added := changeLines(h)
		if len(removed)+len(added) == 0 {
			continue
		}
		sawChange = true
		if stripWhitespace(removed) != stripWhitespace(added) {
			return false
		}
	}
	return sawChange
}

func stripWhitespace(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		for _, r := range line {
			switch r {
			case ' ', '\t', '\n', '\r', '\v', '\f':
			default:
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
