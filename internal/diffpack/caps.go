package diffpack

import "fmt"

// hunkCost is the byte cost of a hunk: the UTF-8 length of its patch text.
func hunkCost(h Hunk) int {
	return len(h.Patch)
}

func hunksCost(hunks []Hunk) int {
	total := 0
	for _, h := range hunks {
		total += hunkCost(h)
	}
	return total
}

// ApplyCaps enforces the per-file and global byte budgets over files already
// in output order. It mutates the records in place and returns the count of
// files whose hunks were dropped by the global cap plus the per-file notes
// generated along the way (lockfile summarizations).
//
// Caps bound the diff body only; metadata is never counted. The global walk
// is best-effort admit in order: an over-budget file loses its hunks but the
// walk continues, since a later smaller file may still fit.
func ApplyCaps(files []FileRecord, caps Caps, policy *PolicyTable) (omittedFiles int, notes []string) {
	for i := range files {
		f := &files[i]
		if len(f.Hunks) == 0 {
			continue
		}
		if policy.Matches(f.EffectivePath()) && hunksCost(f.Hunks) > caps.PerFileBytes {
			f.Summarized = true
			f.Hunks = nil
			notes = append(notes, fmt.Sprintf("summarized lockfile: %s", f.EffectivePath()))
			continue
		}
		capFileHunks(f, caps.PerFileBytes)
	}

	running := 0
	for i := range files {
		f := &files[i]
		cost := hunksCost(f.Hunks)
		if cost == 0 {
			continue
		}
		if running+cost <= caps.TotalBytes {
			running += cost
			continue
		}
		// Dropped by the global cap: metadata survives, hunks do not.
		// A file without hunks cannot claim truncation.
		f.Hunks = nil
		f.Truncated = false
		f.OmittedHunksCount = 0
		omittedFiles++
	}

	return omittedFiles, notes
}

// capFileHunks applies the per-file budget with first/last preservation.
// Hunks are admitted greedily in order; on the first overflow the file is
// marked truncated and the engine works to retain both the first admitted
// hunk and the last extracted hunk, evicting middles from the admitted tail
// backwards until the last one fits. The first hunk is evicted only when
// even the (first, last) pair exceeds the cap, in which case the first alone
// survives.
func capFileHunks(f *FileRecord, capBytes int) {
	total := len(f.Hunks)
	if total == 0 {
		return
	}

	var admitted []Hunk
	running := 0
	overflow := false
	for _, h := range f.Hunks {
		c := hunkCost(h)
		if running+c <= capBytes {
			admitted = append(admitted, h)
			running += c
			continue
		}
		overflow = true
		break
	}
	if !overflow {
		return
	}

	f.Truncated = true

	if len(admitted) == 0 {
		// The first hunk alone exceeds the cap. A truncated file must
		// still carry at least one hunk, so the first is kept in full.
		f.Hunks = f.Hunks[:1]
		f.OmittedHunksCount = total - 1
		return
	}

	last := f.Hunks[total-1]
	lastCost := hunkCost(last)
	for running+lastCost > capBytes && len(admitted) > 1 {
		running -= hunkCost(admitted[len(admitted)-1])
		admitted = admitted[:len(admitted)-1]
	}
	if running+lastCost <= capBytes {
		admitted = append(admitted, last)
	} else {
		// Even (first, last) exceeds the cap: only the first survives.
		admitted = admitted[:1]
	}

	f.Hunks = admitted
	f.OmittedHunksCount = total - len(admitted)
}
