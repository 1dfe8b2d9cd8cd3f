// Package diffpack turns two commits of a repository into a bounded,
// deterministic change payload.
//
// The pipeline runs as a fixed sequence: change discovery over git
// name-status output, per-file hunk extraction from unified diffs, byte
// capping (per file and global, with lockfile summarization), and
// canonical serialization with an embedded SHA-256 checksum. For identical
// inputs the emitted bytes are identical regardless of platform, locale,
// or how many files were diffed in parallel.
//
// [Run] is the single entry point; everything else in the package is a
// stage it composes.
package diffpack
