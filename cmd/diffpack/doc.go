// Diffpack compares two commits of a git repository and emits a bounded,
// deterministic JSON change payload with a verifiable checksum.
//
// Usage:
//
//	diffpack diff --repo <url> --good <sha> --cand <sha>   # emit a payload
//	diffpack serve                                         # run the HTTP API
//	diffpack version                                       # print the version
//
// The diff command writes a single JSON envelope to stdout (or --json
// <path>) and exits 0 when the payload was produced, 1 when the run failed
// with a classified error.
package main
