// Package cli wires together the Cobra command tree for the diffpack
// binary.
//
// It defines the root command and its subcommands (diff, serve, version),
// binds flags, merges configuration, invokes the pipeline, and returns
// deterministic exit codes: 0 for a successful envelope, 1 for a
// classified failure, 2 for usage errors.
package cli
