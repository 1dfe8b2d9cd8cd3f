// Package gitctx drives git for the diff pipeline.
//
// A [Workspace] is a blobless, no-checkout clone in a temporary directory.
// Every subprocess runs under a locked environment (C locale, isolated
// config, color off, CRLF conversion off, Myers algorithm) so output is
// identical across platforms and user configuration. Clone and fetch are
// the only operations allowed to take real time; they get a long deadline
// and exactly one retry before a timeout is reported.
//
// Credentials for private remotes are injected into the transfer URL only
// and scrubbed from any subprocess output before it can surface in an
// error.
package gitctx
