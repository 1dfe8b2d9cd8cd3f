// Package api serves the diff pipeline over HTTP.
//
// POST /diff accepts the run configuration as JSON and returns the same
// envelope the CLI emits, in canonical form. GET /health and GET /version
// report tool and git availability for orchestrators.
package api
