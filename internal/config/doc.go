// Package config assembles run configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (DIFFPACK_CAP_TOTAL, DIFFPACK_CAP_FILE, ...)
//  3. Built-in defaults
//
// [Env] holds process-level settings: git credentials (GIT_USERNAME,
// GIT_AUTH_TOKEN), LOG_LEVEL, and the serve address (DIFFPACK_ADDR).
package config
