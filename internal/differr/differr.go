package differr

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for the stable failure taxonomy. Codes are part of the
// output contract and never change meaning between releases.
const (
	CodeGitVersionUnsupported = "GIT_VERSION_UNSUPPORTED"
	CodeCloneFailed           = "CLONE_FAILED"
	CodeCommitNotFound        = "COMMIT_NOT_FOUND"
	CodeCapsInvalid           = "CAPS_INVALID"
	CodeNetworkTimeout        = "NETWORK_TIMEOUT"
	CodeInternal              = "INTERNAL_ERROR"
)

// Error is a classified failure with a machine-readable code and a
// structured details mapping. It is the only error type that crosses the
// envelope boundary.
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// VersionUnsupported reports a Git binary older than the required minimum.
func VersionUnsupported(detected, required string) *Error {
	return &Error{
		Code:    CodeGitVersionUnsupported,
		Message: fmt.Sprintf("git version %s is not supported, minimum required: %s", detected, required),
		Details: map[string]any{
			"detected_version": detected,
			"required_version": required,
		},
	}
}

// CloneFailed reports a transport or protocol failure during clone.
func CloneFailed(repoURL, reason string) *Error {
	return &Error{
		Code:    CodeCloneFailed,
		Message: fmt.Sprintf("failed to clone repository: %s", reason),
		Details: map[string]any{
			"repo_url": repoURL,
			"reason":   reason,
		},
	}
}

// CommitNotFound reports commits absent from the repository after fetch.
func CommitNotFound(missing []string, repoURL string) *Error {
	return &Error{
		Code:    CodeCommitNotFound,
		Message: fmt.Sprintf("commits not found: %s", strings.Join(missing, ", ")),
		Details: map[string]any{
			"missing_commits": missing,
			"repo_url":        repoURL,
		},
	}
}

// CapsInvalid reports a configuration that violates the cap invariants.
func CapsInvalid(reason string) *Error {
	return &Error{
		Code:    CodeCapsInvalid,
		Message: fmt.Sprintf("invalid capacity configuration: %s", reason),
		Details: map[string]any{"reason": reason},
	}
}

// NetworkTimeout reports a transport deadline exceeded after the single
// permitted retry.
func NetworkTimeout(operation string, timeoutSeconds int) *Error {
	return &Error{
		Code:    CodeNetworkTimeout,
		Message: fmt.Sprintf("network timeout during %s after %ds", operation, timeoutSeconds),
		Details: map[string]any{
			"operation":       operation,
			"timeout_seconds": timeoutSeconds,
		},
	}
}

// Internal wraps an unexpected condition. Never used to mask a known
// category: From checks for a classified error first.
func Internal(err error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: fmt.Sprintf("internal error: %v", err),
		Details: map[string]any{},
	}
}

// From returns the classified error carried by err, or wraps err as an
// internal error when no classification exists.
func From(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Internal(err)
}
