// Package redact keeps repository credentials out of anything the tool
// emits.
//
// Clone and fetch URLs may carry injected userinfo; git happily echoes them
// back in error messages. [URL] strips userinfo from a URL, [Value] scrubs
// known secret values from arbitrary text, and [Secrets] applies regex
// heuristics for common credential shapes (URL userinfo, hosting tokens,
// bearer headers) as a final net over subprocess output.
package redact
