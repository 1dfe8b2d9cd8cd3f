package gitctx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/diffpack/internal/differr"
	"github.com/dshills/diffpack/internal/redact"
)

// MinGitVersion is the oldest supported git release.
const MinGitVersion = "2.30"

// Timeouts for git subprocesses. Transfer operations get the long one.
const (
	transferTimeout = 300 * time.Second
	queryTimeout    = 60 * time.Second
)

// Options configures a workspace.
type Options struct {
	RepoURL         string
	Commits         []string
	BranchHint      string
	RenameThreshold int

	// Credentials for private repositories, injected into the transfer
	// URL only. They never appear in output or provenance.
	Username string
	Token    string

	KeepWorkdir bool
	KeepOnError bool
}

// Workspace is a cloned repository under a locked environment. It
// implements the pipeline's driver contract.
type Workspace struct {
	dir        string
	opts       Options
	gitVersion string
}

var versionRe = regexp.MustCompile(`git version (\d+)\.(\d+)(?:\.(\d+))?`)

// DetectVersion runs git --version and enforces the minimum. The returned
// string is the bare version number.
func DetectVersion(ctx context.Context) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(tctx, "git", "--version").Output()
	if err != nil {
		return "", differr.VersionUnsupported("unavailable", MinGitVersion)
	}
	m := versionRe.FindStringSubmatch(string(out))
	if m == nil {
		return "", differr.VersionUnsupported("unknown", MinGitVersion)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	version := m[1] + "." + m[2]
	if m[3] != "" {
		version += "." + m[3]
	}
	if major < 2 || (major == 2 && minor < 30) {
		return "", differr.VersionUnsupported(version, MinGitVersion)
	}
	return version, nil
}

// Open validates the git version, clones the repository into a fresh
// temporary directory, and guarantees the requested commits are present.
// Errors carry their classification from the failure taxonomy.
func Open(ctx context.Context, opts Options) (*Workspace, error) {
	version, err := DetectVersion(ctx)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "diffpack-")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	w := &Workspace{dir: dir, opts: opts, gitVersion: version}
	if err := w.clone(ctx); err != nil {
		w.Close(true)
		return nil, err
	}
	if err := w.ensureCommits(ctx); err != nil {
		w.Close(true)
		return nil, err
	}
	return w, nil
}

// Close removes the workspace directory. failed reports whether the run is
// ending on an error; the directory is preserved when KeepWorkdir is set,
// or when failed and KeepOnError is set.
func (w *Workspace) Close(failed bool) {
	if w.dir == "" {
		return
	}
	if w.opts.KeepWorkdir || (failed && w.opts.KeepOnError) {
		return
	}
	os.RemoveAll(w.dir)
	w.dir = ""
}

// Dir exposes the workspace directory, mainly for --keep-workdir users.
func (w *Workspace) Dir() string { return w.dir }

// GitVersion returns the detected git version.
func (w *Workspace) GitVersion() string { return w.gitVersion }

func (w *Workspace) clone(ctx context.Context) error {
	args := []string{"clone", "--no-checkout", "--filter=blob:none"}
	if w.opts.BranchHint != "" {
		args = append(args, "--branch", w.opts.BranchHint)
	}
	args = append(args, w.transferURL(), ".")

	_, err := w.gitRetry(ctx, "clone", args)
	if err != nil {
		var de *differr.Error
		if errors.As(err, &de) {
			return de
		}
		return differr.CloneFailed(redact.URL(w.opts.RepoURL), w.scrub(err.Error()))
	}
	return nil
}

// ensureCommits checks each requested commit with cat-file and issues one
// targeted fetch for the missing set before giving up on them.
func (w *Workspace) ensureCommits(ctx context.Context) error {
	missing := w.missingCommits(ctx, w.opts.Commits)
	if len(missing) == 0 {
		return nil
	}

	fetchArgs := append([]string{"fetch", w.transferURL()}, missing...)
	if _, err := w.gitRetry(ctx, "fetch", fetchArgs); err != nil {
		var de *differr.Error
		if errors.As(err, &de) {
			return de
		}
		return differr.CommitNotFound(missing, redact.URL(w.opts.RepoURL))
	}

	if still := w.missingCommits(ctx, missing); len(still) > 0 {
		return differr.CommitNotFound(still, redact.URL(w.opts.RepoURL))
	}
	return nil
}

func (w *Workspace) missingCommits(ctx context.Context, commits []string) []string {
	var missing []string
	for _, sha := range commits {
		if _, err := w.git(ctx, queryTimeout, "cat-file", "-e", sha); err != nil {
			missing = append(missing, sha)
		}
	}
	return missing
}

// transferURL injects credentials into the remote URL for clone and fetch.
// Non-URL remotes (scp-like syntax, local paths) are used as-is.
func (w *Workspace) transferURL() string {
	if w.opts.Token == "" {
		return w.opts.RepoURL
	}
	u, err := url.Parse(w.opts.RepoURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return w.opts.RepoURL
	}
	user := w.opts.Username
	if user == "" {
		user = "git"
	}
	u.User = url.UserPassword(user, w.opts.Token)
	return u.String()
}

// scrub removes the injected credentials and any other secret shapes from
// subprocess output before it can reach an error message.
func (w *Workspace) scrub(s string) string {
	return redact.Secrets(redact.Value(s, w.opts.Token, w.transferURL()))
}

// errTimedOut marks a subprocess killed by its deadline.
var errTimedOut = errors.New("git operation timed out")

// gitRetry runs a transfer operation with the long timeout and exactly one
// retry when the deadline is the cause. A second timeout is classified
// NETWORK_TIMEOUT.
func (w *Workspace) gitRetry(ctx context.Context, operation string, args []string) (string, error) {
	out, err := w.git(ctx, transferTimeout, args...)
	if !errors.Is(err, errTimedOut) {
		return out, err
	}
	out, err = w.git(ctx, transferTimeout, args...)
	if errors.Is(err, errTimedOut) {
		return "", differr.NetworkTimeout(operation, int(transferTimeout/time.Second))
	}
	return out, err
}

// git runs one git subprocess in the workspace under the locked
// environment and returns its stdout.
func (w *Workspace) git(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := append([]string{
		"-c", "core.autocrlf=false",
		"-c", "color.ui=false",
		"-c", "diff.algorithm=myers",
	}, args...)

	cmd := exec.CommandContext(tctx, "git", full...)
	cmd.Dir = w.dir
	cmd.Env = lockedEnv()

	out, err := cmd.Output()
	if err != nil {
		if tctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s: %w", args[0], errTimedOut)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("git %s: %s: %s", args[0], err, w.scrub(strings.TrimSpace(string(exitErr.Stderr))))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

// lockedEnv builds the per-invocation environment: C locale, isolated git
// config, and every credential prompt disabled. The process environment is
// never mutated.
func lockedEnv() []string {
	env := os.Environ()
	env = append(env,
		"LC_ALL=C",
		"GIT_CONFIG_GLOBAL="+os.DevNull,
		"GIT_CONFIG_SYSTEM="+os.DevNull,
		"GIT_TERMINAL_PROMPT=0",
		"GIT_ASKPASS=echo",
		"SSH_ASKPASS=echo",
		"GCM_INTERACTIVE=never",
	)
	return env
}
