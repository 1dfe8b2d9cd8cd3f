package config

import (
	"os"
	"strconv"

	"github.com/dshills/diffpack/internal/diffpack"
)

// DefaultListenAddr is where the HTTP server binds unless DIFFPACK_ADDR
// overrides it.
const DefaultListenAddr = ":8080"

// Env carries process-level settings read from the environment. Git
// credentials stay here and are handed to the driver only; nothing in the
// output path sees them.
type Env struct {
	GitUsername string
	GitToken    string
	LogLevel    string
	ListenAddr  string
}

// FromEnv reads the process environment.
func FromEnv() Env {
	e := Env{
		GitUsername: os.Getenv("GIT_USERNAME"),
		GitToken:    os.Getenv("GIT_AUTH_TOKEN"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		ListenAddr:  os.Getenv("DIFFPACK_ADDR"),
	}
	if e.ListenAddr == "" {
		e.ListenAddr = DefaultListenAddr
	}
	return e
}

// Load builds a run config by merging: defaults <- env <- overrides. The
// overrides map comes from CLI flags; only explicitly set values should
// appear in it.
func Load(overrides map[string]string) diffpack.Config {
	cfg := diffpack.DefaultConfig()
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)
	return cfg
}

func mergeEnv(cfg *diffpack.Config) {
	if n, ok := envInt("DIFFPACK_CAP_TOTAL"); ok {
		cfg.CapTotal = n
	}
	if n, ok := envInt("DIFFPACK_CAP_FILE"); ok {
		cfg.CapFile = n
	}
	if n, ok := envInt("DIFFPACK_CONTEXT_LINES"); ok {
		cfg.ContextLines = n
	}
	if n, ok := envInt("DIFFPACK_FIND_RENAMES"); ok {
		cfg.RenameThreshold = n
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func mergeOverrides(cfg *diffpack.Config, overrides map[string]string) {
	for key, val := range overrides {
		switch key {
		case "repo":
			cfg.RepoURL = val
		case "good":
			cfg.CommitGood = val
		case "cand":
			cfg.CommitCandidate = val
		case "branch":
			cfg.BranchName = val
		case "capTotal":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.CapTotal = n
			}
		case "capFile":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.CapFile = n
			}
		case "context":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.ContextLines = n
			}
		case "findRenames":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.RenameThreshold = n
			}
		case "keepWorkdir":
			cfg.KeepWorkdir = val == "true"
		case "keepOnError":
			cfg.KeepOnError = val == "true"
		}
	}
}
