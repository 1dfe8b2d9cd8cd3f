package gitctx

import (
	"context"

	"github.com/dshills/diffpack/internal/diffpack"
)

// NewOpener binds credentials to the pipeline's workspace contract. The
// returned opener clones per run and hands the workspace back as the run
// driver.
func NewOpener(username, token string) diffpack.Opener {
	return func(ctx context.Context, cfg diffpack.Config) (diffpack.RunDriver, diffpack.CloseFunc, error) {
		w, err := Open(ctx, Options{
			RepoURL:         cfg.RepoURL,
			Commits:         []string{cfg.CommitGood, cfg.CommitCandidate},
			BranchHint:      cfg.BranchName,
			RenameThreshold: cfg.RenameThreshold,
			Username:        username,
			Token:           token,
			KeepWorkdir:     cfg.KeepWorkdir,
			KeepOnError:     cfg.KeepOnError,
		})
		if err != nil {
			return nil, nil, err
		}
		return w, w.Close, nil
	}
}
