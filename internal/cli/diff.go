package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/diffpack/internal/config"
	"github.com/dshills/diffpack/internal/diffpack"
	"github.com/dshills/diffpack/internal/gitctx"
)

var (
	flagRepo        string
	flagGood        string
	flagCand        string
	flagBranch      string
	flagCapTotal    int
	flagCapFile     int
	flagContext     int
	flagFindRenames int
	flagJSONOut     string
	flagKeepWorkdir bool
	flagKeepOnError bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare two commits and emit the change payload",
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&flagRepo, "repo", "", "Repository URL or path (required)")
	diffCmd.Flags().StringVar(&flagGood, "good", "", "Known-good commit SHA (required)")
	diffCmd.Flags().StringVar(&flagCand, "cand", "", "Candidate commit SHA (required)")
	diffCmd.Flags().StringVar(&flagBranch, "branch", "", "Branch name label and fetch hint")
	diffCmd.Flags().IntVar(&flagCapTotal, "cap-total", 0, "Global diff budget in bytes")
	diffCmd.Flags().IntVar(&flagCapFile, "cap-file", 0, "Per-file diff budget in bytes")
	diffCmd.Flags().IntVar(&flagContext, "context", -1, "Context lines in unified diffs")
	diffCmd.Flags().IntVar(&flagFindRenames, "find-renames", -1, "Rename similarity threshold in percent")
	diffCmd.Flags().StringVar(&flagJSONOut, "json", "", "Write the envelope to this path instead of stdout")
	diffCmd.Flags().BoolVar(&flagKeepWorkdir, "keep-workdir", false, "Preserve the temporary workspace")
	diffCmd.Flags().BoolVar(&flagKeepOnError, "keep-on-error", false, "Preserve the workspace when the run fails")
	_ = diffCmd.MarkFlagRequired("repo")
	_ = diffCmd.MarkFlagRequired("good")
	_ = diffCmd.MarkFlagRequired("cand")
}

func buildOverrides() map[string]string {
	m := map[string]string{
		"repo": flagRepo,
		"good": flagGood,
		"cand": flagCand,
	}
	if flagBranch != "" {
		m["branch"] = flagBranch
	}
	if flagCapTotal > 0 {
		m["capTotal"] = fmt.Sprintf("%d", flagCapTotal)
	}
	if flagCapFile > 0 {
		m["capFile"] = fmt.Sprintf("%d", flagCapFile)
	}
	if flagContext >= 0 {
		m["context"] = fmt.Sprintf("%d", flagContext)
	}
	if flagFindRenames >= 0 {
		m["findRenames"] = fmt.Sprintf("%d", flagFindRenames)
	}
	if flagKeepWorkdir {
		m["keepWorkdir"] = "true"
	}
	if flagKeepOnError {
		m["keepOnError"] = "true"
	}
	return m
}

func runDiff(cmd *cobra.Command, args []string) error {
	env := config.FromEnv()
	cfg := config.Load(buildOverrides())

	slog.Debug("starting diff run", "repo", cfg.RepoURL, "good", cfg.CommitGood, "cand", cfg.CommitCandidate)

	envelope := diffpack.Run(cmd.Context(), cfg, gitctx.NewOpener(env.GitUsername, env.GitToken))
	if !envelope.OK {
		exitCode = ExitFailure
		slog.Error("run failed", "code", envelope.Error.Code, "message", envelope.Error.Message)
	}

	out, err := diffpack.PrettyBytes(diffpack.EnvelopeView(envelope))
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	out = append(out, '\n')

	if flagJSONOut != "" {
		if err := os.WriteFile(flagJSONOut, out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", flagJSONOut, err)
		}
		return nil
	}
	_, err = os.Stdout.Write(out)
	return err
}
