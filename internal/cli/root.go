package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the released tool version, reported by the version command
// and the HTTP surface.
const Version = "1.0.0"

// Exit codes.
const (
	ExitSuccess    = 0
	ExitFailure    = 1
	ExitUsageError = 2
)

var rootCmd = &cobra.Command{
	Use:   "diffpack",
	Short: "Deterministic commit-to-commit diff payloads",
	Long:  "Diffpack compares two commits of a repository and emits a byte-capped, checksummed JSON change payload.",
}

// Run executes the root command and returns an exit code.
func Run(ctx context.Context) int {
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print diffpack version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "diffpack version %s\n", Version)
	},
}
