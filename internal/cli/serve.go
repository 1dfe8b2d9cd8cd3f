package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/diffpack/internal/api"
	"github.com/dshills/diffpack/internal/config"
	"github.com/dshills/diffpack/internal/gitctx"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from DIFFPACK_ADDR or :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	env := config.FromEnv()
	addr := env.ListenAddr
	if flagAddr != "" {
		addr = flagAddr
	}

	srv := api.New(Version, gitctx.NewOpener(env.GitUsername, env.GitToken))
	slog.Info("listening", "addr", addr)
	return srv.ListenAndServe(cmd.Context(), addr)
}
