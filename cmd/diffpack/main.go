package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dshills/diffpack/internal/cli"
	"github.com/dshills/diffpack/internal/config"
	"github.com/dshills/diffpack/internal/logger"
)

func main() {
	_ = godotenv.Load()
	logger.Setup(config.FromEnv().LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(cli.Run(ctx))
}
