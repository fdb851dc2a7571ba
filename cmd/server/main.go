package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wsmontes/linkchart/internal/server"
	"github.com/wsmontes/linkchart/internal/util"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	}))

	// Options are validated before any connection is opened.
	opts, err := server.LoadOptions()
	if err != nil {
		logger.Fatal("Failed to load options", "file", util.GetEnv("OPTIONS_FILE"), "err", err)
	}
	logger.Debug("Options loaded",
		"services", len(opts.Services),
		"cacheTimeout", opts.CacheTimeout,
		"requestTimeout", opts.RequestTimeout,
	)

	if err := server.Run(ctx, opts); err != nil {
		logger.Fatal("Server stopped", "err", err)
	}
	logger.Info("Server exited")
}
