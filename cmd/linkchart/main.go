package main

import (
	"os"

	"github.com/wsmontes/linkchart/internal/util"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
