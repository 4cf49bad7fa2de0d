package main

import (
	"log/slog"

	"github.com/cecat/soundviz-go/cmd"
	"github.com/cecat/soundviz-go/internal/analysis"
	"github.com/cecat/soundviz-go/internal/conf"
	"github.com/cecat/soundviz-go/internal/logcombine"
	"github.com/cecat/soundviz-go/internal/logging"
	"github.com/cecat/soundviz-go/internal/soundlog"
)

func main() {
	logging.Init(slog.LevelInfo)
	defer closeLoggers()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("error loading configuration", "error", err)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		closeLoggers()
		logging.Fatal("command failed", "error", err)
	}
}

func closeLoggers() {
	if err := soundlog.CloseLogger(); err != nil {
		logging.Error("failed to close log reader logger", "error", err)
	}
	if err := analysis.CloseLogger(); err != nil {
		logging.Error("failed to close analysis logger", "error", err)
	}
	if err := logcombine.CloseLogger(); err != nil {
		logging.Error("failed to close log combine logger", "error", err)
	}
}
