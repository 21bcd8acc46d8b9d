package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"narrative-workers/internal/cli"
	"narrative-workers/internal/cli/formatter"
	"narrative-workers/internal/common/logger"

	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Style output only when a person is reading it.
	fd := os.Stdout.Fd()
	formatter.SetStyled(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))

	level := os.Getenv("NARRATIVE_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	zapLogger := logger.New(level, "console")
	defer func() { _ = zapLogger.Sync() }()

	app := &cli.App{
		ConfigPath: os.Getenv("NARRATIVE_CONFIG"),
		Fixture:    os.Getenv("NARRATIVE_FIXTURE"),
		DBPath:     os.Getenv("NARRATIVE_DB"),
		Logger:     logger.NewZapAdapter(zapLogger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
