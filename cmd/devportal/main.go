package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("devportal", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Parse(args)

	if *showVersion {
		fmt.Printf("devportal %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)
	logger.Info("starting devportal",
		"version", Version,
		"config", *configPath,
	)

	server, err := NewServer(cfg, logger)
	if err != nil {
		return exitCode(logger, "failed to create server", err)
	}

	if err := server.Start(context.Background()); err != nil {
		return exitCode(logger, "server error", err)
	}
	return ExitSuccess
}

// exitCode logs the failure and maps it onto the process exit code.
func exitCode(logger *slog.Logger, msg string, err error) int {
	var sErr *ServerError
	if errors.As(err, &sErr) {
		logger.Error(msg, "error", sErr.Err, "operation", sErr.Op)
		return sErr.ExitCode
	}
	logger.Error(msg, "error", err)
	return ExitConfigError
}
