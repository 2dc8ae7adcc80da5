package main

import (
	"context"
	"fmt"
	"os"

	"codelists/internal/codelist"
	"codelists/internal/config"
	"codelists/internal/logging"
	"codelists/internal/storage"
	"codelists/internal/workspace"
)

// getWorkspaceRoot returns the nearest directory holding .codelists/,
// starting from the current directory.
func getWorkspaceRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, _, err := workspace.FindRoot(cwd)
	return root, err
}

// openEngine loads the workspace config, opens the database and creates an
// engine. Commands that write take the workspace lock first. The returned
// close function releases the database and the lock.
func openEngine(write bool) (*codelist.Engine, func(), error) {
	root, err := getWorkspaceRoot()
	if err != nil {
		return nil, nil, err
	}

	var lock *workspace.Lock
	if write {
		lock, err = workspace.AcquireLock(workspace.Dir(root))
		if err != nil {
			return nil, nil, err
		}
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		lock.Release()
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := storage.Open(cfg.DatabasePath(root), logger)
	if err != nil {
		lock.Release()
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	engine, err := codelist.NewEngine(db, logger, cfg)
	if err != nil {
		db.Close()
		lock.Release()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return engine, func() {
		db.Close()
		lock.Release()
	}, nil
}

// newLogger creates a logger from config and the --log-level flag.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(level),
	})
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// printResponse formats resp with the --format flag and writes it to stdout.
func printResponse(resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
