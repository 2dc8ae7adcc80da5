package main

import (
	"fmt"
	"os"
	"path/filepath"

	"codelists/internal/config"
	cerrors "codelists/internal/errors"
	"codelists/internal/storage"

	"github.com/spf13/cobra"
)

var (
	initForce   bool
	initRelease string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a codelists workspace",
	Long:  "Creates a .codelists/ directory with default configuration and an empty database",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes existing .codelists directory)")
	initCmd.Flags().StringVar(&initRelease, "default-release", "", "Release used when a command does not name one")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return cerrors.Wrap(cerrors.InternalError, "failed to get current directory", err)
	}

	dir := filepath.Join(cwd, config.DirName)
	if _, statErr := os.Stat(dir); statErr == nil {
		if !initForce {
			// already initialized is success
			fmt.Println("Workspace already initialized.")
			fmt.Printf("Configuration at: %s\n", filepath.Join(dir, "config.json"))
			fmt.Println("\nRun 'codelists init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			return cerrors.Wrap(cerrors.InternalError, "failed to remove existing workspace", removeErr)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Ontology.DefaultRelease = initRelease
	if err := cfg.Save(cwd); err != nil {
		return cerrors.Wrap(cerrors.InternalError, "failed to write config file", err)
	}

	logger := newLogger(cfg)
	db, err := storage.Open(cfg.DatabasePath(cwd), logger)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	logger.Info("Workspace initialized", map[string]interface{}{
		"config":   filepath.Join(dir, "config.json"),
		"database": db.Path(),
	})

	fmt.Println("Workspace initialized.")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'codelists ontology import <release.toml>' to load a release")
	fmt.Println("  2. Run 'codelists draft new <codelist> --term <search>' to start a codelist")
	return nil
}

