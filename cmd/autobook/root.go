package main

import (
	"errors"
	"fmt"
	"os"

	"autobook/internal/service"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

const (
	exitOK             = 0
	exitFailure        = 1
	exitPriorCrash     = 3
	exitAlreadyRunning = 4
)

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "autobook",
		Short:         "Books open Globish group classes and remembers the ones it could not get",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config.yaml")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newCrashCmd(&configPath))
	root.AddCommand(newIgnoreCmd(&configPath))
	root.AddCommand(newHistoryCmd(&configPath))

	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	code := exitCode(err)
	if err != nil && code != exitPriorCrash && code != exitAlreadyRunning {
		fmt.Fprintln(os.Stderr, err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, service.ErrPriorCrash):
		return exitPriorCrash
	case errors.Is(err, service.ErrAlreadyRunning):
		return exitAlreadyRunning
	default:
		return exitFailure
	}
}
