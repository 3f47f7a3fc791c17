// Package cmd provides the CLI commands for the hask tool.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s9gf4ult/haskell-mode/internal/config"
	"github.com/s9gf4ult/haskell-mode/internal/ghci"
	"github.com/s9gf4ult/haskell-mode/internal/transport"
)

// Version is set at build time via -ldflags "-X ...cmd.Version=v1.0.0"
var Version = "dev"

var (
	ghciCommand string
	ghciArgs    []string
	workDir     string
	startupWait time.Duration
)

var rootCmd = &cobra.Command{
	Use:     "hask",
	Short:   "Drive a GHCi subprocess from the command line",
	Version: Version,
	Long: `hask spawns a GHCi (or compatible REPL) subprocess, installs a prompt
delimiter, and exchanges commands with it synchronously.

It talks to the REPL directly; use it for one-off evaluation and
completion queries, or as an interactive wrapper. For long-lived named
sessions use haskell-mode-server.`,
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ghciCommand, "ghci", "ghci", "REPL command to spawn")
	rootCmd.PersistentFlags().StringArrayVar(&ghciArgs, "arg", nil, "Extra argument for the REPL command (repeatable)")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", "", "Working directory for the REPL")
	rootCmd.PersistentFlags().DurationVar(&startupWait, "startup-timeout", 30*time.Second, "How long to wait for the REPL prompt")
}

// startProcess spawns the REPL and runs its setup sequence. The returned
// cleanup function terminates the subprocess.
func startProcess(ctx context.Context) (*ghci.Process, func(), error) {
	tr, err := transport.NewLocal(ctx, ghciCommand, ghciArgs, workDir, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start %s: %w", ghciCommand, err)
	}

	proc := ghci.New("hask", tr)
	runCtx, cancel := context.WithCancel(context.Background())
	go proc.Run(runCtx)

	cleanup := func() {
		proc.SetRestarting(true) // deliberate shutdown, no ended notification
		cancel()
		_ = tr.Close()
	}

	setupCtx, setupCancel := context.WithTimeout(ctx, startupWait)
	defer setupCancel()
	for _, line := range config.DefaultSetup() {
		if _, err := proc.SyncRequest(setupCtx, line); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("REPL setup failed: %w", err)
		}
	}
	return proc, cleanup, nil
}
