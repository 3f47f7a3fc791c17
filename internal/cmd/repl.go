package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s9gf4ult/haskell-mode/internal/ghci"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive wrapper around the REPL",
	Long: `Spawn the REPL and exchange lines with it interactively. Unlike raw
ghci, every response is a complete delimited unit, which makes the
wrapper usable over pipes.

Exit with :quit, Ctrl-D, or by killing the subprocess.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	proc, cleanup, err := startProcess(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("λ> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == ":quit" {
			return nil
		}

		response, err := proc.SyncRequest(cmd.Context(), line)
		if err != nil {
			if errors.Is(err, ghci.ErrProcessEnded) {
				fmt.Fprintln(os.Stderr, "REPL exited")
				return nil
			}
			return err
		}
		if response != "" {
			fmt.Println(strings.TrimRight(response, "\n"))
		}
	}
}
