package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete <prefix>",
	Short: "List identifier completions for a prefix",
	Long: `Spawn the REPL and ask it for completions of the given identifier
prefix, one candidate per line.

Examples:
  hask complete putStr
  hask complete 'Data.List.sor'`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	proc, cleanup, err := startProcess(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	comps, err := proc.CompleteIdentifier(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	for _, c := range comps.Candidates {
		fmt.Println(c)
	}
	if comps.Total > len(comps.Candidates) {
		fmt.Printf("(%d more)\n", comps.Total-len(comps.Candidates))
	}
	return nil
}
