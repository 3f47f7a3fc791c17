package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval <input>",
	Short: "Evaluate one line in a fresh GHCi and print the response",
	Long: `Spawn the REPL, evaluate the given input, print the delimited response,
and exit. The input may be an expression or a GHCi :command.

Examples:
  hask eval '1 + 1'
  hask eval ':type mapM_'
  hask --ghci stack --arg ghci eval ':load Main.hs'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	proc, cleanup, err := startProcess(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	response, err := proc.SyncRequest(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimRight(response, "\n"))
	return nil
}
