package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "subproc",
	Short: "Run shell-like process pipelines without a shell",
	Long: `subproc builds pipelines of external processes (cmd1 | cmd2 > file)
and runs them directly, wiring the stages together with OS pipes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
