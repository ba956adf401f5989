package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run 'PIPELINE'",
	Short: "Parse and run a pipeline string.",
	Long: `Runs a shell-like pipeline directly, without invoking a shell:

  subproc run 'ps aux | awk "{print \$2}" | sort -n > pids.txt'

The process exits with the pipeline's final exit status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		pipeline, err := parsePipeline(args[0])
		if err != nil {
			return err
		}
		return report(pipeline.RunStatus())
	},
}

// report prints a non-zero pipeline status and mirrors it as the
// CLI's own exit status. OS and usage errors propagate to cobra.
func report(status int, err error) error {
	if err != nil {
		return err
	}
	if status != 0 {
		color.Red("exit status %d", status)
		os.Exit(status)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
