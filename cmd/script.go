package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/josephlewis42/subproc/core/script"
)

var scriptFile string

// scriptCmd represents the script command
var scriptCmd = &cobra.Command{
	Use:   "script [NAME]",
	Short: "Run a named pipeline from a script file.",
	Long: `Runs one of the pipelines defined in a YAML script file:

  pipelines:
    pids:
      stages: ["ps aux", "awk '{print $2}'", "sort -n"]
      stdout: pids.txt

With no NAME, lists the pipelines the file defines.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		s, err := script.Load(scriptFile)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			names := s.Names()
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}

		pipeline, err := s.Command(args[0])
		if err != nil {
			return err
		}
		return report(pipeline.RunStatus())
	},
}

func init() {
	scriptCmd.Flags().StringVarP(&scriptFile, "file", "f", script.DefaultName, "script file to load")
	rootCmd.AddCommand(scriptCmd)
}
