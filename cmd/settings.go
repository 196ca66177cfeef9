package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show persisted settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		fmt.Printf("dump-dir: %s\n", app.DumpDirectory())
		return nil
	},
}

var settingsDumpDirCmd = &cobra.Command{
	Use:   "set-dump-dir <directory>",
	Short: "Override where dump artifacts are written",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		if err := app.SetDumpDirectory(args[0]); err != nil {
			return err
		}
		fmt.Printf("Dump directory set to %s\n", args[0])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsDumpDirCmd)
	rootCmd.AddCommand(settingsCmd)
}
