package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/supporttools/GoPGVault/pkg/restore"
)

var (
	flagRestoreTarget       string
	flagRestoreDropRecreate bool
	flagRestoreExisting     bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore [file]",
	Short: "Restore a database from a dump artifact",
	Long: `Restore a database from a dump artifact.

Without a file argument, the source is selected interactively from the
operation history or from the dumps directory. Binary archives are restored
with pg_restore, plain .sql scripts are executed with psql; both stream
their output while running.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		opts := restore.Options{
			TargetDatabase: flagRestoreTarget,
		}
		if len(args) == 1 {
			opts.ArchivePath = args[0]
		}
		if flagRestoreDropRecreate {
			opts.Strategy = restore.StrategyDropRecreate
		} else if flagRestoreExisting {
			opts.Strategy = restore.StrategyExisting
		}

		result, err := app.Restore(cmd.Context(), flagConnection, opts)
		if err != nil {
			return err
		}
		if result.Cancelled {
			fmt.Println("Restore cancelled.")
			return nil
		}

		fmt.Printf("Restored %s into %s\n", result.Entry.FilePath, result.Entry.Database)
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVarP(&flagRestoreTarget, "target", "t", "", "target database name")
	restoreCmd.Flags().BoolVar(&flagRestoreDropRecreate, "drop-recreate", false, "drop and recreate the target database before restoring")
	restoreCmd.Flags().BoolVar(&flagRestoreExisting, "existing", false, "restore into the target database as it stands")
	restoreCmd.MarkFlagsMutuallyExclusive("drop-recreate", "existing")
	rootCmd.AddCommand(restoreCmd)
}
