package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/supporttools/GoPGVault/pkg/dump"
)

var (
	flagDumpOutput  string
	flagDumpVerbose bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <database>",
	Short: "Back up a database with pg_dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		entry, err := app.Dump(cmd.Context(), flagConnection, dump.Options{
			Database:   args[0],
			OutputName: flagDumpOutput,
			Verbose:    flagDumpVerbose,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Dump written to %s (%s)\n", entry.FilePath, humanize.Bytes(uint64(entry.FileSize)))
		return nil
	},
}

func init() {
	dumpCmd.Flags().StringVarP(&flagDumpOutput, "output", "o", "", "custom base name for the dump file (timestamp is always appended)")
	dumpCmd.Flags().BoolVarP(&flagDumpVerbose, "verbose", "v", false, "stream pg_dump output")
	rootCmd.AddCommand(dumpCmd)
}
