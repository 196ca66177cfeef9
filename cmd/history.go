package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	flagHistoryType  string
	flagHistoryLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded dump and restore operations, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		for _, entry := range app.HistoryList(flagHistoryType, flagHistoryLimit) {
			status := entry.Status
			if entry.Deleted {
				status += " (deleted)"
			}

			fmt.Printf("%s  %-7s  %-8s  %s  %s  %s\n",
				entry.Timestamp.Format("2006-01-02 15:04:05"),
				entry.OperationType,
				status,
				entry.Database,
				entry.FilePath,
				humanize.Bytes(uint64(entry.FileSize)))
			if entry.ErrorMessage != "" {
				fmt.Printf("    error: %s\n", entry.ErrorMessage)
			}
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id-or-path>",
	Short: "Mark a history entry as deleted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		found, err := app.HistoryDelete(args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no history entry matches %q", args[0])
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove history entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		removed, err := app.HistoryClear(flagHistoryType)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d entries\n", removed)
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().StringVar(&flagHistoryType, "type", "", "filter by operation type (dump or restore)")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 0, "maximum entries to show")
	historyCmd.AddCommand(historyDeleteCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
