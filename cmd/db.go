package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and manage databases on the active server",
}

var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List databases on the active server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		databases, err := app.ListDatabases(cmd.Context(), flagConnection)
		if err != nil {
			return err
		}

		for _, name := range databases {
			fmt.Println(name)
		}
		return nil
	},
}

var dbDropCmd = &cobra.Command{
	Use:   "drop <database>",
	Short: "Terminate sessions and drop a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		cancelled, err := app.DropDatabase(cmd.Context(), flagConnection, args[0])
		if err != nil {
			return err
		}
		if cancelled {
			fmt.Println("Drop cancelled.")
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbListCmd, dbDropCmd)
	rootCmd.AddCommand(dbCmd)
}
