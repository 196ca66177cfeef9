// Package cmd wires the CLI surface to the command handlers. Argument
// parsing and help text live here; all behavior lives in pkg/commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/supporttools/GoPGVault/pkg/commands"
	"github.com/supporttools/GoPGVault/pkg/config"
)

var (
	flagConnection string
	flagDebug      bool
)

var rootCmd = &cobra.Command{
	Use:   "gopgvault",
	Short: "Manage PostgreSQL connection profiles, backups and restores",
	Long: `GoPGVault manages named database connection profiles and runs backup
and restore operations through the PostgreSQL client tools, keeping a
durable history of every operation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadConfiguration()

		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		if flagDebug || config.CFG.Debug {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConnection, "connection", "c", "", "connection profile to use (overrides session and default)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
}

// newApp builds the command handler context with the terminal prompter.
func newApp() (*commands.App, error) {
	return commands.NewApp(newTerminalPrompter())
}
