package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/supporttools/GoPGVault/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Current())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
