package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/supporttools/GoPGVault/pkg/storage/s3"
)

var flagPresignExpiry time.Duration

var offsiteCmd = &cobra.Command{
	Use:   "offsite",
	Short: "Inspect offsite dump copies in S3",
}

var offsiteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List offsite dump copies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := s3.NewClient()
		if err != nil {
			return err
		}

		keys, err := client.ListDumps(cmd.Context())
		if err != nil {
			return err
		}

		for _, key := range keys {
			fmt.Println(key)
		}
		return nil
	},
}

var offsiteURLCmd = &cobra.Command{
	Use:   "url <object-key>",
	Short: "Generate a time-limited download URL for an offsite copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := s3.NewClient()
		if err != nil {
			return err
		}

		url, err := client.PresignDump(cmd.Context(), args[0], flagPresignExpiry)
		if err != nil {
			return err
		}

		fmt.Println(url)
		return nil
	},
}

func init() {
	offsiteURLCmd.Flags().DurationVar(&flagPresignExpiry, "expiry", time.Hour, "how long the URL stays valid")
	offsiteCmd.AddCommand(offsiteListCmd, offsiteURLCmd)
	rootCmd.AddCommand(offsiteCmd)
}
