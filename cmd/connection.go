package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/supporttools/GoPGVault/pkg/registry"
)

var (
	flagAddHost     string
	flagAddPort     int
	flagAddUser     string
	flagAddPassword string
	flagAddDatabase string
	flagAddSSL      bool
	flagAddFilePath string
	flagAddType     string
)

var connectCmd = &cobra.Command{
	Use:   "connect <name>",
	Short: "Activate a saved connection for this session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		if err := app.Connect(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Connected to %s\n", args[0])
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Clear the active session connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.Disconnect()
	},
}

var connectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Manage saved connection profiles",
}

var connectionAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Save a new connection profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		profile := registry.Profile{
			Type:       flagAddType,
			Host:       flagAddHost,
			Port:       flagAddPort,
			User:       flagAddUser,
			Password:   flagAddPassword,
			Database:   flagAddDatabase,
			SSLEnabled: flagAddSSL,
			FilePath:   flagAddFilePath,
		}

		if err := app.AddConnection(args[0], profile); err != nil {
			return err
		}
		fmt.Printf("Saved connection %s\n", args[0])
		return nil
	},
}

var connectionRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a saved connection profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.RemoveConnection(args[0])
	},
}

var connectionRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a saved connection profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.RenameConnection(args[0], args[1])
	},
}

var connectionDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Mark a saved connection as the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.SetDefaultConnection(args[0])
	},
}

var connectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connections, most recently used first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		defaultName, _ := app.Registry.DefaultConnection()
		active, _ := app.Session.Active()

		for _, named := range app.ListConnections() {
			marker := " "
			if named.Name == defaultName {
				marker = "*"
			}
			sessionTag := ""
			if named.Name == active {
				sessionTag = " (active)"
			}

			lastUsed := "never"
			if named.Profile.LastConnectedAt != nil {
				lastUsed = humanize.Time(*named.Profile.LastConnectedAt)
			}

			switch named.Profile.Type {
			case registry.TypePostgres:
				fmt.Printf("%s %s%s  %s@%s:%d  last used %s\n",
					marker, named.Name, sessionTag, named.Profile.User, named.Profile.Host, named.Profile.Port, lastUsed)
			case registry.TypeSQLite:
				fmt.Printf("%s %s%s  %s  last used %s\n",
					marker, named.Name, sessionTag, named.Profile.FilePath, lastUsed)
			default:
				fmt.Printf("%s %s%s  (unknown type %q)\n", marker, named.Name, sessionTag, named.Profile.Type)
			}
		}
		return nil
	},
}

func init() {
	connectionAddCmd.Flags().StringVar(&flagAddType, "type", registry.TypePostgres, "connection type (postgres or sqlite)")
	connectionAddCmd.Flags().StringVar(&flagAddHost, "host", "localhost", "server host")
	connectionAddCmd.Flags().IntVar(&flagAddPort, "port", 5432, "server port")
	connectionAddCmd.Flags().StringVar(&flagAddUser, "user", "postgres", "user name")
	connectionAddCmd.Flags().StringVar(&flagAddPassword, "password", "", "password")
	connectionAddCmd.Flags().StringVar(&flagAddDatabase, "database", "", "default database")
	connectionAddCmd.Flags().BoolVar(&flagAddSSL, "ssl", false, "require SSL")
	connectionAddCmd.Flags().StringVar(&flagAddFilePath, "file", "", "database file path (file-based engines)")

	connectionCmd.AddCommand(connectionAddCmd, connectionRemoveCmd, connectionRenameCmd, connectionDefaultCmd, connectionListCmd)
	rootCmd.AddCommand(connectCmd, disconnectCmd, connectionCmd)
}
