package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version 由 -ldflags "-X main.version=..." 注入。
var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "realtime-client",
		Short:         "Realtime notification, workflow and chat client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildRunCmd(), buildVersionCmd())
	return root
}

func buildRunCmd() *cobra.Command {
	var (
		configPath string
		rooms      []string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the server and serve the local view",
		Long: `Connect the notification and workflow channels, join the requested chat rooms
and serve the rendered fragments on the local view server.

Settings come from defaults, then the YAML file given by --config, then the
environment (a .env file in the working directory is loaded first).
Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Connect with credentials from .env
  realtime-client run

  # Join two rooms on start
  realtime-client run --room 12 --room 40 --config client.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), configPath, rooms)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringArrayVarP(&rooms, "room", "r", nil, "Chat room id to join on start (repeatable)")
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
