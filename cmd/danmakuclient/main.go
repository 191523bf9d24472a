// Package main is a small operable demonstration of the danmaku client:
// connect to a room, log and print decoded events, and run until
// interrupted.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "danmakuclient",
		Short:         "Connect to a Bilibili-style live-room danmaku feed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(connectCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}
