package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "devdash/internal/log"
)

const version = "0.3.0"

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "devdash",
		Short: "Personal dashboard of calendar, tasks, issues and tickets",
		Long: `devdash aggregates calendar events, tasks, GitHub issues and pull
requests, Jira tickets and Confluence tasks into one page.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				appLog.SetLevel(appLog.LevelDebug)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, onceCmd, snapshotCmd, setCmd)
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		appLog.Error("devdash failed", err)
		os.Exit(1)
	}
}
