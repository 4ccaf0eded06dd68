package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions are the flags shared by every sub-command.
type RootOptions struct {
	LogFile  string
	LogLevel string
}

func NewRootCmd() *cobra.Command {
	opts := &RootOptions{}

	rootCmd := &cobra.Command{
		Use:   "eventsync",
		Short: "eventsync - incremental PostHog to Power BI event sync",
		Long: `eventsync pulls analytics events from the PostHog events API in fixed time
windows, reshapes them into flat rows and pushes them to Power BI push datasets.
Progress is tracked by a checkpoint that only moves after a window is delivered.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "Also write logs to this file (overrides LOG_FILE)")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(NewSyncCmd(opts), NewCheckpointCmd(opts))

	return rootCmd
}
