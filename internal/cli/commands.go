package cli

import (
	"time"

	"github.com/spf13/cobra"
)

type SyncOptions struct {
	DryRun bool
	Window time.Duration
}

func NewSyncCmd(root *RootOptions) *cobra.Command {
	opts := &SyncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync every window between the checkpoint and now",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runSync(c, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Fetch, transform and validate without pushing or saving the checkpoint")
	cmd.Flags().DurationVarP(&opts.Window, "window", "w", 0, "Window size (defaults to SYNC_WINDOW)")

	return cmd
}

func NewCheckpointCmd(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or move the sync checkpoint",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored checkpoint, or the default start when none is stored",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runCheckpointShow(c, root)
		},
	}

	set := &cobra.Command{
		Use:   "set <epoch-ms|RFC3339>",
		Short: "Overwrite the checkpoint to rewind or skip ahead",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runCheckpointSet(c, root, args[0])
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}
