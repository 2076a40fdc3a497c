package main

import (
	"time"

	"github.com/geocoder89/familytree/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	timeout time.Duration
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "familytreectl",
		Short:         "Operational tasks for the family tree API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.cfg = config.Load()
		},
	}

	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "deadline for the whole command")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newGraphCmd(opts))

	return cmd
}
