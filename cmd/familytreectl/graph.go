package main

import (
	"context"
	"fmt"

	"github.com/geocoder89/familytree/internal/config"
	"github.com/geocoder89/familytree/internal/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Manage the Neo4j genealogy graph",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init-schema",
		Short: "Create the Person id constraint and creator index if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()

			driver, err := graph.NewDriver(ctx, opts.cfg.Neo4jURI, opts.cfg.Neo4jUser, opts.cfg.Neo4jPassword)
			if err != nil {
				return err
			}
			defer driver.Close(context.Background())

			store := graph.NewStore(driver, opts.cfg.Neo4jDatabase, nil)
			if err := store.InitSchema(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "graph schema ready")
			return nil
		},
	})

	return cmd
}

func withTimeout(cmd *cobra.Command, opts *rootOptions) (context.Context, context.CancelFunc) {
	return config.WithTimeoutFrom(cmd.Context(), opts.timeout)
}
