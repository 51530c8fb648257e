package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func newPromoteCmd(logger *slog.Logger) *cobra.Command {
	var productID string
	var version int

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Point the production alias at a version's collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, loadConfig(), logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			if version <= 0 {
				product, err := rt.catalog.GetProduct(ctx, productID)
				if err != nil {
					return err
				}
				version = product.CurrentVersion
			}
			return rt.runner.Promote(ctx, productID, version)
		},
	}
	cmd.Flags().StringVar(&productID, "product", "", "product id (required)")
	cmd.Flags().IntVar(&version, "version", 0, "version to promote (defaults to current)")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}
