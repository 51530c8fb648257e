package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var productID, dagID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the full stage pipeline for a product's current version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, loadConfig(), logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			run, err := rt.runner.Run(ctx, productID, dagID)
			if err != nil {
				return err
			}
			logger.Info("run finished",
				"run", run.ID,
				"product", run.ProductID,
				"version", run.Version,
				"status", run.Status,
				"stages_completed", run.AIRDStagesCompleted)
			return nil
		},
	}
	cmd.Flags().StringVar(&productID, "product", "", "product id (required)")
	cmd.Flags().StringVar(&dagID, "dag-id", "", "opaque external DAG identifier")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}
