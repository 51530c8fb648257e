package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/primedata-ai/aird/engine/pipeline"
)

func newQueryCmd(logger *slog.Logger) *cobra.Command {
	var productID, userID string
	var topK int
	var useProd, strict bool

	cmd := &cobra.Command{
		Use:   "query <text>...",
		Short: "Run an ACL-filtered playground query against a product",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, loadConfig(), logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.runner.PlaygroundQuery(ctx, productID, userID, strings.Join(args, " "), pipeline.QueryOptions{
				UseProd: useProd,
				Strict:  strict,
				TopK:    topK,
			})
			if err != nil {
				return err
			}

			out := map[string]any{
				"collection":  res.Collection,
				"acl_applied": res.ACLApplied,
				"hits":        res.Hits,
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&productID, "product", "", "product id (required)")
	cmd.Flags().StringVar(&userID, "user", "", "user id whose ACLs apply (required)")
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of results")
	cmd.Flags().BoolVar(&useProd, "prod", false, "query the promoted collection via the production alias")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on embedding dimension mismatch instead of using the collection's")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
