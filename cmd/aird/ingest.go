package main

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/pathkey"
)

func newIngestCmd(logger *slog.Logger) *cobra.Command {
	var productID string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Land local files into a product's raw bucket and catalog them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, loadConfig(), logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			product, err := rt.catalog.GetProduct(ctx, productID)
			if err != nil {
				return err
			}
			scope := pathkey.Scope{
				WorkspaceID: product.WorkspaceID,
				ProductID:   product.ID,
				Version:     product.CurrentVersion,
			}

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				filename := filepath.Base(path)
				stem := strings.TrimSuffix(filename, filepath.Ext(filename))
				if filepath.Ext(filename) == ".pdf" {
					// Binary objects keep their extension in the stem so
					// the preprocess stage recognizes the format.
					stem = filename
				}
				key := scope.RawTextKey(stem)
				if err := rt.store.PutBytes(ctx, rt.cfg.Bucket, key, data, contentTypeFor(filename)); err != nil {
					return err
				}

				sum := md5.Sum(data)
				if _, err := rt.catalog.CreateRawFile(ctx, domain.RawFile{
					ProductID:   product.ID,
					Version:     product.CurrentVersion,
					Filename:    filename,
					FileStem:    stem,
					Bucket:      rt.cfg.Bucket,
					Key:         key,
					Size:        int64(len(data)),
					Checksum:    hex.EncodeToString(sum[:]),
					ContentType: contentTypeFor(filename),
					Status:      domain.RawFileIngested,
				}); err != nil {
					return fmt.Errorf("catalog raw file %s: %w", stem, err)
				}
				logger.Info("ingested", "file", filename, "stem", stem, "key", key, "bytes", len(data))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&productID, "product", "", "product id (required)")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}
