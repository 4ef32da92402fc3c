package main

import (
	"fmt"
	"path/filepath"

	"github.com/dvloznov/sales-pipeline/internal/gcsuploader"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/spf13/cobra"
)

func newUploadCmd(global *globalOptions) *cobra.Command {
	var bucketName, objectName, filePath string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Stage a local batch file in Cloud Storage",
		Long: `Upload a local batch file so it can be ingested from gs://.

Example:
  cli upload --file sales.json --bucket my-batches`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if objectName == "" {
				objectName = filepath.Base(filePath)
			}

			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			ctx, cleanup, err := runContext(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			log := logger.FromContext(ctx)
			log.Info().
				Str("bucket", bucketName).
				Str("object", objectName).
				Str("file", filePath).
				Msg("Uploading file to GCS")

			if err := gcsuploader.UploadFile(ctx, bucketName, objectName, filePath); err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to gs://%s/%s\n", filePath, bucketName, objectName)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&filePath, "file", "", "Path to the local batch file (required)")
	f.StringVar(&bucketName, "bucket", "", "GCS bucket name (required)")
	f.StringVar(&objectName, "object", "", "GCS object name (defaults to the file name)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("bucket")

	return cmd
}
