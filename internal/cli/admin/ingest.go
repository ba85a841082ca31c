package admin

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/clearpath-coaching/hugoctx/internal/config"
	"github.com/clearpath-coaching/hugoctx/internal/database"
	"github.com/clearpath-coaching/hugoctx/internal/ingest"
	"github.com/clearpath-coaching/hugoctx/internal/repository"
	"github.com/clearpath-coaching/hugoctx/internal/storage"
	"github.com/spf13/cobra"
)

// IngestCmd returns the chunk ingestion command. Batches are JSONL files of
// pre-embedded chunks produced by the offline pipeline, read either from
// disk or from the configured S3 bucket.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a pre-embedded chunk batch",
		Long:  "Load a JSONL batch of pre-embedded document chunks into the chunk store",
		RunE:  runIngest,
	}

	cmd.Flags().String("file", "", "Path to a local JSONL batch file")
	cmd.Flags().String("s3-key", "", "Object key of a JSONL batch in the configured S3 bucket")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	filePath, _ := cmd.Flags().GetString("file")
	s3Key, _ := cmd.Flags().GetString("s3-key")
	if (filePath == "") == (s3Key == "") {
		return fmt.Errorf("exactly one of --file or --s3-key is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var source io.ReadCloser
	if filePath != "" {
		source, err = os.Open(filePath)
		if err != nil {
			return fmt.Errorf("failed to open batch file: %w", err)
		}
	} else {
		if !cfg.HasS3() {
			return fmt.Errorf("--s3-key requires S3 configuration")
		}
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		source, err = s3Client.Open(ctx, s3Key)
		if err != nil {
			return fmt.Errorf("failed to open batch object: %w", err)
		}
	}
	defer source.Close()

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	ingester := ingest.NewIngester(repository.NewDocumentChunkRepository(pool), cfg.EmbeddingDimensions)

	result, err := ingester.Run(ctx, source)
	if err != nil {
		return fmt.Errorf("ingestion aborted after %d inserted: %w", result.Inserted, err)
	}

	log.Printf("ingestion complete: %d inserted, %d failed", result.Inserted, result.Failed)
	return nil
}
