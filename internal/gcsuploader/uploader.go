package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/sales-pipeline/internal/logger"
)

// UploadFile stages a local batch file at gs://bucketName/objectName. The
// content type is derived from the file extension so the object can be
// inspected in the console.
func UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	log := logger.FromContext(ctx)

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: opening %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("UploadFile: creating storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentTypeFor(filePath)

	n, err := io.Copy(w, f)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadFile: copying to gs://%s/%s: %w", bucketName, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalizing gs://%s/%s: %w", bucketName, objectName, err)
	}

	log.Info().
		Str("bucket", bucketName).
		Str("object", objectName).
		Int64("bytes", n).
		Msg("Uploaded batch file")
	return nil
}

const uploadTimeout = 2 * time.Minute

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".jsonl", ".ndjson":
		return "application/x-ndjson"
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	default:
		return "application/octet-stream"
	}
}

// objectWriter closes the storage client once the object is committed.
type objectWriter struct {
	*storage.Writer
	client *storage.Client
}

func (w *objectWriter) Close() error {
	err := w.Writer.Close()
	if cerr := w.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// NewObjectWriter opens a streaming writer to gcsURI. Nothing is visible in the
// bucket until Close returns without error.
func NewObjectWriter(ctx context.Context, gcsURI string) (io.WriteCloser, error) {
	bucketName, objectPath, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewObjectWriter: creating storage client: %w", err)
	}

	w := client.Bucket(bucketName).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentTypeFor(objectPath)
	return &objectWriter{Writer: w, client: client}, nil
}
