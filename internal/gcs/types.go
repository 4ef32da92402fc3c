package gcs

import (
	"context"
	"io"
)

// StorageService provides the cloud storage operations used by the pipeline:
// reading batch sources, staging batch files and writing flat-file output.
type StorageService interface {
	// UploadFile uploads a local file to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// NewObjectWriter opens a writer for the given storage URI. The object is
	// committed when the writer is closed.
	NewObjectWriter(ctx context.Context, gcsURI string) (io.WriteCloser, error)

	// ExtractFilenameFromGCSURI extracts the filename from a storage URI.
	ExtractFilenameFromGCSURI(uri string) string
}
