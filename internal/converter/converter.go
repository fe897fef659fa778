// Package converter extracts plain text from uploaded documents.
package converter

import (
	"context"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// Converter is the text-extraction strategy injected into the pipeline.
// Implementations turn a stored original file into normalized text.
type Converter interface {
	// Convert extracts the text content of the file at path.
	Convert(ctx context.Context, path string) (string, error)

	// ExtractMetadata returns document metadata for the file at path,
	// falling back to basic filesystem metadata when the extraction
	// service cannot help.
	ExtractMetadata(ctx context.Context, path string) (*models.DocumentMetadata, error)

	// IsSupportedFormat reports whether the strategy can handle the file.
	IsSupportedFormat(path string) bool
}
