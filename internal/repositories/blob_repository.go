package repositories

import (
	"context"
	"io"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// BlobPaths reports where a user's files live on disk.
type BlobPaths struct {
	Root      string `json:"root"`
	Original  string `json:"original"`
	Processed string `json:"processed"`
}

// BlobRepository manages per-user storage of original uploads and their
// converted text form. Directory creation is idempotent; implementations
// lay files out under {base}/user/{user_token}/.
type BlobRepository interface {
	// SaveOriginal streams the upload to origin/{doc_id}{ext}. A partial
	// file left by a failed write is removed.
	SaveOriginal(ctx context.Context, userToken, docID, filename string, stream io.Reader) (*BlobPaths, error)

	// WriteProcessed writes converted text to processed/{doc_id}.txt,
	// replacing any existing file.
	WriteProcessed(ctx context.Context, userToken, docID, text string) error

	// ReadProcessed returns the converted text, or ErrNotFound.
	ReadProcessed(ctx context.Context, userToken, docID string) (string, error)

	// OriginalPath locates the origin file whose stem equals docID, or
	// returns ErrFileMissing.
	OriginalPath(ctx context.Context, userToken, docID string) (string, error)

	// ReadOriginal opens the original upload for reading. The caller closes it.
	ReadOriginal(ctx context.Context, userToken, docID string) (io.ReadCloser, error)

	// DeleteDoc removes both the original and processed files. Deleting a
	// doc that does not exist is not an error.
	DeleteDoc(ctx context.Context, userToken, docID string) error

	// DeleteUser removes the user's entire directory tree.
	DeleteUser(ctx context.Context, userToken string) error

	// ListDocs enumerates the user's origin files.
	ListDocs(ctx context.Context, userToken string) ([]models.UserFileInfo, error)

	// StorageInfo reports per-user disk usage.
	StorageInfo(ctx context.Context, userToken string) (*models.UserStorageInfo, error)
}
