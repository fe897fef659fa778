package repositories

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// FSBlobRepository stores user files on the local filesystem under
// {base}/user/{user_token}/uploads/{origin,processed}/.
type FSBlobRepository struct {
	baseDir  string
	userRoot string
	logger   *log.Logger
}

// NewFSBlobRepository creates the base directory tree if needed.
func NewFSBlobRepository(baseDir string, logger *log.Logger) (*FSBlobRepository, error) {
	if logger == nil {
		logger = log.New(os.Stdout, "[BLOBSTORE] ", log.LstdFlags)
	}

	userRoot := filepath.Join(baseDir, "user")
	if err := os.MkdirAll(userRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", userRoot, err)
	}

	return &FSBlobRepository{
		baseDir:  baseDir,
		userRoot: userRoot,
		logger:   logger,
	}, nil
}

// validSegment rejects identifiers that would escape the storage tree.
func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}

func (r *FSBlobRepository) userDir(userToken string) (string, error) {
	if !validSegment(userToken) {
		return "", fmt.Errorf("%w: invalid user token %q", models.ErrInvalidArgument, userToken)
	}
	return filepath.Join(r.userRoot, userToken), nil
}

// docDirs ensures and returns the user's origin and processed directories.
func (r *FSBlobRepository) docDirs(userToken string) (string, string, error) {
	base, err := r.userDir(userToken)
	if err != nil {
		return "", "", err
	}

	originDir := filepath.Join(base, "uploads", "origin")
	if err := os.MkdirAll(originDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create origin dir: %w", err)
	}
	processedDir := filepath.Join(base, "uploads", "processed")
	if err := os.MkdirAll(processedDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create processed dir: %w", err)
	}
	return originDir, processedDir, nil
}

// SaveOriginal streams the upload to origin/{doc_id}{ext}.
func (r *FSBlobRepository) SaveOriginal(ctx context.Context, userToken, docID, filename string, stream io.Reader) (*BlobPaths, error) {
	if !validSegment(docID) {
		return nil, fmt.Errorf("%w: invalid doc id %q", models.ErrInvalidArgument, docID)
	}

	originDir, processedDir, err := r.docDirs(userToken)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(filename)
	originalPath := filepath.Join(originDir, docID+ext)

	file, err := os.Create(originalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create original file: %w", err)
	}

	if _, err := io.Copy(file, stream); err != nil {
		file.Close()
		os.Remove(originalPath)
		return nil, fmt.Errorf("failed to write original file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(originalPath)
		return nil, fmt.Errorf("failed to close original file: %w", err)
	}

	base, _ := r.userDir(userToken)
	return &BlobPaths{
		Root:      base,
		Original:  originalPath,
		Processed: processedDir,
	}, nil
}

// WriteProcessed writes converted text to processed/{doc_id}.txt.
func (r *FSBlobRepository) WriteProcessed(ctx context.Context, userToken, docID, text string) error {
	if !validSegment(docID) {
		return fmt.Errorf("%w: invalid doc id %q", models.ErrInvalidArgument, docID)
	}

	_, processedDir, err := r.docDirs(userToken)
	if err != nil {
		return err
	}

	path := filepath.Join(processedDir, docID+".txt")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write processed file: %w", err)
	}
	return nil
}

// ReadProcessed returns the converted text for docID.
func (r *FSBlobRepository) ReadProcessed(ctx context.Context, userToken, docID string) (string, error) {
	if !validSegment(docID) {
		return "", fmt.Errorf("%w: invalid doc id %q", models.ErrInvalidArgument, docID)
	}

	_, processedDir, err := r.docDirs(userToken)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(processedDir, docID+".txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: processed text for %s", models.ErrNotFound, docID)
		}
		return "", fmt.Errorf("failed to read processed file: %w", err)
	}
	return string(data), nil
}

// OriginalPath locates the origin file whose stem equals docID.
func (r *FSBlobRepository) OriginalPath(ctx context.Context, userToken, docID string) (string, error) {
	if !validSegment(docID) {
		return "", fmt.Errorf("%w: invalid doc id %q", models.ErrInvalidArgument, docID)
	}

	originDir, _, err := r.docDirs(userToken)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(originDir)
	if err != nil {
		return "", fmt.Errorf("failed to read origin dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == docID {
			return filepath.Join(originDir, name), nil
		}
	}
	return "", fmt.Errorf("%w: original for %s", models.ErrFileMissing, docID)
}

// ReadOriginal opens the original upload for docID.
func (r *FSBlobRepository) ReadOriginal(ctx context.Context, userToken, docID string) (io.ReadCloser, error) {
	path, err := r.OriginalPath(ctx, userToken, docID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open original file: %w", err)
	}
	return file, nil
}

// DeleteDoc removes the original and processed files for docID.
func (r *FSBlobRepository) DeleteDoc(ctx context.Context, userToken, docID string) error {
	if !validSegment(docID) {
		return fmt.Errorf("%w: invalid doc id %q", models.ErrInvalidArgument, docID)
	}

	_, processedDir, err := r.docDirs(userToken)
	if err != nil {
		return err
	}

	if path, err := r.OriginalPath(ctx, userToken, docID); err == nil {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	processedPath := filepath.Join(processedDir, docID+".txt")
	if err := os.Remove(processedPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove processed file: %w", err)
	}
	return nil
}

// DeleteUser removes the user's entire directory tree.
func (r *FSBlobRepository) DeleteUser(ctx context.Context, userToken string) error {
	base, err := r.userDir(userToken)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(base); err != nil {
		return fmt.Errorf("failed to remove user directory: %w", err)
	}
	return nil
}

// ListDocs enumerates the user's origin files.
func (r *FSBlobRepository) ListDocs(ctx context.Context, userToken string) ([]models.UserFileInfo, error) {
	originDir, processedDir, err := r.docDirs(userToken)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(originDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read origin dir: %w", err)
	}

	docs := make([]models.UserFileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		name := entry.Name()
		docID := strings.TrimSuffix(name, filepath.Ext(name))
		_, statErr := os.Stat(filepath.Join(processedDir, docID+".txt"))

		docs = append(docs, models.UserFileInfo{
			DocID:     docID,
			Filename:  name,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			Processed: statErr == nil,
		})
	}
	return docs, nil
}

// StorageInfo reports the user's disk usage. Origin and processed byte
// counts are broken out; the total covers the whole user tree including
// the vector index directory.
func (r *FSBlobRepository) StorageInfo(ctx context.Context, userToken string) (*models.UserStorageInfo, error) {
	originDir, processedDir, err := r.docDirs(userToken)
	if err != nil {
		return nil, err
	}
	base, _ := r.userDir(userToken)

	info := &models.UserStorageInfo{UserToken: userToken}

	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}

		size := fi.Size()
		info.TotalBytes += size
		switch filepath.Dir(path) {
		case originDir:
			info.OriginBytes += size
			info.FileCount++
		case processedDir:
			info.ProcessedBytes += size
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk user directory: %w", err)
	}
	return info, nil
}
