package repositories

import (
	"context"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// MetadataRepository is the transactional store of users, collections, and
// upload records. It is the durable source of truth for task state; all
// mutating operations are atomic and concurrent writers are serialized.
type MetadataRepository interface {
	// User Management
	CreateUserIfAbsent(ctx context.Context, userToken string) (*models.UserInfo, error)
	GetUser(ctx context.Context, userToken string) (*models.UserInfo, error)
	DeleteUser(ctx context.Context, userToken string) error

	// Collection Management
	CreateCollection(ctx context.Context, collection *models.Collection) error
	GetCollection(ctx context.Context, userToken, collectionID string) (*models.Collection, error)
	EnsureDefaultCollection(ctx context.Context, userToken string) (*models.Collection, error)
	ListCollections(ctx context.Context, userToken string) ([]*models.Collection, error)
	ListCollectionsWithCounts(ctx context.Context, userToken string) ([]*models.CollectionWithCount, error)

	// Upload Records
	AddUploadRecord(ctx context.Context, record *models.UploadRecord) error
	UpdateUploadRecord(ctx context.Context, docID string, update *models.UploadRecordUpdate) (bool, error)
	GetUploadRecord(ctx context.Context, docID string) (*models.UploadRecord, error)
	GetUserUploads(ctx context.Context, userToken string, limit int, status *models.Status) ([]*models.UploadRecord, error)
	GetCollectionUploads(ctx context.Context, userToken, collectionID string) ([]*models.UploadRecord, error)
	ListRecordsByStatus(ctx context.Context, status models.Status) ([]*models.UploadRecord, error)
	DeleteUploadRecord(ctx context.Context, docID string) error

	Close() error
}
