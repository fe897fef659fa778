package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/Rain-kl/cyber-kb/internal/models"
	"github.com/Rain-kl/cyber-kb/internal/repositories"
)

// CollectionService manages user collections over the metadata store.
type CollectionService struct {
	metadataRepo repositories.MetadataRepository
	logger       *log.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(metadataRepo repositories.MetadataRepository, logger *log.Logger) *CollectionService {
	if logger == nil {
		logger = log.New(os.Stdout, "[COLLECTION] ", log.LstdFlags)
	}
	return &CollectionService{
		metadataRepo: metadataRepo,
		logger:       logger,
	}
}

// CreateCollection creates a collection owned by userToken. The user row is
// created on first contact, matching the upload path.
func (s *CollectionService) CreateCollection(ctx context.Context, userToken string, req *models.CollectionRequest) (*models.Collection, error) {
	if userToken == "" {
		return nil, fmt.Errorf("%w: user token is required", models.ErrInvalidArgument)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}

	if _, err := s.metadataRepo.CreateUserIfAbsent(ctx, userToken); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	collection := &models.Collection{
		CollectionID:   req.CollectionID,
		CollectionName: req.Name,
		Description:    req.Description,
		CreatedBy:      userToken,
	}
	if err := s.metadataRepo.CreateCollection(ctx, collection); err != nil {
		return nil, err
	}

	s.logger.Printf("Created collection %s (%s) for user %s", collection.CollectionID, collection.CollectionName, userToken)
	return collection, nil
}

// GetCollection fetches a collection, enforcing ownership.
func (s *CollectionService) GetCollection(ctx context.Context, userToken, collectionID string) (*models.Collection, error) {
	if collectionID == "" {
		return nil, fmt.Errorf("%w: collection id is required", models.ErrInvalidArgument)
	}
	return s.metadataRepo.GetCollection(ctx, userToken, collectionID)
}

// ListCollections returns the user's collections, newest first. A user with
// no collections gets an empty list, not an error.
func (s *CollectionService) ListCollections(ctx context.Context, userToken string) ([]*models.Collection, error) {
	if userToken == "" {
		return nil, fmt.Errorf("%w: user token is required", models.ErrInvalidArgument)
	}
	return s.metadataRepo.ListCollections(ctx, userToken)
}

// ListCollectionsWithCounts returns the user's collections with per-collection
// upload-record counts.
func (s *CollectionService) ListCollectionsWithCounts(ctx context.Context, userToken string) ([]*models.CollectionWithCount, error) {
	if userToken == "" {
		return nil, fmt.Errorf("%w: user token is required", models.ErrInvalidArgument)
	}
	return s.metadataRepo.ListCollectionsWithCounts(ctx, userToken)
}

// ListCollectionDocuments returns the upload records attached to a
// collection. Ownership is enforced by the metadata store.
func (s *CollectionService) ListCollectionDocuments(ctx context.Context, userToken, collectionID string) ([]*models.UploadRecord, error) {
	if collectionID == "" {
		return nil, fmt.Errorf("%w: collection id is required", models.ErrInvalidArgument)
	}
	return s.metadataRepo.GetCollectionUploads(ctx, userToken, collectionID)
}
