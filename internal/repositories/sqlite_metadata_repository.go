package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// SQLiteMetadataRepository implements MetadataRepository on a single SQLite
// file at {base}/user/user.db. A process-wide mutex serializes writers on
// top of SQLite's own WAL locking so id uniqueness checks are not racy.
type SQLiteMetadataRepository struct {
	db     *gorm.DB
	mu     sync.Mutex
	logger *log.Logger
}

// NewSQLiteMetadataRepository opens (creating if needed) the metadata
// database and migrates the schema.
func NewSQLiteMetadataRepository(baseDir string, logger *log.Logger) (*SQLiteMetadataRepository, error) {
	if logger == nil {
		logger = log.New(os.Stdout, "[METADATA] ", log.LstdFlags)
	}

	dbPath := filepath.Join(baseDir, "user", "user.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL for concurrent readers, busy_timeout to ride out writer contention,
	// foreign_keys so the schema's references are actually enforced.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}

	// Parents before children so foreign keys can be emitted.
	if err := db.AutoMigrate(&models.UserInfo{}, &models.Collection{}, &models.UploadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate metadata schema: %w", err)
	}

	logger.Printf("Metadata store ready at %s", dbPath)
	return &SQLiteMetadataRepository{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteMetadataRepository) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================================================
// User Operations
// ============================================================================

// CreateUserIfAbsent inserts the user if missing and returns it either way.
func (s *SQLiteMetadataRepository) CreateUserIfAbsent(ctx context.Context, userToken string) (*models.UserInfo, error) {
	if userToken == "" {
		return nil, fmt.Errorf("%w: user token is required", models.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var user models.UserInfo
	err := s.db.WithContext(ctx).Where("user_token = ?", userToken).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.UserInfo{UserToken: userToken, CreateTime: time.Now()}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Another process inserted first; fetch the winner.
			if err := s.db.WithContext(ctx).Where("user_token = ?", userToken).First(&user).Error; err != nil {
				return nil, err
			}
			return &user, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *SQLiteMetadataRepository) GetUser(ctx context.Context, userToken string) (*models.UserInfo, error) {
	var user models.UserInfo
	if err := s.db.WithContext(ctx).Where("user_token = ?", userToken).First(&user).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrUnknownUser)
	}
	return &user, nil
}

// DeleteUser removes the user together with all their upload records and
// collections in one transaction.
func (s *SQLiteMetadataRepository) DeleteUser(ctx context.Context, userToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.UserInfo
		if err := tx.Where("user_token = ?", userToken).First(&user).Error; err != nil {
			return convertNotFoundError(err, models.ErrUnknownUser)
		}

		// Children before parents to satisfy foreign keys.
		if err := tx.Where("user_token = ?", userToken).Delete(&models.UploadRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("created_by = ?", userToken).Delete(&models.Collection{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

// ============================================================================
// Collection Operations
// ============================================================================

// CreateCollection inserts a collection owned by collection.CreatedBy.
func (s *SQLiteMetadataRepository) CreateCollection(ctx context.Context, collection *models.Collection) error {
	if collection.CollectionID == "" {
		return &models.ValidationError{Field: "collection_id", Message: "collection id is required"}
	}
	if collection.CollectionName == "" {
		return &models.ValidationError{Field: "collection_name", Message: "collection name is required"}
	}
	if collection.CreatedBy == "" {
		return &models.ValidationError{Field: "created_by", Message: "creator is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUser(ctx, collection.CreatedBy); err != nil {
		return err
	}

	if collection.CreateTime.IsZero() {
		collection.CreateTime = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(collection).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetCollection fetches a collection and verifies the requesting user owns it.
func (s *SQLiteMetadataRepository) GetCollection(ctx context.Context, userToken, collectionID string) (*models.Collection, error) {
	var collection models.Collection
	if err := s.db.WithContext(ctx).Where("collection_id = ?", collectionID).First(&collection).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrUnknownCollection)
	}
	if collection.CreatedBy != userToken {
		return nil, models.ErrPermissionDenied
	}
	return &collection, nil
}

// EnsureDefaultCollection creates the user's implicit default collection on
// first use and returns it.
func (s *SQLiteMetadataRepository) EnsureDefaultCollection(ctx context.Context, userToken string) (*models.Collection, error) {
	if userToken == "" {
		return nil, fmt.Errorf("%w: user token is required", models.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureDefaultCollectionLocked(ctx, s.db, userToken)
}

// ensureDefaultCollectionLocked assumes s.mu is held (or tx isolation applies).
func (s *SQLiteMetadataRepository) ensureDefaultCollectionLocked(ctx context.Context, db *gorm.DB, userToken string) (*models.Collection, error) {
	collectionID := models.DefaultCollectionID(userToken)

	var collection models.Collection
	err := db.WithContext(ctx).Where("collection_id = ?", collectionID).First(&collection).Error
	if err == nil {
		return &collection, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	collection = models.Collection{
		CollectionID:   collectionID,
		CollectionName: models.DefaultCollectionName,
		Description:    models.DefaultCollectionDescription,
		CreateTime:     time.Now(),
		CreatedBy:      userToken,
	}
	if err := db.WithContext(ctx).Create(&collection).Error; err != nil {
		if isUniqueConstraintError(err) {
			if err := db.WithContext(ctx).Where("collection_id = ?", collectionID).First(&collection).Error; err != nil {
				return nil, err
			}
			return &collection, nil
		}
		return nil, err
	}
	return &collection, nil
}

func (s *SQLiteMetadataRepository) ListCollections(ctx context.Context, userToken string) ([]*models.Collection, error) {
	var collections []*models.Collection
	err := s.db.WithContext(ctx).
		Where("created_by = ?", userToken).
		Order("create_time DESC").
		Find(&collections).Error
	if err != nil {
		return nil, err
	}
	return collections, nil
}

// ListCollectionsWithCounts pairs each collection with its upload-record
// count, without issuing one count query per collection.
func (s *SQLiteMetadataRepository) ListCollectionsWithCounts(ctx context.Context, userToken string) ([]*models.CollectionWithCount, error) {
	collections, err := s.ListCollections(ctx, userToken)
	if err != nil {
		return nil, err
	}

	type collectionCount struct {
		CollectionID string
		Count        int64
	}
	var counts []collectionCount
	err = s.db.WithContext(ctx).
		Model(&models.UploadRecord{}).
		Select("collection_id, COUNT(*) AS count").
		Where("user_token = ?", userToken).
		Group("collection_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[string]int64, len(counts))
	for _, c := range counts {
		byID[c.CollectionID] = c.Count
	}

	result := make([]*models.CollectionWithCount, 0, len(collections))
	for _, col := range collections {
		result = append(result, &models.CollectionWithCount{
			Collection:    *col,
			DocumentCount: byID[col.CollectionID],
		})
	}
	return result, nil
}

// ============================================================================
// Upload Record Operations
// ============================================================================

// AddUploadRecord inserts a new record. A record submitted without a
// collection lands in the user's default collection, which is created
// lazily; an explicit collection must exist and belong to the submitter.
func (s *SQLiteMetadataRepository) AddUploadRecord(ctx context.Context, record *models.UploadRecord) error {
	if record.Status == "" {
		record.Status = models.StatusPending
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if record.UploadTime.IsZero() {
		record.UploadTime = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUser(ctx, record.UserToken); err != nil {
		return err
	}

	if record.CollectionID == "" {
		collection, err := s.ensureDefaultCollectionLocked(ctx, s.db, record.UserToken)
		if err != nil {
			return err
		}
		record.CollectionID = collection.CollectionID
	} else {
		var collection models.Collection
		if err := s.db.WithContext(ctx).Where("collection_id = ?", record.CollectionID).First(&collection).Error; err != nil {
			return convertNotFoundError(err, models.ErrUnknownCollection)
		}
		if collection.CreatedBy != record.UserToken {
			return models.ErrPermissionDenied
		}
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateUploadRecord applies the whitelisted fields and reports whether a
// row changed. Status transition legality is the caller's concern.
func (s *SQLiteMetadataRepository) UpdateUploadRecord(ctx context.Context, docID string, update *models.UploadRecordUpdate) (bool, error) {
	if docID == "" {
		return false, fmt.Errorf("%w: doc id is required", models.ErrInvalidArgument)
	}

	fields := update.Fields()
	if len(fields) == 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if collectionID, ok := fields["collection_id"]; ok {
		var collection models.Collection
		if err := s.db.WithContext(ctx).Where("collection_id = ?", collectionID).First(&collection).Error; err != nil {
			return false, convertNotFoundError(err, models.ErrUnknownCollection)
		}
	}

	result := s.db.WithContext(ctx).
		Model(&models.UploadRecord{}).
		Where("doc_id = ?", docID).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *SQLiteMetadataRepository) GetUploadRecord(ctx context.Context, docID string) (*models.UploadRecord, error) {
	var record models.UploadRecord
	if err := s.db.WithContext(ctx).Where("doc_id = ?", docID).First(&record).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrNotFound)
	}
	return &record, nil
}

// GetUserUploads lists a user's records, newest first, optionally filtered
// by status. limit <= 0 means no limit.
func (s *SQLiteMetadataRepository) GetUserUploads(ctx context.Context, userToken string, limit int, status *models.Status) ([]*models.UploadRecord, error) {
	q := s.db.WithContext(ctx).Where("user_token = ?", userToken)
	if status != nil {
		q = q.Where("status = ?", string(*status))
	}
	q = q.Order("upload_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []*models.UploadRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// GetCollectionUploads lists a collection's records after verifying the
// requesting user owns the collection.
func (s *SQLiteMetadataRepository) GetCollectionUploads(ctx context.Context, userToken, collectionID string) ([]*models.UploadRecord, error) {
	if _, err := s.GetCollection(ctx, userToken, collectionID); err != nil {
		return nil, err
	}

	var records []*models.UploadRecord
	err := s.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("upload_time DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListRecordsByStatus returns every record in the given status. The manager
// uses this at startup to sweep records stranded in processing.
func (s *SQLiteMetadataRepository) ListRecordsByStatus(ctx context.Context, status models.Status) ([]*models.UploadRecord, error) {
	var records []*models.UploadRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("upload_time ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SQLiteMetadataRepository) DeleteUploadRecord(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).Where("doc_id = ?", docID).Delete(&models.UploadRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// requireUser fails with ErrUnknownUser when the token has no user row.
func (s *SQLiteMetadataRepository) requireUser(ctx context.Context, userToken string) error {
	var user models.UserInfo
	if err := s.db.WithContext(ctx).Where("user_token = ?", userToken).First(&user).Error; err != nil {
		return convertNotFoundError(err, models.ErrUnknownUser)
	}
	return nil
}

// ============================================================================
// Error Helpers
// ============================================================================

// isUniqueConstraintError checks if the error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// convertNotFoundError converts gorm.ErrRecordNotFound to the appropriate domain error.
func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}
