package repositories

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// ============================================================================
// Test Setup
// ============================================================================

func setupTestMetadataRepo(t *testing.T) *SQLiteMetadataRepository {
	repo, err := NewSQLiteMetadataRepository(t.TempDir(), log.New(io.Discard, "", 0))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addTestUpload(t *testing.T, repo *SQLiteMetadataRepository, docID, userToken, collectionID string, uploadTime time.Time) *models.UploadRecord {
	t.Helper()
	record := &models.UploadRecord{
		DocID:        docID,
		UserToken:    userToken,
		CollectionID: collectionID,
		Filename:     docID + ".txt",
		UploadTime:   uploadTime,
	}
	require.NoError(t, repo.AddUploadRecord(context.Background(), record))
	return record
}

// ============================================================================
// User Tests
// ============================================================================

func TestCreateUserIfAbsent(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	first, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", first.UserToken)
	assert.False(t, first.CreateTime.IsZero())

	// Idempotent: the second call returns the existing row.
	second, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.CreateTime.Unix(), second.CreateTime.Unix())

	_, err = repo.CreateUserIfAbsent(ctx, "")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestGetUserUnknown(t *testing.T) {
	repo := setupTestMetadataRepo(t)

	_, err := repo.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrUnknownUser)
}

// ============================================================================
// Collection Tests
// ============================================================================

func TestCreateCollection(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)

	collection := &models.Collection{
		CollectionID:   "C1",
		CollectionName: "papers",
		Description:    "research papers",
		CreatedBy:      "u1",
	}
	require.NoError(t, repo.CreateCollection(ctx, collection))
	assert.False(t, collection.CreateTime.IsZero())

	t.Run("DuplicateID", func(t *testing.T) {
		err := repo.CreateCollection(ctx, &models.Collection{
			CollectionID:   "C1",
			CollectionName: "other",
			CreatedBy:      "u1",
		})
		assert.ErrorIs(t, err, models.ErrAlreadyExists)
	})

	t.Run("UnknownCreator", func(t *testing.T) {
		err := repo.CreateCollection(ctx, &models.Collection{
			CollectionID:   "C2",
			CollectionName: "orphan",
			CreatedBy:      "ghost",
		})
		assert.ErrorIs(t, err, models.ErrUnknownUser)
	})

	t.Run("MissingFields", func(t *testing.T) {
		err := repo.CreateCollection(ctx, &models.Collection{CollectionName: "x", CreatedBy: "u1"})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestGetCollectionOwnership(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.CreateCollection(ctx, &models.Collection{
		CollectionID:   "C1",
		CollectionName: "papers",
		CreatedBy:      "u1",
	}))

	got, err := repo.GetCollection(ctx, "u1", "C1")
	require.NoError(t, err)
	assert.Equal(t, "papers", got.CollectionName)

	_, err = repo.GetCollection(ctx, "u2", "C1")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = repo.GetCollection(ctx, "u1", "nope")
	assert.ErrorIs(t, err, models.ErrUnknownCollection)
}

func TestEnsureDefaultCollection(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)

	collection, err := repo.EnsureDefaultCollection(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "default_u1", collection.CollectionID)
	assert.Equal(t, models.DefaultCollectionName, collection.CollectionName)
	assert.Equal(t, models.DefaultCollectionDescription, collection.Description)
	assert.True(t, collection.IsDefault())

	// Second call returns the same collection instead of failing.
	again, err := repo.EnsureDefaultCollection(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, collection.CollectionID, again.CollectionID)

	collections, err := repo.ListCollections(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, collections, 1)
}

func TestListCollectionsWithCounts(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.CreateCollection(ctx, &models.Collection{
		CollectionID:   "C1",
		CollectionName: "papers",
		CreatedBy:      "u1",
	}))
	require.NoError(t, repo.CreateCollection(ctx, &models.Collection{
		CollectionID:   "C2",
		CollectionName: "notes",
		CreatedBy:      "u1",
	}))

	now := time.Now()
	addTestUpload(t, repo, "d1", "u1", "C1", now)
	addTestUpload(t, repo, "d2", "u1", "C1", now)
	addTestUpload(t, repo, "d3", "u1", "C2", now)

	withCounts, err := repo.ListCollectionsWithCounts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, withCounts, 2)

	counts := make(map[string]int64, len(withCounts))
	for _, c := range withCounts {
		counts[c.CollectionID] = c.DocumentCount
	}
	assert.Equal(t, int64(2), counts["C1"])
	assert.Equal(t, int64(1), counts["C2"])
}

// ============================================================================
// Upload Record Tests
// ============================================================================

func TestAddUploadRecordDefaultCollection(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)

	record := &models.UploadRecord{
		DocID:     "d1",
		UserToken: "u1",
		Filename:  "a.txt",
	}
	require.NoError(t, repo.AddUploadRecord(ctx, record))

	// The default collection was created lazily and assigned.
	assert.Equal(t, "default_u1", record.CollectionID)
	assert.Equal(t, models.StatusPending, record.Status)
	assert.False(t, record.UploadTime.IsZero())

	collection, err := repo.GetCollection(ctx, "u1", "default_u1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCollectionName, collection.CollectionName)
}

func TestAddUploadRecordErrors(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	_, err = repo.CreateUserIfAbsent(ctx, "u2")
	require.NoError(t, err)
	require.NoError(t, repo.CreateCollection(ctx, &models.Collection{
		CollectionID:   "C1",
		CollectionName: "papers",
		CreatedBy:      "u1",
	}))

	addTestUpload(t, repo, "d1", "u1", "C1", time.Now())

	t.Run("DuplicateDocID", func(t *testing.T) {
		err := repo.AddUploadRecord(ctx, &models.UploadRecord{
			DocID: "d1", UserToken: "u1", Filename: "again.txt",
		})
		assert.ErrorIs(t, err, models.ErrAlreadyExists)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		err := repo.AddUploadRecord(ctx, &models.UploadRecord{
			DocID: "d2", UserToken: "ghost", Filename: "a.txt",
		})
		assert.ErrorIs(t, err, models.ErrUnknownUser)
	})

	t.Run("UnknownCollection", func(t *testing.T) {
		err := repo.AddUploadRecord(ctx, &models.UploadRecord{
			DocID: "d3", UserToken: "u1", CollectionID: "nope", Filename: "a.txt",
		})
		assert.ErrorIs(t, err, models.ErrUnknownCollection)
	})

	t.Run("CrossOwnerCollection", func(t *testing.T) {
		err := repo.AddUploadRecord(ctx, &models.UploadRecord{
			DocID: "d4", UserToken: "u2", CollectionID: "C1", Filename: "a.txt",
		})
		assert.ErrorIs(t, err, models.ErrPermissionDenied)
	})

	t.Run("MissingFilename", func(t *testing.T) {
		err := repo.AddUploadRecord(ctx, &models.UploadRecord{
			DocID: "d5", UserToken: "u1",
		})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestUpdateUploadRecord(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	addTestUpload(t, repo, "d1", "u1", "", time.Now())

	status := models.StatusProcessing
	start := time.Now()
	changed, err := repo.UpdateUploadRecord(ctx, "d1", &models.UploadRecordUpdate{
		Status:           &status,
		ProcessStartTime: &start,
	})
	require.NoError(t, err)
	assert.True(t, changed)

	record, err := repo.GetUploadRecord(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, record.Status)
	require.NotNil(t, record.ProcessStartTime)
	assert.Equal(t, start.Unix(), record.ProcessStartTime.Unix())

	t.Run("UnknownDoc", func(t *testing.T) {
		changed, err := repo.UpdateUploadRecord(ctx, "ghost", &models.UploadRecordUpdate{Status: &status})
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("EmptyUpdate", func(t *testing.T) {
		changed, err := repo.UpdateUploadRecord(ctx, "d1", &models.UploadRecordUpdate{})
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("UnknownCollectionTarget", func(t *testing.T) {
		target := "nope"
		_, err := repo.UpdateUploadRecord(ctx, "d1", &models.UploadRecordUpdate{CollectionID: &target})
		assert.ErrorIs(t, err, models.ErrUnknownCollection)
	})
}

func TestGetUploadRecordMissing(t *testing.T) {
	repo := setupTestMetadataRepo(t)

	_, err := repo.GetUploadRecord(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetUserUploads(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	addTestUpload(t, repo, "d1", "u1", "", base)
	addTestUpload(t, repo, "d2", "u1", "", base.Add(time.Minute))
	addTestUpload(t, repo, "d3", "u1", "", base.Add(2*time.Minute))

	status := models.StatusCompleted
	changed, err := repo.UpdateUploadRecord(ctx, "d2", &models.UploadRecordUpdate{Status: &status})
	require.NoError(t, err)
	require.True(t, changed)

	t.Run("NewestFirst", func(t *testing.T) {
		records, err := repo.GetUserUploads(ctx, "u1", 0, nil)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "d3", records[0].DocID)
		assert.Equal(t, "d1", records[2].DocID)
	})

	t.Run("Limit", func(t *testing.T) {
		records, err := repo.GetUserUploads(ctx, "u1", 2, nil)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("StatusFilter", func(t *testing.T) {
		completed := models.StatusCompleted
		records, err := repo.GetUserUploads(ctx, "u1", 0, &completed)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "d2", records[0].DocID)
	})

	t.Run("OtherUserEmpty", func(t *testing.T) {
		records, err := repo.GetUserUploads(ctx, "u2", 0, nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestGetCollectionUploads(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.CreateCollection(ctx, &models.Collection{
		CollectionID:   "C1",
		CollectionName: "papers",
		CreatedBy:      "u1",
	}))
	addTestUpload(t, repo, "d1", "u1", "C1", time.Now())

	records, err := repo.GetCollectionUploads(ctx, "u1", "C1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "d1", records[0].DocID)

	_, err = repo.GetCollectionUploads(ctx, "u2", "C1")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestListRecordsByStatus(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	addTestUpload(t, repo, "d1", "u1", "", time.Now())
	addTestUpload(t, repo, "d2", "u1", "", time.Now())

	status := models.StatusProcessing
	changed, err := repo.UpdateUploadRecord(ctx, "d1", &models.UploadRecordUpdate{Status: &status})
	require.NoError(t, err)
	require.True(t, changed)

	processing, err := repo.ListRecordsByStatus(ctx, models.StatusProcessing)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, "d1", processing[0].DocID)

	pending, err := repo.ListRecordsByStatus(ctx, models.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestDeleteUploadRecord(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	addTestUpload(t, repo, "d1", "u1", "", time.Now())

	require.NoError(t, repo.DeleteUploadRecord(ctx, "d1"))

	_, err = repo.GetUploadRecord(ctx, "d1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = repo.DeleteUploadRecord(ctx, "d1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	repo := setupTestMetadataRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUserIfAbsent(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.CreateCollection(ctx, &models.Collection{
		CollectionID:   "C1",
		CollectionName: "papers",
		CreatedBy:      "u1",
	}))
	addTestUpload(t, repo, "d1", "u1", "C1", time.Now())
	addTestUpload(t, repo, "d2", "u1", "", time.Now())

	require.NoError(t, repo.DeleteUser(ctx, "u1"))

	_, err = repo.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrUnknownUser)
	_, err = repo.GetUploadRecord(ctx, "d1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = repo.GetUploadRecord(ctx, "d2")
	assert.ErrorIs(t, err, models.ErrNotFound)

	collections, err := repo.ListCollections(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, collections)

	t.Run("UnknownUser", func(t *testing.T) {
		err := repo.DeleteUser(ctx, "ghost")
		assert.ErrorIs(t, err, models.ErrUnknownUser)
	})
}
