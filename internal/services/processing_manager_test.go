package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Rain-kl/cyber-kb/internal/models"
	"github.com/Rain-kl/cyber-kb/internal/repositories"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type MockMetadataRepository struct {
	mock.Mock
}

func (m *MockMetadataRepository) CreateUserIfAbsent(ctx context.Context, userToken string) (*models.UserInfo, error) {
	args := m.Called(ctx, userToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserInfo), args.Error(1)
}

func (m *MockMetadataRepository) GetUser(ctx context.Context, userToken string) (*models.UserInfo, error) {
	args := m.Called(ctx, userToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserInfo), args.Error(1)
}

func (m *MockMetadataRepository) DeleteUser(ctx context.Context, userToken string) error {
	args := m.Called(ctx, userToken)
	return args.Error(0)
}

func (m *MockMetadataRepository) CreateCollection(ctx context.Context, collection *models.Collection) error {
	args := m.Called(ctx, collection)
	return args.Error(0)
}

func (m *MockMetadataRepository) GetCollection(ctx context.Context, userToken, collectionID string) (*models.Collection, error) {
	args := m.Called(ctx, userToken, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

func (m *MockMetadataRepository) EnsureDefaultCollection(ctx context.Context, userToken string) (*models.Collection, error) {
	args := m.Called(ctx, userToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

func (m *MockMetadataRepository) ListCollections(ctx context.Context, userToken string) ([]*models.Collection, error) {
	args := m.Called(ctx, userToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Collection), args.Error(1)
}

func (m *MockMetadataRepository) ListCollectionsWithCounts(ctx context.Context, userToken string) ([]*models.CollectionWithCount, error) {
	args := m.Called(ctx, userToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CollectionWithCount), args.Error(1)
}

func (m *MockMetadataRepository) AddUploadRecord(ctx context.Context, record *models.UploadRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockMetadataRepository) UpdateUploadRecord(ctx context.Context, docID string, update *models.UploadRecordUpdate) (bool, error) {
	args := m.Called(ctx, docID, update)
	return args.Bool(0), args.Error(1)
}

func (m *MockMetadataRepository) GetUploadRecord(ctx context.Context, docID string) (*models.UploadRecord, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UploadRecord), args.Error(1)
}

func (m *MockMetadataRepository) GetUserUploads(ctx context.Context, userToken string, limit int, status *models.Status) ([]*models.UploadRecord, error) {
	args := m.Called(ctx, userToken, limit, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UploadRecord), args.Error(1)
}

func (m *MockMetadataRepository) GetCollectionUploads(ctx context.Context, userToken, collectionID string) ([]*models.UploadRecord, error) {
	args := m.Called(ctx, userToken, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UploadRecord), args.Error(1)
}

func (m *MockMetadataRepository) ListRecordsByStatus(ctx context.Context, status models.Status) ([]*models.UploadRecord, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UploadRecord), args.Error(1)
}

func (m *MockMetadataRepository) DeleteUploadRecord(ctx context.Context, docID string) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

func (m *MockMetadataRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockBlobRepository struct {
	mock.Mock
}

func (m *MockBlobRepository) SaveOriginal(ctx context.Context, userToken, docID, filename string, stream io.Reader) (*repositories.BlobPaths, error) {
	args := m.Called(ctx, userToken, docID, filename, stream)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.BlobPaths), args.Error(1)
}

func (m *MockBlobRepository) WriteProcessed(ctx context.Context, userToken, docID, text string) error {
	args := m.Called(ctx, userToken, docID, text)
	return args.Error(0)
}

func (m *MockBlobRepository) ReadProcessed(ctx context.Context, userToken, docID string) (string, error) {
	args := m.Called(ctx, userToken, docID)
	return args.String(0), args.Error(1)
}

func (m *MockBlobRepository) OriginalPath(ctx context.Context, userToken, docID string) (string, error) {
	args := m.Called(ctx, userToken, docID)
	return args.String(0), args.Error(1)
}

func (m *MockBlobRepository) ReadOriginal(ctx context.Context, userToken, docID string) (io.ReadCloser, error) {
	args := m.Called(ctx, userToken, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBlobRepository) DeleteDoc(ctx context.Context, userToken, docID string) error {
	args := m.Called(ctx, userToken, docID)
	return args.Error(0)
}

func (m *MockBlobRepository) DeleteUser(ctx context.Context, userToken string) error {
	args := m.Called(ctx, userToken)
	return args.Error(0)
}

func (m *MockBlobRepository) ListDocs(ctx context.Context, userToken string) ([]models.UserFileInfo, error) {
	args := m.Called(ctx, userToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserFileInfo), args.Error(1)
}

func (m *MockBlobRepository) StorageInfo(ctx context.Context, userToken string) (*models.UserStorageInfo, error) {
	args := m.Called(ctx, userToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStorageInfo), args.Error(1)
}

type MockVectorProvider struct {
	mock.Mock
}

func (m *MockVectorProvider) ForUser(userToken string) (repositories.VectorRepository, error) {
	args := m.Called(userToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repositories.VectorRepository), args.Error(1)
}

func (m *MockVectorProvider) CloseUser(userToken string) error {
	args := m.Called(userToken)
	return args.Error(0)
}

func (m *MockVectorProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockVectorRepo struct {
	mock.Mock
}

func (m *MockVectorRepo) AddChunks(ctx context.Context, collectionID, docID string, chunks []*models.Chunk) ([]string, error) {
	args := m.Called(ctx, collectionID, docID, chunks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockVectorRepo) SearchByEmbedding(ctx context.Context, collectionID string, queryEmbedding []float32, topK int) ([]models.SearchResult, error) {
	args := m.Called(ctx, collectionID, queryEmbedding, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchResult), args.Error(1)
}

func (m *MockVectorRepo) SearchByText(ctx context.Context, collectionID, query string, topK int) ([]models.SearchResult, error) {
	args := m.Called(ctx, collectionID, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchResult), args.Error(1)
}

func (m *MockVectorRepo) ListAll(ctx context.Context, collectionID string, limit int) ([]models.IndexedChunk, error) {
	args := m.Called(ctx, collectionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IndexedChunk), args.Error(1)
}

func (m *MockVectorRepo) ListDocuments(ctx context.Context, collectionID string) ([]models.IndexedDocument, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IndexedDocument), args.Error(1)
}

func (m *MockVectorRepo) Count(ctx context.Context, collectionID string) (int, error) {
	args := m.Called(ctx, collectionID)
	return args.Int(0), args.Error(1)
}

func (m *MockVectorRepo) DeleteDocument(ctx context.Context, collectionID, docID string) (int, error) {
	args := m.Called(ctx, collectionID, docID)
	return args.Int(0), args.Error(1)
}

func (m *MockVectorRepo) Exists(ctx context.Context, collectionID, docID string) (bool, error) {
	args := m.Called(ctx, collectionID, docID)
	return args.Bool(0), args.Error(1)
}

type MockDocumentQueue struct {
	mock.Mock
}

func (m *MockDocumentQueue) Add(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockDocumentQueue) ClaimNext(ctx context.Context) (*models.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockDocumentQueue) UpdateStatus(ctx context.Context, docID string, status models.Status, errMsg string) error {
	args := m.Called(ctx, docID, status, errMsg)
	return args.Error(0)
}

func (m *MockDocumentQueue) Get(ctx context.Context, docID string) (*models.Task, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockDocumentQueue) Status(ctx context.Context) (models.QueueStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.QueueStatus), args.Error(1)
}

func (m *MockDocumentQueue) All(ctx context.Context) ([]*models.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Task), args.Error(1)
}

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func (m *MockConverter) ExtractMetadata(ctx context.Context, path string) (*models.DocumentMetadata, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DocumentMetadata), args.Error(1)
}

func (m *MockConverter) IsSupportedFormat(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}

// ============================================================================
// Test Setup
// ============================================================================

func setupTestProcessingManager(t *testing.T) (*ProcessingManager, *MockMetadataRepository, *MockBlobRepository, *MockDocumentQueue, *MockVectorProvider, *MockConverter) {
	mockMetadata := new(MockMetadataRepository)
	mockBlobs := new(MockBlobRepository)
	mockQueue := new(MockDocumentQueue)
	mockVectors := new(MockVectorProvider)
	mockConverter := new(MockConverter)

	logger := log.New(io.Discard, "", 0)

	manager := NewProcessingManager(ProcessingManagerConfig{
		MetadataRepo:   mockMetadata,
		BlobRepo:       mockBlobs,
		Queue:          mockQueue,
		VectorProvider: mockVectors,
		Converter:      mockConverter,
		Logger:         logger,
		MaxWorkers:     1,
	})

	return manager, mockMetadata, mockBlobs, mockQueue, mockVectors, mockConverter
}

// ============================================================================
// Tests
// ============================================================================

func TestNewProcessingManager(t *testing.T) {
	manager, _, _, _, _, _ := setupTestProcessingManager(t)

	assert.NotNil(t, manager)
	assert.NotNil(t, manager.pool)
	assert.Equal(t, 1, manager.pool.Count())
}

func TestSubmit_Success(t *testing.T) {
	manager, mockMetadata, mockBlobs, mockQueue, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	content := bytes.NewReader([]byte("hello world"))
	req := &SubmitRequest{
		UserToken: "u1",
		Filename:  "a.txt",
		Content:   content,
		DocID:     "doc-1",
	}

	mockMetadata.On("CreateUserIfAbsent", ctx, "u1").Return(&models.UserInfo{UserToken: "u1"}, nil)
	mockBlobs.On("SaveOriginal", ctx, "u1", "doc-1", "a.txt", content).Return(&repositories.BlobPaths{}, nil)
	mockMetadata.On("AddUploadRecord", ctx, mock.MatchedBy(func(record *models.UploadRecord) bool {
		return record.DocID == "doc-1" &&
			record.UserToken == "u1" &&
			record.Filename == "a.txt" &&
			record.Status == models.StatusPending
	})).Return(nil)
	mockQueue.On("Add", ctx, mock.MatchedBy(func(task *models.Task) bool {
		return task.DocID == "doc-1" && task.UserToken == "u1"
	})).Return(nil)

	docID, err := manager.Submit(ctx, req)

	assert.NoError(t, err)
	assert.Equal(t, "doc-1", docID)

	mockMetadata.AssertExpectations(t)
	mockBlobs.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
}

func TestSubmit_GeneratesDocID(t *testing.T) {
	manager, mockMetadata, mockBlobs, mockQueue, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	req := &SubmitRequest{
		UserToken: "u1",
		Filename:  "a.txt",
		Content:   bytes.NewReader([]byte("hello")),
	}

	mockMetadata.On("CreateUserIfAbsent", ctx, "u1").Return(&models.UserInfo{UserToken: "u1"}, nil)
	mockBlobs.On("SaveOriginal", ctx, "u1", mock.AnythingOfType("string"), "a.txt", mock.Anything).Return(&repositories.BlobPaths{}, nil)
	mockMetadata.On("AddUploadRecord", ctx, mock.AnythingOfType("*models.UploadRecord")).Return(nil)
	mockQueue.On("Add", ctx, mock.AnythingOfType("*models.Task")).Return(nil)

	docID, err := manager.Submit(ctx, req)

	assert.NoError(t, err)
	assert.NotEmpty(t, docID)
}

func TestSubmit_MissingFields(t *testing.T) {
	manager, _, _, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *SubmitRequest
	}{
		{
			name: "Missing user token",
			req:  &SubmitRequest{Filename: "a.txt", Content: bytes.NewReader(nil)},
		},
		{
			name: "Missing filename",
			req:  &SubmitRequest{UserToken: "u1", Content: bytes.NewReader(nil)},
		},
		{
			name: "Missing content",
			req:  &SubmitRequest{UserToken: "u1", Filename: "a.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Submit(ctx, tt.req)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidArgument))
		})
	}
}

func TestSubmit_UnknownCollection(t *testing.T) {
	manager, mockMetadata, mockBlobs, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	req := &SubmitRequest{
		UserToken:    "u1",
		Filename:     "a.txt",
		Content:      bytes.NewReader([]byte("hello")),
		CollectionID: "missing",
	}

	mockMetadata.On("CreateUserIfAbsent", ctx, "u1").Return(&models.UserInfo{UserToken: "u1"}, nil)
	mockMetadata.On("GetCollection", ctx, "u1", "missing").Return(nil, models.ErrUnknownCollection)

	_, err := manager.Submit(ctx, req)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknownCollection))
	mockBlobs.AssertNotCalled(t, "SaveOriginal", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_ForeignCollection(t *testing.T) {
	manager, mockMetadata, mockBlobs, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	req := &SubmitRequest{
		UserToken:    "u2",
		Filename:     "a.txt",
		Content:      bytes.NewReader([]byte("hello")),
		CollectionID: "c1",
	}

	mockMetadata.On("CreateUserIfAbsent", ctx, "u2").Return(&models.UserInfo{UserToken: "u2"}, nil)
	mockMetadata.On("GetCollection", ctx, "u2", "c1").Return(nil, models.ErrPermissionDenied)

	_, err := manager.Submit(ctx, req)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrPermissionDenied))
	mockBlobs.AssertNotCalled(t, "SaveOriginal", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_RecordInsertFails_RollsBackBlob(t *testing.T) {
	manager, mockMetadata, mockBlobs, mockQueue, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	req := &SubmitRequest{
		UserToken: "u1",
		Filename:  "a.txt",
		Content:   bytes.NewReader([]byte("hello")),
		DocID:     "doc-1",
	}

	mockMetadata.On("CreateUserIfAbsent", ctx, "u1").Return(&models.UserInfo{UserToken: "u1"}, nil)
	mockBlobs.On("SaveOriginal", ctx, "u1", "doc-1", "a.txt", mock.Anything).Return(&repositories.BlobPaths{}, nil)
	mockMetadata.On("AddUploadRecord", ctx, mock.AnythingOfType("*models.UploadRecord")).Return(models.ErrAlreadyExists)
	mockBlobs.On("DeleteDoc", ctx, "u1", "doc-1").Return(nil)

	_, err := manager.Submit(ctx, req)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrAlreadyExists))

	mockBlobs.AssertCalled(t, "DeleteDoc", ctx, "u1", "doc-1")
	mockQueue.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestSubmit_EnqueueFails_RollsBackEverything(t *testing.T) {
	manager, mockMetadata, mockBlobs, mockQueue, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	req := &SubmitRequest{
		UserToken: "u1",
		Filename:  "a.txt",
		Content:   bytes.NewReader([]byte("hello")),
		DocID:     "doc-1",
	}

	mockMetadata.On("CreateUserIfAbsent", ctx, "u1").Return(&models.UserInfo{UserToken: "u1"}, nil)
	mockBlobs.On("SaveOriginal", ctx, "u1", "doc-1", "a.txt", mock.Anything).Return(&repositories.BlobPaths{}, nil)
	mockMetadata.On("AddUploadRecord", ctx, mock.AnythingOfType("*models.UploadRecord")).Return(nil)
	mockQueue.On("Add", ctx, mock.AnythingOfType("*models.Task")).Return(errors.New("queue full"))
	mockMetadata.On("DeleteUploadRecord", ctx, "doc-1").Return(nil)
	mockBlobs.On("DeleteDoc", ctx, "u1", "doc-1").Return(nil)

	_, err := manager.Submit(ctx, req)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "enqueue task")

	mockMetadata.AssertCalled(t, "DeleteUploadRecord", ctx, "doc-1")
	mockBlobs.AssertCalled(t, "DeleteDoc", ctx, "u1", "doc-1")
}

func TestGetTask(t *testing.T) {
	manager, mockMetadata, _, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	expected := &models.UploadRecord{DocID: "doc-1", Status: models.StatusCompleted}
	mockMetadata.On("GetUploadRecord", ctx, "doc-1").Return(expected, nil)

	record, err := manager.GetTask(ctx, "doc-1")

	assert.NoError(t, err)
	assert.Equal(t, expected, record)
}

func TestGetTask_NotFound(t *testing.T) {
	manager, mockMetadata, _, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	mockMetadata.On("GetUploadRecord", ctx, "missing").Return(nil, models.ErrNotFound)

	record, err := manager.GetTask(ctx, "missing")

	assert.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestQueueStatus(t *testing.T) {
	manager, _, _, mockQueue, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	mockQueue.On("Status", ctx).Return(models.QueueStatus{
		QueueSize:      2,
		Processing:     []string{"doc-1"},
		CompletedCount: 5,
		FailedCount:    1,
	}, nil)

	status, err := manager.QueueStatus(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, status.QueueSize)
	assert.Len(t, status.Processing, 1)
	assert.Equal(t, 5, status.CompletedCount)
	assert.Equal(t, 1, status.FailedCount)
}

func TestListUserTasks(t *testing.T) {
	manager, mockMetadata, _, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	completed := models.StatusCompleted
	expected := []*models.UploadRecord{
		{DocID: "doc-1", Status: models.StatusCompleted},
		{DocID: "doc-2", Status: models.StatusCompleted},
	}
	mockMetadata.On("GetUserUploads", ctx, "u1", 10, &completed).Return(expected, nil)

	records, err := manager.ListUserTasks(ctx, "u1", 10, &completed)

	assert.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDeleteUploadRecord_Success(t *testing.T) {
	manager, mockMetadata, mockBlobs, _, mockVectors, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	mockVectorRepo := new(MockVectorRepo)

	record := &models.UploadRecord{DocID: "doc-1", UserToken: "u1", CollectionID: "c1"}
	mockMetadata.On("GetUploadRecord", ctx, "doc-1").Return(record, nil)
	mockVectors.On("ForUser", "u1").Return(mockVectorRepo, nil)
	mockVectorRepo.On("DeleteDocument", ctx, "c1", "doc-1").Return(3, nil)
	mockBlobs.On("DeleteDoc", ctx, "u1", "doc-1").Return(nil)
	mockMetadata.On("DeleteUploadRecord", ctx, "doc-1").Return(nil)

	err := manager.DeleteUploadRecord(ctx, "u1", "doc-1")

	assert.NoError(t, err)
	mockMetadata.AssertExpectations(t)
	mockBlobs.AssertExpectations(t)
	mockVectorRepo.AssertExpectations(t)
}

func TestDeleteUploadRecord_ForeignDoc(t *testing.T) {
	manager, mockMetadata, mockBlobs, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	record := &models.UploadRecord{DocID: "doc-1", UserToken: "owner", CollectionID: "c1"}
	mockMetadata.On("GetUploadRecord", ctx, "doc-1").Return(record, nil)

	err := manager.DeleteUploadRecord(ctx, "intruder", "doc-1")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrPermissionDenied))
	mockBlobs.AssertNotCalled(t, "DeleteDoc", mock.Anything, mock.Anything, mock.Anything)
	mockMetadata.AssertNotCalled(t, "DeleteUploadRecord", mock.Anything, mock.Anything)
}

func TestDeleteUploadRecord_IndexFailureDoesNotBlock(t *testing.T) {
	manager, mockMetadata, mockBlobs, _, mockVectors, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	mockVectorRepo := new(MockVectorRepo)

	record := &models.UploadRecord{DocID: "doc-1", UserToken: "u1", CollectionID: "c1"}
	mockMetadata.On("GetUploadRecord", ctx, "doc-1").Return(record, nil)
	mockVectors.On("ForUser", "u1").Return(mockVectorRepo, nil)
	mockVectorRepo.On("DeleteDocument", ctx, "c1", "doc-1").Return(0, errors.New("index locked"))
	mockBlobs.On("DeleteDoc", ctx, "u1", "doc-1").Return(nil)
	mockMetadata.On("DeleteUploadRecord", ctx, "doc-1").Return(nil)

	err := manager.DeleteUploadRecord(ctx, "u1", "doc-1")

	assert.NoError(t, err)
	mockBlobs.AssertCalled(t, "DeleteDoc", ctx, "u1", "doc-1")
}

func TestDeleteUser_Success(t *testing.T) {
	manager, mockMetadata, mockBlobs, _, mockVectors, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	mockMetadata.On("GetUser", ctx, "u1").Return(&models.UserInfo{UserToken: "u1"}, nil)
	mockVectors.On("CloseUser", "u1").Return(nil)
	mockBlobs.On("DeleteUser", ctx, "u1").Return(nil)
	mockMetadata.On("DeleteUser", ctx, "u1").Return(nil)

	err := manager.DeleteUser(ctx, "u1")

	assert.NoError(t, err)
	mockMetadata.AssertExpectations(t)
	mockBlobs.AssertExpectations(t)
	mockVectors.AssertExpectations(t)
}

func TestDeleteUser_Unknown(t *testing.T) {
	manager, mockMetadata, mockBlobs, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	mockMetadata.On("GetUser", ctx, "ghost").Return(nil, models.ErrUnknownUser)

	err := manager.DeleteUser(ctx, "ghost")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknownUser))
	mockBlobs.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}

func TestSweepStaleProcessing(t *testing.T) {
	manager, mockMetadata, _, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	stale := []*models.UploadRecord{
		{DocID: "doc-1", Status: models.StatusProcessing},
		{DocID: "doc-2", Status: models.StatusProcessing},
	}
	mockMetadata.On("ListRecordsByStatus", ctx, models.StatusProcessing).Return(stale, nil)
	mockMetadata.On("UpdateUploadRecord", ctx, "doc-1", mock.MatchedBy(func(update *models.UploadRecordUpdate) bool {
		return update.Status != nil && *update.Status == models.StatusFailed &&
			update.ErrMsg != nil && update.ProcessEndTime != nil
	})).Return(true, nil)
	mockMetadata.On("UpdateUploadRecord", ctx, "doc-2", mock.AnythingOfType("*models.UploadRecordUpdate")).Return(true, nil)

	swept, err := manager.SweepStaleProcessing(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, swept)
	mockMetadata.AssertExpectations(t)
}

func TestSweepStaleProcessing_Empty(t *testing.T) {
	manager, mockMetadata, _, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	mockMetadata.On("ListRecordsByStatus", ctx, models.StatusProcessing).Return([]*models.UploadRecord{}, nil)

	swept, err := manager.SweepStaleProcessing(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestListUserFiles(t *testing.T) {
	manager, _, mockBlobs, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	files := []models.UserFileInfo{
		{DocID: "doc-1", Filename: "a.txt", Size: 11, Processed: true},
	}
	mockBlobs.On("ListDocs", ctx, "u1").Return(files, nil)

	got, err := manager.ListUserFiles(ctx, "u1")

	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "a.txt", got[0].Filename)
}

func TestUserStorageInfo(t *testing.T) {
	manager, _, mockBlobs, _, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	info := &models.UserStorageInfo{UserToken: "u1", OriginBytes: 100, ProcessedBytes: 40, TotalBytes: 140, FileCount: 2}
	mockBlobs.On("StorageInfo", ctx, "u1").Return(info, nil)

	got, err := manager.UserStorageInfo(ctx, "u1")

	assert.NoError(t, err)
	assert.Equal(t, int64(140), got.TotalBytes)
}

func TestDocumentMetadata(t *testing.T) {
	manager, _, mockBlobs, _, _, mockConverter := setupTestProcessingManager(t)
	ctx := context.Background()

	mockBlobs.On("OriginalPath", ctx, "u1", "doc-1").Return("/data/user/u1/origin/doc-1.txt", nil)
	mockConverter.On("ExtractMetadata", ctx, "/data/user/u1/origin/doc-1.txt").Return(&models.DocumentMetadata{
		Filename: "doc-1.txt",
		FileSize: 11,
	}, nil)

	meta, err := manager.DocumentMetadata(ctx, "u1", "doc-1")

	assert.NoError(t, err)
	assert.Equal(t, "doc-1.txt", meta.Filename)
}

func TestDocumentMetadata_FileMissing(t *testing.T) {
	manager, _, mockBlobs, _, _, mockConverter := setupTestProcessingManager(t)
	ctx := context.Background()

	mockBlobs.On("OriginalPath", ctx, "u1", "ghost").Return("", models.ErrFileMissing)

	meta, err := manager.DocumentMetadata(ctx, "u1", "ghost")

	assert.Error(t, err)
	assert.Nil(t, meta)
	assert.True(t, errors.Is(err, models.ErrFileMissing))
	mockConverter.AssertNotCalled(t, "ExtractMetadata", mock.Anything, mock.Anything)
}

func TestWorkerStats(t *testing.T) {
	manager, _, _, _, _, _ := setupTestProcessingManager(t)

	stats := manager.WorkerStats()

	assert.Len(t, stats, 1)
	assert.Equal(t, "process-worker", stats[0].WorkerName)
	assert.False(t, stats[0].IsRunning)
}

func TestStartSweepsBeforeWorkers(t *testing.T) {
	manager, mockMetadata, _, mockQueue, _, _ := setupTestProcessingManager(t)
	ctx := context.Background()

	stale := []*models.UploadRecord{{DocID: "doc-1", Status: models.StatusProcessing}}
	mockMetadata.On("ListRecordsByStatus", ctx, models.StatusProcessing).Return(stale, nil)
	mockMetadata.On("UpdateUploadRecord", ctx, "doc-1", mock.AnythingOfType("*models.UploadRecordUpdate")).Return(true, nil)
	mockQueue.On("ClaimNext", mock.Anything).Return(nil, nil).Maybe()

	err := manager.Start(ctx)
	assert.NoError(t, err)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, manager.Stop(stopCtx))

	mockMetadata.AssertCalled(t, "UpdateUploadRecord", ctx, "doc-1", mock.AnythingOfType("*models.UploadRecordUpdate"))
}
