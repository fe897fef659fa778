package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Rain-kl/cyber-kb/internal/converter"
	"github.com/Rain-kl/cyber-kb/internal/embedding"
	"github.com/Rain-kl/cyber-kb/internal/models"
	"github.com/Rain-kl/cyber-kb/internal/queue"
	"github.com/Rain-kl/cyber-kb/internal/repositories"
	"github.com/Rain-kl/cyber-kb/internal/workers"
)

// ProcessingManager orchestrates document ingestion: it accepts submissions,
// persists metadata atomically, feeds the task queue, and owns the worker
// pool that drives each task to a terminal state.
type ProcessingManager struct {
	metadataRepo repositories.MetadataRepository
	blobRepo     repositories.BlobRepository
	queue        queue.DocumentQueue
	vectors      repositories.VectorRepositoryProvider
	converter    converter.Converter
	pool         *workers.WorkerPool
	logger       *log.Logger
}

// ProcessingManagerConfig holds the manager's collaborators and tuning knobs.
type ProcessingManagerConfig struct {
	MetadataRepo   repositories.MetadataRepository
	BlobRepo       repositories.BlobRepository
	Queue          queue.DocumentQueue
	VectorProvider repositories.VectorRepositoryProvider
	Converter      converter.Converter
	Embedder       embedding.Client
	Logger         *log.Logger

	// MaxWorkers bounds concurrent task processing. Default 3.
	MaxWorkers int

	// ChunkSize and ChunkOverlap are forwarded to the process worker.
	ChunkSize    int
	ChunkOverlap int

	EnableVectorIndex bool
	StrictEmbedding   bool
}

// NewProcessingManager wires the process worker into a pool and returns the
// manager. Start must be called before submissions make progress.
func NewProcessingManager(config ProcessingManagerConfig) *ProcessingManager {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 3
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stdout, "[MANAGER] ", log.LstdFlags)
	}

	workerConfig := workers.DefaultWorkerConfig("process-worker")
	workerConfig.Concurrency = config.MaxWorkers

	worker := workers.NewProcessWorker(workers.ProcessWorkerConfig{
		WorkerConfig:      workerConfig,
		Queue:             config.Queue,
		MetadataRepo:      config.MetadataRepo,
		BlobRepo:          config.BlobRepo,
		Converter:         config.Converter,
		Embedder:          config.Embedder,
		VectorProvider:    config.VectorProvider,
		ChunkSize:         config.ChunkSize,
		ChunkOverlap:      config.ChunkOverlap,
		EnableVectorIndex: config.EnableVectorIndex,
		StrictEmbedding:   config.StrictEmbedding,
	})

	pool := workers.NewWorkerPool()
	pool.AddWorker(worker)

	return &ProcessingManager{
		metadataRepo: config.MetadataRepo,
		blobRepo:     config.BlobRepo,
		queue:        config.Queue,
		vectors:      config.VectorProvider,
		converter:    config.Converter,
		pool:         pool,
		logger:       config.Logger,
	}
}

// SubmitRequest carries one document submission.
type SubmitRequest struct {
	UserToken    string
	Filename     string
	Content      io.Reader
	CollectionID string
	MimeType     string

	// DocID is generated when empty.
	DocID string
}

// Submit registers a document for processing and returns its doc id. Any
// failure before the task is enqueued rolls back so nothing persists.
func (m *ProcessingManager) Submit(ctx context.Context, req *SubmitRequest) (string, error) {
	if req.UserToken == "" {
		return "", fmt.Errorf("%w: user token is required", models.ErrInvalidArgument)
	}
	if req.Filename == "" {
		return "", fmt.Errorf("%w: filename is required", models.ErrInvalidArgument)
	}
	if req.Content == nil {
		return "", fmt.Errorf("%w: file content is required", models.ErrInvalidArgument)
	}

	docID := req.DocID
	if docID == "" {
		docID = uuid.New().String()
	}

	if _, err := m.metadataRepo.CreateUserIfAbsent(ctx, req.UserToken); err != nil {
		return "", fmt.Errorf("register user: %w", err)
	}

	if req.CollectionID != "" {
		if _, err := m.metadataRepo.GetCollection(ctx, req.UserToken, req.CollectionID); err != nil {
			return "", err
		}
	}

	if _, err := m.blobRepo.SaveOriginal(ctx, req.UserToken, docID, req.Filename, req.Content); err != nil {
		return "", fmt.Errorf("store original: %w", err)
	}

	record := &models.UploadRecord{
		DocID:        docID,
		UserToken:    req.UserToken,
		CollectionID: req.CollectionID,
		Filename:     req.Filename,
		MimeType:     req.MimeType,
		Status:       models.StatusPending,
	}
	if err := m.metadataRepo.AddUploadRecord(ctx, record); err != nil {
		if cleanupErr := m.blobRepo.DeleteDoc(ctx, req.UserToken, docID); cleanupErr != nil {
			m.logger.Printf("Rollback of blob %s failed: %v", docID, cleanupErr)
		}
		return "", err
	}

	task := &models.Task{
		DocID:     docID,
		UserToken: req.UserToken,
		Filename:  req.Filename,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := m.queue.Add(ctx, task); err != nil {
		if cleanupErr := m.metadataRepo.DeleteUploadRecord(ctx, docID); cleanupErr != nil {
			m.logger.Printf("Rollback of record %s failed: %v", docID, cleanupErr)
		}
		if cleanupErr := m.blobRepo.DeleteDoc(ctx, req.UserToken, docID); cleanupErr != nil {
			m.logger.Printf("Rollback of blob %s failed: %v", docID, cleanupErr)
		}
		return "", fmt.Errorf("enqueue task: %w", err)
	}

	m.logger.Printf("Accepted doc %s (%s) for user %s", docID, req.Filename, req.UserToken)
	return docID, nil
}

// GetTask returns the durable task snapshot for a doc id.
func (m *ProcessingManager) GetTask(ctx context.Context, docID string) (*models.UploadRecord, error) {
	return m.metadataRepo.GetUploadRecord(ctx, docID)
}

// QueueStatus reports the queue mirror's snapshot.
func (m *ProcessingManager) QueueStatus(ctx context.Context) (models.QueueStatus, error) {
	return m.queue.Status(ctx)
}

// ListUserTasks returns the user's upload records, newest first. A nil
// status returns every record; limit <= 0 means no limit.
func (m *ProcessingManager) ListUserTasks(ctx context.Context, userToken string, limit int, status *models.Status) ([]*models.UploadRecord, error) {
	return m.metadataRepo.GetUserUploads(ctx, userToken, limit, status)
}

// DeleteUploadRecord removes a document everywhere: vector index entries,
// blob files, and finally the metadata record.
func (m *ProcessingManager) DeleteUploadRecord(ctx context.Context, userToken, docID string) error {
	record, err := m.metadataRepo.GetUploadRecord(ctx, docID)
	if err != nil {
		return err
	}
	if record.UserToken != userToken {
		return fmt.Errorf("%w: doc %s belongs to another user", models.ErrPermissionDenied, docID)
	}

	// Index first: best effort, the delete is idempotent on retry.
	if record.CollectionID != "" {
		if repo, err := m.vectors.ForUser(userToken); err != nil {
			m.logger.Printf("Vector index unavailable while deleting doc %s: %v", docID, err)
		} else if deleted, err := repo.DeleteDocument(ctx, record.CollectionID, docID); err != nil {
			m.logger.Printf("Index cleanup for doc %s failed: %v", docID, err)
		} else if deleted > 0 {
			m.logger.Printf("Removed %d index chunks for doc %s", deleted, docID)
		}
	}

	if err := m.blobRepo.DeleteDoc(ctx, userToken, docID); err != nil {
		return fmt.Errorf("delete blobs: %w", err)
	}
	if err := m.metadataRepo.DeleteUploadRecord(ctx, docID); err != nil {
		return err
	}

	m.logger.Printf("Deleted doc %s for user %s", docID, userToken)
	return nil
}

// DeleteUser removes a tenant entirely: vector handle, blob tree, and
// metadata rows. The vector handle must close before the tree goes away.
func (m *ProcessingManager) DeleteUser(ctx context.Context, userToken string) error {
	if _, err := m.metadataRepo.GetUser(ctx, userToken); err != nil {
		return err
	}

	if err := m.vectors.CloseUser(userToken); err != nil {
		m.logger.Printf("Closing vector index for user %s failed: %v", userToken, err)
	}
	if err := m.blobRepo.DeleteUser(ctx, userToken); err != nil {
		return fmt.Errorf("delete user files: %w", err)
	}
	if err := m.metadataRepo.DeleteUser(ctx, userToken); err != nil {
		return err
	}

	m.logger.Printf("Deleted user %s", userToken)
	return nil
}

// SweepStaleProcessing demotes records stuck in processing (left over from a
// crash or hard shutdown) to failed. Returns how many records were swept.
func (m *ProcessingManager) SweepStaleProcessing(ctx context.Context) (int, error) {
	stale, err := m.metadataRepo.ListRecordsByStatus(ctx, models.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("list stale records: %w", err)
	}

	swept := 0
	for _, record := range stale {
		now := time.Now()
		failed := models.StatusFailed
		errMsg := "processing interrupted by service restart"
		if _, err := m.metadataRepo.UpdateUploadRecord(ctx, record.DocID, &models.UploadRecordUpdate{
			Status:         &failed,
			ProcessEndTime: &now,
			ErrMsg:         &errMsg,
		}); err != nil {
			m.logger.Printf("Sweeping stale record %s failed: %v", record.DocID, err)
			continue
		}
		swept++
	}

	if swept > 0 {
		m.logger.Printf("Swept %d stale processing records to failed", swept)
	}
	return swept, nil
}

// ListUserFiles lists the user's stored originals with processed flags.
func (m *ProcessingManager) ListUserFiles(ctx context.Context, userToken string) ([]models.UserFileInfo, error) {
	return m.blobRepo.ListDocs(ctx, userToken)
}

// UserStorageInfo reports the user's on-disk footprint.
func (m *ProcessingManager) UserStorageInfo(ctx context.Context, userToken string) (*models.UserStorageInfo, error) {
	return m.blobRepo.StorageInfo(ctx, userToken)
}

// DocumentMetadata extracts metadata for a stored original.
func (m *ProcessingManager) DocumentMetadata(ctx context.Context, userToken, docID string) (*models.DocumentMetadata, error) {
	path, err := m.blobRepo.OriginalPath(ctx, userToken, docID)
	if err != nil {
		return nil, err
	}
	return m.converter.ExtractMetadata(ctx, path)
}

// WorkerStats reports statistics for every worker in the pool.
func (m *ProcessingManager) WorkerStats() []workers.WorkerStats {
	return m.pool.GetAllStats()
}

// Start sweeps stale records and starts the worker pool.
func (m *ProcessingManager) Start(ctx context.Context) error {
	if _, err := m.SweepStaleProcessing(ctx); err != nil {
		m.logger.Printf("Stale record sweep failed: %v", err)
	}
	if err := m.pool.StartAll(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}
	m.logger.Printf("Processing manager started (%d workers)", m.pool.Count())
	return nil
}

// Stop shuts the worker pool down, waiting for in-flight tasks within the
// workers' shutdown timeout.
func (m *ProcessingManager) Stop(ctx context.Context) error {
	if err := m.pool.StopAll(ctx); err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	m.logger.Printf("Processing manager stopped")
	return nil
}
