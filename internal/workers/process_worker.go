package workers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Rain-kl/cyber-kb/internal/chunker"
	"github.com/Rain-kl/cyber-kb/internal/converter"
	"github.com/Rain-kl/cyber-kb/internal/embedding"
	"github.com/Rain-kl/cyber-kb/internal/models"
	"github.com/Rain-kl/cyber-kb/internal/queue"
	"github.com/Rain-kl/cyber-kb/internal/repositories"
)

// ProcessWorker drives claimed upload tasks through the pipeline:
// locate original, convert, persist processed text, chunk, embed, index.
type ProcessWorker struct {
	*BaseWorker
	queue        queue.DocumentQueue
	metadataRepo repositories.MetadataRepository
	blobRepo     repositories.BlobRepository
	converter    converter.Converter
	embedder     embedding.Client
	vectors      repositories.VectorRepositoryProvider
	logger       Logger

	chunkSize    int
	chunkOverlap int
	enableVector bool
	strictEmbed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// Logger defines the interface for worker logging
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ProcessWorkerConfig holds configuration for the process worker
type ProcessWorkerConfig struct {
	WorkerConfig   WorkerConfig
	Queue          queue.DocumentQueue
	MetadataRepo   repositories.MetadataRepository
	BlobRepo       repositories.BlobRepository
	Converter      converter.Converter
	Embedder       embedding.Client
	VectorProvider repositories.VectorRepositoryProvider
	Logger         Logger

	// ChunkSize and ChunkOverlap are measured in runes.
	ChunkSize    int
	ChunkOverlap int

	// EnableVectorIndex turns the chunk/embed/index stage on.
	EnableVectorIndex bool

	// StrictEmbedding fails the task when every chunk embedding comes back
	// zero instead of indexing the degraded vectors.
	StrictEmbedding bool
}

// NewProcessWorker creates a new process worker
func NewProcessWorker(config ProcessWorkerConfig) *ProcessWorker {
	if config.ChunkSize <= 0 {
		config.ChunkSize = chunker.DefaultChunkSize
	}
	if config.ChunkOverlap <= 0 {
		config.ChunkOverlap = chunker.DefaultOverlap
	}
	if config.Logger == nil {
		config.Logger = &DefaultLogger{}
	}
	return &ProcessWorker{
		BaseWorker:   NewBaseWorker(config.WorkerConfig),
		queue:        config.Queue,
		metadataRepo: config.MetadataRepo,
		blobRepo:     config.BlobRepo,
		converter:    config.Converter,
		embedder:     config.Embedder,
		vectors:      config.VectorProvider,
		logger:       config.Logger,
		chunkSize:    config.ChunkSize,
		chunkOverlap: config.ChunkOverlap,
		enableVector: config.EnableVectorIndex,
		strictEmbed:  config.StrictEmbedding,
	}
}

// Start begins claiming tasks from the queue
func (w *ProcessWorker) Start(ctx context.Context) error {
	if w.IsRunning() {
		return NewWorkerError(w.Name(), "start", nil, "worker already running")
	}

	w.setRunning(true)
	w.stop = make(chan struct{})
	w.logger.Info("Starting process worker: %s (concurrency %d)", w.Name(), w.config.Concurrency)

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.claimLoop(ctx, i)
	}

	return nil
}

// Stop signals the claim loops and waits for in-flight tasks, bounded by
// the configured shutdown timeout.
func (w *ProcessWorker) Stop(ctx context.Context) error {
	if !w.IsRunning() {
		return nil
	}

	w.logger.Info("Stopping process worker: %s", w.Name())
	close(w.stop)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, w.config.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		w.logger.Warn("Shutdown timed out with tasks still in flight: %s", w.Name())
	}

	w.setRunning(false)
	w.logger.Info("Process worker stopped: %s", w.Name())
	return nil
}

// claimLoop polls the queue and processes one task at a time per goroutine,
// so the worker never runs more than Concurrency tasks at once.
func (w *ProcessWorker) claimLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	loopName := fmt.Sprintf("%s-goroutine-%d", w.Name(), workerID)
	w.logger.Debug("Worker goroutine started: %s", loopName)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping: %s", loopName)
			return

		case <-w.stop:
			w.logger.Debug("Worker goroutine stopping: %s", loopName)
			return

		case <-ticker.C:
			task, err := w.queue.ClaimNext(ctx)
			if err != nil {
				w.logger.Error("Failed to claim task: %v", err)
				continue
			}
			if task == nil {
				continue
			}

			w.processTask(ctx, task)
		}
	}
}

// processTask drives one task to a terminal state
func (w *ProcessWorker) processTask(ctx context.Context, task *models.Task) {
	startTime := w.recordTaskStart()
	w.logger.Info("Processing doc %s (%s) for user %s", task.DocID, task.Filename, task.UserToken)

	var err error
	if w.config.EnableRecovery {
		err = w.runPipelineWithRecovery(ctx, task)
	} else {
		err = w.runPipeline(ctx, task)
	}

	if err != nil {
		w.markFailed(ctx, task, err, startTime)
	} else {
		w.markCompleted(ctx, task, startTime)
	}
}

// runPipelineWithRecovery wraps pipeline execution with panic recovery
func (w *ProcessWorker) runPipelineWithRecovery(ctx context.Context, task *models.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &WorkerPanicError{Panic: r}
			w.logger.Error("Panic while processing doc %s: %v", task.DocID, r)
		}
	}()
	return w.runPipeline(ctx, task)
}

// runPipeline performs the actual processing
func (w *ProcessWorker) runPipeline(ctx context.Context, task *models.Task) error {
	record, err := w.metadataRepo.GetUploadRecord(ctx, task.DocID)
	if err != nil {
		return fmt.Errorf("load upload record: %w", err)
	}

	started := time.Now()
	processing := models.StatusProcessing
	if _, err := w.metadataRepo.UpdateUploadRecord(ctx, task.DocID, &models.UploadRecordUpdate{
		Status:           &processing,
		ProcessStartTime: &started,
	}); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	originalPath, err := w.blobRepo.OriginalPath(ctx, record.UserToken, task.DocID)
	if err != nil {
		return err
	}

	text, err := w.converter.Convert(ctx, originalPath)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrConversionFailed, err)
	}

	if err := w.blobRepo.WriteProcessed(ctx, record.UserToken, task.DocID, text); err != nil {
		return fmt.Errorf("persist processed text: %w", err)
	}
	w.logger.Info("Converted doc %s (%d chars)", task.DocID, utf8.RuneCountInString(text))

	if w.enableVector && strings.TrimSpace(text) != "" {
		if err := w.indexDocument(ctx, record, text); err != nil {
			return err
		}
	}

	return nil
}

// indexDocument chunks, embeds, and writes the converted text into the
// user's vector index. Index write failures are logged but do not fail the
// task; the processed text is already durable at this point.
func (w *ProcessWorker) indexDocument(ctx context.Context, record *models.UploadRecord, text string) error {
	pieces, err := chunker.Split(text, w.chunkSize, w.chunkOverlap)
	if err != nil {
		return fmt.Errorf("chunk text: %w", err)
	}
	if len(pieces) == 0 {
		return nil
	}

	embeddings, err := w.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if embedding.AllZero(embeddings) {
		if w.strictEmbed {
			return fmt.Errorf("%w: all %d chunk embeddings came back zero", models.ErrEmbeddingDegraded, len(pieces))
		}
		w.logger.Warn("Embedding service degraded for doc %s; indexing zero vectors", record.DocID)
	}

	now := time.Now()
	chunks := make([]*models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &models.Chunk{
			Text:      piece,
			Embedding: embeddings[i],
			Metadata: models.ChunkMetadata(record.DocID, i, record.UserToken, record.CollectionID,
				record.Filename, utf8.RuneCountInString(piece), now),
		}
	}

	repo, err := w.vectors.ForUser(record.UserToken)
	if err != nil {
		w.logger.Error("Vector index unavailable for user %s: %v", record.UserToken, err)
		return nil
	}
	if _, err := repo.AddChunks(ctx, record.CollectionID, record.DocID, chunks); err != nil {
		w.logger.Error("Index write failed for doc %s: %v", record.DocID, err)
		return nil
	}

	w.logger.Info("Indexed %d chunks for doc %s into collection %s", len(chunks), record.DocID, record.CollectionID)
	return nil
}

// markCompleted records the terminal completed state
func (w *ProcessWorker) markCompleted(ctx context.Context, task *models.Task, startTime time.Time) {
	w.recordTaskSuccess(startTime)

	now := time.Now()
	completed := models.StatusCompleted
	if _, err := w.metadataRepo.UpdateUploadRecord(ctx, task.DocID, &models.UploadRecordUpdate{
		Status:         &completed,
		ProcessEndTime: &now,
	}); err != nil {
		w.logger.Error("Failed to mark doc %s completed: %v", task.DocID, err)
	}
	if err := w.queue.UpdateStatus(ctx, task.DocID, models.StatusCompleted, ""); err != nil {
		w.logger.Error("Failed to update queue mirror for doc %s: %v", task.DocID, err)
	}

	w.logger.Info("Doc %s completed (duration: %v)", task.DocID, time.Since(startTime))
}

// markFailed records the terminal failed state with the pipeline error
func (w *ProcessWorker) markFailed(ctx context.Context, task *models.Task, taskErr error, startTime time.Time) {
	w.recordTaskFailure(startTime)

	now := time.Now()
	failed := models.StatusFailed
	errMsg := taskErr.Error()
	if _, err := w.metadataRepo.UpdateUploadRecord(ctx, task.DocID, &models.UploadRecordUpdate{
		Status:         &failed,
		ProcessEndTime: &now,
		ErrMsg:         &errMsg,
	}); err != nil {
		w.logger.Error("Failed to mark doc %s failed: %v", task.DocID, err)
	}
	if err := w.queue.UpdateStatus(ctx, task.DocID, models.StatusFailed, errMsg); err != nil {
		w.logger.Error("Failed to update queue mirror for doc %s: %v", task.DocID, err)
	}

	w.logger.Error("Doc %s failed: %v", task.DocID, taskErr)
}

// DefaultLogger is a simple logger implementation
type DefaultLogger struct{}

func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	log.Printf("[INFO] "+msg, args...)
}

func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	log.Printf("[ERROR] "+msg, args...)
}

func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	log.Printf("[WARN] "+msg, args...)
}

func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	log.Printf("[DEBUG] "+msg, args...)
}
