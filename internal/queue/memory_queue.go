package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// MemoryQueue is the in-process DocumentQueue: a FIFO of doc ids plus four
// bookkeeping maps behind a single mutex. FIFO order among pending tasks is
// preserved; claims are atomic.
type MemoryQueue struct {
	mu         sync.Mutex
	pending    []string
	tasks      map[string]*models.Task
	processing map[string]*models.Task
	completed  map[string]*models.Task
	failed     map[string]*models.Task
}

// NewMemoryQueue creates an empty in-process queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		tasks:      make(map[string]*models.Task),
		processing: make(map[string]*models.Task),
		completed:  make(map[string]*models.Task),
		failed:     make(map[string]*models.Task),
	}
}

// Add appends the task to the pending FIFO.
func (q *MemoryQueue) Add(_ context.Context, task *models.Task) error {
	if task == nil || task.DocID == "" {
		return fmt.Errorf("%w: task requires a doc id", models.ErrInvalidArgument)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	stored := task.Clone()
	stored.Status = models.StatusPending
	q.tasks[task.DocID] = stored
	q.pending = append(q.pending, task.DocID)
	return nil
}

// ClaimNext pops the oldest pending doc id and marks it processing.
// Returns (nil, nil) when the FIFO is empty.
func (q *MemoryQueue) ClaimNext(_ context.Context) (*models.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) > 0 {
		docID := q.pending[0]
		q.pending = q.pending[1:]

		task, ok := q.tasks[docID]
		if !ok {
			continue // mirror entry removed; skip the stale id
		}

		now := time.Now()
		task.Status = models.StatusProcessing
		task.StartedAt = &now
		q.processing[docID] = task
		return task.Clone(), nil
	}
	return nil, nil
}

// UpdateStatus mutates the mirror entry for docID.
func (q *MemoryQueue) UpdateStatus(_ context.Context, docID string, status models.Status, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[docID]
	if !ok {
		return fmt.Errorf("task %s: %w", docID, models.ErrNotFound)
	}

	task.Status = status
	switch status {
	case models.StatusProcessing:
		if task.StartedAt == nil {
			now := time.Now()
			task.StartedAt = &now
		}
		q.processing[docID] = task
	case models.StatusCompleted:
		now := time.Now()
		task.CompletedAt = &now
		delete(q.processing, docID)
		q.completed[docID] = task
	case models.StatusFailed:
		now := time.Now()
		task.CompletedAt = &now
		task.ErrMsg = errMsg
		delete(q.processing, docID)
		q.failed[docID] = task
	}
	return nil
}

// Get returns the mirror entry for docID.
func (q *MemoryQueue) Get(_ context.Context, docID string) (*models.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[docID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", docID, models.ErrNotFound)
	}
	return task.Clone(), nil
}

// Status reports queue depth, in-flight doc ids, and terminal counts.
func (q *MemoryQueue) Status(_ context.Context) (models.QueueStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	processing := make([]string, 0, len(q.processing))
	for docID := range q.processing {
		processing = append(processing, docID)
	}

	return models.QueueStatus{
		QueueSize:      len(q.pending),
		Processing:     processing,
		CompletedCount: len(q.completed),
		FailedCount:    len(q.failed),
	}, nil
}

// All returns a copy of every task seen by the queue.
func (q *MemoryQueue) All(_ context.Context) ([]*models.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := make([]*models.Task, 0, len(q.tasks))
	for _, task := range q.tasks {
		tasks = append(tasks, task.Clone())
	}
	return tasks, nil
}
