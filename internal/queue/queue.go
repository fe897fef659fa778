// Package queue holds the task queue that feeds the processing workers.
// The interface is deliberately small so the in-memory implementation can be
// swapped for a broker-backed one; the manager assumes nothing beyond
// "ClaimNext is atomic and non-blocking".
package queue

import (
	"context"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// DocumentQueue is the pipeline's task feed. The metadata store remains the
// source of truth for task state; the queue keeps a cheap mirror for polling.
type DocumentQueue interface {
	// Add appends a task to the pending FIFO.
	Add(ctx context.Context, task *models.Task) error

	// ClaimNext atomically moves the oldest pending task to processing and
	// returns it. Returns (nil, nil) when nothing is pending.
	ClaimNext(ctx context.Context) (*models.Task, error)

	// UpdateStatus mutates the in-queue mirror of a task.
	UpdateStatus(ctx context.Context, docID string, status models.Status, errMsg string) error

	// Get returns the mirror entry for a doc id.
	Get(ctx context.Context, docID string) (*models.Task, error)

	// Status reports a snapshot of queue depth and terminal counts.
	Status(ctx context.Context) (models.QueueStatus, error)

	// All returns every task the queue has seen since startup.
	All(ctx context.Context) ([]*models.Task, error)
}
