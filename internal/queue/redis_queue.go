package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rain-kl/cyber-kb/internal/db"
	"github.com/Rain-kl/cyber-kb/internal/models"
)

// RedisQueue is the broker-backed DocumentQueue for deployments where
// uploads and workers live in separate processes. The pending FIFO is a
// sorted set scored by enqueue time, task mirrors are JSON values, and
// status sets group doc ids for counting. ZPOPMIN makes a claim exclusive
// across processes; the status write follows it.
type RedisQueue struct {
	client *db.RedisClient
	prefix string
}

// NewRedisQueue creates a queue over an existing client. prefix namespaces
// every key; empty means "kb".
func NewRedisQueue(client *db.RedisClient, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "kb"
	}
	return &RedisQueue{client: client, prefix: prefix}
}

func (q *RedisQueue) key(name string) string {
	return q.prefix + ":" + name
}

func (q *RedisQueue) taskKey(docID string) string {
	return q.prefix + ":task:" + docID
}

func (q *RedisQueue) load(ctx context.Context, docID string) (*models.Task, error) {
	data, err := q.client.Get(ctx, q.taskKey(docID))
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", docID, err)
	}
	return &task, nil
}

// store writes the task JSON and any set moves atomically.
func (q *RedisQueue) store(ctx context.Context, task *models.Task, extra func(redis.Pipeliner)) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.DocID, err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.taskKey(task.DocID), data, 0)
	if extra != nil {
		extra(pipe)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Add appends the task to the pending FIFO.
func (q *RedisQueue) Add(ctx context.Context, task *models.Task) error {
	if task == nil || task.DocID == "" {
		return fmt.Errorf("%w: task requires a doc id", models.ErrInvalidArgument)
	}

	stored := task.Clone()
	stored.Status = models.StatusPending

	score := float64(time.Now().UnixNano())
	return q.store(ctx, stored, func(pipe redis.Pipeliner) {
		pipe.ZAdd(ctx, q.key("pending"), redis.Z{Score: score, Member: stored.DocID})
	})
}

// ClaimNext pops the oldest pending doc id and marks it processing.
// Returns (nil, nil) when the FIFO is empty.
func (q *RedisQueue) ClaimNext(ctx context.Context) (*models.Task, error) {
	for {
		docID, ok, err := q.client.ZPopMin(ctx, q.key("pending"))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}

		task, err := q.load(ctx, docID)
		if err != nil {
			if errors.Is(err, db.ErrKeyMissing) {
				continue // mirror entry removed; skip the stale id
			}
			return nil, err
		}

		now := time.Now()
		task.Status = models.StatusProcessing
		task.StartedAt = &now

		err = q.store(ctx, task, func(pipe redis.Pipeliner) {
			pipe.SAdd(ctx, q.key("processing"), task.DocID)
		})
		if err != nil {
			return nil, err
		}
		return task, nil
	}
}

// UpdateStatus mutates the mirror entry for docID.
func (q *RedisQueue) UpdateStatus(ctx context.Context, docID string, status models.Status, errMsg string) error {
	task, err := q.load(ctx, docID)
	if err != nil {
		if errors.Is(err, db.ErrKeyMissing) {
			return fmt.Errorf("task %s: %w", docID, models.ErrNotFound)
		}
		return err
	}

	task.Status = status
	var extra func(redis.Pipeliner)
	switch status {
	case models.StatusProcessing:
		if task.StartedAt == nil {
			now := time.Now()
			task.StartedAt = &now
		}
		extra = func(pipe redis.Pipeliner) {
			pipe.SAdd(ctx, q.key("processing"), docID)
		}
	case models.StatusCompleted:
		now := time.Now()
		task.CompletedAt = &now
		extra = func(pipe redis.Pipeliner) {
			pipe.SRem(ctx, q.key("processing"), docID)
			pipe.SAdd(ctx, q.key("completed"), docID)
		}
	case models.StatusFailed:
		now := time.Now()
		task.CompletedAt = &now
		task.ErrMsg = errMsg
		extra = func(pipe redis.Pipeliner) {
			pipe.SRem(ctx, q.key("processing"), docID)
			pipe.SAdd(ctx, q.key("failed"), docID)
		}
	}
	return q.store(ctx, task, extra)
}

// Get returns the mirror entry for docID.
func (q *RedisQueue) Get(ctx context.Context, docID string) (*models.Task, error) {
	task, err := q.load(ctx, docID)
	if err != nil {
		if errors.Is(err, db.ErrKeyMissing) {
			return nil, fmt.Errorf("task %s: %w", docID, models.ErrNotFound)
		}
		return nil, err
	}
	return task, nil
}

// Status reports queue depth, in-flight doc ids, and terminal counts.
func (q *RedisQueue) Status(ctx context.Context) (models.QueueStatus, error) {
	var status models.QueueStatus

	pending, err := q.client.ZCard(ctx, q.key("pending"))
	if err != nil {
		return status, err
	}
	processing, err := q.client.SMembers(ctx, q.key("processing"))
	if err != nil {
		return status, err
	}
	if processing == nil {
		processing = []string{}
	}
	completed, err := q.client.SCard(ctx, q.key("completed"))
	if err != nil {
		return status, err
	}
	failed, err := q.client.SCard(ctx, q.key("failed"))
	if err != nil {
		return status, err
	}

	status.QueueSize = int(pending)
	status.Processing = processing
	status.CompletedCount = int(completed)
	status.FailedCount = int(failed)
	return status, nil
}

// All returns every task mirror under this queue's prefix. Reads are
// batched through one pipeline; ids deleted mid-flight are skipped.
func (q *RedisQueue) All(ctx context.Context) ([]*models.Task, error) {
	keys, err := q.client.Keys(ctx, q.prefix+":task:*")
	if err != nil {
		return nil, err
	}

	tasks := make([]*models.Task, 0, len(keys))
	if len(keys) == 0 {
		return tasks, nil
	}

	pipe := q.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for i, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var task models.Task
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			return nil, fmt.Errorf("decode task at %s: %w", keys[i], err)
		}
		tasks = append(tasks, &task)
	}
	return tasks, nil
}
