package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/models"
)

// Manager owns the relay queues: enqueueing with lock acquisition, dequeue,
// lock lifecycle, retry counters, the DLQ lists, and queue clearing. It is
// a thin policy layer over the Store; every operation maps to one or a few
// atomic store calls.
type Manager struct {
	store  Store
	logger *logrus.Logger
}

func NewManager(store Store, logger *logrus.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Store exposes the underlying store for callers that need raw access
// (instance cache, health checks).
func (m *Manager) Store() Store {
	return m.store
}

// Enqueue appends a job to the tail of the named queue. Duplicates are
// possible and acceptable; dedup belongs to the consuming system.
func (m *Manager) Enqueue(ctx context.Context, queueKey string, job *models.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.JobID, err)
	}
	if err := m.store.ListPush(ctx, queueKey, string(raw)); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.JobID, err)
	}
	return nil
}

// EnqueueAndTryLock enqueues, then attempts to acquire the conversation
// lock. The returned bool reports whether this call won the lock, the
// signal that a worker should wake up and drain the queue. When another
// holder already owns the lock the job is still enqueued and will be
// drained by the current holder.
func (m *Manager) EnqueueAndTryLock(ctx context.Context, queueKey, lockKey string, job *models.Job, lockTTL time.Duration) (bool, error) {
	if err := m.Enqueue(ctx, queueKey, job); err != nil {
		return false, err
	}
	return m.AcquireLock(ctx, lockKey, lockTTL)
}

// Dequeue pops the queue head without blocking. Returns nil when empty.
// A payload that cannot be decoded is dropped with a log entry; it never
// re-enters the queue.
func (m *Manager) Dequeue(ctx context.Context, queueKey string) (*models.Job, error) {
	raw, ok, err := m.store.ListPop(ctx, queueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue from %s: %w", queueKey, err)
	}
	if !ok {
		return nil, nil
	}
	return m.decodeJob(queueKey, raw), nil
}

// DequeueBlocking blocks up to timeout waiting for a job. Returns nil on
// timeout. This is the worker loops' suspension point.
func (m *Manager) DequeueBlocking(ctx context.Context, queueKey string, timeout time.Duration) (*models.Job, error) {
	raw, ok, err := m.store.ListPopBlocking(ctx, queueKey, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to block-dequeue from %s: %w", queueKey, err)
	}
	if !ok {
		return nil, nil
	}
	return m.decodeJob(queueKey, raw), nil
}

func (m *Manager) decodeJob(queueKey, raw string) *models.Job {
	var job models.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		m.logger.WithError(err).WithField("queueKey", queueKey).Error("Dropping undecodable queue payload")
		return nil
	}
	return &job
}

// AcquireLock sets the lock key only if absent, with an expiry. The lock
// is advisory: it gates worker wake-ups, not list operations.
func (m *Manager) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	acquired, err := m.store.SetIfAbsent(ctx, lockKey, "locked", ttl)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
	}
	return acquired, nil
}

func (m *Manager) ReleaseLock(ctx context.Context, lockKey string) error {
	if lockKey == "" {
		return nil
	}
	if err := m.store.Delete(ctx, lockKey); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lockKey, err)
	}
	return nil
}

func (m *Manager) HasLock(ctx context.Context, lockKey string) (bool, error) {
	return m.store.Exists(ctx, lockKey)
}

func (m *Manager) QueueLength(ctx context.Context, queueKey string) (int64, error) {
	return m.store.ListLength(ctx, queueKey)
}

// IncrementRetry bumps the conversation's retry counter.
func (m *Manager) IncrementRetry(ctx context.Context, retryKey string) (int64, error) {
	return m.store.Increment(ctx, retryKey)
}

func (m *Manager) RetryCount(ctx context.Context, retryKey string) (int64, error) {
	value, ok, err := m.store.Get(ctx, retryKey)
	if err != nil || !ok {
		return 0, err
	}
	var count int64
	if _, err := fmt.Sscanf(value, "%d", &count); err != nil {
		return 0, nil
	}
	return count, nil
}

func (m *Manager) ResetRetry(ctx context.Context, retryKey string) error {
	return m.store.Delete(ctx, retryKey)
}

// SendToDLQ appends a job to the conversation's dead-letter list.
func (m *Manager) SendToDLQ(ctx context.Context, dlqKey string, job *models.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s for DLQ: %w", job.JobID, err)
	}
	if err := m.store.ListPush(ctx, dlqKey, string(raw)); err != nil {
		return fmt.Errorf("failed to push job %s to DLQ: %w", job.JobID, err)
	}
	return nil
}

// ListDLQ returns DLQ entries in the given range without removing them.
// Undecodable entries are skipped.
func (m *Manager) ListDLQ(ctx context.Context, dlqKey string, start, stop int64) ([]*models.Job, error) {
	raws, err := m.store.ListRange(ctx, dlqKey, start, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to list DLQ %s: %w", dlqKey, err)
	}
	jobs := make([]*models.Job, 0, len(raws))
	for _, raw := range raws {
		if job := m.decodeJob(dlqKey, raw); job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// RemoveFromDLQ removes the first DLQ entry with the given jobId. Returns
// whether an entry was removed.
func (m *Manager) RemoveFromDLQ(ctx context.Context, dlqKey, jobID string) (bool, error) {
	raws, err := m.store.ListRange(ctx, dlqKey, 0, -1)
	if err != nil {
		return false, fmt.Errorf("failed to scan DLQ %s: %w", dlqKey, err)
	}
	for _, raw := range raws {
		job := m.decodeJob(dlqKey, raw)
		if job == nil || job.JobID != jobID {
			continue
		}
		removed, err := m.store.ListRemove(ctx, dlqKey, 1, raw)
		if err != nil {
			return false, fmt.Errorf("failed to remove job %s from DLQ: %w", jobID, err)
		}
		return removed > 0, nil
	}
	return false, nil
}

// ClearResult reports what a ClearQueue call deleted.
type ClearResult struct {
	QueueCleared int64 `json:"queueCleared"`
	RetryCleared int64 `json:"retryCleared"`
	DLQCleared   int64 `json:"dlqCleared"`
}

// ClearQueue reports and deletes all four storage artifacts of one
// conversation. Calling it on an already-empty set returns zero counts.
func (m *Manager) ClearQueue(ctx context.Context, queueKey, retryKey, dlqKey, lockKey string) (*ClearResult, error) {
	queueLen, err := m.store.ListLength(ctx, queueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue length: %w", err)
	}
	retryCount, err := m.RetryCount(ctx, retryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read retry counter: %w", err)
	}
	dlqLen, err := m.store.ListLength(ctx, dlqKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read DLQ length: %w", err)
	}

	if err := m.store.Delete(ctx, queueKey, retryKey, dlqKey, lockKey); err != nil {
		return nil, fmt.Errorf("failed to delete queue artifacts: %w", err)
	}

	return &ClearResult{
		QueueCleared: queueLen,
		RetryCleared: retryCount,
		DLQCleared:   dlqLen,
	}, nil
}

// CacheSet stores a JSON value with a TTL.
func (m *Manager) CacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return m.store.Set(ctx, key, string(raw), ttl)
}

// CacheGet loads a JSON value. Returns false when the key is absent or
// the cached payload no longer decodes.
func (m *Manager) CacheGet(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("Dropping undecodable cache entry")
		return false, nil
	}
	return true, nil
}

func (m *Manager) CacheDelete(ctx context.Context, key string) error {
	return m.store.Delete(ctx, key)
}

// DiscoverQueues lists existing queue keys for one direction.
func (m *Manager) DiscoverQueues(ctx context.Context, direction models.Direction) ([]string, error) {
	return m.store.ScanKeys(ctx, QueueScanPattern(direction))
}
