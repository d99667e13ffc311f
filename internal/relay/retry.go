package relay

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/models"
	"github.com/odanieltavares/whatpro-manager/internal/queue"
)

// ExecutionSink records job outcomes for the audit log. Implementations
// must be best-effort: a sink failure is logged by the implementation and
// never surfaces to the relay path.
type ExecutionSink interface {
	Record(ctx context.Context, rec *models.ExecutionRecord)
}

// Notifier posts operator-facing notices back into the chat platform,
// typically as a private note on the conversation. Best-effort.
type Notifier interface {
	NotifyQuarantine(ctx context.Context, job *models.Job, cause string)
}

// RetryManager applies the bounded-retry policy to failed jobs: re-enqueue
// to the tail while attempts remain, quarantine to the DLQ once exhausted.
type RetryManager struct {
	queues      *queue.Manager
	executions  ExecutionSink
	notifier    Notifier
	logger      *logrus.Logger
	maxAttempts int
}

func NewRetryManager(queues *queue.Manager, executions ExecutionSink, notifier Notifier, logger *logrus.Logger, maxAttempts int) *RetryManager {
	return &RetryManager{
		queues:      queues,
		executions:  executions,
		notifier:    notifier,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// HandleFailure consumes a failed job. The attempt that just failed is
// counted first, so a job created with Attempts=0 is re-enqueued twice and
// quarantined on its third failure.
func (r *RetryManager) HandleFailure(ctx context.Context, job *models.Job, cause error) error {
	job.Attempts++
	job.LastError = cause.Error()
	keys := queue.KeysForJob(job)

	if job.Attempts < r.maxAttempts {
		if _, err := r.queues.IncrementRetry(ctx, keys.Retry); err != nil {
			r.logger.WithError(err).WithField("retryKey", keys.Retry).Warn("Failed to increment retry counter")
		}
		if err := r.queues.Enqueue(ctx, keys.Queue, job); err != nil {
			return err
		}
		r.record(ctx, job, models.ExecutionStatusRetry, cause.Error())
		r.logger.WithFields(logrus.Fields{
			"jobId":    job.JobID,
			"queueKey": keys.Queue,
			"attempts": job.Attempts,
		}).WithError(cause).Warn("Job failed, re-enqueued for retry")
		return nil
	}

	if err := r.queues.SendToDLQ(ctx, keys.DLQ, job); err != nil {
		return err
	}
	r.record(ctx, job, models.ExecutionStatusError, cause.Error())
	r.logger.WithFields(logrus.Fields{
		"jobId":    job.JobID,
		"dlqKey":   keys.DLQ,
		"attempts": job.Attempts,
	}).WithError(cause).Error("Job exhausted retries, quarantined to DLQ")

	if r.notifier != nil {
		r.notifier.NotifyQuarantine(ctx, job, cause.Error())
	}
	return nil
}

// RetryDLQ moves up to batch quarantined jobs from the DLQ back to the
// live queue, oldest first, with attempts and lastError reset. The job
// is enqueued before it leaves the DLQ; a failure in between duplicates
// the job rather than losing it. Returns how many jobs were requeued.
func (r *RetryManager) RetryDLQ(ctx context.Context, queueKey, dlqKey string, batch int) (int, error) {
	jobs, err := r.queues.ListDLQ(ctx, dlqKey, 0, int64(batch)-1)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, job := range jobs {
		jobID := job.JobID
		job.Attempts = 0
		job.LastError = ""
		if err := r.queues.Enqueue(ctx, queueKey, job); err != nil {
			return requeued, err
		}
		if _, err := r.queues.RemoveFromDLQ(ctx, dlqKey, jobID); err != nil {
			return requeued, err
		}
		requeued++
		r.record(ctx, job, models.ExecutionStatusDLQ, "requeued from DLQ")
	}

	if requeued > 0 {
		r.logger.WithFields(logrus.Fields{
			"queueKey": queueKey,
			"requeued": requeued,
		}).Info("Requeued jobs from DLQ")
	}
	return requeued, nil
}

// ClearDLQ drops every quarantined job for the queue. Returns how many
// were dropped.
func (r *RetryManager) ClearDLQ(ctx context.Context, dlqKey string) (int64, error) {
	length, err := r.queues.QueueLength(ctx, dlqKey)
	if err != nil {
		return 0, err
	}
	if err := r.queues.Store().Delete(ctx, dlqKey); err != nil {
		return 0, err
	}
	return length, nil
}

// RetryStats reports the live, retry-counter, and DLQ sizes for one queue.
type RetryStats struct {
	QueueKey   string `json:"queueKey"`
	Pending    int64  `json:"pending"`
	RetryCount int64  `json:"retryCount"`
	Quarantine int64  `json:"quarantine"`
}

func (r *RetryManager) Stats(ctx context.Context, keys queue.JobKeys) (*RetryStats, error) {
	pending, err := r.queues.QueueLength(ctx, keys.Queue)
	if err != nil {
		return nil, err
	}
	retries, err := r.queues.RetryCount(ctx, keys.Retry)
	if err != nil {
		return nil, err
	}
	quarantine, err := r.queues.QueueLength(ctx, keys.DLQ)
	if err != nil {
		return nil, err
	}
	return &RetryStats{
		QueueKey:   keys.Queue,
		Pending:    pending,
		RetryCount: retries,
		Quarantine: quarantine,
	}, nil
}

func (r *RetryManager) record(ctx context.Context, job *models.Job, status models.ExecutionStatus, summary string) {
	if r.executions == nil {
		return
	}
	r.executions.Record(ctx, &models.ExecutionRecord{
		Direction:    job.Direction,
		TenantID:     job.TenantID,
		ProjectID:    job.ProjectID,
		InstanceID:   job.InstanceID,
		ContactKey:   job.ContactKey,
		QueueKey:     job.QueueKey,
		Status:       status,
		ErrorSummary: summary,
		CreatedAt:    time.Now().UTC(),
	})
}
