package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/models"
	"github.com/odanieltavares/whatpro-manager/internal/queue"
)

// Worker drains the per-conversation queues of one direction. Each watched
// queue gets its own goroutine doing blocking pops, so ordering within a
// conversation is preserved while conversations proceed independently.
type Worker struct {
	direction   models.Direction
	queues      *queue.Manager
	deliverer   Deliverer
	retry       *RetryManager
	executions  ExecutionSink
	logger      *logrus.Logger
	pollTimeout time.Duration
	errorSleep  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	ctx     context.Context
	wg      sync.WaitGroup
	watched map[string]bool
	pending []string
}

func NewWorker(direction models.Direction, queues *queue.Manager, deliverer Deliverer, retry *RetryManager, executions ExecutionSink, logger *logrus.Logger) *Worker {
	return &Worker{
		direction:   direction,
		queues:      queues,
		deliverer:   deliverer,
		retry:       retry,
		executions:  executions,
		logger:      logger,
		pollTimeout: constants.DefaultPollTimeoutSec * time.Second,
		errorSleep:  constants.DefaultDrainErrorSleepSec * time.Second,
		watched:     make(map[string]bool),
	}
}

// Start launches drain loops for every queue registered so far and allows
// Watch to launch new ones.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.running = true
	for _, queueKey := range w.pending {
		w.launch(queueKey)
	}
	w.pending = nil
	w.logger.WithField("direction", w.direction).Info("Worker started")
}

// Watch registers a queue for draining. Safe to call for a queue that is
// already watched, and before Start.
func (w *Worker) Watch(queueKey string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[queueKey] {
		return
	}
	w.watched[queueKey] = true
	if !w.running {
		w.pending = append(w.pending, queueKey)
		return
	}
	w.launch(queueKey)
}

// WatchedQueues returns the set of queue keys this worker is draining.
func (w *Worker) WatchedQueues() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watched))
	for queueKey := range w.watched {
		out = append(out, queueKey)
	}
	return out
}

// Stop cancels every drain loop and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.WithField("direction", w.direction).Info("Worker stopped")
}

// launch is called with w.mu held.
func (w *Worker) launch(queueKey string) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.drainLoop(w.ctx, queueKey)
	}()
}

func (w *Worker) drainLoop(ctx context.Context, queueKey string) {
	log := w.logger.WithFields(logrus.Fields{
		"direction": w.direction,
		"queueKey":  queueKey,
	})
	log.Debug("Draining queue")

	// Stop interrupts only the blocking pop. A job already popped runs
	// its delivery, retry handling, and lock release on jobCtx, so a
	// shutdown cannot strand it outside both the queue and the DLQ.
	jobCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.queues.DequeueBlocking(ctx, queueKey, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Error("Queue pop failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.errorSleep):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.processJob(jobCtx, job)
	}
}

// processJob runs one delivery attempt. The conversation lock is released
// on every exit path; a stuck lock would stall the conversation until the
// TTL expired.
func (w *Worker) processJob(ctx context.Context, job *models.Job) {
	keys := queue.KeysForJob(job)
	defer func() {
		if err := w.queues.ReleaseLock(ctx, keys.Lock); err != nil {
			w.logger.WithError(err).WithField("lockKey", keys.Lock).Warn("Failed to release conversation lock")
		}
	}()

	err := w.deliver(ctx, job)
	if err == nil {
		w.recordOK(ctx, job)
		return
	}

	if handleErr := w.retry.HandleFailure(ctx, job, err); handleErr != nil {
		w.logger.WithError(handleErr).WithFields(logrus.Fields{
			"jobId":    job.JobID,
			"queueKey": keys.Queue,
		}).Error("Retry handling failed, job dropped")
	}
}

func (w *Worker) deliver(ctx context.Context, job *models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing job: %v", r)
		}
	}()
	return w.deliverer.Deliver(ctx, job)
}

func (w *Worker) recordOK(ctx context.Context, job *models.Job) {
	if w.executions == nil {
		return
	}
	w.executions.Record(ctx, &models.ExecutionRecord{
		Direction:  job.Direction,
		TenantID:   job.TenantID,
		ProjectID:  job.ProjectID,
		InstanceID: job.InstanceID,
		ContactKey: job.ContactKey,
		QueueKey:   job.QueueKey,
		Status:     models.ExecutionStatusOK,
		CreatedAt:  time.Now().UTC(),
	})
}
