package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odanieltavares/whatpro-manager/internal/models"
	"github.com/odanieltavares/whatpro-manager/internal/queue"
)

type stubDeliverer struct {
	mu        sync.Mutex
	delivered []string
	failures  map[string]int // jobID -> remaining failures
	panicIDs  map[string]bool
	done      chan string
}

func newStubDeliverer() *stubDeliverer {
	return &stubDeliverer{
		failures: make(map[string]int),
		panicIDs: make(map[string]bool),
		done:     make(chan string, 64),
	}
}

func (d *stubDeliverer) Deliver(_ context.Context, job *models.Job) error {
	d.mu.Lock()
	if d.panicIDs[job.JobID] {
		d.mu.Unlock()
		panic("deliverer exploded")
	}
	if d.failures[job.JobID] > 0 {
		d.failures[job.JobID]--
		d.mu.Unlock()
		return errors.New("delivery refused")
	}
	d.delivered = append(d.delivered, job.JobID)
	d.mu.Unlock()
	d.done <- job.JobID
	return nil
}

func (d *stubDeliverer) deliveredIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.delivered...)
}

func newWorkerFixture(t *testing.T, deliverer Deliverer) (*Worker, *queue.Manager, *recordingSink) {
	t.Helper()
	queues := queue.NewManager(queue.NewMemoryStore(), quietLogger())
	sink := &recordingSink{}
	rm := NewRetryManager(queues, sink, nil, quietLogger(), 3)
	worker := NewWorker(models.DirectionOutbound, queues, deliverer, rm, sink, quietLogger())
	worker.pollTimeout = 50 * time.Millisecond
	worker.errorSleep = 10 * time.Millisecond
	return worker, queues, sink
}

func waitFor(t *testing.T, d *stubDeliverer, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case id := <-d.done:
			if id == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for job %s", want)
		}
	}
}

func TestWorkerDeliversInOrder(t *testing.T) {
	deliverer := newStubDeliverer()
	worker, queues, sink := newWorkerFixture(t, deliverer)
	ctx := context.Background()

	job1 := outboundJob("job-a")
	job2 := outboundJob("job-b")
	keys := queue.KeysForJob(job1)
	require.NoError(t, queues.Enqueue(ctx, keys.Queue, job1))
	require.NoError(t, queues.Enqueue(ctx, keys.Queue, job2))

	worker.Watch(keys.Queue)
	worker.Start(ctx)
	defer worker.Stop()

	waitFor(t, deliverer, "job-b")
	assert.Equal(t, []string{"job-a", "job-b"}, deliverer.deliveredIDs())
	require.Eventually(t, func() bool { return len(sink.statuses()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []models.ExecutionStatus{
		models.ExecutionStatusOK,
		models.ExecutionStatusOK,
	}, sink.statuses())
}

func TestWorkerRetriesFailedJob(t *testing.T) {
	deliverer := newStubDeliverer()
	deliverer.failures["job-flaky"] = 2
	worker, queues, sink := newWorkerFixture(t, deliverer)
	ctx := context.Background()

	job := outboundJob("job-flaky")
	keys := queue.KeysForJob(job)
	require.NoError(t, queues.Enqueue(ctx, keys.Queue, job))

	worker.Watch(keys.Queue)
	worker.Start(ctx)
	defer worker.Stop()

	waitFor(t, deliverer, "job-flaky")
	require.Eventually(t, func() bool { return len(sink.statuses()) == 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []models.ExecutionStatus{
		models.ExecutionStatusRetry,
		models.ExecutionStatusRetry,
		models.ExecutionStatusOK,
	}, sink.statuses())

	retries, err := queues.RetryCount(ctx, keys.Retry)
	require.NoError(t, err)
	assert.Equal(t, int64(2), retries)
}

func TestWorkerQuarantinesAfterMaxAttempts(t *testing.T) {
	deliverer := newStubDeliverer()
	deliverer.failures["job-dead"] = 5
	worker, queues, sink := newWorkerFixture(t, deliverer)
	ctx := context.Background()

	job := outboundJob("job-dead")
	keys := queue.KeysForJob(job)
	require.NoError(t, queues.Enqueue(ctx, keys.Queue, job))

	worker.Watch(keys.Queue)
	worker.Start(ctx)

	require.Eventually(t, func() bool {
		length, err := queues.QueueLength(ctx, keys.DLQ)
		return err == nil && length == 1
	}, 2*time.Second, 10*time.Millisecond)
	worker.Stop()

	quarantined, err := queues.ListDLQ(ctx, keys.DLQ, 0, -1)
	require.NoError(t, err)
	require.Len(t, quarantined, 1)
	assert.Equal(t, 3, quarantined[0].Attempts)
	assert.Equal(t, "delivery refused", quarantined[0].LastError)

	assert.Equal(t, []models.ExecutionStatus{
		models.ExecutionStatusRetry,
		models.ExecutionStatusRetry,
		models.ExecutionStatusError,
	}, sink.statuses())
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	deliverer := newStubDeliverer()
	deliverer.panicIDs["job-boom"] = true
	worker, queues, _ := newWorkerFixture(t, deliverer)
	ctx := context.Background()

	boom := outboundJob("job-boom")
	keys := queue.KeysForJob(boom)
	require.NoError(t, queues.Enqueue(ctx, keys.Queue, boom))
	require.NoError(t, queues.Enqueue(ctx, keys.Queue, outboundJob("job-after")))

	worker.Watch(keys.Queue)
	worker.Start(ctx)
	defer worker.Stop()

	// the panicking job keeps cycling back; the queue itself must survive
	waitFor(t, deliverer, "job-after")

	require.Eventually(t, func() bool {
		length, err := queues.QueueLength(ctx, keys.DLQ)
		return err == nil && length == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerReleasesLockAfterJob(t *testing.T) {
	deliverer := newStubDeliverer()
	worker, queues, _ := newWorkerFixture(t, deliverer)
	ctx := context.Background()

	job := outboundJob("job-locked")
	keys := queue.KeysForJob(job)
	winner, err := queues.EnqueueAndTryLock(ctx, keys.Queue, keys.Lock, job, time.Minute)
	require.NoError(t, err)
	require.True(t, winner)

	worker.Watch(keys.Queue)
	worker.Start(ctx)
	defer worker.Stop()

	waitFor(t, deliverer, "job-locked")

	require.Eventually(t, func() bool {
		held, err := queues.HasLock(ctx, keys.Lock)
		return err == nil && !held
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerWatchIsIdempotent(t *testing.T) {
	deliverer := newStubDeliverer()
	worker, queues, _ := newWorkerFixture(t, deliverer)
	ctx := context.Background()

	job := outboundJob("job-once")
	keys := queue.KeysForJob(job)

	worker.Watch(keys.Queue)
	worker.Watch(keys.Queue)
	worker.Start(ctx)
	worker.Watch(keys.Queue)
	defer worker.Stop()

	require.NoError(t, queues.Enqueue(ctx, keys.Queue, job))
	waitFor(t, deliverer, "job-once")

	assert.Equal(t, []string{"job-once"}, deliverer.deliveredIDs())
	assert.Equal(t, []string{keys.Queue}, worker.WatchedQueues())
}

// gatedDeliverer holds one delivery open until released, recording the
// context state it observed.
type gatedDeliverer struct {
	started chan struct{}
	release chan struct{}
	ctxErr  error
}

func (d *gatedDeliverer) Deliver(ctx context.Context, _ *models.Job) error {
	close(d.started)
	<-d.release
	d.ctxErr = ctx.Err()
	return errors.New("delivery refused")
}

func TestWorkerStopKeepsInFlightJobTraceable(t *testing.T) {
	deliverer := &gatedDeliverer{started: make(chan struct{}), release: make(chan struct{})}
	worker, queues, sink := newWorkerFixture(t, deliverer)
	ctx := context.Background()

	job := outboundJob("job-inflight")
	keys := queue.KeysForJob(job)
	require.NoError(t, queues.Enqueue(ctx, keys.Queue, job))

	drainCtx, cancelDrain := context.WithCancel(ctx)
	worker.Watch(keys.Queue)
	worker.Start(drainCtx)

	// shutdown arrives while the delivery is still in flight
	<-deliverer.started
	cancelDrain()
	close(deliverer.release)
	worker.Stop()

	// the delivery context survived the stop signal
	assert.NoError(t, deliverer.ctxErr)

	// the failed job went back to the queue instead of vanishing
	requeued, err := queues.Dequeue(ctx, keys.Queue)
	require.NoError(t, err)
	require.NotNil(t, requeued)
	assert.Equal(t, "job-inflight", requeued.JobID)
	assert.Equal(t, 1, requeued.Attempts)
	assert.Equal(t, []models.ExecutionStatus{models.ExecutionStatusRetry}, sink.statuses())
}

func TestWorkerStopWithoutStart(t *testing.T) {
	worker, _, _ := newWorkerFixture(t, newStubDeliverer())
	worker.Stop() // must not block or panic
}
