package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/fractal-api/internal/events"
	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/store"
)

// Errors returned by TaskRunner.Submit
var (
	// ErrKeyBusy is returned when another task is running on the key and the
	// request did not ask to cancel it.
	ErrKeyBusy = errors.New("a generation task is already running for this key")

	// ErrInvalidSpec is returned for a nil spec.
	ErrInvalidSpec = errors.New("invalid fractal spec")

	// ErrRunnerStopped is returned by Submit after Stop.
	ErrRunnerStopped = errors.New("task runner is stopped")
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// RecordTTL is added to the creation time to get a record's expiration
	RecordTTL time.Duration

	// SweepInterval defines how often expired records are removed.
	// If zero, expired records are never removed.
	SweepInterval time.Duration

	// OutputDir is the directory record image paths are resolved against
	OutputDir string
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:   2,
		QueueSize:     100,
		RecordTTL:     24 * time.Hour,
		SweepInterval: 10 * time.Minute,
		OutputDir:     "images",
	}
}

// SubmitRequest describes one generation request.
type SubmitRequest struct {
	Spec fractal.Spec

	// ImagePath is the output target relative to the output directory. When
	// empty, "<kind>-<id>.png" is used.
	ImagePath string

	// Key identifies the slot the task runs in; at most one task runs per key.
	// When empty, the spec's kind is used.
	Key string

	// CancelIfRunning cancels a different task running on Key instead of
	// failing with ErrKeyBusy.
	CancelIfRunning bool

	// AllowDuplicates skips the search for an equal running or stored spec.
	AllowDuplicates bool
}

// Submission is the result of TaskRunner.Submit.
type Submission struct {
	// Record is a snapshot of the new record, or of the existing one for a duplicate.
	Record *Record

	// Accepted is true when a new task was scheduled.
	Accepted bool

	// Duplicate is true when an equal spec was already running or stored.
	Duplicate bool
}

// TaskRunner schedules generation tasks on a worker pool. It serializes the
// find-then-save sequence of every submission, so two equal specs submitted
// concurrently to one runner never both get scheduled.
type TaskRunner struct {
	store    StatusStore
	sink     ArtifactSink
	newImage ImageFactory
	emitter  events.EventEmitter
	config   TaskRunnerConfig
	logger   *slog.Logger
	now      func() time.Time

	queue *TaskQueue
	pool  *WorkerPool
	ids   IDAllocator

	mu      sync.Mutex
	running map[string]*GenerationTask
	stopped bool

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(
	statusStore StatusStore,
	sink ArtifactSink,
	newImage ImageFactory,
	config TaskRunnerConfig,
	logger *slog.Logger,
) *TaskRunner {
	logger = logger.With("component", "task_runner")
	queue := NewTaskQueue(config.QueueSize, logger)
	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:      statusStore,
		sink:       sink,
		newImage:   newImage,
		config:     config,
		logger:     logger,
		now:        time.Now,
		queue:      queue,
		pool:       NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger),
		running:    make(map[string]*GenerationTask),
		ctx:        ctx,
		cancelFunc: cancel,
	}
	r.pool.SetErrorHandler(func(task Task, err error) {
		r.logger.Error("generation task returned an error",
			"task_id", task.ID(),
			"error", err)
	})
	return r
}

// SetEventEmitter registers the emitter that receives generation events.
// It must be called before Start.
func (r *TaskRunner) SetEventEmitter(emitter events.EventEmitter) {
	r.emitter = emitter
}

// Submit schedules the generation described by req, or returns the record of
// an equal spec that is already running or stored. It never waits for
// rendering.
func (r *TaskRunner) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	spec := fractal.Normalize(req.Spec)
	if spec == nil {
		return nil, ErrInvalidSpec
	}
	key := req.Key
	if key == "" {
		key = string(spec.Kind())
	}

	sub, superseded, err := r.submit(ctx, spec, key, req)
	if err != nil {
		return nil, err
	}

	if superseded != nil {
		r.logger.Info("cancelled running task for new submission",
			"key", key,
			"cancelled_record_id", superseded.ID())
	}
	if sub.Duplicate {
		r.emit(ctx, events.TypeDuplicate, sub.Record, key, 0)
	} else {
		r.emit(ctx, events.TypeSubmitted, sub.Record, key, 0)
	}
	return sub, nil
}

func (r *TaskRunner) submit(
	ctx context.Context,
	spec fractal.Spec,
	key string,
	req SubmitRequest,
) (*Submission, *GenerationTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil, nil, ErrRunnerStopped
	}

	if !req.AllowDuplicates {
		for _, t := range r.running {
			if fractal.Equal(t.Spec(), spec) {
				return &Submission{Record: t.Record(), Duplicate: true}, nil, nil
			}
		}

		found, err := r.store.FindByEqualSpec(ctx, spec)
		switch {
		case err == nil:
			return &Submission{Record: found, Duplicate: true}, nil, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, nil, fmt.Errorf("failed to look up equal spec: %w", err)
		}
	}

	var superseded *GenerationTask
	if current, ok := r.running[key]; ok {
		if !req.CancelIfRunning {
			return nil, nil, fmt.Errorf("%w: %q", ErrKeyBusy, key)
		}
		current.Cancel()
		delete(r.running, key)
		superseded = current
	}

	now := r.now()
	id := r.ids.Next()
	imagePath := req.ImagePath
	if imagePath == "" {
		imagePath = fmt.Sprintf("%s-%d.png", spec.Kind(), id)
	}
	record := NewRecord(id, spec, imagePath, now, r.config.RecordTTL)

	if err := r.store.Save(ctx, record); err != nil {
		return nil, superseded, fmt.Errorf("failed to save record: %w", err)
	}

	task := r.newTask(record, key, now)
	if err := r.queue.Enqueue(task); err != nil {
		r.markUnscheduled(ctx, record, err)
		return nil, superseded, fmt.Errorf("failed to schedule record %d: %w", id, err)
	}
	r.running[key] = task

	return &Submission{Record: record.Clone(), Accepted: true}, superseded, nil
}

// markUnscheduled saves record as failed after enqueueing its task failed, so
// it is neither recovered nor returned as a pending duplicate.
func (r *TaskRunner) markUnscheduled(ctx context.Context, record *Record, err error) {
	record.Status = TaskStatusFailed
	record.Complete = true
	record.StatusMessage = fmt.Sprintf("Could not schedule %s fractal: '%v'", record.Kind(), err)
	if saveErr := r.store.Save(ctx, record); saveErr != nil {
		r.logger.Error("failed to save unscheduled record", "record_id", record.ID, "error", saveErr)
	}
}

func (r *TaskRunner) newTask(record *Record, key string, submittedAt time.Time) *GenerationTask {
	t := newGenerationTask(record, key, r.config.OutputDir, r.store, r.sink, r.newImage, submittedAt, r.logger)
	t.onDone = r.taskDone
	return t
}

// taskDone frees the task's key if it still holds it and reports the outcome.
func (r *TaskRunner) taskDone(t *GenerationTask) {
	r.mu.Lock()
	if r.running[t.Key()] == t {
		delete(r.running, t.Key())
	}
	r.mu.Unlock()

	record := t.Record()
	eventType := events.TypeFailed
	switch {
	case t.Interrupted():
		eventType = events.TypeInterrupted
	case record.Status == TaskStatusCompleted:
		eventType = events.TypeCompleted
	case record.Status == TaskStatusCancelled:
		eventType = events.TypeCancelled
	}
	r.emit(context.Background(), eventType, record, t.Key(), time.Duration(record.DurationMs)*time.Millisecond)
}

func (r *TaskRunner) emit(ctx context.Context, eventType string, record *Record, key string, duration time.Duration) {
	if r.emitter == nil {
		return
	}
	event := events.NewGenerationEvent(eventType, record.ID, string(record.Kind()), key)
	event.Duration = duration
	if err := r.emitter.EmitEvent(ctx, event); err != nil {
		r.logger.Warn("failed to emit generation event",
			"event_type", eventType,
			"record_id", record.ID,
			"error", err)
	}
}

// Cancel sets the cancel token of the task running on key and frees the key
// for a new submission. It does not wait for the task to stop, and reports
// whether a task was actually cancelled.
func (r *TaskRunner) Cancel(key string) bool {
	r.mu.Lock()
	t, ok := r.running[key]
	if ok {
		delete(r.running, key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	cancelled := t.Cancel()
	if cancelled {
		r.logger.Info("cancelled generation task", "key", key, "record_id", t.ID())
	}
	return cancelled
}

// Running reports whether a task is running on key.
func (r *TaskRunner) Running(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[key]
	return ok
}

// StatusOf returns the status message of record id, or an error wrapping
// store.ErrNotFound.
func (r *TaskRunner) StatusOf(ctx context.Context, id int64) (string, error) {
	record, err := r.Record(ctx, id)
	if err != nil {
		return "", err
	}
	return record.StatusMessage, nil
}

// Record returns record id from the store.
func (r *TaskRunner) Record(ctx context.Context, id int64) (*Record, error) {
	record, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find record %d: %w", id, err)
	}
	return record, nil
}

// Start seeds the id counter from the store, re-queues records left
// incomplete by a previous process, and starts the workers and the
// expired-record sweeper.
func (r *TaskRunner) Start() error {
	maxID, err := r.store.MaxID(r.ctx)
	if err != nil {
		return fmt.Errorf("failed to read max record id: %w", err)
	}
	r.ids.Seed(maxID)

	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	if r.config.SweepInterval > 0 {
		r.wg.Add(1)
		go r.expiredRecordMonitor()
	}

	r.logger.Info("task runner started", "next_id", maxID+1)
	return nil
}

// Stop cancels running tasks, waits for the workers and the sweeper to exit,
// and rejects further submissions.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.cancelFunc()
	r.pool.Stop()
	r.wg.Wait()
	r.queue.Close()
	r.logger.Info("task runner stopped")
}

// Recover queues every incomplete record again. Each recovered task runs on
// its own key, "record-<id>". A record that does not fit in the queue is
// saved as failed. Start calls Recover before the workers run, so every
// TypeRecovered event precedes the recovered task's terminal event.
func (r *TaskRunner) Recover() error {
	incomplete, err := r.store.FindIncomplete(r.ctx)
	if err != nil {
		return fmt.Errorf("failed to get incomplete records: %w", err)
	}

	r.logger.Info("recovering unfinished tasks", "count", len(incomplete))

	var recovered []*GenerationTask
	r.mu.Lock()
	for _, record := range incomplete {
		if record.Spec == nil {
			r.logger.Error("skipping record without spec", "record_id", record.ID)
			continue
		}
		record.Status = TaskStatusPending
		key := "record-" + strconv.FormatInt(record.ID, 10)
		task := r.newTask(record, key, r.now())

		if err := r.queue.Enqueue(task); err != nil {
			r.logger.Error("failed to requeue record",
				"record_id", record.ID,
				"error", err)
			r.markUnscheduled(r.ctx, record, err)
			continue
		}
		r.running[key] = task
		recovered = append(recovered, task)
	}
	r.mu.Unlock()

	for _, t := range recovered {
		r.emit(r.ctx, events.TypeRecovered, t.Record(), t.Key(), 0)
	}
	return nil
}

// expiredRecordMonitor periodically removes expired records and their images.
func (r *TaskRunner) expiredRecordMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.SweepExpired(r.ctx); err != nil {
				r.logger.Error("failed to sweep expired records", "error", err)
			}
		}
	}
}

// SweepExpired deletes expired records and their image files and returns how
// many records were removed. An image still used by a stored record is kept.
// A file that cannot be removed is logged and skipped.
func (r *TaskRunner) SweepExpired(ctx context.Context) (int, error) {
	expired, err := r.store.DeleteExpired(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired records: %w", err)
	}

	for _, record := range expired {
		// Another record may have been written to the same file since.
		inUse, err := r.store.ImageFileInUse(ctx, record.ImageFile())
		if err != nil {
			r.logger.Warn("failed to check whether expired image is still in use",
				"record_id", record.ID,
				"error", err)
			continue
		}
		if inUse {
			r.logger.Debug("keeping expired image used by another record",
				"record_id", record.ID,
				"image_file", record.ImageFile())
			continue
		}
		if err := r.sink.RemoveImage(ctx, OutputFile(r.config.OutputDir, record)); err != nil {
			r.logger.Warn("failed to remove expired image",
				"record_id", record.ID,
				"error", err)
		}
	}

	if len(expired) > 0 {
		r.logger.Info("removed expired records", "count", len(expired))
	}
	return len(expired), nil
}
