package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/fractal-api/internal/fractal"
)

// GenerationTask renders one record's spec onto a fresh image and writes it
// through the ArtifactSink. Every outcome, including cancellation and I/O
// failure, ends up in the record's status message; Execute only returns an
// error when the final record cannot be saved. A task stopped by its ctx
// rather than by Cancel saves its record as pending and incomplete again.
type GenerationTask struct {
	key         string
	outputDir   string
	token       *fractal.CancelToken
	store       StatusStore
	sink        ArtifactSink
	newImage    ImageFactory
	submittedAt time.Time
	logger      *slog.Logger

	// onDone is called once after the final record has been saved.
	onDone func(t *GenerationTask)

	// cancelRequested is set by Cancel before the token.
	cancelRequested atomic.Bool

	mu          sync.Mutex
	record      *Record
	interrupted bool
}

func newGenerationTask(
	record *Record,
	key, outputDir string,
	store StatusStore,
	sink ArtifactSink,
	newImage ImageFactory,
	submittedAt time.Time,
	logger *slog.Logger,
) *GenerationTask {
	return &GenerationTask{
		key:         key,
		outputDir:   outputDir,
		token:       fractal.NewCancelToken(),
		store:       store,
		sink:        sink,
		newImage:    newImage,
		submittedAt: submittedAt,
		logger: logger.With(
			"task_type", TaskTypeFractalGeneration,
			"record_id", record.ID,
			"kind", record.Kind(),
			"key", key),
		record: record.Clone(),
	}
}

// ID returns the id of the task's record.
func (t *GenerationTask) ID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record.ID
}

// Type returns TaskTypeFractalGeneration.
func (t *GenerationTask) Type() string {
	return TaskTypeFractalGeneration
}

// Key returns the runner key the task occupies.
func (t *GenerationTask) Key() string {
	return t.key
}

// Spec returns the spec being rendered.
func (t *GenerationTask) Spec() fractal.Spec {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record.Spec
}

// Status returns the current task status.
func (t *GenerationTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record.Status
}

// Record returns a snapshot of the task's record.
func (t *GenerationTask) Record() *Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record.Clone()
}

// Cancel sets the task's cancel token. It reports whether this call set it.
func (t *GenerationTask) Cancel() bool {
	t.cancelRequested.Store(true)
	return t.token.Cancel()
}

// Interrupted reports whether the task was stopped by its ctx and left its
// record incomplete.
func (t *GenerationTask) Interrupted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interrupted
}

// Cancelled reports whether the task's cancel token is set.
func (t *GenerationTask) Cancelled() bool {
	return t.token.Cancelled()
}

// Execute renders and writes the image, then persists the outcome. A done ctx
// cancels the task the same way Cancel does.
func (t *GenerationTask) Execute(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { t.token.Cancel() })
	defer stop()
	if ctx.Err() != nil {
		t.token.Cancel()
	}

	// The final save must happen even when ctx is what stopped the task.
	saveCtx := context.WithoutCancel(ctx)
	runID := uuid.New()
	log := t.logger.With("run_id", runID)

	t.mu.Lock()
	t.record.Status = TaskStatusProcessing
	processing := t.record.Clone()
	t.mu.Unlock()

	if err := t.store.Save(saveCtx, processing); err != nil {
		log.Warn("failed to mark record as processing", "error", err)
	}

	log.Info("generation started")
	status, message := t.generate(ctx, processing)
	interrupted := status == TaskStatusCancelled && ctx.Err() != nil && !t.cancelRequested.Load()

	t.mu.Lock()
	if interrupted {
		t.interrupted = true
		t.record.Status = TaskStatusPending
		t.record.StatusMessage = pendingMessage(t.record.Kind())
		t.record.Complete = false
		t.record.DurationMs = 0
	} else {
		t.record.Status = status
		t.record.StatusMessage = message
		t.record.Complete = true
		t.record.DurationMs = time.Since(t.submittedAt).Milliseconds()
	}
	final := t.record.Clone()
	t.mu.Unlock()

	if interrupted {
		log.Info("generation interrupted, record left for recovery")
	} else {
		log.Info("generation finished",
			"status", status,
			"duration_ms", final.DurationMs,
			"status_message", message)
	}

	err := t.store.Save(saveCtx, final)
	if err != nil {
		log.Error("failed to save final record", "error", err)
		err = fmt.Errorf("failed to save record %d: %w", final.ID, err)
	}

	if t.onDone != nil {
		t.onDone(t)
	}
	return err
}

// generate returns the terminal status and status message of one run.
func (t *GenerationTask) generate(ctx context.Context, record *Record) (status TaskStatus, message string) {
	kind := record.Kind()

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("generation panicked", "panic", r)
			status = TaskStatusFailed
			message = fmt.Sprintf("Could not generate %s fractal: '%v'", kind, r)
		}
	}()

	if t.token.Cancelled() {
		return TaskStatusCancelled, cancelledMessage(kind)
	}

	dims := record.Spec.Dims()
	img := t.newImage(dims.Width, dims.Height)
	if closer, ok := img.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fractal.Render(record.Spec, img, t.token); err != nil {
		if errors.Is(err, fractal.ErrCancelled) {
			return TaskStatusCancelled, cancelledMessage(kind)
		}
		return TaskStatusFailed, fmt.Sprintf("Could not generate %s fractal: '%v'", kind, err)
	}

	dir, filename := outputLocation(t.outputDir, record.ImagePath)
	path, err := t.sink.WriteImage(ctx, img, dir, filename, t.token)
	switch {
	case errors.Is(err, fractal.ErrCancelled):
		return TaskStatusCancelled, cancelledMessage(kind)
	case err != nil:
		return TaskStatusFailed, fmt.Sprintf("Could not output %s fractal to file: '%v'", kind, err)
	default:
		return TaskStatusCompleted, "Generated at " + path
	}
}

func cancelledMessage(kind fractal.Kind) string {
	return fmt.Sprintf("Generation of %s fractal was cancelled", kind)
}

func outputLocation(outputDir, imagePath string) (dir, filename string) {
	dir = filepath.Join(outputDir, filepath.FromSlash(DirectoriesFromPath(imagePath)))
	return dir, FilenameFromPath(imagePath)
}

// OutputFile returns the filesystem path a record's image is written to.
func OutputFile(outputDir string, record *Record) string {
	dir, filename := outputLocation(outputDir, record.ImagePath)
	return filepath.Join(dir, filename)
}
