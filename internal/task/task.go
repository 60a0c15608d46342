package task

import (
	"context"
	"time"

	"github.com/phrazzld/fractal-api/internal/fractal"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether s is a final status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusCancelled, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// TaskTypeFractalGeneration is the type of tasks that render a fractal to an image file.
const TaskTypeFractalGeneration = "fractal_generation"

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the id of the record the task works on
	ID() int64

	// Type returns the task type identifier
	Type() string

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// StatusStore persists generation records. Implementations must be safe for
// concurrent use; the runner does no locking on their behalf.
type StatusStore interface {
	// Save inserts or replaces the record with the record's ID.
	Save(ctx context.Context, record *Record) error

	// FindByEqualSpec returns the lowest-id record whose spec is equal to spec,
	// or an error wrapping store.ErrNotFound.
	FindByEqualSpec(ctx context.Context, spec fractal.Spec) (*Record, error)

	// FindByID returns the record with the given id, or an error wrapping store.ErrNotFound.
	FindByID(ctx context.Context, id int64) (*Record, error)

	// MaxID returns the highest id in the store, or 0 when it is empty.
	MaxID(ctx context.Context) (int64, error)

	// FindIncomplete returns all records that have not been completed, ordered by id.
	FindIncomplete(ctx context.Context) ([]*Record, error)

	// DeleteExpired removes complete records whose expiration is not after now
	// and returns the removed records.
	DeleteExpired(ctx context.Context, now time.Time) ([]*Record, error)

	// ImageFileInUse reports whether any stored record has the given ImageFile.
	ImageFileInUse(ctx context.Context, file string) (bool, error)
}

// ArtifactSink writes rendered images.
type ArtifactSink interface {
	// WriteImage writes img to dir/filename and returns the absolute path. It must
	// return fractal.ErrCancelled without writing if token is already set.
	WriteImage(ctx context.Context, img fractal.Image, dir, filename string, token *fractal.CancelToken) (string, error)

	// RemoveImage deletes a previously written image. Missing files are ignored.
	RemoveImage(ctx context.Context, path string) error
}

// ImageFactory creates a blank image of the given size for one task.
type ImageFactory func(width, height int) fractal.Image
