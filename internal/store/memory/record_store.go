package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/platform/logger"
	"github.com/phrazzld/fractal-api/internal/store"
	"github.com/phrazzld/fractal-api/internal/task"
)

// RecordStore implements task.StatusStore with maps guarded by a mutex.
// Records are copied on the way in and out, so callers never share state
// with the store.
type RecordStore struct {
	mu      sync.RWMutex
	records map[int64]*task.Record
	// bySpec maps fractal.Key to the ids of records with that spec.
	bySpec map[string][]int64
}

var _ task.StatusStore = (*RecordStore)(nil)

// NewRecordStore creates an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[int64]*task.Record),
		bySpec:  make(map[string][]int64),
	}
}

// Save inserts or replaces the record with record.ID.
func (s *RecordStore) Save(ctx context.Context, record *task.Record) error {
	if record == nil || record.Spec == nil {
		return store.NewStoreError("generation_record", "save", "record has no spec", store.ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.records[record.ID]; ok {
		s.unindex(old)
	}
	s.records[record.ID] = record.Clone()
	s.index(record)

	logger.FromContext(ctx).Debug("record saved",
		"record_id", record.ID,
		"status", record.Status)
	return nil
}

// FindByEqualSpec returns the lowest-id record whose spec equals spec.
func (s *RecordStore) FindByEqualSpec(ctx context.Context, spec fractal.Spec) (*task.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.bySpec[fractal.Key(spec)] {
		if r := s.records[id]; fractal.Equal(r.Spec, spec) {
			return r.Clone(), nil
		}
	}
	return nil, store.ErrRecordNotFound
}

// FindByID returns the record with id.
func (s *RecordStore) FindByID(ctx context.Context, id int64) (*task.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("record %d: %w", id, store.ErrRecordNotFound)
	}
	return r.Clone(), nil
}

// MaxID returns the highest stored id, or 0.
func (s *RecordStore) MaxID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var maxID int64
	for id := range s.records {
		maxID = max(maxID, id)
	}
	return maxID, nil
}

// FindIncomplete returns records that are not complete, ordered by id.
func (s *RecordStore) FindIncomplete(ctx context.Context) ([]*task.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*task.Record
	for _, r := range s.records {
		if !r.Complete {
			out = append(out, r.Clone())
		}
	}
	sortByID(out)
	return out, nil
}

// DeleteExpired removes every record for which Expired(now) holds.
func (s *RecordStore) DeleteExpired(ctx context.Context, now time.Time) ([]*task.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*task.Record
	for id, r := range s.records {
		if r.Expired(now) {
			s.unindex(r)
			delete(s.records, id)
			removed = append(removed, r)
		}
	}
	sortByID(removed)
	return removed, nil
}

// ImageFileInUse reports whether a stored record writes to file.
func (s *RecordStore) ImageFileInUse(ctx context.Context, file string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ImageFile() == file {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// index must be called with mu held.
func (s *RecordStore) index(r *task.Record) {
	key := fractal.Key(r.Spec)
	ids := append(s.bySpec[key], r.ID)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	s.bySpec[key] = ids
}

// unindex must be called with mu held.
func (s *RecordStore) unindex(r *task.Record) {
	key := fractal.Key(r.Spec)
	ids := s.bySpec[key]
	for i, id := range ids {
		if id == r.ID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.bySpec, key)
		return
	}
	s.bySpec[key] = ids
}

func sortByID(records []*task.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
