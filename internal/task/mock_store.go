package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/store"
)

// MockStatusStore implements StatusStore for testing. Each method delegates to
// its Fn field; the defaults keep records in a map.
type MockStatusStore struct {
	mutex   sync.RWMutex
	records map[int64]*Record
	saves   int

	SaveFn            func(ctx context.Context, record *Record) error
	FindByEqualSpecFn func(ctx context.Context, spec fractal.Spec) (*Record, error)
	FindByIDFn        func(ctx context.Context, id int64) (*Record, error)
	MaxIDFn           func(ctx context.Context) (int64, error)
	FindIncompleteFn  func(ctx context.Context) ([]*Record, error)
	DeleteExpiredFn   func(ctx context.Context, now time.Time) ([]*Record, error)
	ImageFileInUseFn  func(ctx context.Context, file string) (bool, error)
}

// NewMockStatusStore creates a new MockStatusStore with default implementations
func NewMockStatusStore() *MockStatusStore {
	s := &MockStatusStore{records: make(map[int64]*Record)}

	s.SaveFn = func(ctx context.Context, record *Record) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		s.records[record.ID] = record.Clone()
		s.saves++
		return nil
	}

	s.FindByEqualSpecFn = func(ctx context.Context, spec fractal.Spec) (*Record, error) {
		s.mutex.RLock()
		defer s.mutex.RUnlock()
		var found *Record
		for _, r := range s.records {
			if fractal.Equal(r.Spec, spec) && (found == nil || r.ID < found.ID) {
				found = r
			}
		}
		if found == nil {
			return nil, store.ErrRecordNotFound
		}
		return found.Clone(), nil
	}

	s.FindByIDFn = func(ctx context.Context, id int64) (*Record, error) {
		s.mutex.RLock()
		defer s.mutex.RUnlock()
		r, ok := s.records[id]
		if !ok {
			return nil, store.ErrRecordNotFound
		}
		return r.Clone(), nil
	}

	s.MaxIDFn = func(ctx context.Context) (int64, error) {
		s.mutex.RLock()
		defer s.mutex.RUnlock()
		var maxID int64
		for id := range s.records {
			maxID = max(maxID, id)
		}
		return maxID, nil
	}

	s.FindIncompleteFn = func(ctx context.Context) ([]*Record, error) {
		return s.collect(func(r *Record) bool { return !r.Complete }), nil
	}

	s.DeleteExpiredFn = func(ctx context.Context, now time.Time) ([]*Record, error) {
		expired := s.collect(func(r *Record) bool { return r.Expired(now) })
		s.mutex.Lock()
		defer s.mutex.Unlock()
		for _, r := range expired {
			delete(s.records, r.ID)
		}
		return expired, nil
	}

	s.ImageFileInUseFn = func(ctx context.Context, file string) (bool, error) {
		return len(s.collect(func(r *Record) bool { return r.ImageFile() == file })) > 0, nil
	}

	return s
}

func (s *MockStatusStore) collect(match func(*Record) bool) []*Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var out []*Record
	for _, r := range s.records {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Save persists a record in the mock store
func (s *MockStatusStore) Save(ctx context.Context, record *Record) error {
	return s.SaveFn(ctx, record)
}

// FindByEqualSpec looks a record up by spec equality
func (s *MockStatusStore) FindByEqualSpec(ctx context.Context, spec fractal.Spec) (*Record, error) {
	return s.FindByEqualSpecFn(ctx, spec)
}

// FindByID looks a record up by id
func (s *MockStatusStore) FindByID(ctx context.Context, id int64) (*Record, error) {
	return s.FindByIDFn(ctx, id)
}

// MaxID returns the highest stored id
func (s *MockStatusStore) MaxID(ctx context.Context) (int64, error) {
	return s.MaxIDFn(ctx)
}

// FindIncomplete returns records that are not complete
func (s *MockStatusStore) FindIncomplete(ctx context.Context) ([]*Record, error) {
	return s.FindIncompleteFn(ctx)
}

// DeleteExpired removes expired records
func (s *MockStatusStore) DeleteExpired(ctx context.Context, now time.Time) ([]*Record, error) {
	return s.DeleteExpiredFn(ctx, now)
}

// ImageFileInUse reports whether a stored record writes to file
func (s *MockStatusStore) ImageFileInUse(ctx context.Context, file string) (bool, error) {
	return s.ImageFileInUseFn(ctx, file)
}

// Put stores a record directly, bypassing SaveFn.
func (s *MockStatusStore) Put(record *Record) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records[record.ID] = record.Clone()
}

// Get returns the stored record with id, or nil.
func (s *MockStatusStore) Get(id int64) *Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.records[id].Clone()
}

// SaveCount returns how many times the default SaveFn ran.
func (s *MockStatusStore) SaveCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.saves
}
