package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/platform/logger"
	"github.com/phrazzld/fractal-api/internal/store"
	"github.com/phrazzld/fractal-api/internal/task"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "fractal"

// RecordStore implements task.StatusStore on Redis.
type RecordStore struct {
	client goredis.UniversalClient
	prefix string
}

var _ task.StatusStore = (*RecordStore)(nil)

// NewRecordStore creates a RecordStore whose keys start with prefix.
// An empty prefix means DefaultPrefix.
func NewRecordStore(client goredis.UniversalClient, prefix string) *RecordStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RecordStore{client: client, prefix: prefix}
}

func (s *RecordStore) recordKey(id int64) string {
	return s.prefix + ":record:" + strconv.FormatInt(id, 10)
}

func (s *RecordStore) specKey(spec fractal.Spec) string {
	return s.prefix + ":spec:" + fractal.Key(spec)
}

// imageKey holds the ids of the records writing to an image file.
func (s *RecordStore) imageKey(file string) string {
	return s.prefix + ":image:" + file
}

func (s *RecordStore) allKey() string        { return s.prefix + ":records" }
func (s *RecordStore) incompleteKey() string { return s.prefix + ":incomplete" }
func (s *RecordStore) expiringKey() string   { return s.prefix + ":expiring" }

// Save writes the record and updates every index in one MULTI/EXEC block.
func (s *RecordStore) Save(ctx context.Context, record *task.Record) error {
	log := logger.FromContext(ctx)

	if record == nil || record.Spec == nil {
		return store.NewStoreError("generation_record", "save", "record has no spec", store.ErrInvalidEntity)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return store.NewStoreError("generation_record", "save", "encode failed", fmt.Errorf("%w: %v", store.ErrInvalidEntity, err))
	}

	// A replaced record may have had a different spec or image file.
	previous, err := s.FindByID(ctx, record.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	id := strconv.FormatInt(record.ID, 10)
	score := float64(record.ID)

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if previous != nil && fractal.Key(previous.Spec) != fractal.Key(record.Spec) {
			pipe.ZRem(ctx, s.specKey(previous.Spec), id)
		}
		if previous != nil && previous.ImageFile() != record.ImageFile() {
			pipe.SRem(ctx, s.imageKey(previous.ImageFile()), id)
		}
		pipe.Set(ctx, s.recordKey(record.ID), data, 0)
		pipe.SAdd(ctx, s.imageKey(record.ImageFile()), id)
		pipe.ZAdd(ctx, s.allKey(), goredis.Z{Score: score, Member: id})
		pipe.ZAdd(ctx, s.specKey(record.Spec), goredis.Z{Score: score, Member: id})
		if record.Complete {
			pipe.ZRem(ctx, s.incompleteKey(), id)
			pipe.ZAdd(ctx, s.expiringKey(), goredis.Z{
				Score:  float64(record.Expiration.UnixMilli()),
				Member: id,
			})
		} else {
			pipe.ZAdd(ctx, s.incompleteKey(), goredis.Z{Score: score, Member: id})
			pipe.ZRem(ctx, s.expiringKey(), id)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to save generation record in redis",
			"record_id", record.ID,
			"error", err)
		return fmt.Errorf("%w: failed to save record %d: %v", store.ErrUnavailable, record.ID, err)
	}
	return nil
}

// FindByEqualSpec returns the lowest-id record whose spec equals spec.
func (s *RecordStore) FindByEqualSpec(ctx context.Context, spec fractal.Spec) (*task.Record, error) {
	ids, err := s.client.ZRange(ctx, s.specKey(spec), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read spec index: %v", store.ErrUnavailable, err)
	}

	records, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if fractal.Equal(r.Spec, spec) {
			return r, nil
		}
	}
	return nil, store.ErrRecordNotFound
}

// FindByID returns the record with id.
func (s *RecordStore) FindByID(ctx context.Context, id int64) (*task.Record, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("record %d: %w", id, store.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("%w: failed to get record %d: %v", store.ErrUnavailable, id, err)
	}
	return decode(data)
}

// MaxID returns the highest stored id, or 0.
func (s *RecordStore) MaxID(ctx context.Context) (int64, error) {
	ids, err := s.client.ZRevRange(ctx, s.allKey(), 0, 0).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read record index: %v", store.ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	maxID, err := strconv.ParseInt(ids[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupted record index entry %q: %w", ids[0], err)
	}
	return maxID, nil
}

// FindIncomplete returns records that are not complete, ordered by id.
func (s *RecordStore) FindIncomplete(ctx context.Context) ([]*task.Record, error) {
	ids, err := s.client.ZRange(ctx, s.incompleteKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read incomplete index: %v", store.ErrUnavailable, err)
	}
	return s.load(ctx, ids)
}

// DeleteExpired removes complete records whose expiration is not after now.
func (s *RecordStore) DeleteExpired(ctx context.Context, now time.Time) ([]*task.Record, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.expiringKey(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read expiration index: %v", store.ErrUnavailable, err)
	}

	candidates, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	var expired []*task.Record
	for _, r := range candidates {
		if r.Expired(now) {
			expired = append(expired, r)
		}
	}
	if len(expired) == 0 {
		return nil, nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, r := range expired {
			id := strconv.FormatInt(r.ID, 10)
			pipe.Del(ctx, s.recordKey(r.ID))
			pipe.ZRem(ctx, s.allKey(), id)
			pipe.ZRem(ctx, s.specKey(r.Spec), id)
			pipe.SRem(ctx, s.imageKey(r.ImageFile()), id)
			pipe.ZRem(ctx, s.incompleteKey(), id)
			pipe.ZRem(ctx, s.expiringKey(), id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to delete expired records: %v", store.ErrUnavailable, err)
	}
	return expired, nil
}

// ImageFileInUse reports whether a stored record writes to file.
func (s *RecordStore) ImageFileInUse(ctx context.Context, file string) (bool, error) {
	n, err := s.client.SCard(ctx, s.imageKey(file)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: failed to read image index: %v", store.ErrUnavailable, err)
	}
	return n > 0, nil
}

// load fetches the records for ids in order, skipping ids whose record has
// disappeared since the index was read.
func (s *RecordStore) load(ctx context.Context, ids []string) ([]*task.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupted index entry %q: %w", id, err)
		}
		keys[i] = s.recordKey(n)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load records: %v", store.ErrUnavailable, err)
	}

	records := make([]*task.Record, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func decode(data []byte) (*task.Record, error) {
	var r task.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &r, nil
}
