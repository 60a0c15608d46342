package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/platform/logger"
	"github.com/phrazzld/fractal-api/internal/store"
	"github.com/phrazzld/fractal-api/internal/task"
)

const recordColumns = `id, kind, params, image_path, status, status_message, complete, duration_ms, created_at, expiration`

// RecordStore implements task.StatusStore on the generation_records table.
// Records are looked up by spec through spec_key, the canonical string from
// fractal.Key, and the decoded spec is compared with fractal.Equal before a
// match is returned.
type RecordStore struct {
	db *sql.DB
}

var _ task.StatusStore = (*RecordStore)(nil)

// NewRecordStore creates a new RecordStore
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

// Save inserts the record or replaces the row with the same id.
func (s *RecordStore) Save(ctx context.Context, record *task.Record) error {
	log := logger.FromContext(ctx)

	params, err := fractal.MarshalParams(record.Spec)
	if err != nil {
		return store.NewStoreError("generation_record", "save", "invalid spec", fmt.Errorf("%w: %v", store.ErrInvalidEntity, err))
	}

	query := `
		INSERT INTO generation_records (
			id, kind, spec_key, params, image_path, image_file, status,
			status_message, complete, duration_ms, created_at, expiration
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			spec_key = EXCLUDED.spec_key,
			params = EXCLUDED.params,
			image_path = EXCLUDED.image_path,
			image_file = EXCLUDED.image_file,
			status = EXCLUDED.status,
			status_message = EXCLUDED.status_message,
			complete = EXCLUDED.complete,
			duration_ms = EXCLUDED.duration_ms,
			created_at = EXCLUDED.created_at,
			expiration = EXCLUDED.expiration
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		string(record.Kind()),
		fractal.Key(record.Spec),
		string(params),
		record.ImagePath,
		record.ImageFile(),
		string(record.Status),
		record.StatusMessage,
		record.Complete,
		record.DurationMs,
		record.CreatedAt.UTC(),
		record.Expiration.UTC(),
	)
	if err != nil {
		log.Error("failed to save generation record",
			"record_id", record.ID,
			"error", err)
		return fmt.Errorf("failed to save generation record: %w", MapError(err))
	}
	return nil
}

// FindByEqualSpec returns the lowest-id record whose spec equals spec.
func (s *RecordStore) FindByEqualSpec(ctx context.Context, spec fractal.Spec) (*task.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM generation_records WHERE spec_key = $1 ORDER BY id`

	records, err := queryRecords(ctx, s.db, "records by spec", query, fractal.Key(spec))
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
	query := `SELECT ` + recordColumns + ` FROM generation_records WHERE id = $1`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, fmt.Errorf("record %d: %w", id, store.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get record %d: %w", id, MapError(err))
	}
	return record, nil
}

// MaxID returns the highest id in the table, or 0 when it is empty.
func (s *RecordStore) MaxID(ctx context.Context) (int64, error) {
	var maxID int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM generation_records`).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to get max record id: %w", MapError(err))
	}
	return maxID, nil
}

// FindIncomplete returns records that are not complete, ordered by id.
func (s *RecordStore) FindIncomplete(ctx context.Context) ([]*task.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM generation_records WHERE NOT complete ORDER BY id`

	return queryRecords(ctx, s.db, "incomplete records", query)
}

// DeleteExpired locks and deletes every complete record whose expiration is
// not after now, in one transaction.
func (s *RecordStore) DeleteExpired(ctx context.Context, now time.Time) ([]*task.Record, error) {
	var removed []*task.Record

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `SELECT ` + recordColumns + ` FROM generation_records
			WHERE complete AND expiration <= $1
			ORDER BY id
			FOR UPDATE SKIP LOCKED`

		expired, err := queryRecords(ctx, tx, "expired records", query, now.UTC())
		if err != nil {
			return err
		}

		for _, r := range expired {
			if _, err := tx.ExecContext(ctx, `DELETE FROM generation_records WHERE id = $1`, r.ID); err != nil {
				return fmt.Errorf("failed to delete record %d: %w", r.ID, MapError(err))
			}
		}
		removed = expired
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return removed, nil
}

// ImageFileInUse reports whether a row with image_file = file exists.
func (s *RecordStore) ImageFileInUse(ctx context.Context, file string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM generation_records WHERE image_file = $1)`
	if err := s.db.QueryRowContext(ctx, query, file).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up image file: %w", MapError(err))
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*task.Record, error) {
	var (
		r      task.Record
		kind   string
		params []byte
		status string
	)
	err := row.Scan(
		&r.ID,
		&kind,
		&params,
		&r.ImagePath,
		&status,
		&r.StatusMessage,
		&r.Complete,
		&r.DurationMs,
		&r.CreatedAt,
		&r.Expiration,
	)
	if err != nil {
		return nil, err
	}

	spec, err := fractal.UnmarshalParams(fractal.Kind(kind), params)
	if err != nil {
		return nil, fmt.Errorf("failed to decode record %d: %w", r.ID, err)
	}
	r.Spec = spec
	r.Status = task.TaskStatus(status)
	return &r, nil
}

// queryRecords runs query on db, which may be the store's connection pool or
// a transaction, and scans every returned row.
func queryRecords(ctx context.Context, db store.DBTX, what, query string, args ...any) ([]*task.Record, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, MapError(err))
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]*task.Record, error) {
	defer func() { _ = rows.Close() }()

	var records []*task.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", MapError(err))
	}
	return records, nil
}
