package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction(t *testing.T) {
	t.Parallel()

	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM generation_records").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM generation_records WHERE complete")
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectRollback()

		fnErr := errors.New("boom")
		err = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			return fnErr
		})
		assert.ErrorIs(t, err, fnErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin().WillReturnError(errors.New("no connection"))

		err = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			t.Fatal("fn must not run when begin fails")
			return nil
		})
		assert.ErrorIs(t, err, ErrTransactionFailed)
	})

	t.Run("commit failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			return nil
		})
		assert.ErrorIs(t, err, ErrTransactionFailed)
	})

	t.Run("panic rolls back and re-panics", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "bad state", func() {
			_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
				panic("bad state")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
