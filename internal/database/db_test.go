package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestOpen(t *testing.T) {
	t.Run("rejects unknown driver", func(t *testing.T) {
		_, err := Open("mysql", "whatever")
		assert.Error(t, err)
	})

	t.Run("sqlite pings after open", func(t *testing.T) {
		db := openTestDB(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, db.PingWithRetry(ctx, time.Second))
	})
}

func TestMigrate(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		db := openTestDB(t)
		require.NoError(t, db.Migrate(context.Background()))

		var count int
		err := db.GetContext(context.Background(), &count, "SELECT COUNT(*) FROM pairing_codes")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		db := openTestDB(t)
		err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO pairing_requests (code, created_at, expires_at) VALUES (?, ?, ?)"), "ABCDEFGH", 1, 2)
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.GetContext(ctx, &count, "SELECT COUNT(*) FROM pairing_requests"))
		assert.Equal(t, 1, count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db := openTestDB(t)
		sentinel := errors.New("boom")
		err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO pairing_requests (code, created_at, expires_at) VALUES (?, ?, ?)"), "ABCDEFGH", 1, 2)
			require.NoError(t, err)
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		var count int
		require.NoError(t, db.GetContext(ctx, &count, "SELECT COUNT(*) FROM pairing_requests"))
		assert.Equal(t, 0, count)
	})

	t.Run("rolls back and repanics", func(t *testing.T) {
		db := openTestDB(t)
		assert.Panics(t, func() {
			_ = db.WithTx(ctx, func(tx *sqlx.Tx) error {
				panic("boom")
			})
		})
	})
}
