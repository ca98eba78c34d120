package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirPen9uin/shop-api/pkg/database"
)

func newMockDB(t *testing.T) (database.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return database.NewDatabaseInstance(sqlx.NewDb(raw, "postgres"), logger), mock
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM shops").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := database.RunInTx(context.Background(), db, func(ctx context.Context) error {
		_, err := database.Conn(ctx, db).ExecContext(ctx, "DELETE FROM shops WHERE id = $1", 1)
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM order_items").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM orders").WillReturnError(boom)
	mock.ExpectRollback()

	err := database.RunInTx(context.Background(), db, func(ctx context.Context) error {
		conn := database.Conn(ctx, db)
		if _, err := conn.ExecContext(ctx, "DELETE FROM order_items"); err != nil {
			return err
		}
		_, err := conn.ExecContext(ctx, "DELETE FROM orders")
		return err
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTx_JoinsOuterTransaction(t *testing.T) {
	db, mock := newMockDB(t)

	// a single BEGIN/COMMIT pair even though two scopes open a transaction
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx, outer, err := db.GetTx(context.Background(), nil)
	require.NoError(t, err)

	innerCtx, inner, err := db.GetTx(ctx, nil)
	require.NoError(t, err)
	_, err = inner.ExecContext(innerCtx, "UPDATE orders SET status = $1", "new")
	require.NoError(t, err)
	require.NoError(t, inner.Commit(innerCtx))
	require.NoError(t, inner.Rollback(innerCtx))
	assert.True(t, outer.IsOpen())

	require.NoError(t, outer.Commit(ctx))
	assert.False(t, outer.IsOpen())
	assert.NoError(t, outer.Rollback(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConn_WithoutTransactionUsesPool(t *testing.T) {
	db, _ := newMockDB(t)
	assert.Equal(t, db, database.Conn(context.Background(), db))
}
