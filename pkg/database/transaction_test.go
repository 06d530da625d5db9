package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTx struct {
	open bool
}

func (t *stubTx) IsOpen() bool { return t.open }

func (t *stubTx) Commit(ctx context.Context) error { t.open = false; return nil }

func (t *stubTx) Rollback(ctx context.Context) error { t.open = false; return nil }

func (t *stubTx) Rebind(query string) string { return query }

func (t *stubTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (t *stubTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (t *stubTx) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	return nil
}
func (t *stubTx) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, nil
}
func (t *stubTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestGetTxJoinsContextTransaction(t *testing.T) {
	tx := &stubTx{open: true}
	ctx := WithTx(context.Background(), tx)

	// db is nil on purpose: a joined transaction must never open a new one.
	joinedCtx, joined, err := GetTx(ctx, testLogger(), nil, &sql.TxOptions{})
	require.NoError(t, err)
	assert.Same(t, tx, joined)
	assert.Equal(t, ctx, joinedCtx)
}

func TestFromContextPrefersOpenTransaction(t *testing.T) {
	tx := &stubTx{open: true}
	ctx := WithTx(context.Background(), tx)

	assert.Same(t, tx, FromContext(ctx, nil))
}

func TestFromContextIgnoresClosedTransaction(t *testing.T) {
	tx := &stubTx{open: false}
	ctx := WithTx(context.Background(), tx)

	assert.Nil(t, FromContext(ctx, nil))
}
