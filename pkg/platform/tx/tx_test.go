package tx_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"clinicore/pkg/platform/tx"
)

func TestFrom_EmptyContext(t *testing.T) {
	got, ok := tx.From(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestWithTx_NilIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, tx.WithTx(ctx, nil))
}

func TestWithTx_RoundTrip(t *testing.T) {
	sqlTx := &sql.Tx{}
	ctx := tx.WithTx(context.Background(), sqlTx)

	got, ok := tx.From(ctx)
	assert.True(t, ok)
	assert.Same(t, sqlTx, got)
}
