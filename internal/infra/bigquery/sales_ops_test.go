package bigquery

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/transform"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestWriteBatchWithClient_DuplicateInBatch(t *testing.T) {
	batch, _ := transform.New(transform.DefaultThresholds()).TransformBatch([]domain.RawRecord{
		{TransactionID: strPtr("T1"), ProductID: strPtr("P1"), Quantity: decPtr("1")},
		{TransactionID: strPtr("T2"), ProductID: strPtr("P2"), Quantity: decPtr("1")},
		{TransactionID: strPtr("T1"), ProductID: strPtr("P3"), Quantity: decPtr("2")},
	})
	require.Len(t, batch.Records, 3)

	// Rejected before any API call, so no client is needed.
	err := WriteBatchWithClient(context.Background(), nil, "sales", batch, 0)
	require.Error(t, err)

	var writeErr *domain.WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, transactionsTable, writeErr.Table)
	assert.Equal(t, "insert", writeErr.Op)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	assert.Contains(t, err.Error(), `"T1"`)
}

func TestWriteBatchWithClient_EmptyBatch(t *testing.T) {
	assert.NoError(t, WriteBatchWithClient(context.Background(), nil, "sales", transform.Batch{}, 0))
}

func TestExistingKeysWithClient_NoKeys(t *testing.T) {
	found, err := ExistingKeysWithClient(context.Background(), nil, "sales", transactionsTable, "transaction_id", nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}
