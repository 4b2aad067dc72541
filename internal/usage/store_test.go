package usage

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterStoreGetMissingKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisCounterStore(db)

	mock.ExpectGet("usage:p-1:daily:2025-03-14").RedisNil()

	count, err := store.Get(context.Background(), "usage:p-1:daily:2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterStoreGetExisting(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisCounterStore(db)

	mock.ExpectGet("usage:p-1:daily:2025-03-14").SetVal("7")

	count, err := store.Get(context.Background(), "usage:p-1:daily:2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestCounterStoreGetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisCounterStore(db)

	mock.ExpectGet("usage:p-1:daily:2025-03-14").SetErr(redis.ErrClosed)

	_, err := store.Get(context.Background(), "usage:p-1:daily:2025-03-14")
	assert.Error(t, err)
}

func TestCounterStoreIncrementPipelines(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisCounterStore(db)

	key := "usage:p-1:monthly:2025-03"
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(4)
	mock.ExpectExpire(key, 32*24*time.Hour).SetVal(true)
	mock.ExpectTxPipelineExec()

	count, err := store.Increment(context.Background(), key, 32*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWindowKeys(t *testing.T) {
	at := time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "usage:p-1:daily:2025-12-31", DailyKey("p-1", at))
	assert.Equal(t, "usage:p-1:monthly:2025-12", MonthlyKey("p-1", at))

	// keys are derived from UTC, not the caller's zone
	offset := time.FixedZone("UTC+3", 3*60*60)
	assert.Equal(t, "usage:p-1:daily:2025-12-31", DailyKey("p-1", time.Date(2026, 1, 1, 1, 0, 0, 0, offset)))
}
