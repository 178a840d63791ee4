package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_journal_mode=WAL", t.Name())
	d, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Exec(`
		CREATE TABLE records (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			storage_key   TEXT NOT NULL,
			mime_type     TEXT NOT NULL DEFAULT 'image/jpeg',
			description   TEXT NOT NULL DEFAULT '',
			response_text TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	require.NoError(t, err)
	return d
}

func TestRecordStoreCreate(t *testing.T) {
	records := NewRecordStore(openTestDB(t))
	ctx := context.Background()

	record, err := records.Create(ctx, "shot_abc.jpg", "image/jpeg", "grocery receipt", "Total: $42.10")
	require.NoError(t, err)
	assert.NotZero(t, record.ID)
	assert.Equal(t, "shot_abc.jpg", record.StorageKey)
	assert.Equal(t, "image/jpeg", record.MimeType)
	assert.Equal(t, "grocery receipt", record.Description)
	assert.Equal(t, "Total: $42.10", record.ResponseText)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestRecordStoreGetByIDMissing(t *testing.T) {
	records := NewRecordStore(openTestDB(t))

	record, err := records.GetByID(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRecordStoreListNewestFirst(t *testing.T) {
	records := NewRecordStore(openTestDB(t))
	ctx := context.Background()

	first, err := records.Create(ctx, "a.jpg", "image/jpeg", "one", "")
	require.NoError(t, err)
	second, err := records.Create(ctx, "b.jpg", "image/jpeg", "two", "")
	require.NoError(t, err)

	list, err := records.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Same-second timestamps fall back to id ordering.
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestRecordStoreDelete(t *testing.T) {
	records := NewRecordStore(openTestDB(t))
	ctx := context.Background()

	record, err := records.Create(ctx, "a.jpg", "image/jpeg", "", "")
	require.NoError(t, err)

	require.NoError(t, records.Delete(ctx, record.ID))

	got, err := records.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, records.Delete(ctx, record.ID))
}

func TestRecordStoreClear(t *testing.T) {
	records := NewRecordStore(openTestDB(t))
	ctx := context.Background()

	_, err := records.Create(ctx, "a.jpg", "image/jpeg", "", "")
	require.NoError(t, err)
	_, err = records.Create(ctx, "b.jpg", "image/jpeg", "", "")
	require.NoError(t, err)

	keys, err := records.Clear(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, keys)

	list, err := records.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecordStoreClearEmpty(t *testing.T) {
	records := NewRecordStore(openTestDB(t))

	keys, err := records.Clear(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}
