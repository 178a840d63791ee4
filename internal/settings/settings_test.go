package settings

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
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Exec(`CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT NOT NULL);`)
	require.NoError(t, err)
	return d
}

func TestGetUnset(t *testing.T) {
	store := NewStore(openTestDB(t))

	value, err := store.Get(context.Background(), KeyAPIKey)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSetAndGet(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyAPIKey, "sk-abc"))

	value, err := store.Get(ctx, KeyAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc", value)
}

func TestSetOverwrites(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyModel, "gpt-4o"))
	require.NoError(t, store.Set(ctx, KeyModel, "gpt-4o-mini"))

	value, err := store.Get(ctx, KeyModel)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", value)
}

func TestAll(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyAPIKey, "sk-abc"))
	require.NoError(t, store.Set(ctx, KeyEndpoint, "https://example.com/v1/chat/completions"))

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		KeyAPIKey:   "sk-abc",
		KeyEndpoint: "https://example.com/v1/chat/completions",
	}, all)
}
