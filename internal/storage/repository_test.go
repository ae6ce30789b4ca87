package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "kv.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_KV(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, ok, err := repo.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, "accessToken", "first"))
	require.NoError(t, repo.Set(ctx, "accessToken", "second"))

	v, ok, err := repo.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", v)

	require.NoError(t, repo.Remove(ctx, "accessToken"))
	_, ok, err = repo.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteRepository_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	repo, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Set(ctx, "projectProgressOverrides", `{"7":55}`))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "projectProgressOverrides")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"7":55}`, v)
}

func TestSQLiteRepository_ScopeLedger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.RecordScopeLoad(ctx, "projects/client/42", 3))
	require.NoError(t, repo.RecordScopeLoad(ctx, "projects/client/42", 5))
	require.NoError(t, repo.RecordScopeLoad(ctx, "invoices/client/42", 1))

	scopes, err := repo.LoadedScopes(ctx)
	require.NoError(t, err)
	require.Len(t, scopes, 2)

	byKey := map[string]ScopeRecord{}
	for _, s := range scopes {
		byKey[s.Key] = s
	}
	assert.Equal(t, 5, byKey["projects/client/42"].ItemCount)
	assert.False(t, byKey["invoices/client/42"].LoadedAt.IsZero())
}
