package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "ledger.db")
	repo, err := NewRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, path
}

func TestRepositoryLoadMissingKey(t *testing.T) {
	repo, _ := newTestRepository(t)
	v, ok, err := repo.Load(context.Background(), "transactions")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestRepositorySaveAndOverwrite(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	require.NoError(t, repo.Save(ctx, "balance", []byte(`"10"`)))
	require.NoError(t, repo.Save(ctx, "balance", []byte(`"20"`)))

	v, ok, err := repo.Load(ctx, "balance")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"20"`, string(v))
}

func TestRepositorySurvivesReopen(t *testing.T) {
	ctx := context.Background()
	repo, path := newTestRepository(t)
	require.NoError(t, repo.Save(ctx, "transactions", []byte(`[]`)))
	require.NoError(t, repo.Close())

	// Migrations are idempotent on an existing database.
	reopened, err := NewRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Load(ctx, "transactions")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(v))
}
