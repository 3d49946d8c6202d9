package auth

import (
	"os"
	"path/filepath"
	"testing"

	"resumectl/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewStore(path, errors.NewNopLogger())

	assert.Empty(t, store.Token(), "missing file means logged out")

	require.NoError(t, store.Save("  abc.def.ghi \n"))
	assert.Equal(t, "abc.def.ghi", store.Token())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	fresh := NewStore(path, nil)
	token, err := fresh.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	require.NoError(t, store.Clear())
	assert.Empty(t, store.Token())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Clear(), "clearing twice is fine")
}

func TestStoreSaveRejectsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "token"), nil)
	err := store.Save("   ")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingToken))
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	store := NewStore(path, nil)
	require.NoError(t, store.Save("first"))

	changed, err := store.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte("second\n"), 0o600))
	changed, err = store.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "second", store.Token())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(" vault-token ")
	assert.Equal(t, "vault-token", store.Token())
	assert.Empty(t, store.Path())

	require.NoError(t, store.Save("other"))
	assert.Equal(t, "other", store.Token())

	require.NoError(t, store.Clear())
	assert.Empty(t, store.Token())
}
