package preferences_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ember/internal/preferences"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("should start empty when the file is missing", func(t *testing.T) {
		store, err := preferences.NewFileStore(filepath.Join(t.TempDir(), "missing", "prefs.json"))
		require.NoError(t, err)

		_, err = store.Get(ctx, preferences.KeyCredential)

		require.ErrorIs(t, err, preferences.ErrNotFound)
	})

	t.Run("should persist values across instances", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "prefs.json")

		store, err := preferences.NewFileStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, preferences.KeyCredential, "csk-abc"))
		require.NoError(t, store.Set(ctx, preferences.KeyModel, "llama-3.1-8b"))

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		reopened, err := preferences.NewFileStore(path)
		require.NoError(t, err)

		credential, err := reopened.Get(ctx, preferences.KeyCredential)
		require.NoError(t, err)
		require.Equal(t, "csk-abc", credential)

		model, err := reopened.Get(ctx, preferences.KeyModel)
		require.NoError(t, err)
		require.Equal(t, "llama-3.1-8b", model)
	})

	t.Run("should reject an unreadable file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := preferences.NewFileStore(path)

		require.Error(t, err)
	})

	t.Run("should require a path", func(t *testing.T) {
		_, err := preferences.NewFileStore("")

		require.Error(t, err)
	})
}
