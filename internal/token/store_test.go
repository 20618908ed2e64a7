package token_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/learnquest/learnquest/internal/token"
)

func TestFileStore_RoundTrip(t *testing.T) {
	s := token.NewFileStore(t.TempDir())

	_, err := s.Load()
	require.ErrorIs(t, err, token.ErrNotFound, "empty store should report not found")

	require.NoError(t, s.Save("tok-123"))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "tok-123", got)

	require.NoError(t, s.Save("tok-456"), "save should overwrite")
	got, err = s.Load()
	require.NoError(t, err)
	require.Equal(t, "tok-456", got)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	require.ErrorIs(t, err, token.ErrNotFound)

	require.NoError(t, s.Clear(), "clearing an empty store is not an error")
}

func TestFileStore_FixedEntryName(t *testing.T) {
	dir := t.TempDir()
	s := token.NewFileStore(dir)

	require.NoError(t, s.Save("tok"))

	_, err := os.Stat(filepath.Join(dir, token.FileName))
	require.NoError(t, err)
}

func TestFileStore_BlankFileMeansLoggedOut(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, token.FileName), []byte("  \n"), 0o600))

	s := token.NewFileStore(dir)
	_, err := s.Load()
	require.ErrorIs(t, err, token.ErrNotFound)
}

func TestMemStore_RoundTrip(t *testing.T) {
	s := token.NewMemStore()

	_, err := s.Load()
	require.ErrorIs(t, err, token.ErrNotFound)

	require.NoError(t, s.Save("tok"))
	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "tok", got)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	require.ErrorIs(t, err, token.ErrNotFound)
}
