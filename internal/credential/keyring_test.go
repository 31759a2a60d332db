package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := New(keyring.NewArrayKeyring(nil))
	key := IMAPPasswordKey("ann@example.com")
	require.Equal(t, "imap:ann@example.com", key)

	_, err := s.Get(key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(key, "hunter2"))
	got, err := s.Get(key)
	require.NoError(t, err)
	require.Equal(t, "hunter2", got)

	require.NoError(t, s.Set(key, "correct horse"))
	got, err = s.Get(key)
	require.NoError(t, err)
	require.Equal(t, "correct horse", got)

	require.NoError(t, s.Delete(key))
	_, err = s.Get(key)
	require.ErrorIs(t, err, ErrNotFound)
}
