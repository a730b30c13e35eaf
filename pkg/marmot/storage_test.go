package marmot

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

func TestMemoryStorageRoundTrip(t *testing.T) {
	st, err := NewMemoryStorage()
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Put([]byte("k"), []byte("v")))
	v, err := st.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	require.NoError(t, st.Delete([]byte("k")))
	_, err = st.Get([]byte("k"))
	require.ErrorIs(t, err, &Error{Code: CodeStorage})
}

func TestFileStoragePersists(t *testing.T) {
	dir := t.TempDir()
	key := frand.Bytes(32)

	st, err := NewFileStorage(dir, key)
	require.NoError(t, err)
	require.NoError(t, st.Put([]byte("group"), []byte("state")))
	require.NoError(t, st.Close())

	// reopening with the same key finds the data
	st, err = NewFileStorage(dir, key)
	require.NoError(t, err)
	defer st.Close()
	v, err := st.Get([]byte("group"))
	require.NoError(t, err)
	require.Equal(t, []byte("state"), v)
}

func TestFileStorageRejectsBadKeySize(t *testing.T) {
	_, err := NewFileStorage(t.TempDir(), []byte("short"))
	require.ErrorIs(t, err, &Error{Code: CodeInvalidInput})
}
