package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listpreload"
)

func openMemory(t *testing.T) *Store {
	t.Helper()

	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndLookup(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	require.NoError(t, s.Record("a", -42))

	fp, err := s.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, int32(-42), fp)

	owner, err := s.Owner(-42)
	require.NoError(t, err)
	assert.Equal(t, "a", owner)

	_, err = s.Lookup("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Owner(7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordDuplicate(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	require.NoError(t, s.Record("a", 7))

	// Re-recording the same pair is fine
	require.NoError(t, s.Record("a", 7))

	err := s.Record("b", 7)
	assert.ErrorIs(t, err, listpreload.ErrDuplicateFingerprint)

	_, err = s.Lookup("b")
	assert.ErrorIs(t, err, ErrNotFound, "duplicate must not be written")
}

func TestRecordReplacesPreviousFingerprint(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	require.NoError(t, s.Record("a", 1))
	require.NoError(t, s.Record("a", 2))

	_, err := s.Owner(1)
	assert.ErrorIs(t, err, ErrNotFound)

	// The old fingerprint is free again
	require.NoError(t, s.Record("b", 1))
}

func TestDelete(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	require.NoError(t, s.Record("a", 5))
	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Delete("a"), "deleting twice is a no-op")

	_, err := s.Lookup("a")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Record("b", 5))
}

func TestRestore(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	require.NoError(t, s.Record("b", 2))
	require.NoError(t, s.Record("a", 1))
	require.NoError(t, s.Record("c", 3))

	got := map[string]int32{}
	var order []string
	require.NoError(t, s.Restore(func(id string, fp int32) error {
		got[id] = fp
		order = append(order, id)
		return nil
	}))
	assert.Equal(t, map[string]int32{"a": 1, "b": 2, "c": 3}, got)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	stop := errors.New("stop")
	calls := 0
	err := s.Restore(func(string, int32) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestPersistsAcrossOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(Options{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Record("a", 9))
	require.NoError(t, s.Close())

	s, err = Open(Options{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	fp, err := s.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, int32(9), fp)
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(Options{})
	assert.Error(t, err)
}
