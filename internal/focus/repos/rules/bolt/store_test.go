package bolt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "rules.db")
}

func TestBoltStore_EmptyLoad(t *testing.T) {
	st, err := New(tempDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	got, err := st.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)

	stats := st.Stats()
	assert.Equal(t, uint64(0), stats.Count)
	assert.Equal(t, uint64(0), stats.Version)
	assert.Equal(t, int64(0), stats.UpdatedUnix)
}

func TestBoltStore_SavePreservesOrder(t *testing.T) {
	st, err := New(tempDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	// more than ten entries so lexical key order would differ from numeric
	in := []string{"youtube", "reddit", "twitch", "x.com", "instagram", "tiktok",
		"netflix", "facebook", "discord", "steam", "twitter", "news"}
	now := time.Unix(1_700_000_000, 0)
	require.NoError(t, st.Save(in, now))

	got, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, in, got)

	stats := st.Stats()
	assert.Equal(t, uint64(len(in)), stats.Count)
	assert.Equal(t, uint64(1), stats.Version)
	assert.Equal(t, now.Unix(), stats.UpdatedUnix)
}

func TestBoltStore_SaveReplacesAndBumpsVersion(t *testing.T) {
	st, err := New(tempDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Save([]string{"a1", "b2", "c3"}, time.Now()))
	require.NoError(t, st.Save([]string{"z9"}, time.Now()))

	got, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"z9"}, got)
	assert.Equal(t, uint64(2), st.Stats().Version)

	require.NoError(t, st.Save(nil, time.Now()))
	got, err = st.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := tempDB(t)
	st, err := New(path)
	require.NoError(t, err)
	require.NoError(t, st.Save([]string{"youtube"}, time.Now()))
	require.NoError(t, st.Close())

	st, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	got, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"youtube"}, got)
}

func TestBoltStore_OpenBadPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir", "rules.db"))
	assert.Error(t, err)
}
