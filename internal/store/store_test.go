package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wa-outreach/internal/model"
)

// failingStore errors on every call.
type failingStore struct{}

func (failingStore) Load(context.Context) ([]model.StoredContact, error) {
	return nil, eris.New("disk gone")
}

func (failingStore) Save(context.Context, []model.StoredContact) error {
	return eris.New("disk gone")
}

func (failingStore) Close() error { return nil }

func TestJSONFile_MissingFileLoadsEmpty(t *testing.T) {
	f := NewJSONFile[model.StoredContact](filepath.Join(t.TempDir(), "none.json"))

	got, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJSONFile_SaveCreatesDirAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "contacts.json")
	f := NewJSONFile[model.TrackedContact](path)
	ctx := context.Background()

	in := []model.TrackedContact{
		{Name: "Ana", Phone: "912345678", Status: model.TrackingStatusProcessed, Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{Name: "Bruno", Phone: "962000111", Status: model.TrackingStatusFailed, Error: "timeout"},
	}
	require.NoError(t, f.Save(ctx, in))

	got, err := f.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ana", got[0].Name)
	assert.True(t, got[0].Timestamp.Equal(in[0].Timestamp))
	assert.Equal(t, "timeout", got[1].Error)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestJSONFile_SaveNilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.json")
	f := NewJSONFile[model.StoredContact](path)
	require.NoError(t, f.Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestJSONFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONFile[model.StoredContact](path).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestOpenContacts(t *testing.T) {
	ctx := context.Background()

	t.Run("json default", func(t *testing.T) {
		st, err := OpenContacts(ctx, "", t.TempDir(), "")
		require.NoError(t, err)
		assert.IsType(t, &JSONFile[model.StoredContact]{}, st)
	})

	t.Run("sqlite", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "state")
		st, err := OpenContacts(ctx, DriverSQLite, dir, "")
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() }) //nolint:errcheck
		assert.IsType(t, &SQLiteStore{}, st)
		assert.FileExists(t, filepath.Join(dir, "contacts.db"))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := OpenContacts(ctx, "postgres", t.TempDir(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown driver")
	})
}

func TestOpenTracking(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "contact-tracking.json"), OpenTracking(dir).Path())
}
