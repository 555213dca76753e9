package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSchema() []domain.Block {
	return []domain.Block{{
		ID:         "p1",
		Type:       domain.BlockTypePage,
		Properties: map[string]any{"title": "Home"},
		Children: []domain.Block{{
			ID:         "h1",
			Type:       domain.BlockTypeHeading,
			Properties: map[string]any{"text": "Hello", "level": "2"},
			Children:   []domain.Block{},
			Containers: []domain.ChildContainer{},
		}},
		Containers: []domain.ChildContainer{},
	}}
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	db, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestReleaseStore_CRUD(t *testing.T) {
	s := NewReleaseStore(openTestDB(t))

	r := &domain.Release{ID: "rel-1", Name: "Spring", ThemeSchema: sampleSchema()}
	require.NoError(t, s.CreateRelease(r))
	assert.False(t, r.CreatedAt.IsZero())

	got, err := s.GetRelease("rel-1")
	require.NoError(t, err)
	assert.Equal(t, "Spring", got.Name)
	require.Len(t, got.ThemeSchema, 1)
	assert.Equal(t, "Home", got.ThemeSchema[0].Properties["title"])
	assert.Equal(t, "h1", got.ThemeSchema[0].Children[0].ID)

	got.Name = "Summer"
	got.ThemeSchema[0].Properties["title"] = "Landing"
	require.NoError(t, s.UpdateRelease(got))

	list, err := s.ListReleases()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Summer", list[0].Name)
	assert.Equal(t, "Landing", list[0].ThemeSchema[0].Properties["title"])

	require.NoError(t, s.DeleteRelease("rel-1"))
	_, err = s.GetRelease("rel-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReleaseStore_UpdateMissing(t *testing.T) {
	s := NewReleaseStore(openTestDB(t))
	err := s.UpdateRelease(&domain.Release{ID: "ghost"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReleaseStore_NilSchemaStoredAsEmptyArray(t *testing.T) {
	s := NewReleaseStore(openTestDB(t))
	require.NoError(t, s.CreateRelease(&domain.Release{ID: "empty", Name: "Empty"}))

	got, err := s.GetRelease("empty")
	require.NoError(t, err)
	assert.NotNil(t, got.ThemeSchema)
	assert.Empty(t, got.ThemeSchema)
}

func TestRevisionStore_PushListPrune(t *testing.T) {
	s := NewRevisionStore(openTestDB(t), 3)

	for i := 1; i <= 5; i++ {
		_, err := s.PushRevision("rel-1", fmt.Sprintf("rev %d", i), "[]")
		require.NoError(t, err)
	}
	_, err := s.PushRevision("rel-2", "other", "[]")
	require.NoError(t, err)

	revs, err := s.ListRevisions("rel-1")
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, "rev 5", revs[0].Label)
	assert.Equal(t, "rev 3", revs[2].Label)

	got, err := s.GetRevision(revs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "rev 4", got.Label)

	require.NoError(t, s.ClearRevisions("rel-1"))
	revs, err = s.ListRevisions("rel-1")
	require.NoError(t, err)
	assert.Empty(t, revs)

	other, err := s.ListRevisions("rel-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestRevisionStore_GetMissing(t *testing.T) {
	s := NewRevisionStore(openTestDB(t), 0)
	_, err := s.GetRevision("nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, DefaultMaxRevisions, s.max)
}

func TestSettingsStore_GetSet(t *testing.T) {
	s := NewSettingsStore(openTestDB(t))

	_, ok, err := s.Get("theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("theme", "dark"))
	require.NoError(t, s.Set("theme", "light"))

	v, ok, err := s.Get("theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)
}
