package storage

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
)

// openTestMongo connects to $MONGO_URI and uses a throwaway database that is
// dropped when the test ends.
func openTestMongo(t *testing.T) *MongoReleaseStore {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	name := "pagebuilder_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s, err := OpenMongo(context.Background(), uri, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.client.Database(name).Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestMongoReleaseStore_CRUD(t *testing.T) {
	s := openTestMongo(t)

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

	again, err := s.GetRelease("rel-1")
	require.NoError(t, err)
	assert.Equal(t, "Summer", again.Name)
	assert.Equal(t, "Landing", again.ThemeSchema[0].Properties["title"])

	require.NoError(t, s.DeleteRelease("rel-1"))
	_, err = s.GetRelease("rel-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMongoReleaseStore_ListNewestFirst(t *testing.T) {
	s := openTestMongo(t)

	require.NoError(t, s.CreateRelease(&domain.Release{ID: "old", Name: "Old"}))
	require.NoError(t, s.CreateRelease(&domain.Release{ID: "new", Name: "New"}))

	old, err := s.GetRelease("old")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.UpdateRelease(old))

	list, err := s.ListReleases()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "old", list[0].ID)
	assert.Equal(t, "new", list[1].ID)
}

func TestMongoReleaseStore_Missing(t *testing.T) {
	s := openTestMongo(t)

	_, err := s.GetRelease("ghost")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = s.UpdateRelease(&domain.Release{ID: "ghost"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
