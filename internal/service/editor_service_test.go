package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/publish"
	"pagebuilder/internal/registry"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

type fixture struct {
	svc      *service.EditorService
	emitter  *service.MockEmitter
	releases *storage.ReleaseStore
}

func newFixture(t *testing.T, endpoint string) fixture {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "pb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	em := &service.MockEmitter{}
	releases := storage.NewReleaseStore(db)
	svc := service.NewEditorService(service.EditorDeps{
		Registry:  registry.Default(),
		Releases:  releases,
		Revisions: storage.NewRevisionStore(db, 5),
		Publisher: publish.NewClient(endpoint, time.Second),
		Emitter:   em,
	})
	return fixture{svc: svc, emitter: em, releases: releases}
}

func TestOpen_NewReleaseStartsWithPage(t *testing.T) {
	f := newFixture(t, "")
	sess, err := f.svc.Open(context.Background(), "rel-1")
	require.NoError(t, err)

	blocks := sess.Store.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.BlockTypePage, blocks[0].Type)
	assert.False(t, sess.Dirty())

	again, err := f.svc.Open(context.Background(), "rel-1")
	require.NoError(t, err)
	assert.Same(t, sess, again)

	_, err = f.releases.GetRelease("rel-1")
	assert.NoError(t, err, "opening an unknown release records it locally")
}

func TestOpen_FetchesFromBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"release":{"theme_schema":"[{\"id\":\"pg\",\"type\":\"page\",\"properties\":{\"title\":\"Remote\"}},{\"id\":\"t\",\"type\":\"text\",\"properties\":{}}]"}}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	sess, err := f.svc.Open(context.Background(), "remote")
	require.NoError(t, err)
	assert.Equal(t, "pg", sess.Store.PageID())
	assert.Len(t, sess.Store.Blocks(), 2)
}

func TestTreeChangedEmitted(t *testing.T) {
	f := newFixture(t, "")
	sess, err := f.svc.Open(context.Background(), "rel")
	require.NoError(t, err)

	sess.Store.AddBlock(domain.BlockTypeHeading, nil)
	sess.Store.Undo()

	events := f.emitter.Named(service.EventTreeChanged)
	require.Len(t, events, 2)
	st := events[0].Data.(domain.EditorState)
	assert.Equal(t, "rel", st.ReleaseID)
	assert.True(t, st.CanUndo)
	assert.True(t, st.Dirty)
	assert.Len(t, st.Blocks, 2)
}

func TestSave_PutsAndStoresLocally(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			body, _ = io.ReadAll(r.Body)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	ctx := context.Background()
	sess, err := f.svc.Open(ctx, "rel")
	require.NoError(t, err)
	sess.Store.AddBlock(domain.BlockTypeButton, map[string]any{"label": "Buy"})
	require.True(t, sess.Dirty())

	require.NoError(t, f.svc.Save(ctx, "rel"))
	assert.False(t, sess.Dirty())
	assert.Len(t, f.emitter.Named(service.EventSaved), 1)

	var payload struct {
		Release struct {
			ThemeSchema []domain.Block `json:"theme_schema"`
		} `json:"release"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Release.ThemeSchema, 2)
	assert.Equal(t, "Buy", payload.Release.ThemeSchema[1].Properties["label"])

	rel, err := f.releases.GetRelease("rel")
	require.NoError(t, err)
	assert.Len(t, rel.ThemeSchema, 2)
}

func TestSave_FailureKeepsUnsavedState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			http.Error(w, "backend down", http.StatusBadGateway)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	ctx := context.Background()
	sess, err := f.svc.Open(ctx, "rel")
	require.NoError(t, err)
	id := sess.Store.AddBlock(domain.BlockTypeText, nil)

	err = f.svc.Save(ctx, "rel")
	var se *publish.SaveError
	require.True(t, errors.As(err, &se))

	assert.True(t, sess.Dirty())
	_, ok := sess.Store.GetBlock(id)
	assert.True(t, ok, "failed save must not roll back the tree")

	failed := f.emitter.Named(service.EventSaveFailed)
	require.Len(t, failed, 1)
	ev := failed[0].Data.(service.SaveFailedEvent)
	assert.Equal(t, http.StatusBadGateway, ev.Status)
	assert.Equal(t, "rel", ev.ReleaseID)
}

func TestSave_RejectsConcurrentSave(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		<-release
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	ctx := context.Background()
	_, err := f.svc.Open(ctx, "rel")
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() { first <- f.svc.Save(ctx, "rel") }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, f.svc.Save(ctx, "rel"), service.ErrSaveInProgress)
	close(release)
	assert.NoError(t, <-first)
}

func TestSave_NotOpen(t *testing.T) {
	f := newFixture(t, "")
	assert.ErrorIs(t, f.svc.Save(context.Background(), "nope"), service.ErrSessionNotOpen)
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t, "")
	sess, err := f.svc.Open(context.Background(), "rel")
	require.NoError(t, err)

	sess.Store.AddBlock(domain.BlockTypeHeading, nil)
	rev, err := f.svc.Snapshot("rel", "with heading")
	require.NoError(t, err)

	sess.Store.AddBlock(domain.BlockTypeDivider, nil)
	require.Len(t, sess.Store.Blocks(), 3)

	require.NoError(t, f.svc.Restore(rev.ID))
	assert.Len(t, sess.Store.Blocks(), 2)

	require.True(t, sess.Store.Undo(), "restore is undoable")
	assert.Len(t, sess.Store.Blocks(), 3)

	revs, err := f.svc.Revisions("rel")
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, "with heading", revs[0].Label)
}

func TestBackupDirty(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	a, err := f.svc.Open(ctx, "a")
	require.NoError(t, err)
	_, err = f.svc.Open(ctx, "b")
	require.NoError(t, err)

	n, err := f.svc.BackupDirty()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	a.Store.AddBlock(domain.BlockTypeSpacer, nil)
	n, err = f.svc.BackupDirty()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.BackupDirty()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "unchanged since last backup")
}

func TestExportImportReload(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	sess, err := f.svc.Open(ctx, "rel")
	require.NoError(t, err)
	sess.Store.AddBlock(domain.BlockTypeImage, nil)

	path := filepath.Join(t.TempDir(), "theme.json")
	require.NoError(t, f.svc.Export("rel", path))

	changed, err := f.svc.Reload(ctx, "rel", path)
	require.NoError(t, err)
	assert.False(t, changed, "reloading our own export is a no-op")

	sess.Store.AddBlock(domain.BlockTypeDivider, nil)
	require.NoError(t, f.svc.Import(context.Background(), "rel", path))
	assert.Len(t, sess.Store.Blocks(), 2)
	assert.Len(t, f.emitter.Named(service.EventReloaded), 1)
}

func TestCreateAndClose(t *testing.T) {
	f := newFixture(t, "")
	sess, err := f.svc.Create(context.Background(), "Launch")
	require.NoError(t, err)
	assert.Equal(t, "Launch", sess.Name())
	assert.Len(t, f.svc.Sessions(), 1)

	f.svc.Close(sess.ReleaseID)
	_, err = f.svc.Session(sess.ReleaseID)
	assert.ErrorIs(t, err, service.ErrSessionNotOpen)
}
