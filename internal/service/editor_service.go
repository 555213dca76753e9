package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/publish"
	"pagebuilder/internal/registry"
)

var (
	ErrSessionNotOpen = errors.New("release is not open")
	ErrSaveInProgress = errors.New("a save of this release is already in progress")
)

// Publisher sends a release to the backend that owns it.
type Publisher interface {
	Configured() bool
	SaveRelease(ctx context.Context, releaseID string, blocks []domain.Block) error
	LoadRelease(ctx context.Context, releaseID string) ([]domain.Block, error)
}

// SaveFailedEvent is the payload of EventSaveFailed, shown as a toast.
type SaveFailedEvent struct {
	ReleaseID string `json:"releaseId"`
	Message   string `json:"message"`
	Status    int    `json:"status,omitempty"`
}

// ─────────────────────────────────────────────────────────────
// Editor Service — open releases, save, revisions, import/export
// ─────────────────────────────────────────────────────────────

// EditorDeps wires an EditorService. Publisher may be nil.
type EditorDeps struct {
	Registry     *registry.Registry
	Releases     domain.ReleaseStore
	Revisions    domain.RevisionStore
	Publisher    Publisher
	Emitter      EventEmitter
	Logger       *zap.Logger
	HistoryLimit int
}

// EditorService keeps one Session per open release.
type EditorService struct {
	reg       *registry.Registry
	releases  domain.ReleaseStore
	revisions domain.RevisionStore
	publisher Publisher
	emitter   EventEmitter
	log       *zap.Logger
	limit     int

	mu       sync.Mutex
	sessions map[string]*Session
	saving   runningGuard
}

func NewEditorService(d EditorDeps) *EditorService {
	if d.Emitter == nil {
		d.Emitter = NopEmitter{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Registry == nil {
		d.Registry = registry.Default()
	}
	return &EditorService{
		reg:       d.Registry,
		releases:  d.Releases,
		revisions: d.Revisions,
		publisher: d.Publisher,
		emitter:   d.Emitter,
		log:       d.Logger.Named("editor"),
		limit:     d.HistoryLimit,
		sessions:  make(map[string]*Session),
	}
}

// Registry returns the block registry sessions are built from.
func (s *EditorService) Registry() *registry.Registry {
	return s.reg
}

func (s *EditorService) publishing() bool {
	return s.publisher != nil && s.publisher.Configured()
}

// Open returns the session for releaseID, loading it when needed: first
// from the local store, then from the backend. A release known to neither
// starts as an empty page.
func (s *EditorService) Open(ctx context.Context, releaseID string) (*Session, error) {
	if releaseID == "" {
		return nil, fmt.Errorf("open release: empty id")
	}
	s.mu.Lock()
	if sess, ok := s.sessions[releaseID]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	rel, err := s.loadRelease(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	sess := newSession(rel, s.reg, s.log, s.limit)
	// The session outlives the call that opened it, e.g. an MCP request.
	emitCtx := context.WithoutCancel(ctx)
	sess.Store.OnChange(func([]domain.Block) {
		s.emitter.Emit(emitCtx, EventTreeChanged, sess.State())
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have opened it meanwhile.
	if existing, ok := s.sessions[releaseID]; ok {
		return existing, nil
	}
	s.sessions[releaseID] = sess
	s.log.Info("release opened", zap.String("release", releaseID), zap.Int("blocks", len(sess.Store.Blocks())))
	return sess, nil
}

// Create starts a new release with a fresh page and opens it.
func (s *EditorService) Create(ctx context.Context, name string) (*Session, error) {
	if name == "" {
		name = "Untitled release"
	}
	rel := &domain.Release{ID: uuid.New().String(), Name: name, ThemeSchema: []domain.Block{}}
	if err := s.releases.CreateRelease(rel); err != nil {
		return nil, fmt.Errorf("create release: %w", err)
	}
	return s.Open(ctx, rel.ID)
}

func (s *EditorService) loadRelease(ctx context.Context, releaseID string) (*domain.Release, error) {
	rel, err := s.releases.GetRelease(releaseID)
	if err == nil {
		return rel, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load release: %w", err)
	}

	rel = &domain.Release{ID: releaseID, Name: releaseID, ThemeSchema: []domain.Block{}}
	if s.publishing() {
		blocks, err := s.publisher.LoadRelease(ctx, releaseID)
		switch {
		case err == nil:
			rel.ThemeSchema = blocks
		case errors.Is(err, domain.ErrNotFound):
			s.log.Debug("release unknown to backend, starting empty", zap.String("release", releaseID))
		default:
			return nil, fmt.Errorf("fetch release: %w", err)
		}
	}
	if err := s.releases.CreateRelease(rel); err != nil {
		return nil, fmt.Errorf("create release: %w", err)
	}
	return rel, nil
}

// Close forgets the session. Unsaved changes are dropped.
func (s *EditorService) Close(releaseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, releaseID)
}

// Session returns an open session.
func (s *EditorService) Session(releaseID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[releaseID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", releaseID, ErrSessionNotOpen)
	}
	return sess, nil
}

// Sessions lists open sessions ordered by release id.
func (s *EditorService) Sessions() []*Session {
	s.mu.Lock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ReleaseID < out[j].ReleaseID })
	return out
}

// ListReleases returns releases from the local store.
func (s *EditorService) ListReleases() ([]domain.Release, error) {
	return s.releases.ListReleases()
}

// ── Save ───────────────────────────────────────────────────

// Save sends the forest to the backend, then records it locally. On
// failure a toast event is emitted and the session keeps its unsaved
// state so the user can retry.
func (s *EditorService) Save(ctx context.Context, releaseID string) error {
	sess, err := s.Session(releaseID)
	if err != nil {
		return err
	}
	if !s.saving.TryLock(releaseID) {
		return ErrSaveInProgress
	}
	defer s.saving.Unlock(releaseID)

	version := sess.Store.Version()
	blocks := sess.Store.Blocks()

	if s.publishing() {
		if err := s.publisher.SaveRelease(ctx, releaseID, blocks); err != nil {
			s.saveFailed(ctx, releaseID, err)
			return err
		}
	}

	rel := &domain.Release{ID: releaseID, Name: sess.Name(), ThemeSchema: blocks}
	if err := s.releases.UpdateRelease(rel); err != nil {
		err = fmt.Errorf("store release: %w", err)
		s.saveFailed(ctx, releaseID, err)
		return err
	}

	sess.markSaved(version)
	s.log.Info("release saved", zap.String("release", releaseID), zap.Uint64("version", version))
	s.emitter.Emit(ctx, EventSaved, sess.State())
	return nil
}

func (s *EditorService) saveFailed(ctx context.Context, releaseID string, err error) {
	ev := SaveFailedEvent{ReleaseID: releaseID, Message: err.Error()}
	var se *publish.SaveError
	if errors.As(err, &se) {
		ev.Status = se.Status
	}
	s.log.Warn("save failed", zap.String("release", releaseID), zap.Error(err))
	s.emitter.Emit(ctx, EventSaveFailed, ev)
}

// Shutdown waits for in-flight saves.
func (s *EditorService) Shutdown(ctx context.Context) {
	s.saving.WaitAll(ctx)
}

// ── Revisions ──────────────────────────────────────────────

// Snapshot pushes the current forest as a named revision.
func (s *EditorService) Snapshot(releaseID, label string) (*domain.Revision, error) {
	sess, err := s.Session(releaseID)
	if err != nil {
		return nil, err
	}
	return s.pushRevision(sess, label)
}

func (s *EditorService) pushRevision(sess *Session, label string) (*domain.Revision, error) {
	v := sess.Store.Version()
	data, err := json.Marshal(sess.Store.Blocks())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	rev, err := s.revisions.PushRevision(sess.ReleaseID, label, string(data))
	if err != nil {
		return nil, fmt.Errorf("push revision: %w", err)
	}
	sess.markBackedUp(v)
	return rev, nil
}

// Revisions lists stored revisions, newest first.
func (s *EditorService) Revisions(releaseID string) ([]domain.Revision, error) {
	return s.revisions.ListRevisions(releaseID)
}

// Restore replaces the open release's forest with a stored revision. The
// restore itself is undoable.
func (s *EditorService) Restore(revisionID string) error {
	rev, err := s.revisions.GetRevision(revisionID)
	if err != nil {
		return err
	}
	sess, err := s.Session(rev.ReleaseID)
	if err != nil {
		return err
	}
	blocks, err := publish.DecodeSchema(json.RawMessage(rev.SnapshotJSON))
	if err != nil {
		return fmt.Errorf("restore %s: %w", revisionID, err)
	}
	sess.Store.Replace(blocks)
	return nil
}

// BackupDirty pushes a revision for every session changed since its last
// save or backup. Returns how many were written.
func (s *EditorService) BackupDirty() (int, error) {
	var (
		n    int
		errs []error
	)
	for _, sess := range s.Sessions() {
		if _, ok := sess.needsBackup(); !ok {
			continue
		}
		if _, err := s.pushRevision(sess, "Autosave"); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sess.ReleaseID, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// ── Import / export ────────────────────────────────────────

// Export writes the forest to path as JSON.
func (s *EditorService) Export(releaseID, path string) error {
	sess, err := s.Session(releaseID)
	if err != nil {
		return err
	}
	return publish.WriteFile(path, sess.Store.Blocks())
}

// Import replaces the forest with the JSON document at path (undoable).
func (s *EditorService) Import(ctx context.Context, releaseID, path string) error {
	_, err := s.Reload(ctx, releaseID, path)
	return err
}

// Reload re-reads path into the session unless it already matches the
// current forest, as happens right after Export to a linked file.
func (s *EditorService) Reload(ctx context.Context, releaseID, path string) (bool, error) {
	sess, err := s.Session(releaseID)
	if err != nil {
		return false, err
	}
	blocks, err := publish.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("import %s: %w", path, err)
	}
	if sameForest(blocks, sess.Store.Blocks()) {
		return false, nil
	}
	sess.Store.Replace(blocks)
	s.emitter.Emit(ctx, EventReloaded, map[string]string{"releaseId": releaseID, "path": path})
	return true, nil
}

// Link records path as the session's linked export file.
func (s *EditorService) Link(releaseID, path string) error {
	sess, err := s.Session(releaseID)
	if err != nil {
		return err
	}
	sess.setLinkedPath(path)
	return nil
}

func sameForest(a, b []domain.Block) bool {
	ja, err1 := json.Marshal(a)
	jb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(ja) == string(jb)
}
