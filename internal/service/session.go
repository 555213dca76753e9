package service

import (
	"sync"

	"go.uber.org/zap"

	"pagebuilder/internal/blocktree"
	"pagebuilder/internal/dnd"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/panel"
	"pagebuilder/internal/registry"
)

// Session is one open release: its tree store plus the drag adapter and
// property panel bound to it.
type Session struct {
	ReleaseID string
	Store     *blocktree.Store
	Drag      *dnd.Adapter
	Panel     *panel.Panel

	mu           sync.Mutex
	name         string
	savedVersion uint64
	backupVer    uint64
	linkedPath   string
}

func newSession(rel *domain.Release, reg *registry.Registry, log *zap.Logger, historyLimit int) *Session {
	store := blocktree.New(reg,
		blocktree.WithLogger(log),
		blocktree.WithHistoryLimit(historyLimit),
	)
	if len(rel.ThemeSchema) > 0 {
		store.Load(rel.ThemeSchema)
	}
	v := store.Version()
	return &Session{
		ReleaseID:    rel.ID,
		Store:        store,
		Drag:         dnd.New(store, log),
		Panel:        panel.New(store, reg),
		name:         rel.Name,
		savedVersion: v,
		backupVer:    v,
	}
}

// Name is the release's display name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Dirty reports unsaved changes since the last successful save.
func (s *Session) Dirty() bool {
	v := s.Store.Version()
	s.mu.Lock()
	defer s.mu.Unlock()
	return v != s.savedVersion
}

func (s *Session) markSaved(v uint64) {
	s.mu.Lock()
	s.savedVersion = v
	s.mu.Unlock()
}

// needsBackup reports whether the tree changed since the last revision push.
func (s *Session) needsBackup() (uint64, bool) {
	v := s.Store.Version()
	s.mu.Lock()
	defer s.mu.Unlock()
	return v, v != s.backupVer && v != s.savedVersion
}

func (s *Session) markBackedUp(v uint64) {
	s.mu.Lock()
	s.backupVer = v
	s.mu.Unlock()
}

// LinkedPath is the export file the session follows, if any.
func (s *Session) LinkedPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkedPath
}

func (s *Session) setLinkedPath(p string) {
	s.mu.Lock()
	s.linkedPath = p
	s.mu.Unlock()
}

// State is the snapshot sent to the frontend.
func (s *Session) State() domain.EditorState {
	return domain.EditorState{
		ReleaseID:  s.ReleaseID,
		Blocks:     s.Store.Blocks(),
		SelectedID: s.Store.Selected(),
		CanUndo:    s.Store.CanUndo(),
		CanRedo:    s.Store.CanRedo(),
		Dirty:      s.Dirty(),
	}
}
