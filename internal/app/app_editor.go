package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/panel"
	"pagebuilder/internal/service"
)

// ============================================================
// Releases
// ============================================================

func (a *App) session() (*service.Session, error) {
	if a.rt == nil {
		return nil, fmt.Errorf("app not started")
	}
	if a.activeReleaseID == "" {
		return nil, fmt.Errorf("no release open")
	}
	return a.rt.Editor.Session(a.activeReleaseID)
}

func (a *App) rememberRelease(releaseID string) {
	if err := a.rt.Window.SetLastRelease(releaseID); err != nil {
		a.log.Warn("remember release", zap.Error(err))
	}
}

// ListReleases returns the locally stored releases.
func (a *App) ListReleases() ([]ReleaseView, error) {
	releases, err := a.rt.Editor.ListReleases()
	if err != nil {
		return nil, err
	}
	out := make([]ReleaseView, 0, len(releases))
	for _, r := range releases {
		out = append(out, ReleaseView{ID: r.ID, Name: r.Name, UpdatedAt: r.UpdatedAt.Format(time.RFC3339)})
	}
	return out, nil
}

// OpenRelease opens a release and makes it the one the window edits.
func (a *App) OpenRelease(releaseID string) (domain.EditorState, error) {
	sess, err := a.rt.Editor.Open(a.ctx, releaseID)
	if err != nil {
		return domain.EditorState{}, err
	}
	a.activeReleaseID = releaseID
	a.rememberRelease(releaseID)
	return sess.State(), nil
}

// CreateRelease starts a new release and opens it.
func (a *App) CreateRelease(name string) (domain.EditorState, error) {
	sess, err := a.rt.Editor.Create(a.ctx, name)
	if err != nil {
		return domain.EditorState{}, err
	}
	a.activeReleaseID = sess.ReleaseID
	a.rememberRelease(sess.ReleaseID)
	return sess.State(), nil
}

// CloseRelease drops the active session, and its unsaved changes.
func (a *App) CloseRelease() {
	if a.activeReleaseID == "" {
		return
	}
	if a.rt.Watcher != nil {
		a.rt.Watcher.Unwatch(a.activeReleaseID)
	}
	a.rt.Editor.Close(a.activeReleaseID)
	a.activeReleaseID = ""
}

// GetTree returns the active release's state.
func (a *App) GetTree() (domain.EditorState, error) {
	sess, err := a.session()
	if err != nil {
		return domain.EditorState{}, err
	}
	return sess.State(), nil
}

// BlockTypes lists the palette.
func (a *App) BlockTypes() []BlockTypeView {
	defs := a.rt.Registry.Definitions()
	out := make([]BlockTypeView, 0, len(defs))
	for _, d := range defs {
		out = append(out, BlockTypeView{
			Type:            d.Type,
			Label:           d.Label,
			Category:        d.Category,
			Icon:            d.Icon,
			AcceptsChildren: d.AcceptsChildren,
			Fields:          d.Fields,
		})
	}
	return out
}

// ============================================================
// Tree mutations
// ============================================================

// AddBlock appends a block of blockType at the top level and selects it.
func (a *App) AddBlock(blockType string, props map[string]any) (string, error) {
	sess, err := a.session()
	if err != nil {
		return "", err
	}
	id := sess.Store.AddBlock(domain.BlockType(blockType), props)
	if id == "" {
		return "", fmt.Errorf("only one page block is allowed")
	}
	sess.Store.Select(id)
	return id, nil
}

// UpdateBlockProperties merges props without validation.
func (a *App) UpdateBlockProperties(blockID string, props map[string]any) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	sess.Store.UpdateBlockProperties(blockID, props)
	return nil
}

// ApplyProperties merges props after validating them against the block's fields.
func (a *App) ApplyProperties(blockID string, props map[string]any) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	return sess.Panel.Apply(blockID, props)
}

// MoveBlock moves a block into another block's children or a container.
func (a *App) MoveBlock(blockID, containerID, containerType string) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	sess.Panel.Move(blockID, containerID, containerType)
	return nil
}

// ReorderBlock moves a block within its current list.
func (a *App) ReorderBlock(blockID string, index int) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	sess.Store.ReorderBlock(blockID, index)
	return nil
}

// RemoveBlock deletes a block and its subtree.
func (a *App) RemoveBlock(blockID string) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	sess.Panel.Remove(blockID)
	return nil
}

// DuplicateBlock copies a block next to itself and returns the copy's id.
func (a *App) DuplicateBlock(blockID string) (string, error) {
	sess, err := a.session()
	if err != nil {
		return "", err
	}
	return sess.Store.DuplicateBlock(blockID), nil
}

// SelectBlock sets the block shown in the property panel.
func (a *App) SelectBlock(blockID string) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	sess.Store.Select(blockID)
	return nil
}

func (a *App) Undo() (bool, error) {
	sess, err := a.session()
	if err != nil {
		return false, err
	}
	return sess.Store.Undo(), nil
}

func (a *App) Redo() (bool, error) {
	sess, err := a.session()
	if err != nil {
		return false, err
	}
	return sess.Store.Redo(), nil
}

// ============================================================
// Property panel
// ============================================================

// Breadcrumbs returns the root-to-block trail ("" means the selection).
func (a *App) Breadcrumbs(blockID string) ([]panel.Crumb, error) {
	sess, err := a.session()
	if err != nil {
		return nil, err
	}
	return sess.Panel.Breadcrumbs(blockID), nil
}

// Inspect returns the panel contents for a block ("" means the selection).
func (a *App) Inspect(blockID string) (*panel.Inspector, error) {
	sess, err := a.session()
	if err != nil {
		return nil, err
	}
	return sess.Panel.Inspect(blockID)
}

// RenderPreview renders the active release as an HTML document.
func (a *App) RenderPreview() (string, error) {
	sess, err := a.session()
	if err != nil {
		return "", err
	}
	return a.rt.Renderer.Document(sess.Store.Blocks())
}

// ============================================================
// Persistence
// ============================================================

// Save publishes the active release. Failures also arrive as a
// editor:save-failed toast event.
func (a *App) Save() error {
	if _, err := a.session(); err != nil {
		return err
	}
	return a.rt.Editor.Save(a.ctx, a.activeReleaseID)
}

// Export asks for a destination and writes the tree as JSON.
func (a *App) Export() (string, error) {
	sess, err := a.session()
	if err != nil {
		return "", err
	}
	path, err := saveDialog(a.ctx, sess.Name()+".json")
	if err != nil || path == "" {
		return "", err
	}
	return path, a.rt.Editor.Export(sess.ReleaseID, path)
}

// Import asks for a JSON file and replaces the tree with it (undoable).
func (a *App) Import() (domain.EditorState, error) {
	sess, err := a.session()
	if err != nil {
		return domain.EditorState{}, err
	}
	path, err := openDialog(a.ctx)
	if err != nil || path == "" {
		return sess.State(), err
	}
	return a.importFile(path)
}

func (a *App) importFile(path string) (domain.EditorState, error) {
	sess, err := a.session()
	if err != nil {
		return domain.EditorState{}, err
	}
	if err := a.rt.Editor.Import(a.ctx, sess.ReleaseID, path); err != nil {
		return domain.EditorState{}, err
	}
	return sess.State(), nil
}

// LinkFile exports to path and reloads the tree whenever the file changes
// on disk.
func (a *App) LinkFile(path string) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	if err := a.rt.Editor.Export(sess.ReleaseID, path); err != nil {
		return err
	}
	if err := a.rt.Editor.Link(sess.ReleaseID, path); err != nil {
		return err
	}
	if a.rt.Watcher == nil {
		return fmt.Errorf("file watching unavailable")
	}
	return a.rt.Watcher.Watch(sess.ReleaseID, path)
}

// ============================================================
// Revisions
// ============================================================

func (a *App) Snapshot(label string) (*RevisionView, error) {
	if _, err := a.session(); err != nil {
		return nil, err
	}
	rev, err := a.rt.Editor.Snapshot(a.activeReleaseID, label)
	if err != nil {
		return nil, err
	}
	return &RevisionView{ID: rev.ID, Label: rev.Label, CreatedAt: rev.CreatedAt.Format(time.RFC3339)}, nil
}

func (a *App) ListRevisions() ([]RevisionView, error) {
	if _, err := a.session(); err != nil {
		return nil, err
	}
	revs, err := a.rt.Editor.Revisions(a.activeReleaseID)
	if err != nil {
		return nil, err
	}
	out := make([]RevisionView, 0, len(revs))
	for _, r := range revs {
		out = append(out, RevisionView{ID: r.ID, Label: r.Label, CreatedAt: r.CreatedAt.Format(time.RFC3339)})
	}
	return out, nil
}

func (a *App) RestoreRevision(revisionID string) error {
	return a.rt.Editor.Restore(revisionID)
}
