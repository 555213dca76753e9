package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
)

// DefaultMaxRevisions is used when NewRevisionStore gets a non-positive max.
const DefaultMaxRevisions = 40

// RevisionStore keeps named snapshots of a release, oldest pruned first.
type RevisionStore struct {
	db  *DB
	max int
}

func NewRevisionStore(db *DB, max int) *RevisionStore {
	if max <= 0 {
		max = DefaultMaxRevisions
	}
	return &RevisionStore{db: db, max: max}
}

// PushRevision stores a snapshot and prunes the release down to max entries.
func (s *RevisionStore) PushRevision(releaseID, label, snapshotJSON string) (*domain.Revision, error) {
	var seq int64
	if err := s.db.queryRow(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM revisions WHERE release_id = ?`, releaseID,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("next revision seq: %w", err)
	}

	rev := &domain.Revision{
		ID:           uuid.New().String(),
		ReleaseID:    releaseID,
		Label:        label,
		SnapshotJSON: snapshotJSON,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.exec(
		`INSERT INTO revisions (id, release_id, seq, label, snapshot_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.ReleaseID, seq, rev.Label, rev.SnapshotJSON, rev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert revision: %w", err)
	}

	if err := s.prune(releaseID); err != nil {
		return nil, err
	}
	return rev, nil
}

// ListRevisions returns a release's revisions, newest first.
func (s *RevisionStore) ListRevisions(releaseID string) ([]domain.Revision, error) {
	rows, err := s.db.query(
		`SELECT id, release_id, label, snapshot_json, created_at
		 FROM revisions WHERE release_id = ? ORDER BY seq DESC`, releaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revs []domain.Revision
	for rows.Next() {
		var r domain.Revision
		if err := rows.Scan(&r.ID, &r.ReleaseID, &r.Label, &r.SnapshotJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

func (s *RevisionStore) GetRevision(id string) (*domain.Revision, error) {
	r := &domain.Revision{}
	err := s.db.queryRow(
		`SELECT id, release_id, label, snapshot_json, created_at FROM revisions WHERE id = ?`, id,
	).Scan(&r.ID, &r.ReleaseID, &r.Label, &r.SnapshotJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get revision %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return r, nil
}

// ClearRevisions removes all revisions for a release.
func (s *RevisionStore) ClearRevisions(releaseID string) error {
	_, err := s.db.exec(`DELETE FROM revisions WHERE release_id = ?`, releaseID)
	return err
}

// prune removes the oldest revisions when count exceeds max.
func (s *RevisionStore) prune(releaseID string) error {
	var count int
	if err := s.db.queryRow(`SELECT COUNT(*) FROM revisions WHERE release_id = ?`, releaseID).Scan(&count); err != nil {
		return fmt.Errorf("count revisions: %w", err)
	}
	if count <= s.max {
		return nil
	}

	// Collect ids first and close the cursor before writing
	rows, err := s.db.query(
		`SELECT id FROM revisions WHERE release_id = ? ORDER BY seq ASC LIMIT ?`,
		releaseID, count-s.max,
	)
	if err != nil {
		return fmt.Errorf("select stale revisions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := s.db.exec(`DELETE FROM revisions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("prune revision: %w", err)
		}
	}
	return nil
}
