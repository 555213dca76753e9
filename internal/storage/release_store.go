package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// ReleaseStore implements domain.ReleaseStore on top of DB.
type ReleaseStore struct {
	db *DB
}

func NewReleaseStore(db *DB) *ReleaseStore {
	return &ReleaseStore{db: db}
}

func encodeSchema(blocks []domain.Block) (string, error) {
	if blocks == nil {
		blocks = []domain.Block{}
	}
	b, err := json.Marshal(blocks)
	if err != nil {
		return "", fmt.Errorf("encode theme_schema: %w", err)
	}
	return string(b), nil
}

func decodeSchema(s string) ([]domain.Block, error) {
	var blocks []domain.Block
	if err := json.Unmarshal([]byte(s), &blocks); err != nil {
		return nil, fmt.Errorf("decode theme_schema: %w", err)
	}
	if blocks == nil {
		blocks = []domain.Block{}
	}
	return blocks, nil
}

func (s *ReleaseStore) CreateRelease(r *domain.Release) error {
	schema, err := encodeSchema(r.ThemeSchema)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err = s.db.exec(
		`INSERT INTO releases (id, name, theme_schema, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Name, schema, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert release: %w", err)
	}
	return nil
}

func (s *ReleaseStore) GetRelease(id string) (*domain.Release, error) {
	r := &domain.Release{}
	var schema string
	err := s.db.queryRow(
		`SELECT id, name, theme_schema, created_at, updated_at FROM releases WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &schema, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get release %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get release: %w", err)
	}
	if r.ThemeSchema, err = decodeSchema(schema); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReleaseStore) ListReleases() ([]domain.Release, error) {
	rows, err := s.db.query(`SELECT id, name, theme_schema, created_at, updated_at FROM releases ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var releases []domain.Release
	for rows.Next() {
		var r domain.Release
		var schema string
		if err := rows.Scan(&r.ID, &r.Name, &schema, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if r.ThemeSchema, err = decodeSchema(schema); err != nil {
			return nil, err
		}
		releases = append(releases, r)
	}
	return releases, rows.Err()
}

func (s *ReleaseStore) UpdateRelease(r *domain.Release) error {
	schema, err := encodeSchema(r.ThemeSchema)
	if err != nil {
		return err
	}
	r.UpdatedAt = time.Now().UTC()
	res, err := s.db.exec(
		`UPDATE releases SET name = ?, theme_schema = ?, updated_at = ? WHERE id = ?`,
		r.Name, schema, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update release: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update release %s: %w", r.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *ReleaseStore) DeleteRelease(id string) error {
	if _, err := s.db.exec(`DELETE FROM revisions WHERE release_id = ?`, id); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	_, err := s.db.exec(`DELETE FROM releases WHERE id = ?`, id)
	return err
}
