package storage

import (
	"database/sql"
	"errors"
)

// SettingsStore is a small key/value table for editor preferences.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the stored value and whether it was present.
func (s *SettingsStore) Get(name string) (string, bool, error) {
	var v string
	err := s.db.queryRow(`SELECT value FROM settings WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set inserts or overwrites a value.
func (s *SettingsStore) Set(name, value string) error {
	q := `INSERT INTO settings (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`
	if s.db.driver == DriverMySQL {
		q = `INSERT INTO settings (name, value) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`
	}
	_, err := s.db.exec(q, name, value)
	return err
}
