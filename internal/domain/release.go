package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a release or revision does not exist.
var ErrNotFound = errors.New("not found")

// Release is a persisted page-builder document. ThemeSchema is the whole
// block forest as it is sent to the backend.
type Release struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ThemeSchema []Block   `json:"theme_schema"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Revision is a named snapshot of a release's forest.
type Revision struct {
	ID           string    `json:"id"`
	ReleaseID    string    `json:"releaseId"`
	Label        string    `json:"label"`
	SnapshotJSON string    `json:"snapshotJson"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ReleaseStore interface {
	CreateRelease(r *Release) error
	GetRelease(id string) (*Release, error)
	ListReleases() ([]Release, error)
	UpdateRelease(r *Release) error
	DeleteRelease(id string) error
}

type RevisionStore interface {
	PushRevision(releaseID, label, snapshotJSON string) (*Revision, error)
	ListRevisions(releaseID string) ([]Revision, error)
	GetRevision(id string) (*Revision, error)
	ClearRevisions(releaseID string) error
}
