package app

import (
	"pagebuilder/internal/domain"
	"pagebuilder/internal/registry"
)

// BlockTypeView is a registry entry as the block palette shows it.
type BlockTypeView struct {
	Type            domain.BlockType `json:"type"`
	Label           string           `json:"label"`
	Category        string           `json:"category"`
	Icon            string           `json:"icon"`
	AcceptsChildren bool             `json:"acceptsChildren"`
	Fields          []registry.Field `json:"fields"`
}

// ReleaseView is a release in the picker.
type ReleaseView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updatedAt"`
}

// RevisionView is a stored revision without its snapshot body.
type RevisionView struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	CreatedAt string `json:"createdAt"`
}

// DropResult reports how a drag ended and the resulting state.
type DropResult struct {
	Outcome string             `json:"outcome"`
	State   domain.EditorState `json:"state"`
}
