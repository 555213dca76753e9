package domain

// EditorState is the complete state of an open release for rendering.
// Returned to the frontend to draw the builder canvas and panels.
type EditorState struct {
	ReleaseID  string  `json:"releaseId"`
	Blocks     []Block `json:"blocks"`
	SelectedID string  `json:"selectedId"`
	CanUndo    bool    `json:"canUndo"`
	CanRedo    bool    `json:"canRedo"`
	Dirty      bool    `json:"dirty"`
}
