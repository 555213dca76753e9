package domain

type BlockType string

const (
	BlockTypePage     BlockType = "page"
	BlockTypeSection  BlockType = "section"
	BlockTypeHeading  BlockType = "heading"
	BlockTypeText     BlockType = "text"
	BlockTypeImage    BlockType = "image"
	BlockTypeButton   BlockType = "button"
	BlockTypeSpacer   BlockType = "spacer"
	BlockTypeDivider  BlockType = "divider"
	BlockTypeGrid     BlockType = "grid"
	BlockTypeTabs     BlockType = "tabs"
	BlockTypeTrack    BlockType = "track"
	BlockTypePlaylist BlockType = "playlist"
	BlockTypeEvent    BlockType = "event"
)

// ContainerTypeChildren addresses a block's own children list as a move
// target. Any other container type addresses a ChildContainer by its id.
const ContainerTypeChildren = "children"

const (
	ContainerTypeCell = "cell"
	ContainerTypeTab  = "tab"
)

// Block is a node of the page tree.
type Block struct {
	ID         string           `json:"id"`
	Type       BlockType        `json:"type"`
	Properties map[string]any   `json:"properties"`
	Children   []Block          `json:"children"`
	Containers []ChildContainer `json:"containers"`
}

// ChildContainer is a named slot inside a block (grid cell, tab pane)
// holding its own ordered list of blocks.
type ChildContainer struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Children []Block `json:"children"`
}

// Location describes where a block currently lives in the forest.
// A zero ContainerType means the top level.
type Location struct {
	ParentID      string `json:"parentId"`
	ContainerID   string `json:"containerId"`
	ContainerType string `json:"containerType"`
	Index         int    `json:"index"`
}

// TopLevel reports whether the location is the forest's top-level list.
func (l Location) TopLevel() bool {
	return l.ContainerType == ""
}

// SameList reports whether two locations address the same sibling list.
func (l Location) SameList(o Location) bool {
	return l.ContainerType == o.ContainerType && l.ContainerID == o.ContainerID
}
