package blocktree_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/blocktree"
	"pagebuilder/internal/domain"
)

// page
// ├── h (children)
// └── g (grid)
//     ├── c1: t
//     └── c2: (empty)
func sampleForest() []domain.Block {
	leaf := func(id string, t domain.BlockType) domain.Block {
		return domain.Block{ID: id, Type: t, Properties: map[string]any{}, Children: []domain.Block{}, Containers: []domain.ChildContainer{}}
	}
	grid := leaf("g", domain.BlockTypeGrid)
	grid.Containers = []domain.ChildContainer{
		{ID: "c1", Type: domain.ContainerTypeCell, Children: []domain.Block{leaf("t", domain.BlockTypeText)}},
		{ID: "c2", Type: domain.ContainerTypeCell, Children: []domain.Block{}},
	}
	page := leaf("page", domain.BlockTypePage)
	page.Children = []domain.Block{leaf("h", domain.BlockTypeHeading), grid}
	return []domain.Block{page}
}

func TestFind_SearchesChildrenAndContainers(t *testing.T) {
	f := sampleForest()
	require.NotNil(t, blocktree.Find(f, "t"))
	assert.Equal(t, domain.BlockTypeText, blocktree.Find(f, "t").Type)
	assert.Nil(t, blocktree.Find(f, "missing"))
	require.NotNil(t, blocktree.FindContainer(f, "c2"))
	assert.Nil(t, blocktree.FindContainer(f, "t"))
}

func TestDetachInsert_MovesBetweenContainers(t *testing.T) {
	f := sampleForest()
	f, b, ok := blocktree.Detach(f, "t")
	require.True(t, ok)
	assert.Equal(t, "t", b.ID)
	assert.Zero(t, blocktree.Count(f, "t"))

	require.True(t, blocktree.Insert(f, "c2", domain.ContainerTypeCell, b))
	assert.Equal(t, 1, blocktree.Count(f, "t"))

	loc, ok := blocktree.Locate(f, "t")
	require.True(t, ok)
	assert.Equal(t, domain.Location{ParentID: "g", ContainerID: "c2", ContainerType: domain.ContainerTypeCell}, loc)
	assert.Empty(t, blocktree.FindContainer(f, "c1").Children)
}

func TestInsert_UnknownTarget(t *testing.T) {
	f := sampleForest()
	assert.False(t, blocktree.Insert(f, "nope", domain.ContainerTypeChildren, domain.Block{ID: "x"}))
	assert.False(t, blocktree.Insert(f, "nope", domain.ContainerTypeCell, domain.Block{ID: "x"}))
}

func TestRemove_LeavesEmptyLists(t *testing.T) {
	f, ok := blocktree.Remove(sampleForest(), "t")
	require.True(t, ok)
	c1 := blocktree.FindContainer(f, "c1")
	require.NotNil(t, c1)
	assert.NotNil(t, c1.Children)
	assert.Empty(t, c1.Children)

	_, ok = blocktree.Remove(f, "t")
	assert.False(t, ok)
}

func TestPath_RootToNode(t *testing.T) {
	f := sampleForest()
	var ids []string
	for _, b := range blocktree.Path(f, "t") {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"page", "g", "t"}, ids)
	assert.Nil(t, blocktree.Path(f, "missing"))
}

func TestRegenerate_DisjointIDs(t *testing.T) {
	f := sampleForest()
	grid := *blocktree.Find(f, "g")
	clone := blocktree.Regenerate(grid.Clone(), seqIDs())

	before := blocktree.CollectIDs([]domain.Block{grid})
	after := blocktree.CollectIDs([]domain.Block{clone})
	require.Len(t, after, len(before))
	for _, id := range after {
		assert.NotContains(t, before, id)
	}

	// Shape is unchanged once ids are ignored.
	ignoreIDs := cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".ID"
	}, cmp.Ignore())
	assert.Empty(t, cmp.Diff(grid, clone, ignoreIDs))
}

func TestWalk_StopsEarly(t *testing.T) {
	var seen []string
	blocktree.Walk(sampleForest(), func(b *domain.Block) bool {
		seen = append(seen, b.ID)
		return b.ID != "h"
	})
	assert.Equal(t, []string{"page", "h"}, seen)
}
