package blocktree_test

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/blocktree"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/registry"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newStore(t *testing.T) *blocktree.Store {
	t.Helper()
	return blocktree.New(registry.Default(), blocktree.WithIDGenerator(seqIDs()))
}

func assertUniqueIDs(t *testing.T, forest []domain.Block) {
	t.Helper()
	seen := map[string]bool{}
	for _, id := range blocktree.CollectIDs(forest) {
		require.Falsef(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestNew_SeedsSelectedPage(t *testing.T) {
	s := newStore(t)
	blocks := s.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.BlockTypePage, blocks[0].Type)
	assert.Equal(t, blocks[0].ID, s.PageID())
	assert.Equal(t, s.PageID(), s.Selected())
	assert.Equal(t, "Untitled page", blocks[0].Properties["title"])
}

func TestAddMoveRemove_Example(t *testing.T) {
	s := newStore(t)
	a := s.AddBlock(domain.BlockTypeHeading, map[string]any{"text": "Hi"})
	require.NotEmpty(t, a)

	s.MoveBlock(a, s.PageID(), domain.ContainerTypeChildren)
	b, ok := s.GetBlock(a)
	require.True(t, ok)
	assert.Equal(t, domain.BlockTypeHeading, b.Type)
	assert.Equal(t, "Hi", b.Properties["text"])
	assert.Equal(t, "left", b.Properties["align"], "defaults merged under overrides")

	loc, ok := s.Locate(a)
	require.True(t, ok)
	assert.Equal(t, s.PageID(), loc.ContainerID)
	assert.Equal(t, domain.ContainerTypeChildren, loc.ContainerType)

	s.RemoveBlock(a)
	_, ok = s.GetBlock(a)
	assert.False(t, ok)

	page, _ := s.GetBlock(s.PageID())
	assert.NotNil(t, page.Children, "emptied lists stay as empty lists")
	assert.Empty(t, page.Children)
}

func TestUndo_EmptyHistoryIsNoop(t *testing.T) {
	s := newStore(t)
	before := s.Blocks()
	assert.False(t, s.Undo())
	assert.False(t, s.Redo())
	assert.Empty(t, cmp.Diff(before, s.Blocks()))
}

func TestUndoRedo_RestoresExactStates(t *testing.T) {
	s := newStore(t)
	grid := s.AddBlock(domain.BlockTypeGrid, nil)
	text := s.AddBlock(domain.BlockTypeText, map[string]any{"markdown": "**hi**"})

	g, _ := s.GetBlock(grid)
	require.Len(t, g.Containers, 2)

	steps := []func(){
		func() { s.MoveBlock(text, g.Containers[1].ID, domain.ContainerTypeCell) },
		func() { s.UpdateBlockProperties(grid, map[string]any{"columns": float64(3)}) },
		func() { s.DuplicateBlock(grid) },
		func() { s.RemoveBlock(text) },
	}
	for i, step := range steps {
		before := s.Blocks()
		step()
		after := s.Blocks()
		require.NotEmptyf(t, cmp.Diff(before, after), "step %d changed nothing", i)

		require.True(t, s.Undo())
		require.Emptyf(t, cmp.Diff(before, s.Blocks()), "undo of step %d", i)
		require.True(t, s.Redo())
		require.Emptyf(t, cmp.Diff(after, s.Blocks()), "redo of step %d", i)
	}
}

func TestMutationAfterUndo_ClearsFuture(t *testing.T) {
	s := newStore(t)
	s.AddBlock(domain.BlockTypeText, nil)
	require.True(t, s.Undo())
	require.True(t, s.CanRedo())

	s.AddBlock(domain.BlockTypeDivider, nil)
	assert.False(t, s.CanRedo())
	assert.False(t, s.Redo())
}

func TestHistoryLimit_DropsOldest(t *testing.T) {
	s := blocktree.New(registry.Default(), blocktree.WithIDGenerator(seqIDs()), blocktree.WithHistoryLimit(2))
	for i := 0; i < 5; i++ {
		s.AddBlock(domain.BlockTypeSpacer, nil)
	}
	assert.True(t, s.Undo())
	assert.True(t, s.Undo())
	assert.False(t, s.Undo())
	assert.Len(t, s.Blocks(), 4)
}

func TestUpdateBlockProperties_UnknownIDIsNoop(t *testing.T) {
	s := newStore(t)
	before := s.Version()
	s.UpdateBlockProperties("missing", map[string]any{"x": 1})
	assert.Equal(t, before, s.Version())
	assert.False(t, s.CanUndo())
}

func TestUpdateBlockProperties_MergesAndFindsNested(t *testing.T) {
	s := newStore(t)
	tabs := s.AddBlock(domain.BlockTypeTabs, nil)
	btn := s.AddBlock(domain.BlockTypeButton, nil)
	tb, _ := s.GetBlock(tabs)
	s.MoveBlock(btn, tb.Containers[0].ID, domain.ContainerTypeTab)

	s.UpdateBlockProperties(btn, map[string]any{"label": "Buy"})
	b, ok := s.GetBlock(btn)
	require.True(t, ok)
	assert.Equal(t, "Buy", b.Properties["label"])
	assert.Equal(t, "primary", b.Properties["variant"])
}

func TestUpdateBlockProperties_KeepsContainerIdentity(t *testing.T) {
	s := newStore(t)
	grid := s.AddBlock(domain.BlockTypeGrid, map[string]any{"columns": float64(3)})
	text := s.AddBlock(domain.BlockTypeText, nil)
	g, _ := s.GetBlock(grid)
	require.Len(t, g.Containers, 3)
	s.MoveBlock(text, g.Containers[2].ID, domain.ContainerTypeCell)

	s.UpdateBlockProperties(grid, map[string]any{"gap": float64(4)})
	g2, _ := s.GetBlock(grid)
	require.Len(t, g2.Containers, 3)
	for i := range g.Containers {
		assert.Equal(t, g.Containers[i].ID, g2.Containers[i].ID)
	}

	// Shrinking hands the dropped cell's children to the last cell.
	s.UpdateBlockProperties(grid, map[string]any{"columns": float64(2)})
	g3, _ := s.GetBlock(grid)
	require.Len(t, g3.Containers, 2)
	require.Len(t, g3.Containers[1].Children, 1)
	assert.Equal(t, text, g3.Containers[1].Children[0].ID)

	// Growing adds a fresh empty cell.
	s.UpdateBlockProperties(grid, map[string]any{"columns": float64(4)})
	g4, _ := s.GetBlock(grid)
	require.Len(t, g4.Containers, 4)
	assert.Equal(t, g3.Containers[0].ID, g4.Containers[0].ID)
	assert.Empty(t, g4.Containers[3].Children)
	assertUniqueIDs(t, s.Blocks())
}

func TestUpdateBlockProperties_NoContainersLeftMovesToChildren(t *testing.T) {
	s := newStore(t)
	tabs := s.AddBlock(domain.BlockTypeTabs, nil)
	img := s.AddBlock(domain.BlockTypeImage, nil)
	tb, _ := s.GetBlock(tabs)
	s.MoveBlock(img, tb.Containers[1].ID, domain.ContainerTypeTab)

	s.UpdateBlockProperties(tabs, map[string]any{"tabs": []any{}})
	tb2, _ := s.GetBlock(tabs)
	assert.Empty(t, tb2.Containers)
	require.Len(t, tb2.Children, 1)
	assert.Equal(t, img, tb2.Children[0].ID)
}

func TestMoveBlock_MissingTargetReinsertsAtTopLevel(t *testing.T) {
	s := newStore(t)
	sec := s.AddBlock(domain.BlockTypeSection, nil)
	txt := s.AddBlock(domain.BlockTypeText, nil)
	s.MoveBlock(txt, sec, domain.ContainerTypeChildren)

	s.MoveBlock(txt, "nowhere", domain.ContainerTypeCell)
	loc, ok := s.Locate(txt)
	require.True(t, ok)
	assert.True(t, loc.TopLevel())
	assert.Equal(t, 1, blocktree.Count(s.Blocks(), txt))
}

func TestMoveBlock_IntoOwnSubtreeFallsBackToTopLevel(t *testing.T) {
	s := newStore(t)
	outer := s.AddBlock(domain.BlockTypeSection, nil)
	inner := s.AddBlock(domain.BlockTypeSection, nil)
	s.MoveBlock(inner, outer, domain.ContainerTypeChildren)

	s.MoveBlock(outer, inner, domain.ContainerTypeChildren)
	assert.Equal(t, 1, blocktree.Count(s.Blocks(), outer))
	assert.Equal(t, 1, blocktree.Count(s.Blocks(), inner))
	loc, _ := s.Locate(outer)
	assert.True(t, loc.TopLevel())
}

func TestCanDrop(t *testing.T) {
	s := newStore(t)
	sec := s.AddBlock(domain.BlockTypeSection, nil)
	grid := s.AddBlock(domain.BlockTypeGrid, nil)
	s.MoveBlock(grid, sec, domain.ContainerTypeChildren)
	g, _ := s.GetBlock(grid)
	h := s.AddBlock(domain.BlockTypeHeading, nil)
	txt := s.AddBlock(domain.BlockTypeText, nil)

	assert.True(t, s.CanDrop(txt, "", ""))
	assert.True(t, s.CanDrop(txt, s.PageID(), domain.ContainerTypeChildren))
	assert.True(t, s.CanDrop(txt, sec, domain.ContainerTypeChildren))
	assert.True(t, s.CanDrop(txt, g.Containers[0].ID, domain.ContainerTypeCell))

	assert.False(t, s.CanDrop(txt, "ghost", domain.ContainerTypeChildren))
	assert.False(t, s.CanDrop(txt, "ghost", domain.ContainerTypeCell))
	assert.False(t, s.CanDrop(txt, h, domain.ContainerTypeChildren))
	assert.False(t, s.CanDrop(sec, sec, domain.ContainerTypeChildren))
	assert.False(t, s.CanDrop(sec, g.Containers[1].ID, domain.ContainerTypeCell))
}

func TestPageRoot_IsNeverRemovedMovedOrDuplicated(t *testing.T) {
	s := newStore(t)
	sec := s.AddBlock(domain.BlockTypeSection, nil)
	page := s.PageID()

	s.RemoveBlock(page)
	s.MoveBlock(page, sec, domain.ContainerTypeChildren)
	assert.Empty(t, s.DuplicateBlock(page))
	assert.Empty(t, s.AddBlock(domain.BlockTypePage, nil))

	loc, ok := s.Locate(page)
	require.True(t, ok)
	assert.True(t, loc.TopLevel())
	assert.Equal(t, 0, loc.Index)
}

func TestDuplicateBlock_FreshDisjointIDs(t *testing.T) {
	s := newStore(t)
	grid := s.AddBlock(domain.BlockTypeGrid, nil)
	txt := s.AddBlock(domain.BlockTypeText, map[string]any{"markdown": "x"})
	g, _ := s.GetBlock(grid)
	s.MoveBlock(txt, g.Containers[0].ID, domain.ContainerTypeCell)

	dup := s.DuplicateBlock(grid)
	require.NotEmpty(t, dup)

	orig, _ := s.GetBlock(grid)
	clone, ok := s.GetBlock(dup)
	require.True(t, ok)

	origIDs := blocktree.CollectIDs([]domain.Block{orig})
	for _, id := range blocktree.CollectIDs([]domain.Block{clone}) {
		assert.NotContains(t, origIDs, id)
	}
	assert.Equal(t, orig.Properties, clone.Properties)
	require.Len(t, clone.Containers, len(orig.Containers))
	assert.Equal(t, orig.Containers[0].Children[0].Properties, clone.Containers[0].Children[0].Properties)

	origLoc, _ := s.Locate(grid)
	dupLoc, _ := s.Locate(dup)
	assert.Equal(t, origLoc.Index+1, dupLoc.Index)
	assertUniqueIDs(t, s.Blocks())
}

func TestReorderBlock_ArrayMove(t *testing.T) {
	s := newStore(t)
	sec := s.AddBlock(domain.BlockTypeSection, nil)
	var ids []string
	for i := 0; i < 3; i++ {
		id := s.AddBlock(domain.BlockTypeText, map[string]any{"markdown": fmt.Sprint(i)})
		s.MoveBlock(id, sec, domain.ContainerTypeChildren)
		ids = append(ids, id)
	}

	s.ReorderBlock(ids[2], 0)
	b, _ := s.GetBlock(sec)
	got := []string{b.Children[0].ID, b.Children[1].ID, b.Children[2].ID}
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, got)

	s.ReorderBlock(ids[2], 99)
	b, _ = s.GetBlock(sec)
	assert.Equal(t, ids[2], b.Children[2].ID)
}

func TestRemove_ClearsSelection(t *testing.T) {
	s := newStore(t)
	id := s.AddBlock(domain.BlockTypeText, nil)
	s.Select(id)
	require.Equal(t, id, s.Selected())
	s.RemoveBlock(id)
	assert.Equal(t, s.PageID(), s.Selected())

	s.Select("unknown")
	assert.Equal(t, s.PageID(), s.Selected())
}

func TestStorePath_RootToNode(t *testing.T) {
	s := newStore(t)
	tabs := s.AddBlock(domain.BlockTypeTabs, nil)
	s.MoveBlock(tabs, s.PageID(), domain.ContainerTypeChildren)
	txt := s.AddBlock(domain.BlockTypeText, nil)
	tb, _ := s.GetBlock(tabs)
	s.MoveBlock(txt, tb.Containers[0].ID, domain.ContainerTypeTab)

	path := s.Path(txt)
	require.Len(t, path, 3)
	assert.Equal(t, s.PageID(), path[0].ID)
	assert.Equal(t, tabs, path[1].ID)
	assert.Equal(t, txt, path[2].ID)
	assert.Nil(t, s.Path("missing"))
}

func TestRandomOperations_KeepIDsUniqueAndSingleLocation(t *testing.T) {
	s := newStore(t)
	rng := rand.New(rand.NewSource(7))
	types := []domain.BlockType{domain.BlockTypeText, domain.BlockTypeGrid, domain.BlockTypeTabs, domain.BlockTypeSection}

	targets := func() [][2]string {
		var out [][2]string
		blocktree.Walk(s.Blocks(), func(b *domain.Block) bool {
			out = append(out, [2]string{b.ID, domain.ContainerTypeChildren})
			for _, c := range b.Containers {
				out = append(out, [2]string{c.ID, c.Type})
			}
			return true
		})
		return out
	}
	blockIDs := func() []string {
		var out []string
		blocktree.Walk(s.Blocks(), func(b *domain.Block) bool {
			out = append(out, b.ID)
			return true
		})
		return out
	}

	for i := 0; i < 200; i++ {
		ids := blockIDs()
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(6) {
		case 0, 1:
			s.AddBlock(types[rng.Intn(len(types))], nil)
		case 2:
			tg := targets()
			pick := tg[rng.Intn(len(tg))]
			s.MoveBlock(id, pick[0], pick[1])
			if id != s.PageID() {
				require.Equal(t, 1, blocktree.Count(s.Blocks(), id))
			}
		case 3:
			s.DuplicateBlock(id)
		case 4, 5:
			s.RemoveBlock(id)
		}
		assertUniqueIDs(t, s.Blocks())
	}
	_, ok := s.GetBlock(s.PageID())
	assert.True(t, ok, "page root survives")
}

func TestLoad_NormalizesForest(t *testing.T) {
	s := newStore(t)
	s.AddBlock(domain.BlockTypeText, nil)

	s.Load([]domain.Block{
		{ID: "a", Type: domain.BlockTypeText},
		{ID: "p", Type: domain.BlockTypePage, Children: []domain.Block{
			{ID: "a", Type: domain.BlockTypeHeading},
			{ID: "p2", Type: domain.BlockTypePage},
		}},
		{ID: "x", Type: "legacy-widget"},
	})

	blocks := s.Blocks()
	require.Len(t, blocks, 3)
	assert.Equal(t, "p", blocks[0].ID, "page root moves to the front")
	assert.Equal(t, "p", s.PageID())
	assert.Equal(t, "p", s.Selected())
	assert.False(t, s.CanUndo())
	assertUniqueIDs(t, blocks)

	p2, ok := s.GetBlock("p2")
	require.True(t, ok)
	assert.Equal(t, domain.BlockTypeSection, p2.Type)

	legacy, ok := s.GetBlock("x")
	require.True(t, ok)
	assert.Empty(t, s.GetBlockContainers(legacy))
}

func TestLoad_AddsMissingPage(t *testing.T) {
	s := newStore(t)
	s.Load([]domain.Block{{ID: "t", Type: domain.BlockTypeText}})
	blocks := s.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, domain.BlockTypePage, blocks[0].Type)
}

func TestJSONRoundTrip(t *testing.T) {
	s := newStore(t)
	grid := s.AddBlock(domain.BlockTypeGrid, nil)
	s.MoveBlock(grid, s.PageID(), domain.ContainerTypeChildren)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	other := newStore(t)
	require.NoError(t, json.Unmarshal(data, other))
	assert.Empty(t, cmp.Diff(s.Blocks(), other.Blocks()))
	assert.Equal(t, s.PageID(), other.PageID())
}

func TestOnChange_ReceivesCopies(t *testing.T) {
	s := newStore(t)
	var got [][]domain.Block
	s.OnChange(func(b []domain.Block) { got = append(got, b) })

	s.AddBlock(domain.BlockTypeText, nil)
	s.UpdateBlockProperties("missing", nil)
	s.Undo()

	require.Len(t, got, 2)
	assert.Len(t, got[0], 2)
	assert.Len(t, got[1], 1)
	got[1][0].Properties["title"] = "mutated"
	page, _ := s.GetBlock(s.PageID())
	assert.NotEqual(t, "mutated", page.Properties["title"])
}

func TestReplace_IsUndoable(t *testing.T) {
	s := newStore(t)
	before := s.Blocks()
	oldPage := s.PageID()

	s.Replace([]domain.Block{
		{ID: "other-page", Type: domain.BlockTypePage, Properties: map[string]any{"title": "Restored"}},
		{ID: "t1", Type: domain.BlockTypeText, Properties: map[string]any{}},
	})
	assert.Equal(t, "other-page", s.PageID())
	assert.Len(t, s.Blocks(), 2)
	assert.Equal(t, "other-page", s.Selected())

	require.True(t, s.Undo())
	assert.Equal(t, oldPage, s.PageID())
	assert.Empty(t, cmp.Diff(before, s.Blocks()))
}
