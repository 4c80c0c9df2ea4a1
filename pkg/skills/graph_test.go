package skills

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
)

// buildNetworkForest mirrors the network bootstrap: global root 1, a colony root 2
// with its mining skill 3.
func buildNetworkForest(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	require.Equal(t, ID(1), g.AddRoot(true))
	require.Equal(t, ID(2), g.AddRoot(false))
	mining, err := g.Add(2, false)
	require.NoError(t, err)
	require.Equal(t, ID(3), mining)
	return g
}

func TestAddMaterializesAncestorChain(t *testing.T) {
	g := buildNetworkForest(t)

	a, err := g.Add(1, true)
	require.NoError(t, err)
	b, err := g.Add(a, true)
	require.NoError(t, err)
	c, err := g.Add(b, true)
	require.NoError(t, err)

	s, ok := g.Get(c)
	require.True(t, ok)
	assert.Equal(t, []ID{b, a, 1}, s.Parents)
	assert.True(t, s.Global)
	assert.Empty(t, s.Children)

	assert.Equal(t, b, g.ParentAt(c, 0))
	assert.Equal(t, a, g.ParentAt(c, 1))
	assert.Equal(t, ID(1), g.ParentAt(c, 2))
	assert.Equal(t, None, g.ParentAt(c, 3))
	assert.Equal(t, 3, g.ParentCount(c))
	assert.True(t, g.IsAncestor(1, c))
	assert.False(t, g.IsAncestor(c, 1))
	assert.Equal(t, ID(1), g.Root(c))
}

func TestIsAncestorMatchesParentChain(t *testing.T) {
	g := buildNetworkForest(t)

	chain := []ID{1}
	for i := 0; i < 64; i++ {
		id, err := g.Add(chain[len(chain)-1], true)
		require.NoError(t, err)
		chain = append(chain, id)
	}
	sibling, err := g.Add(chain[10], true)
	require.NoError(t, err)

	leaf := chain[len(chain)-1]
	for _, a := range chain[:len(chain)-1] {
		assert.True(t, g.IsAncestor(a, leaf), "ancestor %d", a)
		assert.False(t, g.IsAncestor(leaf, a), "descendant %d", a)
	}
	assert.False(t, g.IsAncestor(leaf, leaf))
	assert.False(t, g.IsAncestor(sibling, leaf))
	assert.True(t, g.IsAncestor(chain[10], sibling))
	assert.False(t, g.IsAncestor(chain[11], sibling))
	assert.False(t, g.IsAncestor(1, 1))
	assert.False(t, g.IsAncestor(None, leaf))
}

func TestChildrenKeepInsertionOrder(t *testing.T) {
	g := buildNetworkForest(t)

	first, err := g.Add(1, true)
	require.NoError(t, err)
	second, err := g.Add(1, true)
	require.NoError(t, err)
	third, err := g.Add(1, true)
	require.NoError(t, err)

	assert.Equal(t, 3, g.ChildCount(1))
	assert.Equal(t, first, g.ChildAt(1, 0))
	assert.Equal(t, second, g.ChildAt(1, 1))
	assert.Equal(t, third, g.ChildAt(1, 2))
	assert.Equal(t, None, g.ChildAt(1, 3))
	assert.Equal(t, None, g.ChildAt(1, -1))
}

func TestAddRejectsMissingParent(t *testing.T) {
	g := buildNetworkForest(t)

	for _, parent := range []ID{0, 4, 99} {
		_, err := g.Add(parent, true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, colonyerr.ErrInvalidParent), "parent %d", parent)
	}
	assert.Equal(t, 3, g.Count())
}

func TestAddRejectsNamespaceMismatch(t *testing.T) {
	g := buildNetworkForest(t)

	tests := []struct {
		name   string
		parent ID
		global bool
	}{
		{"global under local", 2, true},
		{"local under global", 1, false},
		{"global under local leaf", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Add(tt.parent, tt.global)
			assert.True(t, errors.Is(err, colonyerr.ErrNamespaceMismatch))
			assert.NoError(t, g.CheckAdd(tt.parent, !tt.global))
		})
	}
	assert.Equal(t, 3, g.Count())
	assert.Equal(t, 0, g.ChildCount(1))
}

func TestQueriesOnUnknownSkill(t *testing.T) {
	g := buildNetworkForest(t)

	_, ok := g.Get(42)
	assert.False(t, ok)
	assert.False(t, g.Exists(0))
	assert.False(t, g.IsGlobal(42))
	assert.Equal(t, None, g.ParentAt(42, 0))
	assert.Equal(t, None, g.ChildAt(42, 0))
	assert.Equal(t, 0, g.ChildCount(42))
	assert.Equal(t, None, g.Root(42))
}

func TestGetReturnsCopy(t *testing.T) {
	g := buildNetworkForest(t)

	s, ok := g.Get(2)
	require.True(t, ok)
	s.Children[0] = 99

	again, _ := g.Get(2)
	assert.Equal(t, []ID{3}, again.Children)
}

func TestLocalTreesAreSeparate(t *testing.T) {
	g := buildNetworkForest(t)
	otherRoot := g.AddRoot(false)

	d, err := g.Add(otherRoot, false)
	require.NoError(t, err)

	assert.Equal(t, otherRoot, g.Root(d))
	assert.Equal(t, ID(2), g.Root(3))
	assert.False(t, g.IsAncestor(2, d))
}
