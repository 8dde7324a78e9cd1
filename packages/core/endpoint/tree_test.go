package endpoint

import (
	"testing"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTree(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	for _, h := range []string{"b/two", "a", "a/z", "a/m/deep", "c"} {
		require.NoError(t, s.Write(MustParseHandle(h), endpointWith("https://x/"+h, "")))
	}
	return s
}

func collect(t *testing.T, s *Store, h Handle, maxDepth int) []Node {
	t.Helper()
	var nodes []Node
	for n, err := range s.Children(h, maxDepth) {
		require.NoError(t, err)
		nodes = append(nodes, n)
	}
	return nodes
}

func TestChildrenLexicalOrder(t *testing.T) {
	s := seedTree(t)

	var got []string
	for _, n := range collect(t, s, Handle{}, -1) {
		got = append(got, n.Handle.String())
	}
	assert.Equal(t, []string{"a", "a/m", "a/m/deep", "a/z", "b", "b/two", "c"}, got)
}

func TestChildrenReportsNamespaces(t *testing.T) {
	s := seedTree(t)

	kinds := map[string]bool{}
	depths := map[string]int{}
	for _, n := range collect(t, s, Handle{}, -1) {
		kinds[n.Handle.String()] = n.IsEndpoint
		depths[n.Handle.String()] = n.Depth
	}
	assert.False(t, kinds["a/m"])
	assert.False(t, kinds["b"])
	assert.True(t, kinds["a/m/deep"])
	assert.Equal(t, 3, depths["a/m/deep"])
}

func TestChildrenMaxDepth(t *testing.T) {
	s := seedTree(t)

	assert.Len(t, collect(t, s, Handle{}, 1), 3)
	assert.Len(t, collect(t, s, Handle{}, 0), 0)

	var got []string
	for _, n := range collect(t, s, MustParseHandle("a"), 1) {
		got = append(got, n.Handle.String())
	}
	assert.Equal(t, []string{"a/m", "a/z"}, got)
}

func TestChildrenStopsEarly(t *testing.T) {
	s := seedTree(t)

	count := 0
	for range s.Children(Handle{}, -1) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestChildrenMissing(t *testing.T) {
	s := newTestStore(t)

	for _, err := range s.Children(MustParseHandle("nope"), -1) {
		assert.True(t, errdef.Is(err, errdef.ErrNotFound))
	}
}

func TestTree(t *testing.T) {
	s := seedTree(t)

	tree, err := s.Tree(Handle{}, -1)
	require.NoError(t, err)
	require.Len(t, tree.Children, 3)

	a := tree.Children[0]
	assert.Equal(t, "a", a.Handle.String())
	assert.True(t, a.IsEndpoint)
	assert.Equal(t, "https://x/a", a.URL)
	require.Len(t, a.Children, 2)
	assert.False(t, a.Children[0].IsEndpoint)
	assert.Equal(t, "a/m/deep", a.Children[0].Children[0].Handle.String())

	shallow, err := s.Tree(Handle{}, 1)
	require.NoError(t, err)
	assert.Empty(t, shallow.Children[0].Children)
}
