package endpoint

import (
	"testing"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersAreCaseNormalized(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Type", "text/plain")
	h.Set("content-type", "application/json")

	assert.Equal(t, 1, h.Len())
	v, ok := h.Get("CONTENT-TYPE")
	assert.True(t, ok)
	assert.Equal(t, "application/json", v)
	assert.Equal(t, []string{"content-type: application/json"}, h.Lines())
}

func TestQueryKeepsCase(t *testing.T) {
	q := NewQuery()
	q.Set("Page", "1")
	q.Set("page", "2")

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []string{"Page=1", "page=2"}, q.Lines())
}

func TestPairsSetLine(t *testing.T) {
	h := NewHeaders()
	require.NoError(t, h.SetLine("Authorization: Bearer a:b"))
	v, _ := h.Get("authorization")
	assert.Equal(t, "Bearer a:b", v)

	q := NewQuery()
	require.NoError(t, q.SetLine("filter=a=b"))
	v, _ = q.Get("filter")
	assert.Equal(t, "a=b", v)

	err := h.SetLine("no separator")
	assert.True(t, errdef.Is(err, errdef.ErrMalformedInput))
	err = q.SetLine("=value")
	assert.True(t, errdef.Is(err, errdef.ErrMalformedInput))
}

func TestPairsOrderAndOverwrite(t *testing.T) {
	h := NewHeaders()
	h.Set("a", "1")
	h.Set("b", "2")
	h.Set("c", "3")
	h.Set("a", "overwritten")

	assert.Equal(t, []Pair{{"a", "overwritten"}, {"b", "2"}, {"c", "3"}}, h.Items())

	assert.True(t, h.Delete("B"))
	assert.False(t, h.Delete("b"))
	assert.Equal(t, []Pair{{"a", "overwritten"}, {"c", "3"}}, h.Items())
}

func TestPairsMerge(t *testing.T) {
	parent := NewHeaders()
	parent.Set("accept", "*/*")
	parent.Set("x-team", "core")

	child := NewHeaders()
	child.Set("X-Team", "edge")
	child.Set("x-child", "yes")

	merged := parent.Clone()
	merged.Merge(child)

	assert.Equal(t, []Pair{{"accept", "*/*"}, {"x-team", "edge"}, {"x-child", "yes"}}, merged.Items())
	assert.Equal(t, 2, parent.Len(), "clone must not share storage")
}
