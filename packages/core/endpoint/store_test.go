package endpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "endpoints")
	require.NoError(t, os.MkdirAll(dir, 0755))
	return NewStore(dir)
}

func endpointWith(url, method string, headers ...string) *Endpoint {
	e := New()
	e.URL = url
	e.Method = method
	for _, h := range headers {
		if err := e.Headers.SetLine(h); err != nil {
			panic(err)
		}
	}
	return e
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	h := MustParseHandle("api/users")

	e := endpointWith("https://{{HOST}}/users", "POST", "Content-Type: application/json", "X-Trace: 1")
	require.NoError(t, e.Query.SetLine("page=1"))
	require.NoError(t, e.Query.SetLine("limit=20"))
	e.Body = []byte(`{"name":"quartz"}`)

	require.NoError(t, s.Write(h, e))

	got, err := s.Resolve(h)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	own, err := s.Load(h)
	require.NoError(t, err)
	assert.Equal(t, e, own)
}

func TestWriteExistingFails(t *testing.T) {
	s := newTestStore(t)
	h := MustParseHandle("users")

	require.NoError(t, s.Write(h, endpointWith("https://a", "GET")))
	err := s.Write(h, endpointWith("https://b", "GET"))
	assert.True(t, errdef.Is(err, errdef.ErrAlreadyExists))
}

func TestWriteOverNamespaceNode(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write(MustParseHandle("api/users"), endpointWith("https://a/users", "")))
	assert.True(t, s.Exists(MustParseHandle("api")))
	assert.False(t, s.IsEndpoint(MustParseHandle("api")))

	require.NoError(t, s.Write(MustParseHandle("api"), endpointWith("https://a", "")))
	assert.True(t, s.IsEndpoint(MustParseHandle("api")))
}

func TestUpdateKeepsBody(t *testing.T) {
	s := newTestStore(t)
	h := MustParseHandle("users")
	e := endpointWith("https://a", "POST")
	e.Body = []byte("payload")
	require.NoError(t, s.Write(h, e))

	e.URL = "https://b"
	e.Body = nil
	require.NoError(t, s.Update(h, e))

	got, err := s.Load(h)
	require.NoError(t, err)
	assert.Equal(t, "https://b", got.URL)
	assert.Equal(t, []byte("payload"), got.Body)

	body, err := s.Body(h)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), body)

	require.NoError(t, s.SetBody(h, nil))
	body, err = s.Body(h)
	require.NoError(t, err)
	assert.Nil(t, body)
	got, err = s.Load(h)
	require.NoError(t, err)
	assert.Nil(t, got.Body)

	err = s.Update(MustParseHandle("missing"), e)
	assert.True(t, errdef.Is(err, errdef.ErrNotFound))
}

func TestResolveInheritance(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write(MustParseHandle("api"), endpointWith("https://api.example.com", "POST",
		"Accept: application/json", "X-Team: core")))
	require.NoError(t, s.Write(MustParseHandle("api/users"), endpointWith("", "",
		"x-team: users", "X-Extra: 1")))
	require.NoError(t, s.Write(MustParseHandle("api/users/get"), endpointWith("https://api.example.com/users/1", "GET")))

	users, err := s.Resolve(MustParseHandle("api/users"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", users.URL)
	assert.Equal(t, "POST", users.Method)
	assert.Equal(t, []Pair{{"accept", "application/json"}, {"x-team", "users"}, {"x-extra", "1"}}, users.Headers.Items())

	get, err := s.Resolve(MustParseHandle("api/users/get"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/users/1", get.URL)
	assert.Equal(t, "GET", get.Method)
	assert.Equal(t, 3, get.Headers.Len())
}

func TestResolveNamespaceAncestors(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(MustParseHandle("a/b/c"), endpointWith("https://x", "")))

	e, err := s.Resolve(MustParseHandle("a/b/c"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMethod, e.Method)

	// A namespace node resolves as an empty overlay.
	e, err = s.Resolve(MustParseHandle("a/b"))
	require.NoError(t, err)
	assert.Equal(t, "", e.URL)
	assert.Equal(t, DefaultMethod, e.Method)

	_, err = s.Resolve(MustParseHandle("a/x"))
	assert.True(t, errdef.Is(err, errdef.ErrNotFound))
}

func TestResolveBodyNotInherited(t *testing.T) {
	s := newTestStore(t)
	parent := endpointWith("https://x", "POST")
	parent.Body = []byte("parent body")
	require.NoError(t, s.Write(MustParseHandle("p"), parent))
	require.NoError(t, s.Write(MustParseHandle("p/c"), endpointWith("", "")))

	e, err := s.Resolve(MustParseHandle("p/c"))
	require.NoError(t, err)
	assert.Nil(t, e.Body)
}

func TestRemoveSubtree(t *testing.T) {
	s := newTestStore(t)
	for _, h := range []string{"api", "api/users", "api/users/get", "api/posts", "other"} {
		require.NoError(t, s.Write(MustParseHandle(h), endpointWith("https://x", "")))
	}

	require.NoError(t, s.Remove(MustParseHandle("api")))

	for _, h := range []string{"api", "api/users", "api/users/get", "api/posts"} {
		_, err := s.Resolve(MustParseHandle(h))
		assert.True(t, errdef.Is(err, errdef.ErrNotFound), h)
	}
	_, err := s.Resolve(MustParseHandle("other"))
	assert.NoError(t, err)

	err = s.Remove(MustParseHandle("api"))
	assert.True(t, errdef.Is(err, errdef.ErrNotFound))
	err = s.Remove(Handle{})
	assert.True(t, errdef.Is(err, errdef.ErrMalformedInput))
}

func TestResolveInheritanceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir, err := os.MkdirTemp("", "quartz-endpoints-")
		require.NoError(t, err)
		defer os.RemoveAll(dir)
		s := NewStore(dir)

		depth := rapid.IntRange(1, 4).Draw(t, "depth")
		keys := []string{"a", "b", "c", "d"}

		var handle Handle
		var nodes []*Endpoint
		for i := 0; i < depth; i++ {
			handle, err = handle.Join(rapid.StringMatching(`n[a-z]{0,5}`).Draw(t, "segment"))
			require.NoError(t, err)

			e := New()
			if rapid.Bool().Draw(t, "has_url") {
				e.URL = "https://host/" + handle.String()
			}
			if rapid.Bool().Draw(t, "has_method") {
				e.Method = rapid.SampledFrom([]string{"GET", "POST", "PUT"}).Draw(t, "method")
			}
			for _, k := range keys {
				if rapid.Bool().Draw(t, "has_header_"+k) {
					e.Headers.Set("x-"+k, handle.String())
				}
			}
			require.NoError(t, s.Write(handle, e))
			nodes = append(nodes, e)
		}

		got, err := s.Resolve(handle)
		require.NoError(t, err)

		wantURL, wantMethod := "", DefaultMethod
		for _, n := range nodes {
			if n.URL != "" {
				wantURL = n.URL
			}
			if n.Method != "" {
				wantMethod = n.Method
			}
		}
		assert.Equal(t, wantURL, got.URL)
		assert.Equal(t, wantMethod, got.Method)

		for _, k := range keys {
			want, ok := "", false
			for _, n := range nodes {
				if v, has := n.Headers.Get("x-" + k); has {
					want, ok = v, true
				}
			}
			v, has := got.Headers.Get("x-" + k)
			assert.Equal(t, ok, has, "header x-%s presence", k)
			assert.Equal(t, want, v, "header x-%s value", k)
		}
	})
}
