package runner

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	neturl "net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/quartz/packages/cookie"
	"github.com/abdul-hamid-achik/quartz/packages/core/config"
	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/env"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/abdul-hamid-achik/quartz/packages/core/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) *workspace.Session {
	t.Helper()
	root, err := workspace.Init(t.TempDir())
	require.NoError(t, err)
	s, err := workspace.Open(root, workspace.WithConfig(config.DefaultConfig()))
	require.NoError(t, err)
	return s
}

func writeEndpoint(t *testing.T, s *workspace.Session, handle, url, method string, headers ...string) endpoint.Handle {
	t.Helper()
	h := endpoint.MustParseHandle(handle)
	e := endpoint.New()
	e.URL = url
	e.Method = method
	for _, line := range headers {
		require.NoError(t, e.Headers.SetLine(line))
	}
	require.NoError(t, s.Endpoints.Write(h, e))
	return h
}

func saveScope(t *testing.T, store *env.Store, name string, vars map[string]string, headers ...string) {
	t.Helper()
	scope := env.NewScope(store.Kind(), name)
	for k, v := range vars {
		scope.Variables[k] = v
	}
	for _, line := range headers {
		require.NoError(t, scope.Headers.SetLine(line))
	}
	require.NoError(t, store.Save(scope))
}

func TestResolveSubstitutesActiveContext(t *testing.T) {
	s := newSession(t)
	h := writeEndpoint(t, s, "api/users", "https://{{HOST}}/users", "")

	saveScope(t, s.Contexts, env.DefaultName, map[string]string{"HOST": "example.com"})
	_, e, _, err := NewRunner(s).Resolve(Options{Handle: h})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/users", e.URL)

	saveScope(t, s.Contexts, "empty", nil)
	require.NoError(t, s.UseContext("empty"))
	_, e, _, err = NewRunner(s).Resolve(Options{Handle: h})
	require.NoError(t, err)
	assert.Equal(t, "https://{{HOST}}/users", e.URL)
}

func TestResolvePrecedence(t *testing.T) {
	s := newSession(t)
	h := writeEndpoint(t, s, "p", "https://{{A}}.{{B}}.{{C}}/", "")

	saveScope(t, s.Envs, env.DefaultName, map[string]string{"A": "env", "B": "env", "C": "env"})
	saveScope(t, s.Contexts, env.DefaultName, map[string]string{"B": "ctx", "C": "ctx"})

	_, e, _, err := NewRunner(s).Resolve(Options{Handle: h, Overrides: []string{"C=cli"}})
	require.NoError(t, err)
	assert.Equal(t, "https://env.ctx.cli/", e.URL)

	_, _, _, err = NewRunner(s).Resolve(Options{Handle: h, Overrides: []string{"broken"}})
	assert.True(t, errdef.Is(err, errdef.ErrMalformedInput))
}

func TestPrepareHeadersAndPatch(t *testing.T) {
	s := newSession(t)
	h := writeEndpoint(t, s, "api", "https://example.com", "GET", "Authorization: endpoint")
	require.NoError(t, s.UseHandle(h))

	saveScope(t, s.Envs, env.DefaultName, nil, "Authorization: env", "X-Env: {{TOKEN}}")
	saveScope(t, s.Contexts, env.DefaultName, map[string]string{"TOKEN": "t0k"})

	method := "post"
	p, err := NewRunner(s).Prepare(Options{Patch: &endpoint.Patch{Method: &method, Query: []string{"q={{MISSING}}"}}})
	require.NoError(t, err)

	assert.Equal(t, "POST", p.Request.Method)
	v, _ := p.Request.Headers.Get("authorization")
	assert.Equal(t, "endpoint", v)
	v, _ = p.Request.Headers.Get("x-env")
	assert.Equal(t, "t0k", v)
	v, _ = p.Request.Headers.Get("user-agent")
	assert.Equal(t, config.DefaultUserAgent, v)
	assert.Equal(t, []string{"MISSING"}, p.Unresolved)

	stored, err := s.Endpoints.Load(h)
	require.NoError(t, err)
	assert.Equal(t, "GET", stored.Method, "a send patch is not persisted")
}

func TestPrepareMissingCookieFile(t *testing.T) {
	s := newSession(t)
	h := writeEndpoint(t, s, "api", "https://example.com", "")

	_, err := NewRunner(s).Prepare(Options{Handle: h, Cookies: []string{filepath.Join(t.TempDir(), "nope")}})
	assert.True(t, errdef.Is(err, errdef.ErrMalformedInput))
}

func TestSendEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/users", http.StatusFound)
		case "/users":
			assert.Equal(t, "persisted=1; literal=2; fromfile=3", r.Header.Get("Cookie"))
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "new"})
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"users":[]}`))
		}
	}))
	defer server.Close()
	u, err := neturl.Parse(server.URL)
	require.NoError(t, err)

	s := newSession(t)
	h := writeEndpoint(t, s, "api/users", "{{BASE}}/old", "")
	saveScope(t, s.Contexts, env.DefaultName, map[string]string{"BASE": server.URL})

	envJar := cookie.NewJar()
	envJar.Set(cookie.Cookie{Domain: u.Hostname(), Name: "persisted", Value: "1"})
	require.NoError(t, envJar.Write(s.ActiveCookieJarPath()))

	fileJar := cookie.NewJar()
	fileJar.Set(cookie.Cookie{Domain: "anywhere.test", Name: "fromfile", Value: "3"})
	fileJarPath := filepath.Join(t.TempDir(), "extra")
	require.NoError(t, fileJar.Write(fileJarPath))

	var out bytes.Buffer
	res, err := NewRunner(s).Send(context.Background(), Options{
		Handle:  h,
		Cookies: []string{"literal=2", fileJarPath},
		Output:  &out,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"users":[]}`, out.String())
	assert.Equal(t, 1, res.Exchange.Redirects())

	last, err := s.History.Last()
	require.NoError(t, err)
	assert.Equal(t, res.Entry.ID, last.ID)
	assert.Equal(t, "api/users", last.HandleString())
	status, err := last.Field("response.status")
	require.NoError(t, err)
	assert.Equal(t, "200", status)
	base, err := last.Field("request.context.BASE")
	require.NoError(t, err)
	assert.Equal(t, server.URL, base)

	saved, err := cookie.Read(s.ActiveCookieJarPath())
	require.NoError(t, err)
	c, ok := saved.Get(u.Hostname(), "session")
	require.True(t, ok)
	assert.Equal(t, "new", c.Value)
	_, ok = saved.Get(u.Hostname(), "persisted")
	assert.True(t, ok)
}

func TestSendExplicitJarPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "k", Value: "v"})
	}))
	defer server.Close()

	s := newSession(t)
	h := writeEndpoint(t, s, "x", server.URL, "")
	jarPath := filepath.Join(t.TempDir(), "jar")

	_, err := NewRunner(s).Send(context.Background(), Options{Handle: h, CookieJarPath: jarPath})
	require.NoError(t, err)

	assert.FileExists(t, jarPath)
	assert.NoFileExists(t, s.ActiveCookieJarPath())
}

func TestSendFailurePersistsNothing(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	s := newSession(t)
	h := writeEndpoint(t, s, "down", addr, "")

	_, err := NewRunner(s).Send(context.Background(), Options{Handle: h})
	assert.True(t, errdef.Is(err, errdef.ErrTransport))

	n, err := s.History.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = os.Stat(s.ActiveCookieJarPath())
	assert.True(t, os.IsNotExist(err))
}

func TestSendNoFollow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	}))
	defer server.Close()

	s := newSession(t)
	h := writeEndpoint(t, s, "r", server.URL, "")

	res, err := NewRunner(s).Send(context.Background(), Options{Handle: h, NoFollow: true})
	require.NoError(t, err)
	assert.Equal(t, 301, res.Exchange.Response.StatusCode)
	assert.Equal(t, "301", mustField(t, res, "response.status"))
}

func mustField(t *testing.T, res *Result, key string) string {
	t.Helper()
	v, err := res.Entry.Field(key)
	require.NoError(t, err)
	return v
}
