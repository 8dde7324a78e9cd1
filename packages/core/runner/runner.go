package runner

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/cookie"
	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/env"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/abdul-hamid-achik/quartz/packages/core/workspace"
	"github.com/abdul-hamid-achik/quartz/packages/history"
	"github.com/abdul-hamid-achik/quartz/packages/http"
)

type Runner struct {
	session *workspace.Session
}

func NewRunner(session *workspace.Session) *Runner {
	return &Runner{session: session}
}

// Options controls a single send.
type Options struct {
	// Handle defaults to the session's current handle.
	Handle endpoint.Handle
	// Overrides are "KEY=VALUE" variables with the highest precedence.
	Overrides []string
	Patch     *endpoint.Patch
	NoFollow  bool
	// Cookies are literal "name=value" pairs or paths to jar files.
	Cookies []string
	// CookieJarPath receives the jar after the send instead of the active
	// environment's jar.
	CookieJarPath string
	// Output receives the response body. Nil discards it.
	Output io.Writer
}

// Prepared is a fully resolved request that has not been sent.
type Prepared struct {
	Handle    endpoint.Handle
	Endpoint  *endpoint.Endpoint
	Request   *http.Request
	Variables env.Variables
	// Unresolved lists tokens no scope defined; they are sent verbatim.
	Unresolved []string
	Jar        *cookie.Jar
	JarPath    string
}

type Result struct {
	*Prepared
	Exchange *http.Exchange
	Entry    *history.Entry
}

// Resolve returns the effective endpoint at the handle with the patch applied
// and variables substituted, without any scope headers or cookies.
func (r *Runner) Resolve(opts Options) (endpoint.Handle, *endpoint.Endpoint, *env.Resolver, error) {
	h, err := r.session.RequireHandle(opts.Handle)
	if err != nil {
		return endpoint.Handle{}, nil, nil, err
	}
	e, err := r.session.Endpoints.Resolve(h)
	if err != nil {
		return endpoint.Handle{}, nil, nil, err
	}
	if err := opts.Patch.Apply(e); err != nil {
		return endpoint.Handle{}, nil, nil, err
	}

	envScope, err := r.session.ActiveEnv()
	if err != nil {
		return endpoint.Handle{}, nil, nil, err
	}
	ctxScope, err := r.session.ActiveContext()
	if err != nil {
		return endpoint.Handle{}, nil, nil, err
	}
	overrides := env.NewScope(env.KindContext, "overrides")
	for _, line := range opts.Overrides {
		if err := overrides.SetLine(line); err != nil {
			return endpoint.Handle{}, nil, nil, err
		}
	}

	env.FillHeaders(&e.Headers, envScope.Headers, ctxScope.Headers)

	resolver := env.NewResolver(envScope.Variables, ctxScope.Variables, overrides.Variables)
	logger := r.session.Logger
	resolver.SetWarnFunc(func(format string, args ...any) {
		logger.Debug("variable left unresolved", "name", args[0], "handle", h.String())
	})
	return h, resolver.Apply(e), resolver, nil
}

// Prepare resolves everything needed to send without touching the network.
func (r *Runner) Prepare(opts Options) (*Prepared, error) {
	h, e, resolver, err := r.Resolve(opts)
	if err != nil {
		return nil, err
	}
	if !e.Headers.Has("user-agent") {
		e.Headers.Set("user-agent", r.session.Config.HTTP.UserAgent)
	}

	req, err := http.FromEndpoint(e)
	if err != nil {
		return nil, err
	}

	p := &Prepared{
		Handle:    h,
		Endpoint:  e,
		Request:   req,
		Variables: resolver.Merged(),
		JarPath:   opts.CookieJarPath,
	}
	for _, field := range []string{e.URL, string(e.Body)} {
		p.Unresolved = append(p.Unresolved, resolver.Unresolved(field)...)
	}
	for _, v := range e.Headers.All() {
		p.Unresolved = append(p.Unresolved, resolver.Unresolved(v)...)
	}
	for _, v := range e.Query.All() {
		p.Unresolved = append(p.Unresolved, resolver.Unresolved(v)...)
	}

	envJar := r.session.ActiveCookieJarPath()
	if p.JarPath == "" {
		p.JarPath = envJar
	}
	if p.Jar, err = cookie.Read(envJar); err != nil {
		return nil, err
	}
	for _, source := range opts.Cookies {
		pairs, err := cookieSource(source)
		if err != nil {
			return nil, err
		}
		for _, pair := range pairs {
			req.AddCookie(pair)
		}
	}
	return p, nil
}

// cookieSource expands a --cookie argument: a "name=value" literal, or a jar
// file whose cookies are all sent.
func cookieSource(source string) ([]string, error) {
	if strings.Contains(source, "=") {
		return []string{source}, nil
	}
	if _, err := os.Stat(source); err != nil {
		return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "cookie file %s", source)
	}
	jar, err := cookie.Read(source)
	if err != nil {
		return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "cookie file %s", source)
	}
	return jar.Pairs(), nil
}

func (r *Runner) client(noFollow bool) *http.Client {
	cfg := r.session.Config
	return http.NewClient(
		http.WithTimeout(cfg.HTTP.Timeout),
		http.WithFollowRedirects(cfg.GetFollowRedirects() && !noFollow),
		http.WithMaxRedirects(cfg.HTTP.MaxRedirects),
		http.WithValidateSSL(cfg.GetValidateSSL()),
		http.WithProxy(cfg.HTTP.Proxy),
		http.WithLogger(r.session.Logger),
	)
}

// Send runs the pipeline for one request.
func (r *Runner) Send(ctx context.Context, opts Options) (*Result, error) {
	p, err := r.Prepare(opts)
	if err != nil {
		return nil, err
	}

	ex, err := r.client(opts.NoFollow).Do(ctx, p.Request, p.Jar)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	if _, err := out.Write(ex.Response.Body); err != nil {
		return nil, errdef.Persist(err, "writing response body")
	}

	entry := history.FromExchange(p.Handle, ex, p.Variables)
	if err := r.session.History.Write(entry); err != nil {
		return nil, err
	}
	if p.JarPath != "" {
		if err := p.Jar.Write(p.JarPath); err != nil {
			return nil, err
		}
	}
	return &Result{Prepared: p, Exchange: ex, Entry: entry}, nil
}
