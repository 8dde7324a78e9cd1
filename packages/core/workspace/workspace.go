// Package workspace locates a .quartz directory and bundles everything a
// command needs into a Session.
package workspace

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/quartz/packages/core/atomicfile"
	"github.com/abdul-hamid-achik/quartz/packages/core/config"
	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/env"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/abdul-hamid-achik/quartz/packages/core/state"
	"github.com/abdul-hamid-achik/quartz/packages/history"
)

// DirName is the workspace directory name.
const DirName = ".quartz"

const (
	endpointsDir = "endpoints"
	stateDir     = "user/state"
	historyDir   = "user/history"
)

// Session is the explicit replacement for process-wide state: the stores of
// one workspace plus the selection read at startup.
type Session struct {
	Root      string
	Config    *config.Config
	Logger    *slog.Logger
	Endpoints *endpoint.Store
	Contexts  *env.Store
	Envs      *env.Store
	State     *state.Store
	History   *history.Store

	current state.State
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger *slog.Logger
	config *config.Config
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithConfig uses cfg instead of loading config files.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// Find walks up from start looking for a .quartz directory.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", errdef.Wrap(errdef.ErrMalformedInput, err, "resolving %s", start)
	}
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errdef.New(errdef.ErrNotFound, "no %s directory found from %s; run `quartz init`", DirName, start)
		}
		dir = parent
	}
}

// Init creates a workspace inside dir and returns its root.
func Init(dir string) (string, error) {
	root := filepath.Join(dir, DirName)
	if _, err := os.Stat(root); err == nil {
		return "", errdef.New(errdef.ErrAlreadyExists, "workspace already exists at %s", root)
	}
	for _, sub := range []string{
		endpointsDir,
		filepath.Join(env.KindContext.DirName(), env.DefaultName),
		filepath.Join(env.KindEnvironment.DirName(), env.DefaultName),
		stateDir,
		historyDir,
	} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return "", errdef.Persist(err, "creating %s", sub)
		}
	}
	if err := atomicfile.WriteFile(filepath.Join(root, config.FileName), []byte(config.Template), 0644); err != nil {
		return "", errdef.Persist(err, "writing config")
	}
	return root, nil
}

// Open builds a session for the workspace at root.
func Open(root string, opts ...Option) (*Session, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, errdef.New(errdef.ErrNotFound, "no workspace at %s", root)
	}
	if err != nil {
		return nil, errdef.Persist(err, "opening workspace %s", root)
	}

	cfg := o.config
	if cfg == nil {
		if cfg, err = config.Load(root); err != nil {
			return nil, err
		}
	}

	s := &Session{
		Root:      root,
		Config:    cfg,
		Logger:    o.logger,
		Endpoints: endpoint.NewStore(filepath.Join(root, endpointsDir), endpoint.WithLogger(o.logger)),
		Contexts:  env.NewStore(filepath.Join(root, env.KindContext.DirName()), env.KindContext),
		Envs:      env.NewStore(filepath.Join(root, env.KindEnvironment.DirName()), env.KindEnvironment),
		State:     state.NewStore(filepath.Join(root, stateDir)),
		History:   history.NewStore(filepath.Join(root, historyDir), history.WithLogger(o.logger)),
	}
	if s.current, err = s.State.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current is the selection read when the session was opened, updated by the
// Use* methods.
func (s *Session) Current() state.State {
	return s.current
}

// ActiveContext loads the selected context.
func (s *Session) ActiveContext() (*env.Scope, error) {
	return s.Contexts.Load(s.current.Context)
}

// ActiveEnv loads the selected environment.
func (s *Session) ActiveEnv() (*env.Scope, error) {
	return s.Envs.Load(s.current.Env)
}

// ActiveCookieJarPath is the jar file of the selected environment.
func (s *Session) ActiveCookieJarPath() string {
	return s.Envs.CookieJarPath(s.current.Env)
}

// RequireHandle returns h when given, else the current handle. It fails when
// neither is set.
func (s *Session) RequireHandle(h endpoint.Handle) (endpoint.Handle, error) {
	if !h.IsRoot() {
		return h, nil
	}
	if s.current.Handle.IsRoot() {
		return endpoint.Handle{}, errdef.New(errdef.ErrMalformedInput, "no endpoint selected; pass a handle or run `quartz use <handle>`")
	}
	return s.current.Handle, nil
}

// UseHandle selects h.
func (s *Session) UseHandle(h endpoint.Handle) error {
	if err := s.State.SetHandle(h); err != nil {
		return err
	}
	s.current.Handle = h
	return nil
}

// UseContext selects the named context, which must exist unless it is the
// default one.
func (s *Session) UseContext(name string) error {
	if name != env.DefaultName && !s.Contexts.Exists(name) {
		return errdef.New(errdef.ErrNotFound, "no context named %s", name)
	}
	if err := s.State.Set(state.FieldContext, name); err != nil {
		return err
	}
	s.current.Context = name
	return nil
}

// UseEnv selects the named environment.
func (s *Session) UseEnv(name string) error {
	if name != env.DefaultName && !s.Envs.Exists(name) {
		return errdef.New(errdef.ErrNotFound, "no environment named %s", name)
	}
	if err := s.State.Set(state.FieldEnv, name); err != nil {
		return err
	}
	s.current.Env = name
	return nil
}

// ForgetHandle clears the current handle when it lies inside removed.
func (s *Session) ForgetHandle(removed endpoint.Handle) error {
	if s.current.Handle.IsRoot() || !removed.Contains(s.current.Handle) {
		return nil
	}
	return s.UseHandle(endpoint.Handle{})
}
