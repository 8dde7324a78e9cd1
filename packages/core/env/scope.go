package env

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/abdul-hamid-achik/quartz/packages/core/atomicfile"
	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

// DefaultName is the scope used when no scope has been selected.
const DefaultName = "default"

const (
	variablesFile = "variables.toml"
	headersFile   = "headers.toml"
	cookiesFile   = "cookies"
)

// Kind distinguishes contexts from environments.
type Kind int

const (
	KindContext Kind = iota
	KindEnvironment
)

func (k Kind) String() string {
	if k == KindEnvironment {
		return "environment"
	}
	return "context"
}

// DirName is the workspace sub-directory holding scopes of this kind.
func (k Kind) DirName() string {
	if k == KindEnvironment {
		return "env"
	}
	return "contexts"
}

// Scope is a named set of variables and headers.
type Scope struct {
	Kind      Kind
	Name      string
	Variables Variables
	Headers   endpoint.Pairs
}

// NewScope returns an empty scope.
func NewScope(kind Kind, name string) *Scope {
	return &Scope{
		Kind:      kind,
		Name:      name,
		Variables: make(Variables),
		Headers:   endpoint.NewHeaders(),
	}
}

// SetLine parses "KEY=VALUE" into a variable.
func (s *Scope) SetLine(line string) error {
	key, value, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return errdef.New(errdef.ErrMalformedInput, "expected \"KEY=VALUE\", got %q", line)
	}
	s.Variables[key] = value
	return nil
}

// Keys returns variable names sorted.
func (s *Scope) Keys() []string {
	keys := make([]string, 0, len(s.Variables))
	for k := range s.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type headersConfig struct {
	Headers []string `toml:"headers"`
}

// Store persists scopes of one kind under <workspace>/<kind dir>/<name>.
type Store struct {
	root string
	kind Kind
}

// NewStore returns a store for scopes of kind under dir.
func NewStore(dir string, kind Kind) *Store {
	return &Store{root: dir, kind: kind}
}

// Kind is the kind of scopes held by the store.
func (s *Store) Kind() Kind {
	return s.kind
}

// Dir is the directory of the named scope.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.root, name)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.TrimSpace(name) != name {
		return errdef.New(errdef.ErrMalformedInput, "invalid scope name %q", name)
	}
	return nil
}

// Exists reports whether the named scope is on disk.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Dir(name))
	return err == nil && info.IsDir()
}

// Create writes a new empty scope.
func (s *Store) Create(name string) (*Scope, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if s.Exists(name) {
		return nil, errdef.New(errdef.ErrAlreadyExists, "%s %s already exists", s.kind, name)
	}
	scope := NewScope(s.kind, name)
	if err := s.Save(scope); err != nil {
		return nil, err
	}
	return scope, nil
}

// Load reads the named scope. The default scope loads as empty when it has
// never been written.
func (s *Store) Load(name string) (*Scope, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !s.Exists(name) {
		if name == DefaultName {
			return NewScope(s.kind, name), nil
		}
		return nil, errdef.New(errdef.ErrNotFound, "no %s named %s", s.kind, name)
	}

	scope := NewScope(s.kind, name)
	dir := s.Dir(name)

	_, err := toml.DecodeFile(filepath.Join(dir, variablesFile), &scope.Variables)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errdef.Persist(err, "reading variables of %s %s", s.kind, name)
	}

	var hc headersConfig
	_, err = toml.DecodeFile(filepath.Join(dir, headersFile), &hc)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errdef.Persist(err, "reading headers of %s %s", s.kind, name)
	}
	for _, line := range hc.Headers {
		if err := scope.Headers.SetLine(line); err != nil {
			return nil, errdef.Wrap(errdef.ErrPersistence, err, "reading headers of %s %s", s.kind, name)
		}
	}
	return scope, nil
}

// Save writes the scope, creating it if needed.
func (s *Store) Save(scope *Scope) error {
	if err := validateName(scope.Name); err != nil {
		return err
	}
	dir := s.Dir(scope.Name)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(scope.Variables); err != nil {
		return errdef.Persist(err, "encoding variables of %s %s", s.kind, scope.Name)
	}
	if err := atomicfile.WriteFile(filepath.Join(dir, variablesFile), buf.Bytes(), 0644); err != nil {
		return errdef.Persist(err, "writing variables of %s %s", s.kind, scope.Name)
	}

	buf.Reset()
	if err := toml.NewEncoder(&buf).Encode(headersConfig{Headers: scope.Headers.Lines()}); err != nil {
		return errdef.Persist(err, "encoding headers of %s %s", s.kind, scope.Name)
	}
	if err := atomicfile.WriteFile(filepath.Join(dir, headersFile), buf.Bytes(), 0644); err != nil {
		return errdef.Persist(err, "writing headers of %s %s", s.kind, scope.Name)
	}
	return nil
}

// Remove deletes the named scope and everything it holds.
func (s *Store) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !s.Exists(name) {
		return errdef.New(errdef.ErrNotFound, "no %s named %s", s.kind, name)
	}
	if err := os.RemoveAll(s.Dir(name)); err != nil {
		return errdef.Persist(err, "removing %s %s", s.kind, name)
	}
	return nil
}

// List returns scope names sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errdef.Persist(err, "listing %ss", s.kind)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Copy merges src's variables into dst, creating dst when absent. Colliding
// keys take src's value; keys only in dst are kept.
func (s *Store) Copy(src, dst string) (*Scope, error) {
	from, err := s.Load(src)
	if err != nil {
		return nil, err
	}
	if err := validateName(dst); err != nil {
		return nil, err
	}
	to := NewScope(s.kind, dst)
	if s.Exists(dst) {
		if to, err = s.Load(dst); err != nil {
			return nil, err
		}
	}
	for k, v := range from.Variables {
		to.Variables[k] = v
	}
	if err := s.Save(to); err != nil {
		return nil, err
	}
	return to, nil
}

// CookieJarPath is the default cookie jar location of an environment. Contexts
// have no jar and yield "".
func (s *Store) CookieJarPath(name string) string {
	if s.kind != KindEnvironment {
		return ""
	}
	return filepath.Join(s.Dir(name), cookiesFile)
}
