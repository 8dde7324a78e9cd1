package endpoint

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/abdul-hamid-achik/quartz/packages/core/atomicfile"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

// fileConfig is the on-disk shape of endpoint.toml. Headers and query are kept
// as line lists so their order survives a round trip.
type fileConfig struct {
	URL     string   `toml:"url,omitempty"`
	Method  string   `toml:"method,omitempty"`
	Headers []string `toml:"headers,omitempty"`
	Query   []string `toml:"query,omitempty"`
}

// Store persists endpoints as a directory tree.
type Store struct {
	root   string
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore returns a store rooted at dir (usually .quartz/endpoints).
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		root:   dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root is the directory holding the tree.
func (s *Store) Root() string {
	return s.root
}

// Dir is the node directory for h.
func (s *Store) Dir(h Handle) string {
	return h.Dir(s.root)
}

// Exists reports whether a node directory exists for h.
func (s *Store) Exists(h Handle) bool {
	info, err := os.Stat(s.Dir(h))
	return err == nil && info.IsDir()
}

// IsEndpoint reports whether h holds an endpoint config, as opposed to being a
// pure namespace node.
func (s *Store) IsEndpoint(h Handle) bool {
	_, err := os.Stat(filepath.Join(s.Dir(h), ConfigFile))
	return err == nil
}

// Write creates the node for h, including missing parents, and stores e.
func (s *Store) Write(h Handle, e *Endpoint) error {
	if h.IsRoot() {
		return errdef.New(errdef.ErrMalformedInput, "cannot create an endpoint without a handle")
	}
	if s.IsEndpoint(h) {
		return errdef.New(errdef.ErrAlreadyExists, "endpoint %s already exists", h)
	}
	if err := os.MkdirAll(s.Dir(h), 0755); err != nil {
		return errdef.Persist(err, "creating endpoint %s", h)
	}
	if err := s.writeConfig(h, e); err != nil {
		return err
	}
	if len(e.Body) > 0 {
		return s.SetBody(h, e.Body)
	}
	return nil
}

// Update rewrites the config of an existing node. The body is left untouched;
// use SetBody for that.
func (s *Store) Update(h Handle, e *Endpoint) error {
	if !s.Exists(h) {
		return errdef.New(errdef.ErrNotFound, "no endpoint at %s", h)
	}
	return s.writeConfig(h, e)
}

func (s *Store) writeConfig(h Handle, e *Endpoint) error {
	cfg := fileConfig{
		URL:     e.URL,
		Method:  e.Method,
		Headers: e.Headers.Lines(),
		Query:   e.Query.Lines(),
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errdef.Persist(err, "encoding endpoint %s", h)
	}
	if err := atomicfile.WriteFile(filepath.Join(s.Dir(h), ConfigFile), buf.Bytes(), 0644); err != nil {
		return errdef.Persist(err, "writing endpoint %s", h)
	}
	return nil
}

// SetBody replaces the raw body payload. An empty body removes the file.
func (s *Store) SetBody(h Handle, body []byte) error {
	if !s.Exists(h) {
		return errdef.New(errdef.ErrNotFound, "no endpoint at %s", h)
	}
	path := filepath.Join(s.Dir(h), BodyFile)
	if len(body) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errdef.Persist(err, "removing body of %s", h)
		}
		return nil
	}
	if err := atomicfile.WriteFile(path, body, 0644); err != nil {
		return errdef.Persist(err, "writing body of %s", h)
	}
	return nil
}

// Body returns the raw body stored at h, or nil when there is none.
func (s *Store) Body(h Handle) ([]byte, error) {
	if !s.Exists(h) {
		return nil, errdef.New(errdef.ErrNotFound, "no endpoint at %s", h)
	}
	body, err := os.ReadFile(filepath.Join(s.Dir(h), BodyFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errdef.Persist(err, "reading body of %s", h)
	}
	return body, nil
}

// Load returns the node's own overlay, without inheritance. A node without a
// config yields an empty endpoint.
func (s *Store) Load(h Handle) (*Endpoint, error) {
	if !s.Exists(h) {
		return nil, errdef.New(errdef.ErrNotFound, "no endpoint at %s", h)
	}
	dir := s.Dir(h)
	e := New()

	var cfg fileConfig
	_, err := toml.DecodeFile(filepath.Join(dir, ConfigFile), &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, errdef.Persist(err, "reading endpoint %s", h)
	default:
		e.URL = cfg.URL
		e.Method = cfg.Method
		if e.Headers, err = pairsFromLines(NewHeaders(), cfg.Headers); err != nil {
			return nil, errdef.Wrap(errdef.ErrPersistence, err, "reading headers of %s", h)
		}
		if e.Query, err = pairsFromLines(NewQuery(), cfg.Query); err != nil {
			return nil, errdef.Wrap(errdef.ErrPersistence, err, "reading query of %s", h)
		}
	}

	body, err := os.ReadFile(filepath.Join(dir, BodyFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, errdef.Persist(err, "reading body of %s", h)
	default:
		e.Body = body
	}
	return e, nil
}

// Resolve returns the effective endpoint at h. URL and method come from the
// nearest node that sets them; headers and query are merged from the root
// down, deeper nodes winning on collisions. The body is never inherited.
func (s *Store) Resolve(h Handle) (*Endpoint, error) {
	if h.IsRoot() || !s.Exists(h) {
		return nil, errdef.New(errdef.ErrNotFound, "no endpoint at %s", h)
	}

	effective := New()
	chain := append([]Handle{{}}, h.Ancestors()...)
	for _, node := range chain {
		if !s.Exists(node) {
			continue
		}
		overlay, err := s.Load(node)
		if err != nil {
			return nil, err
		}
		if overlay.URL != "" {
			effective.URL = overlay.URL
		}
		if overlay.Method != "" {
			effective.Method = overlay.Method
		}
		effective.Headers.Merge(overlay.Headers)
		effective.Query.Merge(overlay.Query)
		if node.Equal(h) {
			effective.Body = overlay.Body
		}
		s.logger.Debug("resolved endpoint node", "handle", h.String(), "node", node.String(), "url", overlay.URL, "headers", overlay.Headers.Len())
	}
	if effective.Method == "" {
		effective.Method = DefaultMethod
	}
	return effective, nil
}

// Remove deletes h and its whole subtree.
func (s *Store) Remove(h Handle) error {
	if h.IsRoot() {
		return errdef.New(errdef.ErrMalformedInput, "refusing to remove the endpoint root")
	}
	if !s.Exists(h) {
		return errdef.New(errdef.ErrNotFound, "no endpoint at %s", h)
	}
	if err := os.RemoveAll(s.Dir(h)); err != nil {
		return errdef.Persist(err, "removing %s", h)
	}
	return nil
}
