// Package state persists the active handle, context and environment.
//
// Each field lives in its own file under user/state and is replaced
// atomically, so a crash while switching contexts never leaves a torn record.
package state

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/atomicfile"
	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/env"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

// Field names one persisted part of the state.
type Field string

const (
	FieldHandle  Field = "handle"
	FieldContext Field = "context"
	FieldEnv     Field = "env"
)

func (f Field) valid() bool {
	return f == FieldHandle || f == FieldContext || f == FieldEnv
}

// State is the active selection. Zero fields fall back to defaults on Load.
type State struct {
	Handle  endpoint.Handle
	Context string
	Env     string
}

// Store reads and writes state files in a directory.
type Store struct {
	dir string
}

// NewStore returns a store over dir (usually .quartz/user/state).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(f Field) string {
	return filepath.Join(s.dir, string(f))
}

// Load reads all fields. Missing files yield the root handle and the default
// scope names.
func (s *Store) Load() (State, error) {
	st := State{Context: env.DefaultName, Env: env.DefaultName}

	raw, err := s.Get(FieldHandle)
	if err != nil {
		return State{}, err
	}
	if raw != "" {
		if st.Handle, err = endpoint.ParseHandle(raw); err != nil {
			return State{}, errdef.Wrap(errdef.ErrPersistence, err, "reading state handle")
		}
	}
	if raw, err = s.Get(FieldContext); err != nil {
		return State{}, err
	} else if raw != "" {
		st.Context = raw
	}
	if raw, err = s.Get(FieldEnv); err != nil {
		return State{}, err
	} else if raw != "" {
		st.Env = raw
	}
	return st, nil
}

// Get returns the raw value of one field, "" when unset.
func (s *Store) Get(f Field) (string, error) {
	if !f.valid() {
		return "", errdef.New(errdef.ErrMalformedInput, "unknown state field %q", f)
	}
	data, err := os.ReadFile(s.path(f))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", errdef.Persist(err, "reading state %s", f)
	}
	return strings.TrimSpace(string(data)), nil
}

// Set replaces one field.
func (s *Store) Set(f Field, value string) error {
	if !f.valid() {
		return errdef.New(errdef.ErrMalformedInput, "unknown state field %q", f)
	}
	if err := atomicfile.WriteFile(s.path(f), []byte(value), 0644); err != nil {
		return errdef.Persist(err, "writing state %s", f)
	}
	return nil
}

// SetHandle stores h as the current handle.
func (s *Store) SetHandle(h endpoint.Handle) error {
	if h.IsRoot() {
		return s.Clear(FieldHandle)
	}
	return s.Set(FieldHandle, h.String())
}

// Clear removes a field so it falls back to its default.
func (s *Store) Clear(f Field) error {
	if !f.valid() {
		return errdef.New(errdef.ErrMalformedInput, "unknown state field %q", f)
	}
	if err := os.Remove(s.path(f)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errdef.Persist(err, "clearing state %s", f)
	}
	return nil
}
