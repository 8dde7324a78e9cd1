package history

import (
	"encoding/json"
	"errors"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/google/uuid"
)

// Store is the append-only history log.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a store over dir (usually .quartz/user/history).
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:    dir,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(key int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(key, 10))
}

// Write persists e, assigning its id and timestamp when unset. The key is the
// later of the timestamp and one past the newest key on disk, and the file is
// created exclusively, bumping the key by a microsecond until it is free.
func (s *Store) Write(e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == 0 {
		e.Timestamp = s.now().UnixMicro()
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errdef.Persist(err, "creating history directory")
	}

	keys, err := s.Keys()
	if err != nil {
		return err
	}
	key := e.Timestamp
	if len(keys) > 0 && keys[0] >= key {
		key = keys[0] + 1
	}

	for {
		f, err := os.OpenFile(s.path(key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			key++
			continue
		}
		if err != nil {
			return errdef.Persist(err, "creating history entry %d", key)
		}

		e.Timestamp = key
		data, err := json.MarshalIndent(e, "", "  ")
		if err == nil {
			_, err = f.Write(data)
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(s.path(key))
			return errdef.Persist(err, "writing history entry %d", key)
		}
		s.logger.Debug("history entry written", "key", key, "id", e.ID)
		return nil
	}
}

// Keys returns every entry key, newest first.
func (s *Store) Keys() ([]int64, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errdef.Persist(err, "listing history")
	}
	keys := make([]int64, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		key, err := strconv.ParseInt(de.Name(), 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	slices.Reverse(keys)
	return keys, nil
}

// Len is the number of entries on disk.
func (s *Store) Len() (int, error) {
	keys, err := s.Keys()
	return len(keys), err
}

// Get reads the entry with the given key.
func (s *Store) Get(key int64) (*Entry, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errdef.New(errdef.ErrNotFound, "no history entry %d", key)
	}
	if err != nil {
		return nil, errdef.Persist(err, "reading history entry %d", key)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errdef.Wrap(errdef.ErrPersistence, err, "decoding history entry %d", key)
	}
	return &e, nil
}

// Iterate yields entries newest first. The directory is read when iteration
// starts; entries are loaded one at a time as they are consumed.
func (s *Store) Iterate() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		keys, err := s.Keys()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, key := range keys {
			e, err := s.Get(key)
			if !yield(e, err) {
				return
			}
		}
	}
}

// Last returns the newest entry.
func (s *Store) Last() (*Entry, error) {
	for e, err := range s.Iterate() {
		return e, err
	}
	return nil, errdef.New(errdef.ErrNotFound, "history is empty")
}
