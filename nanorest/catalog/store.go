package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// Store reads and writes one catalog file. Reads take a shared lock and
// writes an exclusive one on a sibling ".lock" file; writes go through a
// temporary file renamed over the catalog.
type Store struct {
	path        string
	fs          FileSystem
	lockFactory FileLockFactory
	lock        FileLock
	logger      *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithFileSystem replaces the file system
func WithFileSystem(fs FileSystem) Option {
	return func(s *Store) {
		s.fs = fs
	}
}

// WithLockFactory replaces the lock implementation
func WithLockFactory(f FileLockFactory) Option {
	return func(s *Store) {
		s.lockFactory = f
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open returns a store for the catalog at path. The file does not need to exist.
func Open(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = OSFileSystem{}
	}
	if s.lockFactory == nil {
		s.lockFactory = &FlockFactory{}
	}
	s.lock = s.lockFactory.New(path + ".lock")
	return s
}

// Path returns the catalog file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the catalog. A missing or empty file is an empty catalog.
func (s *Store) Load(ctx context.Context) (*Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	if err := s.acquire(ctx, s.lock.TryRLockContext); err != nil {
		return nil, err
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.load()
}

// Save replaces the catalog file with c
func (s *Store) Save(ctx context.Context, c *Catalog) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	if err := s.acquire(ctx, s.lock.TryLockContext); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.save(c)
}

// Update loads the catalog, applies fn and saves the result, all under one
// exclusive lock. Nothing is written when fn fails.
func (s *Store) Update(ctx context.Context, fn func(*Catalog) error) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	if err := s.acquire(ctx, s.lock.TryLockContext); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	c, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return s.save(c)
}

func (s *Store) acquire(ctx context.Context, try func(context.Context, time.Duration) (bool, error)) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := try(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

func (s *Store) load() (*Catalog, error) {
	if _, err := s.fs.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return Parse(nil)
	}

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("loaded catalog", "path", s.path, "resources", len(c.Resources))
	return c, nil
}

func (s *Store) save(c *Catalog) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	tmpFile := s.path + ".tmp"
	if err := s.fs.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := s.fs.Rename(tmpFile, s.path); err != nil {
		_ = s.fs.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	s.logger.Debug("saved catalog", "path", s.path, "resources", len(c.Resources))
	return nil
}
