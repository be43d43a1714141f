package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// File is a LocalCache keeping one file per key in a directory. Access is
// serialized across processes with a lock file and within the process by
// mu: one flock.Flock holds a single lock state, so concurrent holders in
// one process would release each other's lock.
type File struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

// OpenFile prepares dir for use as a cache
func OpenFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &File{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

func (f *File) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	locked, err := f.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return nil, false, fmt.Errorf("file cache get %q: lock: %w", key, lockErr(err))
	}
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("file cache get %q: %w", key, err)
	}
	return data, true, nil
}

// Set writes to a temp file and renames it over the old value so readers
// never see a partial write.
func (f *File) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	locked, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return fmt.Errorf("file cache set %q: lock: %w", key, lockErr(err))
	}
	defer f.lock.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file cache set %q: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("file cache set %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file cache set %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("file cache set %q: %w", key, err)
	}
	return nil
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lock.Close()
}

// path escapes the key; keys contain ':' which some filesystems reject.
func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func lockErr(err error) error {
	if err != nil {
		return err
	}
	return errors.New("not acquired")
}
