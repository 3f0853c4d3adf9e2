package cachestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileName   = ".moviemeta.lock"
	lockRetryDelay = 25 * time.Millisecond
)

// FileBackend keeps one compressed file per entry inside a directory.
// Writers serialize on an advisory lock so concurrent processes sharing the
// directory never observe a partially written entry.
type FileBackend struct {
	dir string
	ext string
	mu  *flock.Flock
}

// NewFileBackend prepares dir, creating it when missing. ext is appended to
// entry names and should match the codec in use.
func NewFileBackend(dir, ext string) (*FileBackend, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileBackend{
		dir: dir,
		ext: ext,
		mu:  flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

func (b *FileBackend) Name() string { return "file" }

// Dir returns the cache directory.
func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) Has(_ context.Context, key EntryKey) (bool, error) {
	_, err := os.Stat(b.path(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat entry: %w", err)
	}
}

func (b *FileBackend) Get(_ context.Context, key EntryKey) ([]byte, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read entry: %w", err)
	}
	return data, true, nil
}

func (b *FileBackend) PutIfAbsent(ctx context.Context, key EntryKey, data []byte) (bool, error) {
	if err := b.lock(ctx); err != nil {
		return false, err
	}
	defer func() { _ = b.mu.Unlock() }()

	exists, err := b.Has(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := writeFileAtomic(b.path(key), data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func (b *FileBackend) Clear(ctx context.Context) (int, error) {
	if err := b.lock(ctx); err != nil {
		return 0, err
	}
	defer func() { _ = b.mu.Unlock() }()

	names, err := b.entryNames()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		if err := os.Remove(filepath.Join(b.dir, name)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

func (b *FileBackend) Count(context.Context) (map[Purpose]int, error) {
	names, err := b.entryNames()
	if err != nil {
		return nil, err
	}
	counts := make(map[Purpose]int, len(Purposes()))
	for _, name := range names {
		if p, ok := b.purposeOf(name); ok {
			counts[p]++
		}
	}
	return counts, nil
}

func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) path(key EntryKey) string {
	return filepath.Join(b.dir, key.Hash+"."+key.Purpose.Label()+b.ext)
}

// entryNames lists files that look like cache entries written with the
// current extension. Temp files and the lock file are ignored.
func (b *FileBackend) entryNames() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := b.purposeOf(entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (b *FileBackend) purposeOf(name string) (Purpose, bool) {
	if !strings.HasSuffix(name, b.ext) {
		return 0, false
	}
	stem := strings.TrimSuffix(name, b.ext)
	dot := strings.LastIndexByte(stem, '.')
	if dot <= 0 {
		return 0, false
	}
	return PurposeFromLabel(stem[dot+1:])
}

func (b *FileBackend) lock(ctx context.Context) error {
	locked, err := b.mu.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock cache dir: %w", err)
	}
	if !locked {
		return errors.New("lock cache dir: not acquired")
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
