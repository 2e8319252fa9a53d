package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// File guarda cada clave como un sobre JSON en <dir>/<key>.json. Las escrituras
// son atómicas (tmp + rename) y los cambios de otros procesos se detectan con fsnotify.
type File struct {
	id     string
	dir    string
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewFile(dir string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &File{id: uuid.NewString(), dir: dir, logger: logger}, nil
}

func (f *File) ID() string {
	return f.id
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	env, err := f.read(key)
	if err != nil {
		return nil, err
	}
	if len(env.Value) == 0 {
		return nil, ErrNotFound
	}
	return env.Value, nil
}

func (f *File) read(key string) (envelope, error) {
	raw, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return envelope{}, ErrNotFound
	}
	if err != nil {
		return envelope{}, fmt.Errorf("read %s: %w", key, err)
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return envelope{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return env, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	raw, err := encodeEnvelope(key, f.id, value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	tmp := filepath.Join(f.dir, "."+key+"."+f.id+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (f *File) Watch(ctx context.Context, key string) (<-chan Change, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", f.dir, err)
	}

	target := filepath.Clean(f.path(key))
	out := make(chan Change, watchBuffer)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				f.handleEvent(key, event, out)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("store watcher error", zap.String("key", key), zap.Error(err))
			}
		}
	}()
	return out, nil
}

func (f *File) handleEvent(key string, event fsnotify.Event, out chan Change) {
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		env, err := f.read(key)
		if err != nil {
			// Escritura ajena a medio camino; llegará otro evento.
			f.logger.Debug("skipping unreadable store file", zap.String("key", key), zap.Error(err))
			return
		}
		offer(out, env.change())
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if _, err := os.Stat(f.path(key)); err == nil {
			return
		}
		offer(out, Change{Key: key})
	}
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
