package lintas

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
)

// DefaultTokenKey is the key under which shared stores keep the bearer token.
const DefaultTokenKey = "token"

// CredentialStore supplies the optional bearer token. An empty token means
// "send no Authorization header"; it is never an error on its own.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to CredentialStore.
type CredentialFunc func(ctx context.Context) (string, error)

// Token implements CredentialStore.
func (f CredentialFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken always returns the same token.
type StaticToken string

// Token implements CredentialStore.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// EnvToken reads the token from an environment variable on every request.
type EnvToken string

// Token implements CredentialStore.
func (e EnvToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(string(e))), nil
}

// FileTokenStore serves a token kept in a file and reloads it when the file
// is written, replaced or removed.
type FileTokenStore struct {
	path    string
	logger  Logger
	mu      sync.RWMutex
	token   string
	watcher *fsnotify.Watcher
	done    chan struct{}
	closeMu sync.Once
}

// NewFileTokenStore loads path and starts watching its directory. A missing
// file yields an empty token until it appears.
func NewFileTokenStore(path string, logger Logger) (*FileTokenStore, error) {
	if logger == nil {
		logger = NopLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve token file: %w", err)
	}

	s := &FileTokenStore{
		path:   abs,
		logger: logger,
		done:   make(chan struct{}),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch token file: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch token file: %w", err)
	}
	s.watcher = watcher
	go s.watch()
	return s, nil
}

// Token implements CredentialStore.
func (s *FileTokenStore) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// Close stops watching the file.
func (s *FileTokenStore) Close() error {
	var err error
	s.closeMu.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}

func (s *FileTokenStore) reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		data, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	s.mu.Lock()
	s.token = strings.TrimSpace(string(data))
	s.mu.Unlock()
	return nil
}

func (s *FileTokenStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := s.reload(); err != nil {
					s.logger.Warn("Token file reload failed", "path", s.path, "error", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Token file watcher error", "path", s.path, "error", err)
		}
	}
}

// redisGetter is the subset of redis.Cmdable used by RedisTokenStore.
type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisTokenStore looks the token up in Redis on every request, so tokens
// refreshed by another process are picked up immediately.
type RedisTokenStore struct {
	client redisGetter
	key    string
}

// NewRedisTokenStore reads key (DefaultTokenKey when empty) from client.
func NewRedisTokenStore(client redis.Cmdable, key string) *RedisTokenStore {
	return newRedisTokenStore(client, key)
}

func newRedisTokenStore(client redisGetter, key string) *RedisTokenStore {
	if key == "" {
		key = DefaultTokenKey
	}
	return &RedisTokenStore{client: client, key: key}
}

// Token implements CredentialStore. A missing key is an empty token.
func (s *RedisTokenStore) Token(ctx context.Context) (string, error) {
	tok, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis token lookup %q: %w", s.key, err)
	}
	return strings.TrimSpace(tok), nil
}
