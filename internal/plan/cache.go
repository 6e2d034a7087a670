package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"aotc/internal/project"
)

// Current schema version - increment when the cached Plan layout changes.
const cacheSchemaVersion uint16 = 2

// Cache stores evaluated plans on disk, keyed by manifest content and policy
// options. Thread-safe for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type cachePayload struct {
	Schema uint16
	Plan   *Plan
}

// OpenCache opens a cache rooted at dir. An empty dir selects
// $XDG_CACHE_HOME/aotc (or ~/.cache/aotc).
func OpenCache(dir string) (*Cache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "aotc")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Key derives the cache key of a plan from the manifest digest and the
// policy selection.
func Key(manifest project.Digest, strategy string, output []string) project.Digest {
	sel := project.HashBytes([]byte(strategy + "\x00" + strings.Join(output, "\x00")))
	return project.Combine(manifest, sel)
}

func (c *Cache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "plans", key.String()+".mp")
}

// Put serializes and writes a plan to the cache.
func (c *Cache) Put(key project.Digest, pl *Plan) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err = enc.Encode(&cachePayload{Schema: cacheSchemaVersion, Plan: pl}); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads a plan from the cache. Entries written with another schema
// version are reported as misses.
func (c *Cache) Get(key project.Digest) (*Plan, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode cached plan: %w", err)
	}
	if payload.Schema != cacheSchemaVersion || payload.Plan == nil {
		return nil, false, nil
	}
	return payload.Plan, true, nil
}

// DropAll invalidates the cache.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }
