// Package loader fetches the bytes of import sources from wherever they
// live: the local filesystem, S3-compatible storage or memory.
package loader

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/wsmontes/linkchart/pkg/common"
)

// ErrNoLoader is returned when a SourceFile has no loader attached.
var ErrNoLoader = errors.New("source file has no loader")

// SourceFile represents one input file of an import. The content is
// retrieved via the associated SourceLoader; Kind is the data-source kind
// recorded in the provenance of the imported entities.
type SourceFile struct {
	ID     string
	Name   string
	Path   string
	Kind   common.SourceKind
	Loader SourceLoader
}

// NewSourceFileParams defines the input parameters for NewSourceFile.
type NewSourceFileParams struct {
	ID     string
	Name   string
	Path   string
	Loader SourceLoader
}

// NewSourceFile creates a SourceFile whose kind is taken from the loader.
// Name defaults to the base name of Path.
func NewSourceFile(params NewSourceFileParams) SourceFile {
	name := params.Name
	if name == "" {
		name = filepath.Base(params.Path)
	}
	kind := common.SourceKindFile
	if params.Loader != nil {
		kind = params.Loader.Kind()
	}
	return SourceFile{
		ID:     params.ID,
		Name:   name,
		Path:   params.Path,
		Kind:   kind,
		Loader: params.Loader,
	}
}

// GetBytes retrieves the raw content of the file using its Loader.
func (f *SourceFile) GetBytes(ctx context.Context) ([]byte, error) {
	if f.Loader == nil {
		return nil, ErrNoLoader
	}
	return f.Loader.GetFileBytes(ctx, *f)
}

// SourceLoader defines the interface for loading the contents of a
// SourceFile.
type SourceLoader interface {
	GetFileBytes(ctx context.Context, file SourceFile) ([]byte, error)
	Kind() common.SourceKind
}

// CacheKey generates a unique cache key for a SourceFile based on its ID and
// path.
func CacheKey(file SourceFile) string {
	return file.ID + ":" + file.Path
}

// Cache memoizes file contents. Concurrent misses on the same key share one
// fetch.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns the cached bytes for key, calling fetch on a miss. Failed
// fetches are not cached.
func (c *Cache) Get(key string, fetch func() ([]byte, error)) ([]byte, error) {
	if b, ok := c.lookup(key); ok {
		return b, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if b, ok := c.lookup(key); ok {
			return b, nil
		}
		b, err := fetch()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = b
		c.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Forget drops key from the cache.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[key]
	return b, ok
}
