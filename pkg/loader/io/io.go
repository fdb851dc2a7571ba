package io

import (
	"context"
	"fmt"
	"os"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/loader"
)

// IOSourceLoader loads files directly from the local filesystem with
// caching.
type IOSourceLoader struct {
	cache *loader.Cache
}

// NewIOSourceLoader creates a new filesystem-based file loader.
func NewIOSourceLoader() *IOSourceLoader {
	return &IOSourceLoader{cache: loader.NewCache()}
}

// GetFileBytes reads the file content from the filesystem. Results are
// cached.
func (l *IOSourceLoader) GetFileBytes(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.cache.Get(loader.CacheKey(file), func() ([]byte, error) {
		b, err := os.ReadFile(file.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file.Path, err)
		}
		return b, nil
	})
}

func (l *IOSourceLoader) Kind() common.SourceKind {
	return common.SourceKindFile
}
