package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/wsmontes/linkchart/pkg/common"
)

// MemoryLoader serves files held in memory, such as HTTP uploads.
type MemoryLoader struct {
	kind  common.SourceKind
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryLoader creates a loader reporting the given source kind.
func NewMemoryLoader(kind common.SourceKind) *MemoryLoader {
	if !kind.Valid() {
		kind = common.SourceKindFile
	}
	return &MemoryLoader{kind: kind, files: make(map[string][]byte)}
}

// Put stores data under path, replacing any previous content.
func (l *MemoryLoader) Put(path string, data []byte) {
	l.mu.Lock()
	l.files[path] = data
	l.mu.Unlock()
}

func (l *MemoryLoader) GetFileBytes(ctx context.Context, file SourceFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.files[file.Path]
	if !ok {
		return nil, fmt.Errorf("file %q not found in memory", file.Path)
	}
	return b, nil
}

func (l *MemoryLoader) Kind() common.SourceKind {
	return l.kind
}
