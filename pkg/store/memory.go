package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/wsmontes/linkchart/pkg/common"
)

// MemoryStorage is a GraphStorage kept in process memory. It follows the
// same merge rules as the database storage and is used when no database is
// configured.
type MemoryStorage struct {
	mu      sync.RWMutex
	graphs  map[string]*common.Graph
	sources map[string]map[string]common.DataSource
}

var _ GraphStorage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		graphs:  make(map[string]*common.Graph),
		sources: make(map[string]map[string]common.DataSource),
	}
}

func (s *MemoryStorage) SaveGraph(ctx context.Context, graphID string, g *common.Graph, src *common.DataSource, merge bool) error {
	if graphID == "" {
		return errors.New("graph id is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.graphs[graphID]
	if !ok || !merge {
		cur = common.NewGraph()
		s.graphs[graphID] = cur
		s.sources[graphID] = make(map[string]common.DataSource)
	}
	cur.Merge(g)
	if src != nil {
		s.sources[graphID][src.ID] = *src
	}
	return nil
}

// LoadGraph returns a copy of the stored graph.
func (s *MemoryStorage) LoadGraph(ctx context.Context, graphID string) (*common.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.graphs[graphID]
	if !ok {
		return nil, ErrGraphNotFound
	}
	out := common.NewGraph()
	out.Merge(cur)
	return out, nil
}

func (s *MemoryStorage) DeleteGraph(ctx context.Context, graphID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.graphs[graphID]; !ok {
		return ErrGraphNotFound
	}
	delete(s.graphs, graphID)
	delete(s.sources, graphID)
	return nil
}

// ListSources orders sources by import time, then id.
func (s *MemoryStorage) ListSources(ctx context.Context, graphID string) ([]common.DataSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.DataSource, 0, len(s.sources[graphID]))
	for _, src := range s.sources[graphID] {
		out = append(out, src)
	}
	slices.SortFunc(out, func(a, b common.DataSource) int {
		if c := a.Metadata.ImportedAt.Compare(b.Metadata.ImportedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
