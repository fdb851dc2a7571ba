package store

import (
	"context"
	"errors"

	"github.com/wsmontes/linkchart/pkg/common"
)

// ErrGraphNotFound is returned when a graph id has never been saved.
var ErrGraphNotFound = errors.New("graph not found")

// GraphStorage defines the interface for persisting canonical graphs and the
// data sources they were imported from.
type GraphStorage interface {
	// SaveGraph stores g under graphID. With merge set, g is folded into the
	// stored graph the way common.Graph.Merge does; otherwise it replaces it.
	// src may be nil.
	SaveGraph(ctx context.Context, graphID string, g *common.Graph, src *common.DataSource, merge bool) error
	LoadGraph(ctx context.Context, graphID string) (*common.Graph, error)
	DeleteGraph(ctx context.Context, graphID string) error
	ListSources(ctx context.Context, graphID string) ([]common.DataSource, error)
}
