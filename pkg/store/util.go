package store

import (
	"maps"
	"slices"

	"github.com/wsmontes/linkchart/pkg/common"
)

func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// SortedEntities returns the entities of g ordered by id.
func SortedEntities(g *common.Graph) []*common.Entity {
	out := make([]*common.Entity, 0, len(g.Entities))
	for _, id := range slices.Sorted(maps.Keys(g.Entities)) {
		out = append(out, g.Entities[id])
	}
	return out
}

// SortedLinks returns the links of g ordered by id.
func SortedLinks(g *common.Graph) []*common.Link {
	out := make([]*common.Link, 0, len(g.Links))
	for _, id := range slices.Sorted(maps.Keys(g.Links)) {
		out = append(out, g.Links[id])
	}
	return out
}
