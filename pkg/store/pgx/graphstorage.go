package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/store"
)

// DefaultChunkSize is the number of rows written per batch round trip.
const DefaultChunkSize = 500

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements store.GraphStorage on PostgreSQL. Graphs are
// written in one transaction, with rows sent in chunked batches.
type GraphDBStorage struct {
	conn      pgxIConn
	chunkSize int
}

var _ store.GraphStorage = (*GraphDBStorage)(nil)

type GraphDBStorageOption func(*GraphDBStorage)

func WithChunkSize(n int) GraphDBStorageOption {
	return func(s *GraphDBStorage) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// NewGraphDBStorageWithConnection creates a GraphDBStorage using an existing
// connection or pool. The tables come from the migrations directory.
func NewGraphDBStorageWithConnection(conn pgxIConn, opts ...GraphDBStorageOption) *GraphDBStorage {
	s := &GraphDBStorage{conn: conn, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func (s *GraphDBStorage) SaveGraph(ctx context.Context, graphID string, g *common.Graph, src *common.DataSource, merge bool) (err error) {
	if graphID == "" {
		return errors.New("graph id is empty")
	}
	if g == nil {
		g = common.NewGraph()
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if _, err = tx.Exec(ctx, upsertGraphSQL, graphID); err != nil {
		return fmt.Errorf("upsert graph: %w", err)
	}
	if !merge {
		for _, q := range []string{deleteLinksSQL, deleteEntitiesSQL, deleteSourcesSQL} {
			if _, err = tx.Exec(ctx, q, graphID); err != nil {
				return fmt.Errorf("clear graph: %w", err)
			}
		}
	}

	entities := store.SortedEntities(g)
	err = store.ChunkRange(len(entities), s.chunkSize, func(start, end int) error {
		b := &pgxv5.Batch{}
		for _, e := range entities[start:end] {
			args, err := entityArgs(graphID, e)
			if err != nil {
				return err
			}
			b.Queue(upsertEntitySQL, args...)
		}
		return sendBatch(ctx, tx, b)
	})
	if err != nil {
		return fmt.Errorf("save entities: %w", err)
	}

	links := store.SortedLinks(g)
	err = store.ChunkRange(len(links), s.chunkSize, func(start, end int) error {
		b := &pgxv5.Batch{}
		for _, l := range links[start:end] {
			args, err := linkArgs(graphID, l)
			if err != nil {
				return err
			}
			b.Queue(insertLinkSQL, args...)
		}
		return sendBatch(ctx, tx, b)
	})
	if err != nil {
		return fmt.Errorf("save links: %w", err)
	}

	if src != nil {
		if _, err = tx.Exec(ctx, upsertSourceSQL, sourceArgs(graphID, src)...); err != nil {
			return fmt.Errorf("save source: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Info("[Store] Graph saved", "graph", graphID, "entities", len(entities), "links", len(links), "merge", merge)
	return nil
}

func sendBatch(ctx context.Context, tx pgxv5.Tx, b *pgxv5.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, b)
	for range b.Len() {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

func (s *GraphDBStorage) LoadGraph(ctx context.Context, graphID string) (*common.Graph, error) {
	var one int
	if err := s.conn.QueryRow(ctx, graphExistsSQL, graphID).Scan(&one); err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, store.ErrGraphNotFound
		}
		return nil, err
	}

	g := common.NewGraph()

	rows, err := s.conn.Query(ctx, selectEntitiesSQL, graphID)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	for rows.Next() {
		var r entityRow
		if err := rows.Scan(&r.ID, &r.Type, &r.Label, &r.Properties, &r.SourceID, &r.SourceName, &r.SourceColor, &r.TypeWasChanged, &r.LabelWasGenerated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e, err := r.entity()
		if err != nil {
			rows.Close()
			return nil, err
		}
		g.Entities[e.ID] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}

	rows, err = s.conn.Query(ctx, selectLinksSQL, graphID)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	for rows.Next() {
		var r linkRow
		if err := rows.Scan(&r.ID, &r.Source, &r.Target, &r.Type, &r.Label, &r.Properties); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan link: %w", err)
		}
		l, err := r.link()
		if err != nil {
			rows.Close()
			return nil, err
		}
		g.Links[l.ID] = l
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}

	if n := g.Prune(); n > 0 {
		logger.Warn("[Store] Pruned dangling links on load", "graph", graphID, "count", n)
	}
	return g, nil
}

func (s *GraphDBStorage) DeleteGraph(ctx context.Context, graphID string) error {
	tag, err := s.conn.Exec(ctx, deleteGraphSQL, graphID)
	if err != nil {
		return fmt.Errorf("delete graph: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrGraphNotFound
	}
	logger.Info("[Store] Graph deleted", "graph", graphID)
	return nil
}

func (s *GraphDBStorage) ListSources(ctx context.Context, graphID string) ([]common.DataSource, error) {
	rows, err := s.conn.Query(ctx, selectSourcesSQL, graphID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []common.DataSource
	for rows.Next() {
		var src common.DataSource
		if err := rows.Scan(
			&src.ID, &src.Name, &src.Kind, &src.Icon, &src.Color,
			&src.Metadata.ImportedAt, &src.Metadata.EntityCount, &src.Metadata.LinkCount,
		); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
