// Package importer runs import operations: it loads source files, reads and
// maps them into raw graphs, hands them to the canonicalizer through the
// event bus and publishes the canonical result.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wsmontes/linkchart/pkg/canonical"
	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/events"
	"github.com/wsmontes/linkchart/pkg/loader"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/mapper"
	"github.com/wsmontes/linkchart/pkg/reader"
	"github.com/wsmontes/linkchart/pkg/report"
)

// State is a step of an import operation.
type State string

const (
	StateIdle       State = "idle"
	StateReading    State = "reading"
	StateMapping    State = "mapping"
	StateProcessing State = "processing"
	StatePublishing State = "publishing"
)

// ErrNoCanonicalGraph is returned when the import:data interceptors leave
// something other than a canonical batch behind.
var ErrNoCanonicalGraph = errors.New("import:data handlers produced no canonical graph")

// Batch travels through the import:data topic. The importer publishes it
// with Raw set; the canonicalizer replaces it with one holding Graph.
type Batch struct {
	Raw    *common.RawGraph
	Graph  *common.Graph
	Report *report.Report
}

// Request describes one file-based import.
type Request struct {
	Entities loader.SourceFile
	// Links is an optional second file holding link records.
	Links      *loader.SourceFile
	Options    reader.Options
	Assignment mapper.Assignment
	// SourceID defaults to a generated id, SourceName to the entities file
	// name.
	SourceID   string
	SourceName string
	Merge      bool
}

// GraphRequest re-imports an already materialized graph, such as one loaded
// from the graph store.
type GraphRequest struct {
	Graph      *common.Graph
	SourceID   string
	SourceName string
	Kind       common.SourceKind
	Merge      bool
}

// Result is the outcome of a successful import.
type Result struct {
	Graph  *common.Graph
	Report *report.Report
	Source *common.DataSource
}

// Importer drives imports through idle → reading → mapping → processing →
// publishing. Concurrent imports are serialized.
type Importer struct {
	bus      *events.Bus
	pipeline *canonical.Pipeline
	readers  *reader.Registry
	mapper   *mapper.Mapper
	now      func() time.Time

	run     sync.Mutex
	mu      sync.RWMutex
	state   State
	graph   *common.Graph
	sources map[string]*common.DataSource
}

type Option func(*Importer)

// WithReaders replaces the default reader registry.
func WithReaders(r *reader.Registry) Option {
	return func(i *Importer) { i.readers = r }
}

// WithClock replaces time.Now for source metadata.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// New creates an importer and registers the canonicalizer as the first
// import:data handler, so later subscribers see canonical output.
func New(bus *events.Bus, pipeline *canonical.Pipeline, opts ...Option) *Importer {
	i := &Importer{
		bus:      bus,
		pipeline: pipeline,
		mapper:   mapper.New(),
		now:      time.Now,
		state:    StateIdle,
		graph:    common.NewGraph(),
		sources:  make(map[string]*common.DataSource),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.readers == nil {
		i.readers = reader.NewRegistry(pipeline.Types())
	}
	bus.Subscribe(events.TopicImportData, i.canonicalize)
	return i
}

// State returns the current step.
func (i *Importer) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Graph returns a copy of the graph built by the imports so far.
func (i *Importer) Graph() *common.Graph {
	i.mu.RLock()
	defer i.mu.RUnlock()
	g := common.NewGraph()
	g.Merge(i.graph)
	return g
}

// Sources returns the descriptors of every imported source.
func (i *Importer) Sources() []*common.DataSource {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]*common.DataSource, 0, len(i.sources))
	for _, s := range i.sources {
		c := *s
		out = append(out, &c)
	}
	return out
}

func (i *Importer) setState(s State) {
	i.mu.Lock()
	i.state = s
	i.mu.Unlock()
}

// Import loads, reads, maps and canonicalizes the request's files. On
// failure the importer returns to idle and emits import:error unless the
// context was canceled. Nothing else is published for a failed batch.
func (i *Importer) Import(ctx context.Context, req Request) (*Result, error) {
	i.run.Lock()
	defer i.run.Unlock()
	defer i.setState(StateIdle)

	res, err := i.importFiles(ctx, req)
	if err != nil {
		i.fail(ctx, err)
		return nil, err
	}
	return res, nil
}

// ImportGraph canonicalizes an existing graph as a new batch, skipping the
// reading and mapping steps.
func (i *Importer) ImportGraph(ctx context.Context, req GraphRequest) (*Result, error) {
	i.run.Lock()
	defer i.run.Unlock()
	defer i.setState(StateIdle)

	if req.Graph == nil {
		req.Graph = common.NewGraph()
	}
	id := req.SourceID
	if id == "" {
		var err error
		if id, err = gonanoid.New(); err != nil {
			return nil, fmt.Errorf("nanoid: %w", err)
		}
	}
	name := req.SourceName
	if name == "" {
		name = id
	}
	kind := req.Kind
	if kind == "" {
		kind = common.SourceKindDatabase
	}

	res, err := i.process(ctx, req.Graph.Raw(), report.New(), newDataSource(id, name, kind), req.Merge)
	if err != nil {
		i.fail(ctx, err)
		return nil, err
	}
	return res, nil
}

func (i *Importer) importFiles(ctx context.Context, req Request) (*Result, error) {
	id := req.SourceID
	if id == "" {
		id = req.Entities.ID
	}
	if id == "" {
		var err error
		if id, err = gonanoid.New(); err != nil {
			return nil, fmt.Errorf("nanoid: %w", err)
		}
	}
	name := req.SourceName
	if name == "" {
		name = req.Entities.Name
	}
	src := newDataSource(id, name, req.Entities.Kind)

	i.setState(StateReading)
	i.progress(ctx, "Reading "+req.Entities.Name, 0, 0)
	data, links, err := load(ctx, req)
	if err != nil {
		return nil, err
	}
	source := reader.Source{
		ID:      id,
		Name:    req.Entities.Name,
		Data:    data,
		Options: req.Options,
	}
	if req.Links != nil {
		source.LinksName = req.Links.Name
		source.Links = links
	}
	ds, err := i.readers.Read(ctx, source)
	if err != nil {
		return nil, err
	}

	i.setState(StateMapping)
	i.progress(ctx, "Mapping fields", 0, 0)
	rep := report.New()
	raw, err := i.mapper.Map(ds, req.Assignment, rep)
	if err != nil {
		return nil, err
	}

	return i.process(ctx, raw, rep, src, req.Merge)
}

// load fetches the entities and links files concurrently.
func load(ctx context.Context, req Request) (data, links []byte, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := req.Entities.GetBytes(gctx)
		if err != nil {
			return fmt.Errorf("load %s: %w", req.Entities.Name, err)
		}
		data = b
		return nil
	})
	if req.Links != nil {
		g.Go(func() error {
			b, err := req.Links.GetBytes(gctx)
			if err != nil {
				return fmt.Errorf("load %s: %w", req.Links.Name, err)
			}
			links = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return data, links, nil
}

func (i *Importer) process(ctx context.Context, raw *common.RawGraph, rep *report.Report, src *common.DataSource, merge bool) (*Result, error) {
	i.setState(StateProcessing)
	stamp(raw, src)

	payload := &events.ImportData{
		Data:     &Batch{Raw: raw, Report: rep},
		SourceID: src.ID,
		Merge:    merge,
	}
	if err := i.bus.Publish(ctx, events.TopicImportData, payload); err != nil {
		return nil, err
	}
	batch, ok := payload.Data.(*Batch)
	if !ok || batch.Graph == nil {
		return nil, ErrNoCanonicalGraph
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.setState(StatePublishing)
	fillMetadata(src, batch.Graph, i.now())

	// The merged view is committed only once every handler accepted it.
	next := common.NewGraph()
	i.mu.RLock()
	if merge {
		next.Merge(i.graph)
	}
	i.mu.RUnlock()
	next.Merge(batch.Graph)

	if merge {
		view := common.NewGraph()
		view.Merge(next)
		if err := i.bus.Publish(ctx, events.TopicImportComplete, events.Complete{Graph: view}); err != nil {
			return nil, err
		}
	}
	if err := i.bus.Publish(ctx, events.TopicCanonicalized, events.Canonicalized{
		Graph:  batch.Graph,
		Report: batch.Report,
		Source: src,
	}); err != nil {
		return nil, err
	}

	i.mu.Lock()
	i.graph = next
	if !merge {
		clear(i.sources)
	}
	i.sources[src.ID] = src
	i.mu.Unlock()

	logger.Info("[Importer] Import finished",
		"source", src.ID,
		"name", src.Name,
		"entities", src.Metadata.EntityCount,
		"links", src.Metadata.LinkCount,
		"merge", merge,
	)
	return &Result{Graph: batch.Graph, Report: batch.Report, Source: src}, nil
}

// canonicalize is the import:data interceptor that turns a raw batch into a
// canonical one. Payloads it does not recognize pass through.
func (i *Importer) canonicalize(ctx context.Context, payload any) error {
	data, ok := payload.(*events.ImportData)
	if !ok {
		return nil
	}
	batch, ok := data.Data.(*Batch)
	if !ok || batch.Raw == nil {
		return nil
	}

	g, rep, err := i.pipeline.Canonicalize(ctx, batch.Raw, canonical.Options{
		Report: batch.Report,
		Progress: func(pct, warnings int) {
			i.progress(ctx, "Processing", pct, warnings)
		},
	})
	if err != nil {
		return err
	}
	data.Data = &Batch{Graph: g, Report: rep}
	return nil
}

func (i *Importer) progress(ctx context.Context, msg string, pct, warnings int) {
	err := i.bus.Publish(ctx, events.TopicImportProgress, events.Progress{
		Message:    msg,
		Percentage: pct,
		Warnings:   warnings,
	})
	if err != nil {
		logger.Warn("[Importer] Progress handler failed", "err", err)
	}
}

func (i *Importer) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		logger.Info("[Importer] Import canceled", "err", err)
		return
	}
	logger.Error("[Importer] Import failed", "err", err)
	kind := report.KindOf(err)
	if kind == "" {
		kind = KindImport
	}
	if perr := i.bus.Publish(context.WithoutCancel(ctx), events.TopicImportError, events.ImportError{
		Kind:    kind,
		Message: err.Error(),
	}); perr != nil {
		logger.Warn("[Importer] Error handler failed", "err", perr)
	}
}

// KindImport classifies failures that are not pipeline errors, such as a
// file that could not be loaded.
const KindImport report.Kind = "ImportError"
