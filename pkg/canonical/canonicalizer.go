package canonical

import (
	"context"
	"fmt"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/report"
)

// ProgressFunc receives the completion percentage (0..100) and the number of
// warnings recorded so far.
type ProgressFunc func(percentage int, warnings int)

// Options tune one Canonicalize call.
type Options struct {
	Progress ProgressFunc
	// Report collects errors from earlier stages such as the mapper. A new
	// report is created when nil.
	Report *report.Report
}

// Canonicalize processes a raw graph into a canonical graph. Non-fatal
// problems are collected in the returned report. A canceled context aborts
// the batch with ctx.Err() and no graph.
func (p *Pipeline) Canonicalize(ctx context.Context, raw *common.RawGraph, opts Options) (*common.Graph, *report.Report, error) {
	st, release := p.acquire()
	defer release()

	rep := opts.Report
	if rep == nil {
		rep = report.New()
	}
	if raw == nil {
		raw = &common.RawGraph{}
	}
	rep.Pre = statistics(raw.Entities, raw.Links)

	prog := newProgress(opts.Progress, rep, len(raw.Entities)+len(raw.Links))
	ep := &entityProcessor{state: st, rep: rep}
	lp := &linkProcessor{state: st}
	graph := common.NewGraph()

	for _, in := range raw.Entities {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		out, keep, err := ep.process(ctx, in, true)
		prog.step()
		if err != nil {
			id := entityID(in)
			logger.Warn("[Canonical] Entity skipped", "id", id, "err", err)
			rep.Add(report.NewSchemaError(id, err.Error()))
			continue
		}
		if !keep {
			rep.DroppedEntities++
			continue
		}
		mergeEntity(graph, out)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if len(graph.Entities) == 0 && len(raw.Entities) > 0 {
		if err := p.fallback(ctx, ep, raw.Entities, graph, rep); err != nil {
			return nil, nil, err
		}
	}

	for _, in := range raw.Links {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		out, rerr := lp.process(in, graph.Entities)
		prog.step()
		if rerr != nil {
			rep.Add(rerr)
			rep.SkippedLinks++
			continue
		}
		mergeLink(graph, out)
	}

	rep.PrunedLinks = graph.Prune()
	post := graph.Raw()
	rep.Post = statistics(post.Entities, post.Links)
	prog.done()

	logger.Info("[Canonical] Batch canonicalized",
		"entities", len(graph.Entities),
		"links", len(graph.Links),
		"dropped", rep.DroppedEntities,
		"skippedLinks", rep.SkippedLinks,
		"fallback", rep.FallbackApplied,
	)
	return graph, rep, nil
}

// fallback re-admits every input entity when the filter dropped them all.
// Entities are re-processed without filtering; one that fails again is
// admitted with minimal repair.
func (p *Pipeline) fallback(ctx context.Context, ep *entityProcessor, entities []*common.Entity, graph *common.Graph, rep *report.Report) error {
	logger.Warn("[Canonical] Every entity was filtered, retaining all", "count", len(entities))
	rep.FallbackApplied = true
	rep.DroppedEntities = 0
	for n, in := range entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if in == nil {
			continue
		}
		if strings.TrimSpace(in.ID) == "" {
			in = in.Clone()
			in.ID = fallbackID(graph, entities, n)
		}
		out, _, err := ep.process(ctx, in, false)
		if err != nil {
			logger.Warn("[Canonical] Entity repaired", "id", in.ID, "err", err)
			out = ep.repair(in)
		}
		mergeEntity(graph, out)
	}
	return nil
}

// fallbackID names an entity that arrived without an id after its position
// in the batch, skipping ids already taken.
func fallbackID(g *common.Graph, entities []*common.Entity, n int) string {
	taken := func(id string) bool {
		if _, ok := g.Entities[id]; ok {
			return true
		}
		for _, e := range entities {
			if e != nil && e.ID == id {
				return true
			}
		}
		return false
	}
	id := fmt.Sprintf("entity_%d", n)
	for k := 1; taken(id); k++ {
		id = fmt.Sprintf("entity_%d_%d", n, k)
	}
	return id
}

// mergeEntity adds an entity or folds it into an existing one with the same
// id. Non-nil properties overwrite; type, label and provenance only replace
// values that were generated or empty.
func mergeEntity(g *common.Graph, e *common.Entity) {
	existing, ok := g.Entities[e.ID]
	if !ok {
		g.Entities[e.ID] = e
		return
	}
	for k, v := range e.Properties {
		if v != nil {
			existing.Properties[k] = v
		} else if _, has := existing.Properties[k]; !has {
			existing.Properties[k] = nil
		}
	}
	if existing.TypeWasChanged && !e.TypeWasChanged {
		existing.Type, existing.TypeWasChanged = e.Type, false
	}
	if existing.LabelWasGenerated && !e.LabelWasGenerated {
		existing.Label, existing.LabelWasGenerated = e.Label, false
	}
	if existing.SourceID == "" {
		existing.SourceID = e.SourceID
	}
	if existing.SourceName == "" {
		existing.SourceName = e.SourceName
	}
	if existing.SourceColor == "" {
		existing.SourceColor = e.SourceColor
	}
}

func mergeLink(g *common.Graph, l *common.Link) {
	existing, ok := g.Links[l.ID]
	if !ok {
		g.Links[l.ID] = l
		return
	}
	for k, v := range l.Properties {
		existing.Properties[k] = v
	}
}

func entityID(e *common.Entity) string {
	if e == nil {
		return ""
	}
	return e.ID
}

type progress struct {
	fn    ProgressFunc
	rep   *report.Report
	total int
	n     int
	last  int
}

func newProgress(fn ProgressFunc, rep *report.Report, total int) *progress {
	return &progress{fn: fn, rep: rep, total: total, last: -1}
}

func (p *progress) step() {
	p.n++
	if p.fn == nil || p.total == 0 {
		return
	}
	pct := p.n * 100 / p.total
	// Reserve 100 for the end of the batch, after pruning.
	if pct >= 100 {
		pct = 99
	}
	if pct != p.last {
		p.last = pct
		p.fn(pct, p.rep.Warnings())
	}
}

func (p *progress) done() {
	if p.fn != nil {
		p.fn(100, p.rep.Warnings())
	}
}
