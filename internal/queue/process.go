package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wsmontes/linkchart/internal/config"
	"github.com/wsmontes/linkchart/pkg/canonical"
	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/events"
	"github.com/wsmontes/linkchart/pkg/importer"
	"github.com/wsmontes/linkchart/pkg/leaselock"
	"github.com/wsmontes/linkchart/pkg/loader"
	"github.com/wsmontes/linkchart/pkg/loader/s3"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/store"
)

// DefaultLeaseTTL bounds how long a crashed worker keeps a graph locked.
const DefaultLeaseTTL = 2 * time.Minute

// Processor handles import_queue messages.
type Processor struct {
	objects  s3.ObjectGetter
	bucket   string
	store    store.GraphStorage
	locks    leaselock.Locker
	pub      Publisher
	leaseTTL time.Duration
}

type NewProcessorParams struct {
	Objects s3.ObjectGetter
	Bucket  string
	Store   store.GraphStorage
	// Locks may be nil when a single worker owns the database.
	Locks leaselock.Locker
	// Publisher may be nil to skip canonicalized notices.
	Publisher Publisher
	LeaseTTL  time.Duration
}

func NewProcessor(params NewProcessorParams) *Processor {
	ttl := params.LeaseTTL
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &Processor{
		objects:  params.Objects,
		bucket:   params.Bucket,
		store:    params.Store,
		locks:    params.Locks,
		pub:      params.Publisher,
		leaseTTL: ttl,
	}
}

// ProcessImportMessage runs one import job end to end. Errors wrapped with
// Permanent should not be retried.
func (p *Processor) ProcessImportMessage(ctx context.Context, body []byte) error {
	job, err := DecodeImportJob(body)
	if err != nil {
		return err
	}
	logger.Info("[Queue] Processing import job", "job", job.JobID, "graph", job.GraphID, "operation", job.Operation)

	opts := config.Default()
	if len(job.Config) > 0 {
		if opts, err = config.Parse(job.Config); err != nil {
			return Permanent(err)
		}
	}
	pipeline, err := canonical.New(opts.PipelineConfig())
	if err != nil {
		return Permanent(err)
	}

	bus := events.NewBus()
	imp := importer.New(bus, pipeline)
	fwd := NewForwarder(p.pub, job.GraphID, job.JobID)
	bus.Subscribe(events.TopicCanonicalized, fwd.Handle)
	bus.Subscribe(events.TopicImportProgress, func(_ context.Context, payload any) error {
		if pr, ok := payload.(events.Progress); ok {
			logger.Debug("[Queue] Import progress", "job", job.JobID, "message", pr.Message, "percentage", pr.Percentage)
		}
		return nil
	})

	run := func(ctx context.Context) error {
		switch job.Operation {
		case OperationRecanonicalize:
			return p.recanonicalize(ctx, imp, job)
		default:
			return p.importFiles(ctx, imp, job, opts)
		}
	}

	if p.locks != nil {
		err = p.locks.WithLease(ctx, leaselock.GraphKey(job.GraphID), leaselock.Options{
			TTL:         p.leaseTTL,
			Wait:        true,
			WaitJitter:  100 * time.Millisecond,
			TokenPrefix: job.JobID + ":",
		}, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fwd.Discard()
		return classify(err)
	}

	sent := fwd.Flush(ctx)
	logger.Info("[Queue] Import job done", "job", job.JobID, "graph", job.GraphID, "notices", sent)
	return nil
}

func (p *Processor) importFiles(ctx context.Context, imp *importer.Importer, job *ImportJob, opts *config.Options) error {
	// A fresh loader per job keeps the byte cache from outliving the job.
	l := s3.NewS3SourceLoaderWithClient(p.bucket, p.objects)
	req := importer.Request{
		Entities: loader.NewSourceFile(loader.NewSourceFileParams{
			ID:     job.JobID,
			Name:   job.Entities.Name,
			Path:   job.Entities.Key,
			Loader: l,
		}),
		Options:    job.Options,
		Assignment: opts.Assignment(),
		SourceID:   job.SourceID,
		SourceName: job.SourceName,
		Merge:      job.Merge,
	}
	if job.Links != nil {
		links := loader.NewSourceFile(loader.NewSourceFileParams{
			ID:     job.JobID,
			Name:   job.Links.Name,
			Path:   job.Links.Key,
			Loader: l,
		})
		req.Links = &links
	}

	res, err := imp.Import(ctx, req)
	if err != nil {
		return err
	}
	return p.save(ctx, job.GraphID, res, job.Merge)
}

// recanonicalize replaces the stored graph with its canonicalized form. The
// stored source list is replaced by a single database source.
func (p *Processor) recanonicalize(ctx context.Context, imp *importer.Importer, job *ImportJob) error {
	g, err := p.store.LoadGraph(ctx, job.GraphID)
	if err != nil {
		if errors.Is(err, store.ErrGraphNotFound) {
			return Permanent(err)
		}
		return err
	}
	res, err := imp.ImportGraph(ctx, importer.GraphRequest{
		Graph:      g,
		SourceID:   job.SourceID,
		SourceName: job.SourceName,
		Kind:       common.SourceKindDatabase,
	})
	if err != nil {
		return err
	}
	return p.save(ctx, job.GraphID, res, false)
}

func (p *Processor) save(ctx context.Context, graphID string, res *importer.Result, merge bool) error {
	if err := p.store.SaveGraph(ctx, graphID, res.Graph, res.Source, merge); err != nil {
		return fmt.Errorf("save graph %s: %w", graphID, err)
	}
	return nil
}

// classify marks input errors as permanent. Lost leases, storage and
// external service failures stay retryable.
func classify(err error) error {
	if errors.Is(err, ErrPermanent) {
		return err
	}
	switch report.KindOf(err) {
	case report.KindFormat, report.KindSchema, report.KindReference:
		return Permanent(err)
	}
	if errors.Is(err, importer.ErrNoCanonicalGraph) {
		return Permanent(err)
	}
	return err
}
