package routes

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wsmontes/linkchart/internal/queue"
	"github.com/wsmontes/linkchart/internal/server/middleware"
	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/events"
	"github.com/wsmontes/linkchart/pkg/importer"
	"github.com/wsmontes/linkchart/pkg/leaselock"
	"github.com/wsmontes/linkchart/pkg/loader"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/report"
)

type importResponse struct {
	Message string             `json:"message"`
	GraphID string             `json:"graphId,omitempty"`
	Graph   *common.Graph      `json:"graph,omitempty"`
	Source  *common.DataSource `json:"source,omitempty"`
	Report  *report.Report     `json:"report,omitempty"`
	Errors  []string           `json:"errors,omitempty"`
}

// ImportHandler canonicalizes the uploaded "entities" file, plus an optional
// "links" file, and returns the graph. With graphId set the result is also
// stored, merged into the stored graph when merge is true.
func ImportHandler(c echo.Context) error {
	app := middleware.GetApp(c)

	data := new(importForm)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{Message: "Invalid request body"})
	}
	opts, err := data.options(app)
	if err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{Message: err.Error()})
	}
	pipeline, err := data.pipeline(app, opts)
	if err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{Message: err.Error()})
	}

	entitiesHeader, entitiesData, err := readFormFile(c, "entities")
	if err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{Message: "Missing entities file"})
	}
	mem := loader.NewMemoryLoader(common.SourceKindFile)
	mem.Put("entities/"+entitiesHeader.Filename, entitiesData)
	req := importer.Request{
		Entities: loader.NewSourceFile(loader.NewSourceFileParams{
			Name:   entitiesHeader.Filename,
			Path:   "entities/" + entitiesHeader.Filename,
			Loader: mem,
		}),
		Options:    data.readerOptions(),
		Assignment: opts.Assignment(),
		SourceID:   data.SourceID,
		SourceName: data.SourceName,
		Merge:      data.Merge,
	}
	if linksHeader, linksData, err := readFormFile(c, "links"); err == nil {
		mem.Put("links/"+linksHeader.Filename, linksData)
		links := loader.NewSourceFile(loader.NewSourceFileParams{
			Name:   linksHeader.Filename,
			Path:   "links/" + linksHeader.Filename,
			Loader: mem,
		})
		req.Links = &links
	}

	ctx := c.Request().Context()
	bus := events.NewBus()
	imp := importer.New(bus, pipeline)
	var fwd *queue.Forwarder
	if data.GraphID != "" && app.Queue != nil {
		fwd = queue.NewForwarder(app.Queue, data.GraphID, "")
		bus.Subscribe(events.TopicCanonicalized, fwd.Handle)
	}

	res, err := imp.Import(ctx, req)
	if err != nil {
		status := statusFor(err)
		return c.JSON(status, importResponse{Message: errorMessage(status, err)})
	}

	if data.GraphID != "" {
		if err := save(ctx, app, data.GraphID, res, data.Merge); err != nil {
			logger.Error("[Store] Failed to save graph", "graph", data.GraphID, "err", err)
			return c.JSON(http.StatusInternalServerError, importResponse{Message: "Internal server error"})
		}
		if fwd != nil {
			fwd.Flush(ctx)
		}
	}

	return c.JSON(http.StatusOK, importResponse{
		Message: "Import successful",
		GraphID: data.GraphID,
		Graph:   res.Graph,
		Source:  res.Source,
		Report:  res.Report,
		Errors:  res.Report.Messages(),
	})
}

func save(ctx context.Context, app *middleware.App, graphID string, res *importer.Result, merge bool) error {
	write := func(ctx context.Context) error {
		return app.Store.SaveGraph(ctx, graphID, res.Graph, res.Source, merge)
	}
	if app.Locks == nil {
		return write(ctx)
	}
	return app.Locks.WithLease(ctx, leaselock.GraphKey(graphID), leaselock.Options{
		TTL:  queue.DefaultLeaseTTL,
		Wait: true,
	}, write)
}
