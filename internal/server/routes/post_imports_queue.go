package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/wsmontes/linkchart/internal/queue"
	"github.com/wsmontes/linkchart/internal/server/middleware"
	"github.com/wsmontes/linkchart/pkg/logger"
)

type queueResponse struct {
	Message string `json:"message"`
	JobID   string `json:"jobId,omitempty"`
	GraphID string `json:"graphId,omitempty"`
}

// QueueImportHandler uploads the files to S3 and enqueues an import job for
// the worker. graphId is required.
func QueueImportHandler(c echo.Context) error {
	app := middleware.GetApp(c)
	if app.Queue == nil || app.Uploads == nil {
		return c.JSON(http.StatusServiceUnavailable, queueResponse{Message: "Import queue is not configured"})
	}

	data := new(importForm)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queueResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil || data.GraphID == "" {
		return c.JSON(http.StatusBadRequest, queueResponse{Message: "Invalid request body"})
	}
	// Reject a bad options document now rather than in the worker.
	if _, err := data.options(app); err != nil {
		return c.JSON(http.StatusBadRequest, queueResponse{Message: err.Error()})
	}

	jobID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, queueResponse{Message: "Internal server error"})
	}
	job := queue.ImportJob{
		JobID:      jobID,
		GraphID:    data.GraphID,
		Operation:  queue.OperationImport,
		SourceID:   data.SourceID,
		SourceName: data.SourceName,
		Options:    data.readerOptions(),
		Merge:      data.Merge,
	}
	if data.Config != "" {
		job.Config = json.RawMessage(data.Config)
	}

	ctx := c.Request().Context()
	for _, field := range []string{"entities", "links"} {
		fh, content, err := readFormFile(c, field)
		if err != nil {
			if field == "entities" {
				return c.JSON(http.StatusBadRequest, queueResponse{Message: "Missing entities file"})
			}
			continue
		}
		key, err := app.Uploads.Put(ctx, data.GraphID, fh.Filename, bytes.NewReader(content))
		if err != nil {
			logger.Error("[Queue] Failed to upload import file", "graph", data.GraphID, "err", err)
			return c.JSON(http.StatusInternalServerError, queueResponse{Message: "Internal server error"})
		}
		ref := &queue.FileRef{Key: key, Name: fh.Filename}
		if field == "entities" {
			job.Entities = ref
		} else {
			job.Links = ref
		}
	}

	if err := job.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, queueResponse{Message: err.Error()})
	}
	if err := enqueue(ctx, app, job); err != nil {
		return c.JSON(http.StatusInternalServerError, queueResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusAccepted, queueResponse{Message: "Import queued", JobID: jobID, GraphID: data.GraphID})
}

// RecanonicalizeHandler enqueues a job that runs the stored graph through
// the pipeline again.
func RecanonicalizeHandler(c echo.Context) error {
	app := middleware.GetApp(c)
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, queueResponse{Message: "Import queue is not configured"})
	}
	graphID := c.Param("id")

	jobID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, queueResponse{Message: "Internal server error"})
	}
	job := queue.ImportJob{
		JobID:     jobID,
		GraphID:   graphID,
		Operation: queue.OperationRecanonicalize,
	}
	if err := enqueue(c.Request().Context(), app, job); err != nil {
		return c.JSON(http.StatusInternalServerError, queueResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusAccepted, queueResponse{Message: "Recanonicalization queued", JobID: jobID, GraphID: graphID})
}

func enqueue(ctx context.Context, app *middleware.App, job queue.ImportJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := queue.PublishFIFO(ctx, app.Queue, queue.ImportQueue, body); err != nil {
		logger.Error("[Queue] Failed to enqueue import job", "job", job.JobID, "err", err)
		return err
	}
	logger.Info("[Queue] Import job queued", "job", job.JobID, "graph", job.GraphID, "operation", job.Operation)
	return nil
}
