package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wsmontes/linkchart/internal/server/middleware"
	"github.com/wsmontes/linkchart/pkg/leaselock"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/store"
)

// DeleteGraphHandler removes the stored graph and any uploads queued for it.
func DeleteGraphHandler(c echo.Context) error {
	app := middleware.GetApp(c)
	ctx := c.Request().Context()
	graphID := c.Param("id")

	var err error
	if app.Locks == nil {
		err = app.Store.DeleteGraph(ctx, graphID)
	} else {
		err = app.Locks.WithLease(ctx, leaselock.GraphKey(graphID), leaselock.Options{Wait: true}, func(ctx context.Context) error {
			return app.Store.DeleteGraph(ctx, graphID)
		})
	}
	if errors.Is(err, store.ErrGraphNotFound) {
		return c.JSON(http.StatusNotFound, messageResponse{Message: "Graph not found"})
	}
	if err != nil {
		logger.Error("[Store] Failed to delete graph", "graph", graphID, "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	if app.Uploads != nil {
		if err := app.Uploads.DeleteGraph(ctx, graphID); err != nil {
			logger.Warn("[S3] Failed to delete graph uploads", "graph", graphID, "err", err)
		}
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Graph deleted"})
}
