package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wsmontes/linkchart/internal/server/middleware"
	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/store"
)

type graphResponse struct {
	Message string              `json:"message"`
	GraphID string              `json:"graphId,omitempty"`
	Graph   *common.Graph       `json:"graph,omitempty"`
	Sources []common.DataSource `json:"sources,omitempty"`
}

func GetGraphHandler(c echo.Context) error {
	app := middleware.GetApp(c)
	ctx := c.Request().Context()
	graphID := c.Param("id")

	g, err := app.Store.LoadGraph(ctx, graphID)
	if errors.Is(err, store.ErrGraphNotFound) {
		return c.JSON(http.StatusNotFound, graphResponse{Message: "Graph not found"})
	}
	if err != nil {
		logger.Error("[Store] Failed to load graph", "graph", graphID, "err", err)
		return c.JSON(http.StatusInternalServerError, graphResponse{Message: "Internal server error"})
	}
	sources, err := app.Store.ListSources(ctx, graphID)
	if err != nil {
		logger.Error("[Store] Failed to list sources", "graph", graphID, "err", err)
		return c.JSON(http.StatusInternalServerError, graphResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, graphResponse{
		Message: "Graph loaded",
		GraphID: graphID,
		Graph:   g,
		Sources: sources,
	})
}
