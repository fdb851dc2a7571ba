package server

import (
	"github.com/labstack/echo/v4"

	"github.com/wsmontes/linkchart/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Import routes
	apiRoutes.POST("/imports", routes.ImportHandler)
	apiRoutes.POST("/imports/queue", routes.QueueImportHandler)

	// Graph routes
	apiRoutes.GET("/graphs/:id", routes.GetGraphHandler)
	apiRoutes.DELETE("/graphs/:id", routes.DeleteGraphHandler)
	apiRoutes.POST("/graphs/:id/recanonicalize", routes.RecanonicalizeHandler)

	// Metadata routes
	apiRoutes.GET("/schema", routes.GetSchemaHandler)
	apiRoutes.GET("/types", routes.GetTypesHandler)
}
