package routes

import (
	"net/http"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/labstack/echo/v4"

	"github.com/wsmontes/linkchart/pkg/common"
)

var graphSchema = sync.OnceValue(func() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	s := reflector.Reflect(&common.Graph{})
	s.Title = "Canonical graph"
	return s
})

// GetSchemaHandler returns the JSON Schema of the canonical graph document.
func GetSchemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, graphSchema())
}
