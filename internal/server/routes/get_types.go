package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wsmontes/linkchart/internal/server/middleware"
	"github.com/wsmontes/linkchart/pkg/reader"
	"github.com/wsmontes/linkchart/pkg/schema"
)

type entityTypeDTO struct {
	Name    string         `json:"name"`
	Icon    string         `json:"icon"`
	Color   string         `json:"color"`
	Profile schema.Profile `json:"profile"`
}

type linkTypeDTO struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
	Keywords []string `json:"keywords,omitempty"`
}

type typesResponse struct {
	EntityTypes []entityTypeDTO     `json:"entityTypes"`
	LinkTypes   []linkTypeDTO       `json:"linkTypes"`
	Formats     []reader.FormatInfo `json:"formats"`
}

// GetTypesHandler lists the registered entity and link types and the
// supported input formats.
func GetTypesHandler(c echo.Context) error {
	app := middleware.GetApp(c)
	types := schema.Default()
	if app.Pipeline != nil {
		types = app.Pipeline.Types()
	}

	res := typesResponse{Formats: reader.Formats()}
	for _, et := range types.EntityTypes() {
		res.EntityTypes = append(res.EntityTypes, entityTypeDTO{
			Name:    et.Name,
			Icon:    et.Icon,
			Color:   et.Color,
			Profile: et.Profile,
		})
	}
	for _, lt := range types.LinkTypes() {
		res.LinkTypes = append(res.LinkTypes, linkTypeDTO{
			Name:     lt.Name,
			Label:    lt.Label,
			Color:    lt.Color,
			Keywords: lt.Keywords,
		})
	}
	return c.JSON(http.StatusOK, res)
}
