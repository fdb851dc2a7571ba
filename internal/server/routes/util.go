package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/wsmontes/linkchart/internal/config"
	"github.com/wsmontes/linkchart/internal/server/middleware"
	"github.com/wsmontes/linkchart/pkg/canonical"
	"github.com/wsmontes/linkchart/pkg/reader"
	"github.com/wsmontes/linkchart/pkg/report"
)

type messageResponse struct {
	Message string `json:"message"`
}

// importForm holds the non-file fields shared by the import routes.
type importForm struct {
	GraphID       string `form:"graphId"`
	SourceID      string `form:"sourceId"`
	SourceName    string `form:"sourceName"`
	Format        string `form:"format" validate:"omitempty,oneof=json csv xlsx xls graphml gexf cypher"`
	EntitiesSheet string `form:"entitiesSheet"`
	LinksSheet    string `form:"linksSheet"`
	Delimiter     string `form:"delimiter" validate:"omitempty,len=1"`
	RepairJSON    bool   `form:"repairJson"`
	Merge         bool   `form:"merge"`
	// Config is an options document overriding the server defaults.
	Config string `form:"config"`
}

func (f *importForm) readerOptions() reader.Options {
	opts := reader.Options{
		Format:        reader.Format(f.Format),
		EntitiesSheet: f.EntitiesSheet,
		LinksSheet:    f.LinksSheet,
		RepairJSON:    f.RepairJSON,
	}
	if f.Delimiter != "" {
		opts.Delimiter, _ = utf8.DecodeRuneInString(f.Delimiter)
	}
	return opts
}

// options returns the request's options document, or the server defaults.
func (f *importForm) options(app *middleware.App) (*config.Options, error) {
	if strings.TrimSpace(f.Config) == "" {
		if app.Options != nil {
			return app.Options, nil
		}
		return config.Default(), nil
	}
	return config.Parse([]byte(f.Config))
}

// pipeline reuses the shared pipeline unless the request sent options.
func (f *importForm) pipeline(app *middleware.App, opts *config.Options) (*canonical.Pipeline, error) {
	if strings.TrimSpace(f.Config) == "" && app.Pipeline != nil {
		return app.Pipeline, nil
	}
	return canonical.New(opts.PipelineConfig())
}

func readFormFile(c echo.Context, field string) (*multipart.FileHeader, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	return fh, data, nil
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return 499
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch report.KindOf(err) {
	case report.KindFormat, report.KindSchema, report.KindReference:
		return http.StatusUnprocessableEntity
	case report.KindExternalService:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "Internal server error"
	}
	return fmt.Sprintf("Import failed: %v", err)
}
