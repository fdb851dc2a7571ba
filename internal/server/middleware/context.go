package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/wsmontes/linkchart/internal/config"
	"github.com/wsmontes/linkchart/internal/queue"
	"github.com/wsmontes/linkchart/internal/storage"
	"github.com/wsmontes/linkchart/pkg/canonical"
	"github.com/wsmontes/linkchart/pkg/leaselock"
	"github.com/wsmontes/linkchart/pkg/store"
)

// App holds the process-wide dependencies shared by all handlers.
type App struct {
	Store store.GraphStorage
	// Pipeline is built from Options and shared by requests that do not send
	// their own options document.
	Pipeline *canonical.Pipeline
	Options  *config.Options

	// Queue and Uploads are nil when RabbitMQ or S3 are not configured. The
	// queued import route then answers 503.
	Queue   queue.Publisher
	Uploads *storage.Uploads
	// Locks is nil when the store is not shared between processes.
	Locks leaselock.Locker
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}

// GetApp returns the App injected by AppContextMiddleware.
func GetApp(c echo.Context) *App {
	if cc, ok := c.(*AppContext); ok {
		return cc.App
	}
	return nil
}
