package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wsmontes/linkchart/internal/config"
	"github.com/wsmontes/linkchart/internal/queue"
	mid "github.com/wsmontes/linkchart/internal/server/middleware"
	"github.com/wsmontes/linkchart/internal/storage"
	"github.com/wsmontes/linkchart/internal/util"
	"github.com/wsmontes/linkchart/pkg/canonical"
	"github.com/wsmontes/linkchart/pkg/logger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance serving app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(util.GetEnvString("BODY_LIMIT", "512M")))

	RegisterRoutes(e)
	return e
}

// LoadOptions reads OPTIONS_FILE, or returns the defaults when it is unset.
func LoadOptions() (*config.Options, error) {
	path := util.GetEnv("OPTIONS_FILE")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// Run wires the stores and queue configured in the environment and serves
// until ctx is done or the listener fails.
func Run(ctx context.Context, opts *config.Options) error {
	pipeline, err := canonical.New(opts.PipelineConfig())
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	db, err := storage.OpenDatabase(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	app := &mid.App{
		Store:    db.Store,
		Pipeline: pipeline,
		Options:  opts,
		Locks:    db.Locker(),
	}

	if util.GetEnv("AWS_BUCKET") != "" {
		settings := storage.SettingsFromEnv()
		client, err := storage.NewS3Client(ctx, settings)
		if err != nil {
			return fmt.Errorf("create s3 client: %w", err)
		}
		app.Uploads = storage.NewUploads(client, settings.Bucket)
	}

	if util.GetEnv("RABBITMQ_HOST") != "" {
		conn, err := queue.Dial(ctx, queue.URLFromEnv())
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("open channel: %w", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, []string{queue.ImportQueue}); err != nil {
			return fmt.Errorf("declare queues: %w", err)
		}
		app.Queue = ch
	}

	e := New(app)
	errc := make(chan error, 1)
	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
